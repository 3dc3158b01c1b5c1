package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/query"
	"github.com/NotNullDev/nanomgmt/internal/remote"
	"github.com/NotNullDev/nanomgmt/internal/repository"
	"github.com/NotNullDev/nanomgmt/internal/server"
	"github.com/NotNullDev/nanomgmt/internal/service"
	"github.com/NotNullDev/nanomgmt/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type fixture struct {
	srv    *httptest.Server
	store  *repository.SQLiteStore
	world  testutil.World
	client *remote.Client
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := testutil.NewTestStore(t)
	w := testutil.SeedWorld(t, store)

	h, err := server.New(server.Config{Store: store, JWTSecret: secret})
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	token, err := server.IssueToken(secret, w.Employee.ID, time.Hour)
	require.NoError(t, err)
	return fixture{srv: srv, store: store, world: w, client: remote.New(srv.URL+server.DefaultBasePath, token)}
}

func TestHealth_NoAuthNeeded(t *testing.T) {
	f := newFixture(t)
	anon := remote.New(f.srv.URL+server.DefaultBasePath, "")
	assert.NoError(t, anon.Health(context.Background()))
}

func TestRecords_RequireAuth(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/api/collections/projects/records")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unauthorized", body.Error.Code)

	forged, err := server.IssueToken("other-secret", f.world.Employee.ID, time.Hour)
	require.NoError(t, err)
	bad := remote.New(f.srv.URL+server.DefaultBasePath, forged)
	_, err = bad.Collection(domain.CollectionProjects).FetchAll(context.Background(), query.Predicate{})
	var apiErr *remote.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestRoundTrip_ReferenceData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	teams, err := f.client.Collection(domain.CollectionTeams).FetchAll(ctx,
		query.Where(query.Clause{Field: "managers", Op: query.OpAnyEq, Value: f.world.Manager.ID}))
	require.NoError(t, err)
	require.Len(t, teams, 1)
	team, err := domain.DecodeTeam(teams[0])
	require.NoError(t, err)
	assert.Equal(t, f.world.TeamA.ID, team.ID)
	assert.Equal(t, f.world.TeamA.ManagerIDs, team.ManagerIDs)
	assert.Equal(t, f.world.TeamA.MemberIDs, team.MemberIDs)

	acts, err := f.client.Collection(domain.CollectionActivities).FetchAll(ctx, query.Predicate{})
	require.NoError(t, err)
	assert.Len(t, acts, 2)
}

func TestRoundTrip_TaskLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tasks := f.client.Collection(domain.CollectionTasks)

	draft := testutil.NewTestTask(f.world.ActA, f.world.Employee.ID, testutil.WithComment("wrote tests"))
	created, err := tasks.Create(ctx, draft.Record())
	require.NoError(t, err)
	task, err := domain.DecodeTask(created)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", task.TeamName)
	assert.Equal(t, domain.DefaultTaskHours, task.Duration)

	updated, err := tasks.Update(ctx, task.ID, domain.Record{"comment": "wrote more tests"})
	require.NoError(t, err)
	assert.Equal(t, "wrote more tests", updated["comment"])

	page, err := tasks.FetchPage(ctx, 1, 10,
		query.Where(query.Eq("team", f.world.TeamA.ID), query.Eq("status", "none")),
		query.Sort{Field: "date", Direction: domain.SortDesc})
	require.NoError(t, err)
	assert.Equal(t, 1, page.AllCount)
	require.Len(t, page.Items, 1)
	assert.Equal(t, task.ID, page.Items[0].ID())
}

func TestRoundTrip_ErrorsMapToSentinels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.Collection(domain.CollectionTasks).FetchOne(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.client.Collection("widgets").FetchAll(ctx, query.Predicate{})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.client.Collection(domain.CollectionTasks).FetchAll(ctx, query.Where(query.Eq("nope", "x")))
	assert.ErrorIs(t, err, query.ErrInvalidPredicate)

	_, err = f.client.Collection(domain.CollectionProjects).Create(ctx, domain.Record{"name": ""})
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)
	var apiErr *remote.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "validation_failed")
}

func TestMe_AndCurrentUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.world.Employee.ID, id)

	id, err = f.client.CurrentUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.world.Employee.ID, id)

	_, err = remote.New(f.srv.URL, "").CurrentUserID(ctx)
	assert.ErrorIs(t, err, remote.ErrNoToken)
}

func TestIssueToken_Validation(t *testing.T) {
	_, err := server.IssueToken("", "u1", time.Hour)
	assert.Error(t, err)
	_, err = server.IssueToken(secret, "", time.Hour)
	assert.Error(t, err)
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := server.New(server.Config{})
	assert.Error(t, err)
}

func TestTaskCreate_StartsUnreviewedWithActivityTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tasks := f.client.Collection(domain.CollectionTasks)

	draft := testutil.NewTestTask(f.world.ActB, f.world.Employee.ID, testutil.WithStatus(domain.TaskAccepted))
	draft.TeamID = ""
	created, err := tasks.Create(ctx, draft.Record())
	require.NoError(t, err)
	assert.Equal(t, string(domain.TaskNone), created["status"])
	assert.Equal(t, f.world.TeamB.ID, created["team"])

	draft.TeamID = f.world.TeamA.ID
	_, err = tasks.Create(ctx, draft.Record())
	var apiErr *remote.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
}

func TestTaskPatch_StatusNeedsTeamManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := testutil.MustCreateTask(t, f.store, testutil.NewTestTask(f.world.ActA, f.world.Employee.ID))

	_, err := f.client.Collection(domain.CollectionTasks).Update(ctx, task.ID, domain.Record{"status": "accepted"})
	var apiErr *remote.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "forbidden")

	_, err = f.client.Collection(domain.CollectionTasks).Update(ctx, task.ID, domain.Record{"team": f.world.TeamB.ID})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)

	token, err := server.IssueToken(secret, f.world.Manager.ID, time.Hour)
	require.NoError(t, err)
	manager := remote.New(f.srv.URL+server.DefaultBasePath, token)
	out, err := service.NewApprovalService(manager).Accept(ctx, f.world.Manager.ID, task.ID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, domain.TaskAccepted, out[0].Status)
}
