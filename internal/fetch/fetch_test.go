package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/query"
	"github.com/NotNullDev/nanomgmt/internal/repository"
	"github.com/NotNullDev/nanomgmt/internal/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Collection(c domain.Collection) repository.Collection {
	args := m.Called(c)
	return args.Get(0).(repository.Collection)
}

func (m *mockStore) CurrentUserID(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockStore) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockCollection struct {
	mock.Mock
}

func (m *mockCollection) FetchAll(ctx context.Context, filter query.Predicate) ([]domain.Record, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Record), args.Error(1)
}

func (m *mockCollection) FetchPage(ctx context.Context, page, limit int, filter query.Predicate, sort query.Sort) (repository.Page, error) {
	args := m.Called(ctx, page, limit, filter, sort)
	return args.Get(0).(repository.Page), args.Error(1)
}

func (m *mockCollection) FetchOne(ctx context.Context, id string) (domain.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Record), args.Error(1)
}

func (m *mockCollection) Create(ctx context.Context, rec domain.Record) (domain.Record, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(domain.Record), args.Error(1)
}

func (m *mockCollection) Update(ctx context.Context, id string, patch domain.Record) (domain.Record, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(domain.Record), args.Error(1)
}

func teamRecs(ids ...string) []domain.Record {
	out := make([]domain.Record, len(ids))
	for i, id := range ids {
		out[i] = domain.Record{"id": id, "name": "team " + id, "project": "p1"}
	}
	return out
}

func TestTracker_LastRequestWins(t *testing.T) {
	tr := NewTracker()
	a := tr.Begin("teams")
	b := tr.Begin("teams")
	other := tr.Begin("projects")

	assert.False(t, tr.Current(a))
	assert.True(t, tr.Current(b))
	assert.True(t, tr.Current(other), "kinds are independent")

	ran := false
	assert.False(t, tr.Settle(a, func() { ran = true }))
	assert.False(t, ran)
	assert.True(t, tr.Settle(b, func() { ran = true }))
	assert.True(t, ran)
}

func TestTracker_ApplyMayBeginNewRequest(t *testing.T) {
	tr := NewTracker()
	tk := tr.Begin("projects")
	var next Ticket
	require.True(t, tr.Settle(tk, func() {
		next = tr.Begin("projects")
		tr.Settle(tr.Begin("tasks"), func() {})
	}))
	assert.True(t, tr.Current(next))
}

func TestLoadTeams_StaleResponseDiscarded(t *testing.T) {
	teams := new(mockCollection)
	store := new(mockStore)
	store.On("Collection", domain.CollectionTeams).Return(teams)

	started := make(chan struct{})
	release := make(chan struct{})
	teams.On("FetchAll", mock.Anything, mock.Anything).Return(teamRecs("tA1", "tA2"), nil).Once().
		Run(func(mock.Arguments) {
			close(started)
			<-release
		})
	teams.On("FetchAll", mock.Anything, mock.Anything).Return(teamRecs("tB1"), nil).Once()

	engine := selection.New()
	loader := NewLoader(store, engine)
	ctx := context.Background()

	var wg sync.WaitGroup
	var errA error
	wg.Add(1)
	go func() {
		defer wg.Done()
		errA = loader.LoadTeams(ctx)
	}()
	<-started

	require.NoError(t, loader.LoadTeams(ctx))
	close(release)
	wg.Wait()
	require.NoError(t, errA)

	snap := engine.Snapshot()
	require.Len(t, snap.Teams, 1)
	assert.Equal(t, "tB1", snap.Teams[0].ID)
	teams.AssertExpectations(t)
}

func TestLoadProjects_InvalidResponseNotApplied(t *testing.T) {
	projects := new(mockCollection)
	store := new(mockStore)
	store.On("Collection", domain.CollectionProjects).Return(projects)
	projects.On("FetchAll", mock.Anything, mock.Anything).Return([]domain.Record{
		{"id": "p1", "name": "Good"},
		{"id": "p2", "name": ""},
	}, nil)

	var got []Notification
	engine := selection.New()
	loader := NewLoader(store, engine, WithNotifier(NotifierFunc(func(n Notification) { got = append(got, n) })))

	err := loader.LoadProjects(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)
	assert.Empty(t, engine.Snapshot().Projects, "whole response is dropped")
	require.Len(t, got, 1)
	assert.Equal(t, LevelWarning, got[0].Level)
}

func TestLoadReference_AppliesAllAndCascades(t *testing.T) {
	projects, teams, activities := new(mockCollection), new(mockCollection), new(mockCollection)
	store := new(mockStore)
	store.On("Collection", domain.CollectionProjects).Return(projects)
	store.On("Collection", domain.CollectionTeams).Return(teams)
	store.On("Collection", domain.CollectionActivities).Return(activities)

	managed := query.Where(query.Clause{Field: "managers", Op: query.OpAnyEq, Value: "u1"})
	projects.On("FetchAll", mock.Anything, query.Predicate{}).Return([]domain.Record{{"id": "p1", "name": "Acme"}}, nil)
	teams.On("FetchAll", mock.Anything, managed).Return(teamRecs("t1"), nil)
	activities.On("FetchAll", mock.Anything, query.Predicate{}).Return([]domain.Record{{"id": "a1", "name": "Build", "team": "t1"}}, nil)

	engine := selection.New()
	loader := NewLoader(store, engine, WithReferenceFilter(domain.CollectionTeams, managed))
	require.NoError(t, loader.LoadReference(context.Background()))

	snap := engine.Snapshot()
	assert.Equal(t, "p1", snap.ProjectID())
	assert.Equal(t, "t1", snap.TeamID())
	assert.Equal(t, "a1", snap.ActivityID())
	teams.AssertExpectations(t)
}

func TestLoadReference_FetchErrorNotifies(t *testing.T) {
	projects, teams, activities := new(mockCollection), new(mockCollection), new(mockCollection)
	store := new(mockStore)
	store.On("Collection", domain.CollectionProjects).Return(projects)
	store.On("Collection", domain.CollectionTeams).Return(teams)
	store.On("Collection", domain.CollectionActivities).Return(activities)

	down := errors.New("connection refused")
	projects.On("FetchAll", mock.Anything, mock.Anything).Return(nil, down)
	teams.On("FetchAll", mock.Anything, mock.Anything).Return(teamRecs("t1"), nil)
	activities.On("FetchAll", mock.Anything, mock.Anything).Return([]domain.Record{}, nil)

	var mu sync.Mutex
	var got []Notification
	engine := selection.New()
	loader := NewLoader(store, engine, WithNotifier(NotifierFunc(func(n Notification) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, n)
	})))

	err := loader.LoadReference(context.Background())
	assert.ErrorIs(t, err, down)
	assert.Len(t, engine.Snapshot().Teams, 1, "other collections still apply")
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, LevelError, got[0].Level)
}

func TestLoadTasks_BuildsQueryFromSelection(t *testing.T) {
	tasks := new(mockCollection)
	store := new(mockStore)
	store.On("Collection", domain.CollectionTasks).Return(tasks)

	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	engine := selection.New(selection.WithClock(func() time.Time { return now }))
	require.NoError(t, engine.SetProjects([]domain.Project{{ID: "p1", Name: "Acme"}}))
	require.NoError(t, engine.SetTeams([]domain.Team{{ID: "t1", Name: "Ops", ProjectID: "p1"}}))

	var f query.Filter
	f.SetUser("u1")
	want := query.Build(engine.Snapshot(), f)

	rec := domain.Record{"id": "k1", "activity": "a1", "duration": 2.0, "date": "2024-01-02 00:00:00.000Z", "user": "u1", "team": "t1"}
	tasks.On("FetchPage", mock.Anything, 1, query.DefaultLimit, want.Predicate, want.Sort).
		Return(repository.Page{Items: []domain.Record{rec}, Page: 1, PerPage: 30, AllCount: 1}, nil)

	loader := NewLoader(store, engine)
	page, applied, err := loader.LoadTasks(context.Background(), f)
	require.NoError(t, err)
	assert.True(t, applied)
	require.Len(t, page.Items, 1)
	assert.Equal(t, domain.TaskNone, page.Items[0].Status)
	assert.Equal(t, 1, page.AllCount)

	team, ok := want.Predicate.Lookup(query.FieldTeam, query.OpEq)
	require.True(t, ok)
	assert.Equal(t, "t1", team)
}

func TestHealthMonitor_OfflineThenReconnectReloads(t *testing.T) {
	projects, teams, activities := new(mockCollection), new(mockCollection), new(mockCollection)
	store := new(mockStore)
	store.On("Collection", domain.CollectionProjects).Return(projects)
	store.On("Collection", domain.CollectionTeams).Return(teams)
	store.On("Collection", domain.CollectionActivities).Return(activities)
	projects.On("FetchAll", mock.Anything, mock.Anything).Return([]domain.Record{{"id": "p1", "name": "Acme"}}, nil)
	teams.On("FetchAll", mock.Anything, mock.Anything).Return(teamRecs("t1"), nil)
	activities.On("FetchAll", mock.Anything, mock.Anything).Return([]domain.Record{}, nil)

	store.On("Health", mock.Anything).Return(errors.New("down")).Once()
	store.On("Health", mock.Anything).Return(nil)

	engine := selection.New()
	loader := NewLoader(store, engine)
	monitor := NewHealthMonitor(store, engine, loader, time.Second, nil)

	assert.False(t, monitor.Check(context.Background()))
	assert.False(t, engine.Snapshot().Online)
	projects.AssertNotCalled(t, "FetchAll", mock.Anything, mock.Anything)

	assert.True(t, monitor.Check(context.Background()))
	snap := engine.Snapshot()
	assert.True(t, snap.Online)
	assert.Equal(t, "t1", snap.TeamID(), "reference data reloaded on reconnect")

	assert.True(t, monitor.Check(context.Background()))
	projects.AssertNumberOfCalls(t, "FetchAll", 1)
}

func TestHealthMonitor_RunStopsOnCancel(t *testing.T) {
	store := new(mockStore)
	store.On("Health", mock.Anything).Return(nil)
	monitor := NewHealthMonitor(store, selection.New(), nil, 10*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()
	err := monitor.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	store.AssertCalled(t, "Health", mock.Anything)
}
