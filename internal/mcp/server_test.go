package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/selection"
	"github.com/NotNullDev/nanomgmt/internal/service"
	"github.com/NotNullDev/nanomgmt/internal/testutil"
)

type harness struct {
	session *sdkmcp.ClientSession
	engine  *selection.Engine
	world   testutil.World
}

func newHarness(t *testing.T) harness {
	t.Helper()
	store := testutil.NewTestStore(t)
	w := testutil.SeedWorld(t, store)
	for d := 1; d <= 3; d++ {
		testutil.MustCreateTask(t, store, testutil.NewTestTask(w.ActA, w.Employee.ID,
			testutil.WithDate(time.Date(2024, 1, d, 9, 0, 0, 0, time.UTC)), testutil.WithDuration(float64(d))))
	}
	testutil.MustCreateTask(t, store, testutil.NewTestTask(w.ActB, w.Employee.ID,
		testutil.WithDate(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))))

	engine := selection.New(selection.WithClock(func() time.Time { return time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC) }))
	require.NoError(t, engine.SetProjects([]domain.Project{w.Project}))
	require.NoError(t, engine.SetTeams([]domain.Team{w.TeamA, w.TeamB}))
	require.NoError(t, engine.SetActivities([]domain.Activity{w.ActA, w.ActB}))

	server := NewServer(Config{
		Engine:    engine,
		Tasks:     service.NewTaskService(store),
		Dashboard: service.NewDashboardService(store),
	})

	ctx := context.Background()
	clientT, serverT := sdkmcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return harness{session: cs, engine: engine, world: w}
}

func (h harness) call(t *testing.T, name string, args map[string]any, out any) *sdkmcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := h.session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		require.NotEmpty(t, res.Content)
		text, ok := res.Content[0].(*sdkmcp.TextContent)
		require.True(t, ok)
		require.NoError(t, json.Unmarshal([]byte(text.Text), out))
	}
	return res
}

func TestListTools(t *testing.T) {
	h := newHarness(t)
	tools, err := h.session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"get_selection", "select", "build_query", "list_tasks", "hours_by_team_month"}, names)
}

func TestGetSelection(t *testing.T) {
	h := newHarness(t)
	var out SelectionOutput
	h.call(t, "get_selection", nil, &out)

	assert.Equal(t, h.world.Project.ID, out.ProjectID, "single project is auto-selected")
	assert.Empty(t, out.TeamID)
	assert.Len(t, out.AvailableTeams, 2)
	assert.Equal(t, "2024-01-01..2024-01-31", out.DateRange)
	assert.True(t, out.Online)
}

func TestSelect_CascadesAndRejects(t *testing.T) {
	h := newHarness(t)
	var out SelectionOutput
	h.call(t, "select", map[string]any{"field": "team", "value": h.world.TeamA.ID}, &out)
	assert.Equal(t, h.world.TeamA.ID, out.TeamID)
	assert.Equal(t, h.world.ActA.ID, out.ActivityID, "single activity is auto-selected")

	before := h.engine.Snapshot().Version
	res := h.call(t, "select", map[string]any{"field": "team", "value": "nope"}, nil)
	assert.True(t, res.IsError)
	assert.Equal(t, before, h.engine.Snapshot().Version, "invalid selection changes nothing")

	res = h.call(t, "select", map[string]any{"field": "color", "value": "red"}, nil)
	assert.True(t, res.IsError)

	h.call(t, "select", map[string]any{"field": "date_range", "value": "2024-01-02..2024-01-03"}, &out)
	assert.Equal(t, "2024-01-02..2024-01-03", out.DateRange)
}

func TestBuildQuery(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.SelectTeam(h.world.TeamA.ID))

	var out QueryOutput
	h.call(t, "build_query", map[string]any{"status": "none", "sort_column": "taskDuration", "sort_direction": "desc", "page": 2}, &out)
	assert.Equal(t, "team = '"+h.world.TeamA.ID+"' && activity = '"+h.world.ActA.ID+"' && status = 'none'"+
		" && date >= '2024-01-01 00:00:00.000Z' && date <= '2024-01-31 23:59:59.999Z'", out.Filter)
	assert.Equal(t, "-duration", out.Sort)
	assert.Equal(t, 2, out.Page)
	assert.Equal(t, 30, out.Limit)

	res := h.call(t, "build_query", map[string]any{"status": "pending"}, nil)
	assert.True(t, res.IsError)
}

func TestListTasks(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.SelectTeam(h.world.TeamA.ID))

	var out TasksOutput
	h.call(t, "list_tasks", map[string]any{"sort_column": "taskDuration", "sort_direction": "asc", "limit": 2}, &out)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 2, out.TotalPages)
	require.Len(t, out.Tasks, 2)
	assert.Equal(t, 1.0, out.Tasks[0].Hours)
	assert.Equal(t, "Alpha", out.Tasks[0].Team)
	assert.Equal(t, "Eve Employee", out.Tasks[0].User)
}

func TestHoursByTeamMonth(t *testing.T) {
	h := newHarness(t)
	var out HoursOutput
	h.call(t, "hours_by_team_month", map[string]any{"user_id": h.world.Employee.ID}, &out)
	assert.Equal(t, []MonthHours{
		{Team: "Alpha", Month: "01.2024", Hours: 6},
		{Team: "Bravo", Month: "01.2024", Hours: domain.DefaultTaskHours},
	}, out.Rows)

	res := h.call(t, "hours_by_team_month", map[string]any{"user_id": h.world.Employee.ID, "range": "later"}, nil)
	assert.True(t, res.IsError)
}
