package query

import (
	"testing"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleSort_ExclusiveAndCycling(t *testing.T) {
	var f Filter
	require.NoError(t, f.CycleSort(ColumnDate))
	assert.Equal(t, domain.SortAsc, f.Sort(ColumnDate))

	require.NoError(t, f.CycleSort(ColumnDate))
	assert.Equal(t, domain.SortDesc, f.Sort(ColumnDate))

	require.NoError(t, f.CycleSort(ColumnUser))
	assert.Equal(t, domain.SortAsc, f.Sort(ColumnUser))
	assert.Equal(t, domain.SortNone, f.Sort(ColumnDate), "other columns are cleared")

	require.NoError(t, f.CycleSort(ColumnUser))
	require.NoError(t, f.CycleSort(ColumnUser))
	_, _, ok := f.ActiveSort()
	assert.False(t, ok)

	assert.Error(t, f.CycleSort(Column("nope")))
}

func TestSortExclusivity_AnySequence(t *testing.T) {
	var f Filter
	seq := []Column{ColumnTeam, ColumnTeam, ColumnDate, ColumnTaskStatus, ColumnTaskDuration, ColumnTaskDuration, ColumnUser}
	for _, col := range seq {
		require.NoError(t, f.CycleSort(col))
		active := 0
		for _, c := range Columns {
			if f.Sort(c) != domain.SortNone {
				active++
			}
		}
		assert.LessOrEqual(t, active, 1)
	}
}

func TestSetProject_ClearsTeam(t *testing.T) {
	f := Filter{Team: "t1", Page: 4}
	f.SetProject("p1")
	assert.Equal(t, "", f.Team)
	assert.Equal(t, 1, f.Page)

	f.SetTeam("t2")
	f.SetProject("p1")
	assert.Equal(t, "t2", f.Team, "same project keeps the team")
}

func TestBuild_FilterScenario(t *testing.T) {
	var f Filter
	f.SetTeam("t1")
	require.NoError(t, f.SetDates(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	))
	require.NoError(t, f.SetSort(ColumnDate, domain.SortDesc))

	q := Build(selection.Snapshot{}, f)

	assert.Equal(t,
		"team = 't1' && date >= '2024-01-01 00:00:00.000Z' && date <= '2024-01-31 23:59:59.999Z'",
		q.Predicate.String())
	assert.Equal(t, "-date", q.Sort.String())
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultLimit, q.Limit)
}

func TestBuild_SelectionFillsGaps(t *testing.T) {
	team := domain.Team{ID: "t9", ProjectID: "p1"}
	act := domain.Activity{ID: "a3", TeamID: "t9"}
	sel := selection.Snapshot{
		SelectedTeam:     &team,
		SelectedActivity: &act,
		DateRange:        domain.CurrentMonth(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)),
		StatusFilter:     domain.TaskRejected,
		SortDirection:    domain.SortAsc,
	}

	q := Build(sel, Filter{User: "u1", Project: "p1"})
	assert.Equal(t,
		"team.project = 'p1' && team = 't9' && activity = 'a3' && user = 'u1' && status = 'rejected'"+
			" && date >= '2024-02-01 00:00:00.000Z' && date <= '2024-02-29 23:59:59.999Z'",
		q.Predicate.String())
	assert.Equal(t, "+date", q.Sort.String())

	q = Build(sel, Filter{Team: "t1", Status: domain.TaskAccepted})
	v, ok := q.Predicate.Lookup(FieldTeam, OpEq)
	require.True(t, ok)
	assert.Equal(t, "t1", v, "filter wins over selection")
	v, _ = q.Predicate.Lookup(FieldStatus, OpEq)
	assert.Equal(t, "accepted", v)
}

func TestBuild_OtherProjectIgnoresSelectedTeam(t *testing.T) {
	proj := domain.Project{ID: "p1"}
	team := domain.Team{ID: "t1", ProjectID: "p1"}
	act := domain.Activity{ID: "a1", TeamID: "t1"}
	sel := selection.Snapshot{SelectedProject: &proj, SelectedTeam: &team, SelectedActivity: &act}

	var f Filter
	f.SetProject("p2")
	q := Build(sel, f)
	assert.Equal(t, "team.project = 'p2'", q.Predicate.String())

	f.SetTeam("t7")
	q = Build(sel, f)
	assert.Equal(t, "team.project = 'p2' && team = 't7'", q.Predicate.String(), "explicit team still applies")

	q = Build(sel, Filter{Project: "p1"})
	assert.Equal(t, "team.project = 'p1' && team = 't1' && activity = 'a1'", q.Predicate.String())
}

func TestBuild_SortMapping(t *testing.T) {
	cases := map[Column]string{
		ColumnTeam:         "+team.name",
		ColumnUser:         "+user.name",
		ColumnTaskDuration: "+duration",
		ColumnDate:         "+date",
		ColumnTaskStatus:   "+status",
	}
	for col, want := range cases {
		var f Filter
		require.NoError(t, f.SetSort(col, domain.SortAsc))
		assert.Equal(t, want, Build(selection.Snapshot{}, f).Sort.String(), col)
	}
	assert.Equal(t, "", Build(selection.Snapshot{}, Filter{}).Sort.String())
}

func TestBuild_Deterministic(t *testing.T) {
	f := Filter{ID: "x", Team: "t", User: "u", Status: domain.TaskNone, Limit: 900, Page: -2}
	a := Build(selection.Snapshot{}, f)
	b := Build(selection.Snapshot{}, f)
	assert.Equal(t, a.Predicate.String(), b.Predicate.String())
	assert.Equal(t, MaxLimit, a.Limit)
	assert.Equal(t, 1, a.Page)
}

func TestPaging(t *testing.T) {
	f := Filter{Limit: 10}
	assert.True(t, f.NextPage(25))
	assert.True(t, f.NextPage(25))
	assert.False(t, f.NextPage(25))
	assert.Equal(t, 3, f.Page)
	assert.True(t, f.PrevPage())
	assert.Equal(t, 2, f.Page)
}

func TestParsePredicate_RoundTrip(t *testing.T) {
	preds := []Predicate{
		{},
		Where(Eq("team", "t1")),
		Where(
			Eq("team.project", "p'1"),
			Clause{Field: "managers", Op: OpAnyEq, Value: `u\1`},
			Clause{Field: "date", Op: OpGte, Value: "2024-01-01 00:00:00.000Z"},
			Clause{Field: "duration", Op: OpLt, Value: "8"},
			Clause{Field: "status", Op: OpNeq, Value: "accepted && more"},
		),
	}
	for _, p := range preds {
		got, err := ParsePredicate(p.String())
		require.NoError(t, err, p.String())
		assert.Equal(t, p.String(), got.String())
		assert.Equal(t, len(p.Clauses), len(got.Clauses))
	}
}

func TestParsePredicate_Lenient(t *testing.T) {
	p, err := ParsePredicate("team='t1'&&user >= 'u'")
	require.NoError(t, err)
	assert.Equal(t, []Clause{Eq("team", "t1"), {Field: "user", Op: OpGte, Value: "u"}}, p.Clauses)
}

func TestParsePredicate_Invalid(t *testing.T) {
	for _, s := range []string{
		"team",
		"team = t1",
		"team = 't1",
		"team = 't1' user = 'u'",
		"= 'x'",
		"team ~ 'x'",
		"team = 't1' &&",
	} {
		_, err := ParsePredicate(s)
		assert.ErrorIs(t, err, ErrInvalidPredicate, s)
	}
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("-date")
	require.NoError(t, err)
	assert.Equal(t, Sort{Field: "date", Direction: domain.SortDesc}, s)

	s, err = ParseSort("team.name")
	require.NoError(t, err)
	assert.Equal(t, "+team.name", s.String())

	s, err = ParseSort("")
	require.NoError(t, err)
	assert.True(t, s.IsZero())

	_, err = ParseSort("-da te")
	assert.ErrorIs(t, err, ErrInvalidPredicate)
}
