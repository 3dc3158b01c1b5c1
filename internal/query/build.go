package query

import (
	"time"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/selection"
)

// Record field names the builder targets.
const (
	FieldID       = "id"
	FieldProject  = "team.project"
	FieldTeam     = "team"
	FieldActivity = "activity"
	FieldUser     = "user"
	FieldStatus   = "status"
	FieldDate     = "date"
	FieldDuration = "duration"
	FieldTeamName = "team.name"
	FieldUserName = "user.name"

	FieldTeamManagers = "team.managers"
)

var sortFields = map[Column]string{
	ColumnTeam:         FieldTeamName,
	ColumnUser:         FieldUserName,
	ColumnTaskDuration: FieldDuration,
	ColumnDate:         FieldDate,
	ColumnTaskStatus:   FieldStatus,
}

// Query is what a record store needs to fetch one page of tasks.
type Query struct {
	Predicate Predicate
	Sort      Sort
	Page      int
	Limit     int
}

// Build merges the filter with the selection snapshot. Filter values win;
// the selection fills team, activity, date bounds and status when the
// filter leaves them empty. Team and activity are only borrowed while the
// selected team belongs to the filter's project, if it names one. Clause
// order is fixed, so equal inputs give byte-identical output.
func Build(sel selection.Snapshot, f Filter) Query {
	var p Predicate
	add := func(field string, op Op, value string) {
		if value != "" {
			p.Clauses = append(p.Clauses, Clause{Field: field, Op: op, Value: value})
		}
	}

	add(FieldID, OpEq, f.ID)
	add(FieldProject, OpEq, f.Project)
	selTeam, selActivity := sel.TeamID(), sel.ActivityID()
	if f.Project != "" && sel.SelectedTeam != nil && sel.SelectedTeam.ProjectID != f.Project {
		selTeam, selActivity = "", ""
	}
	add(FieldTeam, OpEq, firstNonEmpty(f.Team, selTeam))
	add(FieldActivity, OpEq, firstNonEmpty(f.Activity, selActivity))
	add(FieldUser, OpEq, f.User)
	add(FieldStatus, OpEq, string(firstStatus(f.Status, sel.StatusFilter)))

	from, to := f.DateFrom, f.DateTo
	if from.IsZero() {
		from = sel.DateRange.From
	}
	if to.IsZero() {
		to = sel.DateRange.To
	} else if isMidnight(to) {
		to = domain.EndOfDay(to)
	}
	if !from.IsZero() {
		add(FieldDate, OpGte, domain.FormatTimestamp(from))
	}
	if !to.IsZero() {
		add(FieldDate, OpLte, domain.FormatTimestamp(to))
	}

	return Query{
		Predicate: p,
		Sort:      buildSort(sel, f),
		Page:      f.page(),
		Limit:     f.limit(),
	}
}

func buildSort(sel selection.Snapshot, f Filter) Sort {
	if col, dir, ok := f.ActiveSort(); ok {
		return Sort{Field: sortFields[col], Direction: dir}
	}
	if sel.SortDirection != domain.SortNone {
		return Sort{Field: FieldDate, Direction: sel.SortDirection}
	}
	return Sort{}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstStatus(a, b domain.TaskStatus) domain.TaskStatus {
	if a != "" {
		return a
	}
	return b
}

func isMidnight(t time.Time) bool {
	t = t.UTC()
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
