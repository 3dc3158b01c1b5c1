// Package query turns the task history filter and the current selection
// into a deterministic record-store query.
package query

import (
	"fmt"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/domain"
)

const (
	DefaultLimit = 30
	MaxLimit     = 500
)

// Column is a sortable history column.
type Column string

const (
	ColumnTeam         Column = "team"
	ColumnUser         Column = "user"
	ColumnTaskDuration Column = "taskDuration"
	ColumnDate         Column = "date"
	ColumnTaskStatus   Column = "taskStatus"
)

// Columns lists the sortable columns in display order.
var Columns = []Column{ColumnTeam, ColumnUser, ColumnTaskDuration, ColumnDate, ColumnTaskStatus}

func columnIndex(c Column) int {
	for i, col := range Columns {
		if col == c {
			return i
		}
	}
	return -1
}

func ParseColumn(s string) (Column, error) {
	if i := columnIndex(Column(s)); i >= 0 {
		return Columns[i], nil
	}
	return "", fmt.Errorf("unknown sort column %q", s)
}

// Filter is the task history view's own filter state. Zero values mean
// "absent" and let the selection fill in.
//
// At most one column carries a sort direction; SetSort and CycleSort keep
// it that way.
type Filter struct {
	ID       string
	Project  string
	Team     string
	Activity string
	User     string
	Status   domain.TaskStatus
	DateFrom time.Time
	DateTo   time.Time

	Page  int
	Limit int

	sorts [5]domain.SortDirection
}

// Sort returns the direction set for col.
func (f Filter) Sort(col Column) domain.SortDirection {
	if i := columnIndex(col); i >= 0 {
		return f.sorts[i]
	}
	return domain.SortNone
}

// ActiveSort returns the single column with a direction, if any.
func (f Filter) ActiveSort() (Column, domain.SortDirection, bool) {
	for i, d := range f.sorts {
		if d != domain.SortNone {
			return Columns[i], d, true
		}
	}
	return "", domain.SortNone, false
}

// SetSort sets col to dir and clears every other column.
func (f *Filter) SetSort(col Column, dir domain.SortDirection) error {
	i := columnIndex(col)
	if i < 0 {
		return fmt.Errorf("unknown sort column %q", col)
	}
	if !dir.Valid() {
		return fmt.Errorf("invalid sort direction %q", dir)
	}
	f.sorts = [5]domain.SortDirection{}
	f.sorts[i] = dir
	f.Page = 1
	return nil
}

// CycleSort advances col through "" -> asc -> desc -> "".
func (f *Filter) CycleSort(col Column) error {
	return f.SetSort(col, f.Sort(col).Next())
}

// ClearSort drops every column direction.
func (f *Filter) ClearSort() {
	f.sorts = [5]domain.SortDirection{}
	f.Page = 1
}

// SetProject changes the project filter. The team filter belongs to the
// old project and is cleared.
func (f *Filter) SetProject(id string) {
	if f.Project != id {
		f.Team = ""
	}
	f.Project = id
	f.Page = 1
}

func (f *Filter) SetTeam(id string) {
	f.Team = id
	f.Page = 1
}

func (f *Filter) SetActivity(id string) {
	f.Activity = id
	f.Page = 1
}

func (f *Filter) SetUser(id string) {
	f.User = id
	f.Page = 1
}

func (f *Filter) SetID(id string) {
	f.ID = id
	f.Page = 1
}

func (f *Filter) SetStatus(s domain.TaskStatus) error {
	if !domain.ValidStatusFilter(s) {
		return fmt.Errorf("invalid status filter %q", s)
	}
	f.Status = s
	f.Page = 1
	return nil
}

// SetDates sets both bounds; a zero time leaves that side open.
func (f *Filter) SetDates(from, to time.Time) error {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return fmt.Errorf("date filter ends before it starts")
	}
	f.DateFrom, f.DateTo = from, to
	f.Page = 1
	return nil
}

// NextPage moves forward unless page is already the last of total items.
func (f *Filter) NextPage(total int) bool {
	page, limit := f.page(), f.limit()
	if page*limit >= total {
		return false
	}
	f.Page = page + 1
	return true
}

func (f *Filter) PrevPage() bool {
	if f.page() <= 1 {
		return false
	}
	f.Page = f.page() - 1
	return true
}

func (f Filter) page() int {
	if f.Page < 1 {
		return 1
	}
	return f.Page
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	default:
		return f.Limit
	}
}
