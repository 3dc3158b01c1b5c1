package domain

import "fmt"

type TaskStatus string

const (
	TaskNone     TaskStatus = "none"
	TaskAccepted TaskStatus = "accepted"
	TaskRejected TaskStatus = "rejected"
)

// ParseTaskStatus accepts only the three persisted statuses.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case TaskNone, TaskAccepted, TaskRejected:
		return TaskStatus(s), nil
	default:
		return "", fmt.Errorf("invalid task status %q", s)
	}
}

// ValidStatusFilter reports whether s can be used as a status filter.
// The empty string means "any status".
func ValidStatusFilter(s TaskStatus) bool {
	if s == "" {
		return true
	}
	_, err := ParseTaskStatus(string(s))
	return err == nil
}

type SortDirection string

const (
	SortNone SortDirection = ""
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Next returns the direction a column header click moves to.
func (d SortDirection) Next() SortDirection {
	switch d {
	case SortNone:
		return SortAsc
	case SortAsc:
		return SortDesc
	default:
		return SortNone
	}
}

func (d SortDirection) Valid() bool {
	return d == SortNone || d == SortAsc || d == SortDesc
}

func ParseSortDirection(s string) (SortDirection, error) {
	d := SortDirection(s)
	if !d.Valid() {
		return "", fmt.Errorf("invalid sort direction %q", s)
	}
	return d, nil
}

type Collection string

const (
	CollectionProjects   Collection = "projects"
	CollectionTeams      Collection = "teams"
	CollectionActivities Collection = "activities"
	CollectionTasks      Collection = "tasks"
	CollectionUsers      Collection = "users"
)

// Collections lists every collection in a stable order.
var Collections = []Collection{
	CollectionProjects,
	CollectionTeams,
	CollectionActivities,
	CollectionTasks,
	CollectionUsers,
}

func ParseCollection(s string) (Collection, error) {
	for _, c := range Collections {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown collection %q", s)
}

const (
	RoleManager  = "manager"
	RoleEmployee = "employee"
)
