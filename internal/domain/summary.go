package domain

import (
	"errors"
	"sort"
)

// DecodeAll decodes every record and joins all validation failures.
// On any failure the decoded slice is nil so callers cannot apply a
// partially valid response.
func DecodeAll[T any](recs []Record, decode func(Record) (T, error)) ([]T, error) {
	out := make([]T, 0, len(recs))
	var errs []error
	for _, rec := range recs {
		v, err := decode(rec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, v)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// UserTasks groups one user's tasks.
type UserTasks struct {
	User  User
	Tasks []Task
}

// GroupTasksByUser buckets tasks per user in the order users are given.
// Users without tasks are omitted; tasks whose user is unknown are dropped.
func GroupTasksByUser(tasks []Task, users []User) []UserTasks {
	byUser := make(map[string][]Task)
	for _, t := range tasks {
		byUser[t.UserID] = append(byUser[t.UserID], t)
	}
	var out []UserTasks
	for _, u := range users {
		ts, ok := byUser[u.ID]
		if !ok {
			continue
		}
		out = append(out, UserTasks{User: u, Tasks: ts})
	}
	return out
}

// DayTotal is the summed duration of one user's tasks on one day.
type DayTotal struct {
	Day     string
	Hours   float64
	Status  TaskStatus
	TaskIDs []string
}

// ReduceSameDay folds tasks logged on the same calendar day into one total,
// sorted by day. The reduced status is rejected if any task was rejected,
// accepted only if all were accepted, and none otherwise.
func ReduceSameDay(tasks []Task) []DayTotal {
	idx := make(map[string]int)
	var out []DayTotal
	for _, t := range tasks {
		day := t.Day()
		i, ok := idx[day]
		if !ok {
			idx[day] = len(out)
			out = append(out, DayTotal{Day: day, Status: t.Status})
			i = len(out) - 1
		}
		out[i].Hours += t.Duration
		out[i].TaskIDs = append(out[i].TaskIDs, t.ID)
		out[i].Status = mergeStatus(out[i].Status, t.Status)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Day < out[b].Day })
	return out
}

func mergeStatus(a, b TaskStatus) TaskStatus {
	switch {
	case a == TaskRejected || b == TaskRejected:
		return TaskRejected
	case a == TaskAccepted && b == TaskAccepted:
		return TaskAccepted
	default:
		return TaskNone
	}
}

// TeamMonthHours is the total logged per team per calendar month.
type TeamMonthHours struct {
	TeamID   string
	TeamName string
	Month    string // MM.YYYY
	Hours    float64
}

// SumHoursByTeamMonth totals task hours per team and month, sorted by
// team name, then chronologically.
func SumHoursByTeamMonth(tasks []Task) []TeamMonthHours {
	type key struct{ team, month string }
	idx := make(map[key]int)
	var out []TeamMonthHours
	sortKey := make(map[key]string)
	for _, t := range tasks {
		k := key{team: t.TeamID, month: MonthKey(t.Date)}
		i, ok := idx[k]
		if !ok {
			name := t.TeamName
			if name == "" {
				name = t.TeamID
			}
			out = append(out, TeamMonthHours{TeamID: t.TeamID, TeamName: name, Month: k.month})
			i = len(out) - 1
			idx[k] = i
			sortKey[k] = t.Date.UTC().Format("2006-01")
		}
		out[i].Hours += t.Duration
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].TeamName != out[b].TeamName {
			return out[a].TeamName < out[b].TeamName
		}
		ka := sortKey[key{team: out[a].TeamID, month: out[a].Month}]
		kb := sortKey[key{team: out[b].TeamID, month: out[b].Month}]
		return ka < kb
	})
	return out
}
