package domain

import (
	"errors"
	"fmt"
	"time"
)

const (
	CommentMaxLen = 255
	MaxTaskHours  = 24.0
	// DefaultTaskHours pre-fills the duration when logging a new task.
	DefaultTaskHours = 8.0
)

// ErrStatusLocked is returned when an accepted task is edited.
var ErrStatusLocked = errors.New("task is accepted and can no longer be edited")

// Task is one logged block of work. Status only changes through review.
type Task struct {
	ID         string
	ActivityID string
	Comment    string
	Duration   float64 // hours
	Date       time.Time
	UserID     string
	TeamID     string
	Status     TaskStatus
	Created    time.Time
	Updated    time.Time

	// Read-only labels joined in by the store for display.
	TeamName     string
	ProjectID    string
	ProjectName  string
	ActivityName string
	UserName     string
}

func DecodeTask(rec Record) (Task, error) {
	d := newDecoder(rec)
	t := Task{
		ID:         d.required("id"),
		ActivityID: d.required("activity"),
		Comment:    d.bounded("comment", 0, CommentMaxLen),
		Duration:   d.number("duration"),
		Date:       d.timestamp("date"),
		UserID:     d.required("user"),
		TeamID:     d.required("team"),

		TeamName:     d.str("teamName"),
		ProjectID:    d.str("projectId"),
		ProjectName:  d.str("projectName"),
		ActivityName: d.str("activityName"),
		UserName:     d.str("userName"),
	}
	if t.Duration <= 0 || t.Duration > MaxTaskHours {
		d.fail("duration: %.2f outside (0, %.0f]", t.Duration, MaxTaskHours)
	}
	status := d.str("status")
	if status == "" {
		t.Status = TaskNone
	} else if s, err := ParseTaskStatus(status); err != nil {
		d.fail("status: %v", err)
	} else {
		t.Status = s
	}
	if s := d.str("created"); s != "" {
		t.Created, _ = ParseTimestamp(s)
	}
	if s := d.str("updated"); s != "" {
		t.Updated, _ = ParseTimestamp(s)
	}
	return t, d.err(CollectionTasks)
}

// Record encodes the persisted fields. Display labels are left out.
func (t Task) Record() Record {
	rec := Record{
		"id":       t.ID,
		"activity": t.ActivityID,
		"comment":  t.Comment,
		"duration": t.Duration,
		"date":     FormatTimestamp(t.Date),
		"user":     t.UserID,
		"team":     t.TeamID,
		"status":   string(t.Status),
	}
	if t.ID == "" {
		delete(rec, "id")
	}
	return rec
}

// Validate checks a task built in memory, before it is sent to a store.
func (t Task) Validate() error {
	rec := t.Record()
	if t.ID == "" {
		rec["id"] = "new"
	}
	_, err := DecodeTask(rec)
	return err
}

func (t Task) Day() string { return DayKey(t.Date) }

// TaskPatch holds the user-editable fields of a task. Nil means unchanged.
type TaskPatch struct {
	ActivityID *string
	TeamID     *string
	Comment    *string
	Duration   *float64
	Date       *time.Time
}

func (p TaskPatch) IsEmpty() bool {
	return p.ActivityID == nil && p.TeamID == nil && p.Comment == nil && p.Duration == nil && p.Date == nil
}

// Apply returns the edited task and whether any field actually changed.
// Editing a rejected task resubmits it: the status goes back to none.
// Accepted tasks are locked.
func (t Task) Apply(p TaskPatch) (Task, bool, error) {
	if t.Status == TaskAccepted {
		return t, false, ErrStatusLocked
	}
	out := t
	changed := false
	if p.ActivityID != nil && *p.ActivityID != t.ActivityID {
		out.ActivityID = *p.ActivityID
		changed = true
	}
	if p.TeamID != nil && *p.TeamID != t.TeamID {
		out.TeamID = *p.TeamID
		changed = true
	}
	if p.Comment != nil && *p.Comment != t.Comment {
		out.Comment = *p.Comment
		changed = true
	}
	if p.Duration != nil && *p.Duration != t.Duration {
		out.Duration = *p.Duration
		changed = true
	}
	if p.Date != nil && !p.Date.Equal(t.Date) {
		out.Date = p.Date.UTC()
		changed = true
	}
	if changed && out.Status == TaskRejected {
		out.Status = TaskNone
	}
	if err := out.Validate(); err != nil {
		return t, false, fmt.Errorf("applying task patch: %w", err)
	}
	return out, changed, nil
}

// PatchRecord renders only the fields that differ between t and edited.
func (t Task) PatchRecord(edited Task) Record {
	rec := Record{}
	if edited.ActivityID != t.ActivityID {
		rec["activity"] = edited.ActivityID
	}
	if edited.TeamID != t.TeamID {
		rec["team"] = edited.TeamID
	}
	if edited.Comment != t.Comment {
		rec["comment"] = edited.Comment
	}
	if edited.Duration != t.Duration {
		rec["duration"] = edited.Duration
	}
	if !edited.Date.Equal(t.Date) {
		rec["date"] = FormatTimestamp(edited.Date)
	}
	if edited.Status != t.Status {
		rec["status"] = string(edited.Status)
	}
	return rec
}

// TaskPage is one page of decoded tasks. AllCount counts every match.
type TaskPage struct {
	Items    []Task
	Page     int
	PerPage  int
	AllCount int
}
