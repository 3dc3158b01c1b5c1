package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTaskRecord() Record {
	return Record{
		"id":       "task1",
		"activity": "a1",
		"comment":  "reviewed PRs",
		"duration": 7.5,
		"date":     "2024-01-15 00:00:00.000Z",
		"user":     "u1",
		"team":     "t1",
		"status":   "none",
	}
}

func TestDecodeTask_Valid(t *testing.T) {
	task, err := DecodeTask(validTaskRecord())
	require.NoError(t, err)
	assert.Equal(t, 7.5, task.Duration)
	assert.Equal(t, TaskNone, task.Status)
	assert.Equal(t, "2024-01-15", task.Day())
}

func TestDecodeTask_MissingStatusDefaultsToNone(t *testing.T) {
	rec := validTaskRecord()
	delete(rec, "status")
	task, err := DecodeTask(rec)
	require.NoError(t, err)
	assert.Equal(t, TaskNone, task.Status)
}

func TestDecodeTask_Invalid(t *testing.T) {
	cases := map[string]func(Record){
		"bad status":     func(r Record) { r["status"] = "pending" },
		"zero duration":  func(r Record) { r["duration"] = 0.0 },
		"too long":       func(r Record) { r["duration"] = 25.0 },
		"string hours":   func(r Record) { r["duration"] = "8" },
		"missing date":   func(r Record) { delete(r, "date") },
		"garbage date":   func(r Record) { r["date"] = "yesterday" },
		"missing team":   func(r Record) { r["team"] = "" },
		"long comment":   func(r Record) { r["comment"] = string(make([]byte, CommentMaxLen+1)) },
		"missing author": func(r Record) { delete(r, "user") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			rec := validTaskRecord()
			mutate(rec)
			_, err := DecodeTask(rec)
			assert.ErrorIs(t, err, ErrInvalidRecord)
		})
	}
}

func TestTaskApply_EditClearsRejection(t *testing.T) {
	task, err := DecodeTask(validTaskRecord())
	require.NoError(t, err)
	task.Status = TaskRejected

	hours := 6.0
	edited, changed, err := task.Apply(TaskPatch{Duration: &hours})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, TaskNone, edited.Status)
	assert.Equal(t, Record{"duration": 6.0, "status": "none"}, task.PatchRecord(edited))
}

func TestTaskApply_NoOpKeepsRejection(t *testing.T) {
	task, err := DecodeTask(validTaskRecord())
	require.NoError(t, err)
	task.Status = TaskRejected

	same := task.Comment
	edited, changed, err := task.Apply(TaskPatch{Comment: &same})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, TaskRejected, edited.Status)
}

func TestTaskApply_AcceptedIsLocked(t *testing.T) {
	task, err := DecodeTask(validTaskRecord())
	require.NoError(t, err)
	task.Status = TaskAccepted

	c := "late edit"
	_, _, err = task.Apply(TaskPatch{Comment: &c})
	assert.ErrorIs(t, err, ErrStatusLocked)
}

func TestTaskApply_InvalidPatchRejected(t *testing.T) {
	task, err := DecodeTask(validTaskRecord())
	require.NoError(t, err)

	hours := -1.0
	_, _, err = task.Apply(TaskPatch{Duration: &hours})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestSortDirectionCycle(t *testing.T) {
	d := SortNone
	seen := []SortDirection{}
	for i := 0; i < 4; i++ {
		d = d.Next()
		seen = append(seen, d)
	}
	assert.Equal(t, []SortDirection{SortAsc, SortDesc, SortNone, SortAsc}, seen)
}

func TestCurrentMonth(t *testing.T) {
	r := CurrentMonth(time.Date(2024, time.February, 17, 13, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), r.From)
	assert.Equal(t, "2024-02-29", DayKey(r.To))
	assert.True(t, r.Contains(time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, r.Validate())
}

func TestDateRangeValidate(t *testing.T) {
	from := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Error(t, DateRange{From: from, To: to}.Validate())
	assert.Error(t, DateRange{From: from}.Validate())
}

func TestParseTimestamp_Layouts(t *testing.T) {
	for _, s := range []string{"2024-01-15 08:30:00.000Z", "2024-01-15T08:30:00Z", "2024-01-15 08:30:00"} {
		ts, err := ParseTimestamp(s)
		require.NoError(t, err, s)
		assert.Equal(t, "2024-01-15 08:30:00.000Z", FormatTimestamp(ts))
	}
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2024-01-01..2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01..2024-01-31", r.String())
	assert.Equal(t, "2024-01-31 23:59:59.999Z", FormatTimestamp(r.To))

	r, err = ParseDateRange("2024-01-01 00:00:00.000Z..2024-01-02 12:00:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, 12, r.To.Hour())

	for _, bad := range []string{"2024-01-01", "x..2024-01-02", "2024-02-01..2024-01-01"} {
		_, err := ParseDateRange(bad)
		assert.Error(t, err, bad)
	}
}
