package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func TestReduceSameDay(t *testing.T) {
	tasks := []Task{
		{ID: "1", Date: day(2024, 1, 2), Duration: 3, Status: TaskAccepted},
		{ID: "2", Date: day(2024, 1, 1), Duration: 8, Status: TaskAccepted},
		{ID: "3", Date: day(2024, 1, 2), Duration: 4.5, Status: TaskRejected},
	}
	got := ReduceSameDay(tasks)
	assert.Equal(t, []DayTotal{
		{Day: "2024-01-01", Hours: 8, Status: TaskAccepted, TaskIDs: []string{"2"}},
		{Day: "2024-01-02", Hours: 7.5, Status: TaskRejected, TaskIDs: []string{"1", "3"}},
	}, got)
}

func TestGroupTasksByUser(t *testing.T) {
	users := []User{{ID: "u2", Username: "bob"}, {ID: "u1", Username: "ann"}, {ID: "u3", Username: "idle"}}
	tasks := []Task{
		{ID: "1", UserID: "u1"},
		{ID: "2", UserID: "u2"},
		{ID: "3", UserID: "u1"},
		{ID: "4", UserID: "ghost"},
	}
	got := GroupTasksByUser(tasks, users)
	if assert.Len(t, got, 2) {
		assert.Equal(t, "bob", got[0].User.Username)
		assert.Len(t, got[0].Tasks, 1)
		assert.Equal(t, "ann", got[1].User.Username)
		assert.Len(t, got[1].Tasks, 2)
	}
}

func TestSumHoursByTeamMonth(t *testing.T) {
	tasks := []Task{
		{TeamID: "t2", TeamName: "Ops", Date: day(2024, 2, 1), Duration: 2},
		{TeamID: "t1", TeamName: "Core", Date: day(2024, 12, 3), Duration: 4},
		{TeamID: "t1", TeamName: "Core", Date: day(2024, 2, 9), Duration: 8},
		{TeamID: "t1", TeamName: "Core", Date: day(2024, 2, 10), Duration: 1.5},
	}
	got := SumHoursByTeamMonth(tasks)
	assert.Equal(t, []TeamMonthHours{
		{TeamID: "t1", TeamName: "Core", Month: "02.2024", Hours: 9.5},
		{TeamID: "t1", TeamName: "Core", Month: "12.2024", Hours: 4},
		{TeamID: "t2", TeamName: "Ops", Month: "02.2024", Hours: 2},
	}, got)
}
