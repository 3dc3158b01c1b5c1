package service

import (
	"context"
	"errors"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/query"
)

var (
	// ErrNotManager is returned when a reviewer does not manage the team of
	// a task they try to accept or reject.
	ErrNotManager = errors.New("reviewer does not manage the task's team")
	// ErrNotOwner is returned when a user edits someone else's task.
	ErrNotOwner     = errors.New("task belongs to another user")
	ErrStatusLocked = domain.ErrStatusLocked
)

type TaskService interface {
	Create(ctx context.Context, draft domain.Task) (domain.Task, error)
	Update(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error)
	Get(ctx context.Context, id string) (domain.Task, error)
	History(ctx context.Context, q query.Query) (domain.TaskPage, error)
}

type ApprovalService interface {
	Pending(ctx context.Context, managerID, teamID string) ([]domain.Task, error)
	Accept(ctx context.Context, reviewerID string, ids ...string) ([]domain.Task, error)
	Reject(ctx context.Context, reviewerID string, ids ...string) ([]domain.Task, error)
	RejectDay(ctx context.Context, reviewerID, userID string, day time.Time) ([]domain.Task, error)
	SetStatusForDays(ctx context.Context, reviewerID, userID string, days []time.Time, status domain.TaskStatus) ([]domain.Task, error)
}

// UserDays is one user's tasks in a team, folded per day.
type UserDays struct {
	User  domain.User
	Days  []domain.DayTotal
	Hours float64
}

type DashboardService interface {
	HoursByTeamMonth(ctx context.Context, userID string, rng domain.DateRange) ([]domain.TeamMonthHours, error)
	TasksByUser(ctx context.Context, teamID string, rng domain.DateRange) ([]UserDays, error)
}
