package service

import (
	"context"
	"fmt"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/query"
	"github.com/NotNullDev/nanomgmt/internal/repository"
)

type approvalService struct {
	store    repository.Store
	observer UseCaseObserver
}

func NewApprovalService(store repository.Store, observers ...UseCaseObserver) ApprovalService {
	return &approvalService{store: store, observer: useCaseObserverOrNoop(observers)}
}

// Pending lists unreviewed tasks of every team managerID manages, or of
// teamID alone when it is set.
func (s *approvalService) Pending(ctx context.Context, managerID, teamID string) ([]domain.Task, error) {
	p := query.Where(
		query.Clause{Field: query.FieldTeamManagers, Op: query.OpAnyEq, Value: managerID},
		query.Eq(query.FieldStatus, string(domain.TaskNone)),
	)
	if teamID != "" {
		p = p.And(query.Eq(query.FieldTeam, teamID))
	}
	tasks, err := fetchTasks(ctx, s.store, p)
	if err != nil {
		return nil, fmt.Errorf("listing pending tasks: %w", err)
	}
	return tasks, nil
}

func (s *approvalService) Accept(ctx context.Context, reviewerID string, ids ...string) ([]domain.Task, error) {
	return s.review(ctx, "accept-tasks", reviewerID, domain.TaskAccepted, func(ctx context.Context, tx repository.Store) ([]domain.Task, error) {
		return fetchByIDs(ctx, tx, ids)
	})
}

func (s *approvalService) Reject(ctx context.Context, reviewerID string, ids ...string) ([]domain.Task, error) {
	return s.review(ctx, "reject-tasks", reviewerID, domain.TaskRejected, func(ctx context.Context, tx repository.Store) ([]domain.Task, error) {
		return fetchByIDs(ctx, tx, ids)
	})
}

// RejectDay rejects every task userID logged on day.
func (s *approvalService) RejectDay(ctx context.Context, reviewerID, userID string, day time.Time) ([]domain.Task, error) {
	return s.SetStatusForDays(ctx, reviewerID, userID, []time.Time{day}, domain.TaskRejected)
}

// SetStatusForDays sets status on all of userID's tasks on the given days.
// The batch is all or nothing.
func (s *approvalService) SetStatusForDays(ctx context.Context, reviewerID, userID string, days []time.Time, status domain.TaskStatus) ([]domain.Task, error) {
	return s.review(ctx, "set-status-for-days", reviewerID, status, func(ctx context.Context, tx repository.Store) ([]domain.Task, error) {
		var out []domain.Task
		for _, day := range days {
			p := query.Where(query.Eq(query.FieldUser, userID)).And(dateClauses(domain.DayRange(day))...)
			tasks, err := fetchTasks(ctx, tx, p)
			if err != nil {
				return nil, fmt.Errorf("loading tasks of %s: %w", domain.DayKey(day), err)
			}
			out = append(out, tasks...)
		}
		return out, nil
	})
}

// review loads a batch of tasks, checks the reviewer manages each task's
// team and writes status to all of them in one transaction.
func (s *approvalService) review(
	ctx context.Context,
	name, reviewerID string,
	status domain.TaskStatus,
	load func(context.Context, repository.Store) ([]domain.Task, error),
) (out []domain.Task, err error) {
	started := time.Now()
	fields := map[string]any{"reviewer": reviewerID, "status": string(status)}
	defer func() { observe(ctx, s.observer, name, started, fields, err) }()

	if _, err := domain.ParseTaskStatus(string(status)); err != nil {
		return nil, err
	}

	err = repository.InTx(ctx, s.store, func(tx repository.Store) error {
		tasks, err := load(ctx, tx)
		if err != nil {
			return err
		}
		teams := newTeamCache(tx)
		for _, t := range tasks {
			team, err := teams.get(ctx, t.TeamID)
			if err != nil {
				return err
			}
			if !team.HasManager(reviewerID) {
				return fmt.Errorf("reviewing task %q in team %q: %w", t.ID, team.Name, ErrNotManager)
			}
		}

		out = make([]domain.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.Status == status {
				out = append(out, t)
				continue
			}
			rec, err := tx.Collection(domain.CollectionTasks).Update(ctx, t.ID, domain.Record{"status": string(status)})
			if err != nil {
				return fmt.Errorf("setting status of task %q: %w", t.ID, err)
			}
			updated, err := domain.DecodeTask(rec)
			if err != nil {
				return err
			}
			out = append(out, updated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	fields["count"] = len(out)
	return out, nil
}

func fetchByIDs(ctx context.Context, s repository.Store, ids []string) ([]domain.Task, error) {
	out := make([]domain.Task, 0, len(ids))
	for _, id := range ids {
		t, err := fetchTask(ctx, s, id)
		if err != nil {
			return nil, fmt.Errorf("loading task %q: %w", id, err)
		}
		out = append(out, t)
	}
	return out, nil
}
