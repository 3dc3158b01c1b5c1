package service

import (
	"context"
	"fmt"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/query"
	"github.com/NotNullDev/nanomgmt/internal/repository"
)

type taskService struct {
	store    repository.Store
	now      func() time.Time
	observer UseCaseObserver
}

func NewTaskService(store repository.Store, observers ...UseCaseObserver) TaskService {
	return &taskService{store: store, now: time.Now, observer: useCaseObserverOrNoop(observers)}
}

// Create logs a new task for the current user. The team always comes from
// the activity; a draft naming another team is invalid. Date and duration
// default to now and a full working day.
func (s *taskService) Create(ctx context.Context, draft domain.Task) (task domain.Task, err error) {
	started := time.Now()
	fields := map[string]any{"activity": draft.ActivityID}
	defer func() { observe(ctx, s.observer, "create-task", started, fields, err) }()

	userID, err := s.store.CurrentUserID(ctx)
	if err != nil {
		return domain.Task{}, fmt.Errorf("creating task: %w", err)
	}
	draft.ID = ""
	draft.UserID = userID
	draft.Status = domain.TaskNone
	if draft.Date.IsZero() {
		draft.Date = s.now().UTC()
	}
	if draft.Duration == 0 {
		draft.Duration = domain.DefaultTaskHours
	}
	if draft.ActivityID != "" {
		teamID, err := s.teamOf(ctx, draft.ActivityID, draft.TeamID)
		if err != nil {
			return domain.Task{}, fmt.Errorf("creating task: %w", err)
		}
		draft.TeamID = teamID
	}
	if err := draft.Validate(); err != nil {
		return domain.Task{}, fmt.Errorf("creating task: %w", err)
	}

	rec, err := s.store.Collection(domain.CollectionTasks).Create(ctx, draft.Record())
	if err != nil {
		return domain.Task{}, fmt.Errorf("creating task: %w", err)
	}
	task, err = domain.DecodeTask(rec)
	fields["task"] = task.ID
	return task, err
}

// Update edits the current user's task. A changed rejected task goes back
// to none; an unchanged patch writes nothing.
func (s *taskService) Update(ctx context.Context, id string, patch domain.TaskPatch) (task domain.Task, err error) {
	started := time.Now()
	fields := map[string]any{"task": id}
	defer func() { observe(ctx, s.observer, "update-task", started, fields, err) }()

	cur, err := fetchTask(ctx, s.store, id)
	if err != nil {
		return domain.Task{}, fmt.Errorf("updating task: %w", err)
	}
	userID, err := s.store.CurrentUserID(ctx)
	if err != nil {
		return domain.Task{}, fmt.Errorf("updating task: %w", err)
	}
	if cur.UserID != userID {
		return domain.Task{}, fmt.Errorf("updating task %q: %w", id, ErrNotOwner)
	}
	if patch.ActivityID != nil || patch.TeamID != nil {
		actID := cur.ActivityID
		if patch.ActivityID != nil {
			actID = *patch.ActivityID
		}
		want := ""
		if patch.TeamID != nil {
			want = *patch.TeamID
		}
		teamID, err := s.teamOf(ctx, actID, want)
		if err != nil {
			return domain.Task{}, fmt.Errorf("updating task %q: %w", id, err)
		}
		patch.TeamID = &teamID
	}

	edited, changed, err := cur.Apply(patch)
	if err != nil {
		return domain.Task{}, fmt.Errorf("updating task %q: %w", id, err)
	}
	fields["changed"] = changed
	if !changed {
		return cur, nil
	}
	rec, err := s.store.Collection(domain.CollectionTasks).Update(ctx, id, cur.PatchRecord(edited))
	if err != nil {
		return domain.Task{}, fmt.Errorf("updating task %q: %w", id, err)
	}
	return domain.DecodeTask(rec)
}

func (s *taskService) Get(ctx context.Context, id string) (domain.Task, error) {
	return fetchTask(ctx, s.store, id)
}

func (s *taskService) History(ctx context.Context, q query.Query) (domain.TaskPage, error) {
	raw, err := s.store.Collection(domain.CollectionTasks).FetchPage(ctx, q.Page, q.Limit, q.Predicate, q.Sort)
	if err != nil {
		return domain.TaskPage{}, fmt.Errorf("loading task history: %w", err)
	}
	tasks, err := domain.DecodeAll(raw.Items, domain.DecodeTask)
	if err != nil {
		return domain.TaskPage{}, fmt.Errorf("decoding task history: %w", err)
	}
	return domain.TaskPage{Items: tasks, Page: raw.Page, PerPage: raw.PerPage, AllCount: raw.AllCount}, nil
}

// teamOf returns the team owning activityID. A non-empty want must match it.
func (s *taskService) teamOf(ctx context.Context, activityID, want string) (string, error) {
	act, err := s.activity(ctx, activityID)
	if err != nil {
		return "", err
	}
	if want != "" && want != act.TeamID {
		return "", fmt.Errorf("activity %q belongs to team %q, not %q: %w", act.ID, act.TeamID, want, domain.ErrInvalidRecord)
	}
	return act.TeamID, nil
}

func (s *taskService) activity(ctx context.Context, id string) (domain.Activity, error) {
	rec, err := s.store.Collection(domain.CollectionActivities).FetchOne(ctx, id)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("loading activity %q: %w", id, err)
	}
	return domain.DecodeActivity(rec)
}
