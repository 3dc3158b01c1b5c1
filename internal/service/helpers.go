package service

import (
	"context"
	"fmt"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/query"
	"github.com/NotNullDev/nanomgmt/internal/repository"
)

// fetchTask reads and decodes one task.
func fetchTask(ctx context.Context, s repository.Store, id string) (domain.Task, error) {
	rec, err := s.Collection(domain.CollectionTasks).FetchOne(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	return domain.DecodeTask(rec)
}

func fetchTasks(ctx context.Context, s repository.Store, p query.Predicate) ([]domain.Task, error) {
	recs, err := s.Collection(domain.CollectionTasks).FetchAll(ctx, p)
	if err != nil {
		return nil, err
	}
	return domain.DecodeAll(recs, domain.DecodeTask)
}

// teamCache memoizes team lookups over one batch.
type teamCache struct {
	store repository.Store
	teams map[string]domain.Team
}

func newTeamCache(s repository.Store) *teamCache {
	return &teamCache{store: s, teams: make(map[string]domain.Team)}
}

func (c *teamCache) get(ctx context.Context, id string) (domain.Team, error) {
	if t, ok := c.teams[id]; ok {
		return t, nil
	}
	rec, err := c.store.Collection(domain.CollectionTeams).FetchOne(ctx, id)
	if err != nil {
		return domain.Team{}, fmt.Errorf("loading team %q: %w", id, err)
	}
	t, err := domain.DecodeTeam(rec)
	if err != nil {
		return domain.Team{}, err
	}
	c.teams[id] = t
	return t, nil
}

// dateClauses bounds the date field to rng. A zero bound is left open.
func dateClauses(rng domain.DateRange) []query.Clause {
	var out []query.Clause
	if !rng.From.IsZero() {
		out = append(out, query.Clause{Field: query.FieldDate, Op: query.OpGte, Value: domain.FormatTimestamp(rng.From)})
	}
	if !rng.To.IsZero() {
		out = append(out, query.Clause{Field: query.FieldDate, Op: query.OpLte, Value: domain.FormatTimestamp(rng.To)})
	}
	return out
}

func observe(ctx context.Context, obs UseCaseObserver, name string, started time.Time, fields map[string]any, err error) {
	obs.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		StartedAt: started,
		Duration:  time.Since(started),
		Success:   err == nil,
		Err:       err,
		Fields:    fields,
	})
}
