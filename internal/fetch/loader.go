package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/logging"
	"github.com/NotNullDev/nanomgmt/internal/query"
	"github.com/NotNullDev/nanomgmt/internal/repository"
	"github.com/NotNullDev/nanomgmt/internal/selection"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a non-fatal message for the user.
type Notification struct {
	Level   Level
	Title   string
	Message string
}

type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

const kindTasks = "tasks"

// Loader fetches reference data and task pages and feeds them to an
// Engine. Every fetch takes a Tracker ticket; a response that lost the
// race is dropped.
type Loader struct {
	store    repository.Store
	engine   *selection.Engine
	tracker  *Tracker
	notifier Notifier
	log      *slog.Logger
	filters  map[domain.Collection]query.Predicate
}

type LoaderOption func(*Loader)

func WithNotifier(n Notifier) LoaderOption {
	return func(l *Loader) { l.notifier = n }
}

func WithLoaderLogger(log *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// WithReferenceFilter narrows what is loaded for one reference
// collection, for example only the teams a user manages.
func WithReferenceFilter(c domain.Collection, p query.Predicate) LoaderOption {
	return func(l *Loader) { l.filters[c] = p }
}

func NewLoader(store repository.Store, engine *selection.Engine, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:    store,
		engine:   engine,
		tracker:  NewTracker(),
		notifier: NotifierFunc(func(Notification) {}),
		log:      logging.Discard(),
		filters:  make(map[domain.Collection]query.Predicate),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) LoadProjects(ctx context.Context) error {
	return loadReference(ctx, l, domain.CollectionProjects, domain.DecodeProject, l.engine.SetProjects)
}

func (l *Loader) LoadTeams(ctx context.Context) error {
	return loadReference(ctx, l, domain.CollectionTeams, domain.DecodeTeam, l.engine.SetTeams)
}

func (l *Loader) LoadActivities(ctx context.Context) error {
	return loadReference(ctx, l, domain.CollectionActivities, domain.DecodeActivity, l.engine.SetActivities)
}

// LoadReference loads projects, teams and activities concurrently.
func (l *Loader) LoadReference(ctx context.Context) error {
	loads := []func(context.Context) error{l.LoadProjects, l.LoadTeams, l.LoadActivities}
	errs := make([]error, len(loads))
	var wg sync.WaitGroup
	for i, load := range loads {
		wg.Add(1)
		go func(i int, load func(context.Context) error) {
			defer wg.Done()
			errs[i] = load(ctx)
		}(i, load)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func loadReference[T any](ctx context.Context, l *Loader, c domain.Collection, decode func(domain.Record) (T, error), apply func([]T) error) error {
	tk := l.tracker.Begin(string(c))
	recs, err := l.store.Collection(c).FetchAll(ctx, l.filters[c])
	if err != nil {
		l.notify(LevelError, fmt.Sprintf("Could not load %s", c), err)
		return fmt.Errorf("loading %s: %w", c, err)
	}
	items, err := domain.DecodeAll(recs, decode)
	if err != nil {
		l.notify(LevelWarning, fmt.Sprintf("Ignored invalid %s response", c), err)
		return fmt.Errorf("decoding %s: %w", c, err)
	}

	var applyErr error
	if !l.tracker.Settle(tk, func() { applyErr = apply(items) }) {
		l.log.Debug("discarding stale response", "collection", string(c), "seq", tk.Seq)
		return nil
	}
	if applyErr != nil {
		return fmt.Errorf("applying %s: %w", c, applyErr)
	}
	l.log.Debug("reference data applied", "collection", string(c), "count", len(items))
	return nil
}

// LoadTasks fetches the page of tasks described by f merged with the
// engine's current selection. applied is false when a newer LoadTasks
// started before this one finished; the page is then empty.
func (l *Loader) LoadTasks(ctx context.Context, f query.Filter) (page domain.TaskPage, applied bool, err error) {
	q := query.Build(l.engine.Snapshot(), f)
	tk := l.tracker.Begin(kindTasks)

	raw, err := l.store.Collection(domain.CollectionTasks).FetchPage(ctx, q.Page, q.Limit, q.Predicate, q.Sort)
	if err != nil {
		l.notify(LevelError, "Could not load tasks", err)
		return domain.TaskPage{}, false, fmt.Errorf("loading tasks: %w", err)
	}
	tasks, err := domain.DecodeAll(raw.Items, domain.DecodeTask)
	if err != nil {
		l.notify(LevelWarning, "Ignored invalid tasks response", err)
		return domain.TaskPage{}, false, fmt.Errorf("decoding tasks: %w", err)
	}

	applied = l.tracker.Settle(tk, func() {
		page = domain.TaskPage{Items: tasks, Page: raw.Page, PerPage: raw.PerPage, AllCount: raw.AllCount}
	})
	if !applied {
		l.log.Debug("discarding stale response", "collection", kindTasks, "seq", tk.Seq)
	}
	return page, applied, nil
}

func (l *Loader) notify(level Level, title string, err error) {
	l.notifier.Notify(Notification{Level: level, Title: title, Message: err.Error()})
}
