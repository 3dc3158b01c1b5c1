// Package selection keeps the project, team and activity pickers consistent
// with each other and with the latest reference data from the record store.
//
// An Engine owns one page's selection state. Every mutation runs the full
// cascade before the lock is released, so Snapshot never observes a
// half-propagated state.
package selection

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/logging"
)

var (
	// ErrInvalidSelection is returned when a selection names something that
	// is not currently selectable. The state is left untouched.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrOffline is returned for changes that would need a cascade while
	// the store is unreachable. Derived state stays frozen until fresh
	// reference data arrives after reconnecting.
	ErrOffline = errors.New("record store is offline")
)

// Field names one user-settable selection.
type Field string

const (
	FieldProject       Field = "selectedProject"
	FieldTeam          Field = "selectedTeam"
	FieldActivity      Field = "selectedActivity"
	FieldDateRange     Field = "activeDateRange"
	FieldStatusFilter  Field = "selectedStatusFilter"
	FieldSortDirection Field = "selectedSortDirection"
)

// Fields lists every settable field in a stable order.
var Fields = []Field{FieldProject, FieldTeam, FieldActivity, FieldDateRange, FieldStatusFilter, FieldSortDirection}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source for the default date range.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithHideEmptyTeams drops teams that own no activity from the available
// list. Off by default.
func WithHideEmptyTeams() Option {
	return func(e *Engine) { e.hideEmptyTeams = true }
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

type Engine struct {
	now            func() time.Time
	log            *slog.Logger
	hideEmptyTeams bool

	mu sync.Mutex
	st state

	subMu   sync.Mutex
	subs    []subscriber
	nextSub int
}

// New returns an empty, online engine whose date range is the current
// calendar month.
func New(opts ...Option) *Engine {
	e := &Engine{
		now: time.Now,
		log: logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.st = e.initial(true)
	return e
}

func (e *Engine) initial(online bool) state {
	return state{
		dateRange:     domain.CurrentMonth(e.now()),
		sortDirection: domain.SortDesc,
		online:        online,
	}
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.snapshot()
}

// Subscribe registers fn to receive a snapshot after every change.
// Calls happen outside the engine lock, so fn may call back into the
// engine. Under concurrent writers, use Snapshot.Version to drop
// out-of-order deliveries.
func (e *Engine) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.nextSub++
	id := e.nextSub
	e.subs = append(e.subs, subscriber{id: id, fn: fn})
	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

func (e *Engine) SetProjects(projects []domain.Project) error {
	return e.setReference(domain.CollectionProjects, func(st *state) {
		st.projects = cloneProjects(projects)
	})
}

func (e *Engine) SetTeams(teams []domain.Team) error {
	return e.setReference(domain.CollectionTeams, func(st *state) {
		st.teams = cloneTeams(teams)
	})
}

func (e *Engine) SetActivities(activities []domain.Activity) error {
	return e.setReference(domain.CollectionActivities, func(st *state) {
		st.activities = cloneActivities(activities)
	})
}

func (e *Engine) setReference(kind domain.Collection, apply func(*state)) error {
	return e.mutate(func(st *state) error {
		if !st.online {
			return fmt.Errorf("replacing %s: %w", kind, ErrOffline)
		}
		apply(st)
		st.cascade(e.hideEmptyTeams)
		return nil
	})
}

// SelectProject selects a project by id; "" clears the selection.
func (e *Engine) SelectProject(id string) error {
	return e.selectCascading(FieldProject, id, func(st *state) bool {
		return indexProject(st.projects, id) >= 0
	}, func(st *state) { st.project = id })
}

// SelectTeam selects one of the currently available teams; "" clears it.
func (e *Engine) SelectTeam(id string) error {
	return e.selectCascading(FieldTeam, id, func(st *state) bool {
		return indexTeam(st.availableTeams, id) >= 0
	}, func(st *state) { st.team = id })
}

// SelectActivity selects one of the currently available activities.
func (e *Engine) SelectActivity(id string) error {
	return e.selectCascading(FieldActivity, id, func(st *state) bool {
		return indexActivity(st.availableActivities, id) >= 0
	}, func(st *state) { st.activity = id })
}

func (e *Engine) selectCascading(field Field, id string, valid func(*state) bool, apply func(*state)) error {
	return e.mutate(func(st *state) error {
		if !st.online {
			return e.reject(field, id, ErrOffline)
		}
		if id != "" && !valid(st) {
			return e.reject(field, id, fmt.Errorf("%w: %q is not available", ErrInvalidSelection, id))
		}
		apply(st)
		st.cascade(e.hideEmptyTeams)
		return nil
	})
}

func (e *Engine) SetDateRange(r domain.DateRange) error {
	return e.mutate(func(st *state) error {
		if err := r.Validate(); err != nil {
			return e.reject(FieldDateRange, r, fmt.Errorf("%w: %v", ErrInvalidSelection, err))
		}
		st.dateRange = domain.DateRange{From: r.From.UTC(), To: r.To.UTC()}
		return nil
	})
}

// SetStatusFilter narrows task queries to one status; "" means any.
func (e *Engine) SetStatusFilter(s domain.TaskStatus) error {
	return e.mutate(func(st *state) error {
		if !domain.ValidStatusFilter(s) {
			return e.reject(FieldStatusFilter, s, fmt.Errorf("%w: unknown status %q", ErrInvalidSelection, s))
		}
		st.statusFilter = s
		return nil
	})
}

func (e *Engine) SetSortDirection(d domain.SortDirection) error {
	return e.mutate(func(st *state) error {
		if !d.Valid() {
			return e.reject(FieldSortDirection, d, fmt.Errorf("%w: unknown direction %q", ErrInvalidSelection, d))
		}
		st.sortDirection = d
		return nil
	})
}

// Set dispatches to the typed setter for field. Entity values may be
// given as ids, values, or pointers; nil clears a selection.
func (e *Engine) Set(field Field, value any) error {
	switch field {
	case FieldProject, FieldTeam, FieldActivity:
		id, ok := selectionID(value)
		if !ok {
			return e.reject(field, value, fmt.Errorf("%w: unsupported value type %T", ErrInvalidSelection, value))
		}
		switch field {
		case FieldProject:
			return e.SelectProject(id)
		case FieldTeam:
			return e.SelectTeam(id)
		default:
			return e.SelectActivity(id)
		}
	case FieldDateRange:
		r, ok := value.(domain.DateRange)
		if !ok {
			return e.reject(field, value, fmt.Errorf("%w: want DateRange, got %T", ErrInvalidSelection, value))
		}
		return e.SetDateRange(r)
	case FieldStatusFilter:
		switch v := value.(type) {
		case domain.TaskStatus:
			return e.SetStatusFilter(v)
		case string:
			return e.SetStatusFilter(domain.TaskStatus(v))
		case nil:
			return e.SetStatusFilter("")
		}
	case FieldSortDirection:
		switch v := value.(type) {
		case domain.SortDirection:
			return e.SetSortDirection(v)
		case string:
			return e.SetSortDirection(domain.SortDirection(v))
		case nil:
			return e.SetSortDirection(domain.SortNone)
		}
	default:
		return e.reject(field, value, fmt.Errorf("%w: unknown field", ErrInvalidSelection))
	}
	return e.reject(field, value, fmt.Errorf("%w: unsupported value type %T", ErrInvalidSelection, value))
}

func selectionID(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	case domain.Project:
		return v.ID, true
	case *domain.Project:
		if v == nil {
			return "", true
		}
		return v.ID, true
	case domain.Team:
		return v.ID, true
	case *domain.Team:
		if v == nil {
			return "", true
		}
		return v.ID, true
	case domain.Activity:
		return v.ID, true
	case *domain.Activity:
		if v == nil {
			return "", true
		}
		return v.ID, true
	default:
		return "", false
	}
}

// SetOnline records the health signal. Going offline freezes derived
// state; coming back does not recompute on its own, the next reference
// load does.
func (e *Engine) SetOnline(online bool) {
	_ = e.mutate(func(st *state) error {
		if st.online != online {
			e.log.Info("record store connectivity changed", "online", online)
		}
		st.online = online
		return nil
	})
}

// Reset drops all reference data and selections, as when the owning page
// is left. Subscribers and the connectivity flag survive.
func (e *Engine) Reset() {
	_ = e.mutate(func(st *state) error {
		version := st.version
		*st = e.initial(st.online)
		// Keep the version moving so subscribers never see it repeat.
		st.version = version
		return nil
	})
}

func (e *Engine) reject(field Field, value any, err error) error {
	e.log.Warn("selection rejected", "field", string(field), "value", fmt.Sprint(value), "error", err)
	return err
}

// mutate applies fn under the lock and notifies subscribers if anything
// changed. A failing fn must leave st untouched.
func (e *Engine) mutate(fn func(*state) error) error {
	e.mu.Lock()
	before := e.st
	if err := fn(&e.st); err != nil {
		e.st = before
		e.mu.Unlock()
		return err
	}
	if reflect.DeepEqual(before, e.st) {
		e.mu.Unlock()
		return nil
	}
	e.st.version = before.version + 1
	snap := e.st.snapshot()
	e.mu.Unlock()

	e.notify(snap)
	return nil
}

func (e *Engine) notify(snap Snapshot) {
	e.subMu.Lock()
	subs := make([]subscriber, len(e.subs))
	copy(subs, e.subs)
	e.subMu.Unlock()
	for _, s := range subs {
		s.fn(snap)
	}
}
