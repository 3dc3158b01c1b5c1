package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/domain"
)

// UseCaseEvent describes one finished write: task create or update, or a
// review decision.
type UseCaseEvent struct {
	Name      string
	StartedAt time.Time
	Duration  time.Duration
	Success   bool
	Err       error
	Fields    map[string]any
}

type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

// ObserverFunc adapts a function to UseCaseObserver.
type ObserverFunc func(ctx context.Context, event UseCaseEvent)

func (f ObserverFunc) ObserveUseCase(ctx context.Context, event UseCaseEvent) { f(ctx, event) }

type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

// NewLogUseCaseObserver logs successes at debug. Refusals the user can
// fix (not a manager, not the owner, locked task, bad input) go to warn;
// anything else is an error.
func NewLogUseCaseObserver(logger *slog.Logger) UseCaseObserver {
	if logger == nil {
		return NoopUseCaseObserver{}
	}
	return ObserverFunc(func(ctx context.Context, ev UseCaseEvent) {
		keys := make([]string, 0, len(ev.Fields))
		for k := range ev.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		attrs := []slog.Attr{
			slog.String("use_case", ev.Name),
			slog.Duration("took", ev.Duration),
		}
		for _, k := range keys {
			attrs = append(attrs, slog.Any(k, ev.Fields[k]))
		}

		level := slog.LevelDebug
		if ev.Err != nil {
			attrs = append(attrs, slog.String("error", ev.Err.Error()))
			level = slog.LevelError
			if isRefusal(ev.Err) {
				level = slog.LevelWarn
			}
		}
		logger.LogAttrs(ctx, level, "use case finished", attrs...)
	})
}

func isRefusal(err error) bool {
	return errors.Is(err, ErrNotManager) ||
		errors.Is(err, ErrNotOwner) ||
		errors.Is(err, domain.ErrStatusLocked) ||
		errors.Is(err, domain.ErrInvalidRecord)
}

// useCaseObserverOrNoop picks the first non-nil observer.
func useCaseObserverOrNoop(observers []UseCaseObserver) UseCaseObserver {
	for _, obs := range observers {
		if obs != nil {
			return obs
		}
	}
	return NoopUseCaseObserver{}
}
