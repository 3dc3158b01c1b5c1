package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/logging"
	"github.com/NotNullDev/nanomgmt/internal/repository"
	"github.com/NotNullDev/nanomgmt/internal/selection"
)

const maxProbeTimeout = 5 * time.Second

// HealthMonitor polls the store and mirrors its reachability into the
// engine. When the store comes back, reference data is reloaded, which is
// what unfreezes the cascade.
type HealthMonitor struct {
	store    repository.Store
	engine   *selection.Engine
	loader   *Loader
	interval time.Duration
	log      *slog.Logger
}

// NewHealthMonitor builds a monitor. loader may be nil when nothing should
// be reloaded on reconnect.
func NewHealthMonitor(store repository.Store, engine *selection.Engine, loader *Loader, interval time.Duration, log *slog.Logger) *HealthMonitor {
	if log == nil {
		log = logging.Discard()
	}
	return &HealthMonitor{store: store, engine: engine, loader: loader, interval: interval, log: log}
}

// Check probes once and returns the resulting online state.
func (h *HealthMonitor) Check(ctx context.Context) bool {
	timeout := h.interval
	if timeout <= 0 || timeout > maxProbeTimeout {
		timeout = maxProbeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	err := h.store.Health(probeCtx)
	cancel()

	online := err == nil
	was := h.engine.Snapshot().Online
	if !online {
		h.log.Debug("health probe failed", "error", err)
	}
	h.engine.SetOnline(online)

	if online && !was && h.loader != nil {
		if err := h.loader.LoadReference(ctx); err != nil {
			h.log.Warn("reloading reference data after reconnect", "error", err)
		}
	}
	return online
}

// Run probes immediately and then on every tick until ctx is done.
func (h *HealthMonitor) Run(ctx context.Context) error {
	h.Check(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
