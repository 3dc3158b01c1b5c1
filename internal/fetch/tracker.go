// Package fetch runs record-store requests in the background and applies
// their results to a selection engine, discarding responses that a newer
// request of the same kind has superseded.
package fetch

import (
	"sync"
)

// Ticket identifies one in-flight request.
type Ticket struct {
	Kind string
	Seq  uint64
}

// Tracker keeps a monotonically increasing sequence per request kind.
// Only the holder of the newest ticket may apply its result.
type Tracker struct {
	mu      sync.Mutex
	latest  map[string]uint64
	applyMu map[string]*sync.Mutex
}

func NewTracker() *Tracker {
	return &Tracker{
		latest:  make(map[string]uint64),
		applyMu: make(map[string]*sync.Mutex),
	}
}

// Begin issues a ticket that supersedes every earlier ticket of kind.
func (t *Tracker) Begin(kind string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest[kind]++
	return Ticket{Kind: kind, Seq: t.latest[kind]}
}

// Current reports whether tk is still the newest ticket of its kind.
func (t *Tracker) Current(tk Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest[tk.Kind] == tk.Seq
}

// Settle runs apply only if tk is still current and reports whether it
// ran. Applies of one kind are serialized, so an older result can never
// land after a newer one. apply may call Begin, or Settle for another
// kind, but not Settle for its own kind.
func (t *Tracker) Settle(tk Ticket, apply func()) bool {
	mu := t.kindLock(tk.Kind)
	mu.Lock()
	defer mu.Unlock()
	if !t.Current(tk) {
		return false
	}
	apply()
	return true
}

func (t *Tracker) kindLock(kind string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	mu, ok := t.applyMu[kind]
	if !ok {
		mu = &sync.Mutex{}
		t.applyMu[kind] = mu
	}
	return mu
}
