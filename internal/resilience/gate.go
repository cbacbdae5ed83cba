package resilience

import (
	"context"
	"sync"
	"time"
)

// DefaultMinInterval is the spacing the breach provider requires between
// consecutive requests.
const DefaultMinInterval = 1500 * time.Millisecond

// Clock is the time source used by Gate and retry backoff.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx ends.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SystemClock returns the wall clock.
func SystemClock() Clock { return realClock{} }

// Gate spaces dispatches at least interval apart. Callers reserve slots in
// the order they reach the lock, so waiting callers are served FIFO.
type Gate struct {
	interval time.Duration
	clock    Clock

	mu   sync.Mutex
	last time.Time
}

// NewGate creates a gate. A non-positive interval uses DefaultMinInterval
// and a nil clock uses the wall clock.
func NewGate(interval time.Duration, clock Clock) *Gate {
	if interval <= 0 {
		interval = DefaultMinInterval
	}
	if clock == nil {
		clock = realClock{}
	}
	return &Gate{interval: interval, clock: clock}
}

// Interval returns the configured minimum spacing.
func (g *Gate) Interval() time.Duration { return g.interval }

// Wait blocks until the caller's reserved slot arrives. If ctx ends first
// the slot stays consumed, which only ever widens the spacing.
func (g *Gate) Wait(ctx context.Context) error {
	slot := g.reserve()
	return g.clock.Sleep(ctx, slot.Sub(g.clock.Now()))
}

func (g *Gate) reserve() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()

	slot := g.clock.Now()
	if !g.last.IsZero() {
		if next := g.last.Add(g.interval); next.After(slot) {
			slot = next
		}
	}
	g.last = slot
	return slot
}
