package logger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/turtacn/cle/pkg/constants"
)

// ================================================================================
// Throttle Gate
// ================================================================================

// ThrottleGate limits how often a keyed event may fire. Each key owns a slot
// holding the end of its current suppression window; when several goroutines
// race past an expired window, compare-and-swap guarantees exactly one wins.
type ThrottleGate struct {
	mu         sync.RWMutex
	slots      map[string]*throttleSlot
	lastSweep  atomic.Int64
	sweepEvery time.Duration
}

// throttleSlot holds the window expiry for one key as UnixNano.
type throttleSlot struct {
	expiry atomic.Int64
}

// minTimeNano is the initial slot expiry, far enough in the past that any
// real timestamp claims the first window.
const minTimeNano = int64(-1 << 62)

// NewThrottleGate creates a throttle gate that sweeps stale slots at most
// once per sweepEvery. A non-positive sweepEvery falls back to the default
// sweep interval.
func NewThrottleGate(sweepEvery time.Duration) *ThrottleGate {
	if sweepEvery <= 0 {
		sweepEvery = constants.ThrottleSweepInterval
	}

	return &ThrottleGate{
		slots:      make(map[string]*throttleSlot),
		sweepEvery: sweepEvery,
	}
}

// IsAllowed reports whether the event identified by key may fire at now,
// and if so claims a suppression window of period. Calling at or after the
// stored window end succeeds. A zero period claims a one-nanosecond window,
// so a second call at the same instant is refused while any later instant
// succeeds. Under concurrent calls for the same expired key, exactly one
// caller observes true.
func (g *ThrottleGate) IsAllowed(key string, now time.Time, period time.Duration) bool {
	slot := g.slot(key)

	current := slot.expiry.Load()
	nowNano := now.UnixNano()
	if nowNano < current {
		return false
	}

	next := now.Add(period).UnixNano()
	if period == 0 {
		next = nowNano + 1
	}
	won := slot.expiry.CompareAndSwap(current, next)

	g.maybeSweep(now)

	return won
}

// slot returns the slot for key, creating it on first use.
func (g *ThrottleGate) slot(key string) *throttleSlot {
	g.mu.RLock()
	if s, exists := g.slots[key]; exists {
		g.mu.RUnlock()
		return s
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	// Double-check after acquiring write lock
	if s, exists := g.slots[key]; exists {
		return s
	}

	s := &throttleSlot{}
	s.expiry.Store(minTimeNano)
	g.slots[key] = s

	return s
}

// maybeSweep runs a sweep when one has not run within sweepEvery. The
// elected sweeper claims the run via compare-and-swap so concurrent
// callers never sweep twice.
func (g *ThrottleGate) maybeSweep(now time.Time) {
	last := g.lastSweep.Load()
	if now.Sub(time.Unix(0, last)) < g.sweepEvery {
		return
	}
	if !g.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	g.sweep(now)
}

// sweep removes slots whose window has expired. Holding the write lock
// excludes claimers, so re-reading each expiry here is race-free: a slot
// re-claimed since the caller last saw it stays in the map.
func (g *ThrottleGate) sweep(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	nowNano := now.UnixNano()
	for key, s := range g.slots {
		if s.expiry.Load() < nowNano {
			delete(g.slots, key)
		}
	}
}

// Size returns the number of tracked keys.
func (g *ThrottleGate) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.slots)
}

// Reset drops all tracked keys.
func (g *ThrottleGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.slots = make(map[string]*throttleSlot)
}

// ================================================================================
// Throttled Logger
// ================================================================================

// ThrottledLogger suppresses repeats of the same keyed message within a
// per-key window. It is used for recurring conditions, such as a license
// nearing expiry, that would otherwise flood the log on every evaluation.
type ThrottledLogger struct {
	logger Logger
	gate   *ThrottleGate
	clock  func() time.Time
}

// NewThrottledLogger creates a throttled logger around base.
func NewThrottledLogger(base Logger) *ThrottledLogger {
	return &ThrottledLogger{
		logger: base,
		gate:   NewThrottleGate(constants.ThrottleSweepInterval),
		clock:  time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (t *ThrottledLogger) WithClock(clock func() time.Time) *ThrottledLogger {
	t.clock = clock
	return t
}

// WarnThrottled logs a warning at most once per period for the given key.
// Returns true when the message was emitted.
func (t *ThrottledLogger) WarnThrottled(ctx context.Context, key string, period time.Duration, message string, fields ...Field) bool {
	if !t.gate.IsAllowed(key, t.clock(), period) {
		return false
	}

	t.logger.Warn(ctx, message, fields...)
	return true
}

// InfoThrottled logs an informational message at most once per period for
// the given key. Returns true when the message was emitted.
func (t *ThrottledLogger) InfoThrottled(ctx context.Context, key string, period time.Duration, message string, fields ...Field) bool {
	if !t.gate.IsAllowed(key, t.clock(), period) {
		return false
	}

	t.logger.Info(ctx, message, fields...)
	return true
}

// Gate exposes the underlying throttle gate.
func (t *ThrottledLogger) Gate() *ThrottleGate {
	return t.gate
}
