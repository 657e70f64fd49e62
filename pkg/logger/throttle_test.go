package logger_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/logger"
)

func TestThrottleGate_WindowSuppression(t *testing.T) {
	gate := logger.NewThrottleGate(time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, gate.IsAllowed("license-expiring", base, time.Hour))

	testCases := []struct {
		name    string
		at      time.Time
		allowed bool
	}{
		{name: "SameInstant", at: base, allowed: false},
		{name: "HalfwayThroughWindow", at: base.Add(30 * time.Minute), allowed: false},
		// The window end itself is claimable, and the winning call opens a
		// fresh window from that instant.
		{name: "ExactlyAtWindowEnd", at: base.Add(time.Hour), allowed: true},
		{name: "InsideReclaimedWindow", at: base.Add(time.Hour + time.Second), allowed: false},
		{name: "AtReclaimedWindowEnd", at: base.Add(2 * time.Hour), allowed: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, gate.IsAllowed("license-expiring", tc.at, time.Hour))
		})
	}
}

func TestThrottleGate_ZeroPeriod(t *testing.T) {
	gate := logger.NewThrottleGate(time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, gate.IsAllowed("event", base, 0))
	assert.False(t, gate.IsAllowed("event", base, 0), "repeat at the same instant must be refused")
	assert.True(t, gate.IsAllowed("event", base.Add(time.Nanosecond), 0), "any later instant passes")
}

func TestThrottleGate_IndependentKeys(t *testing.T) {
	gate := logger.NewThrottleGate(time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, gate.IsAllowed("license-a", now, time.Hour))
	assert.True(t, gate.IsAllowed("license-b", now, time.Hour))
	assert.False(t, gate.IsAllowed("license-a", now, time.Hour))
}

func TestThrottleGate_ConcurrentSingleWinner(t *testing.T) {
	gate := logger.NewThrottleGate(time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	const goroutines = 100

	var wins atomic.Int32
	var start sync.WaitGroup
	var done sync.WaitGroup

	start.Add(1)
	for i := 0; i < goroutines; i++ {
		done.Add(1)
		go func() {
			defer done.Done()
			start.Wait()
			if gate.IsAllowed("contested", now, time.Hour) {
				wins.Add(1)
			}
		}()
	}

	start.Done()
	done.Wait()

	assert.Equal(t, int32(1), wins.Load(), "exactly one concurrent caller must win the window")

	// A later window is claimable again.
	assert.True(t, gate.IsAllowed("contested", now.Add(2*time.Hour), time.Hour))
}

func TestThrottleGate_SweepRemovesExpiredSlots(t *testing.T) {
	gate := logger.NewThrottleGate(time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, gate.IsAllowed("stale", base, 0))
	assert.True(t, gate.IsAllowed("fresh", base, time.Hour))
	assert.Equal(t, 2, gate.Size())

	// Two minutes later a new call elects itself sweeper; the zero-period
	// slot has expired while the hour-long window is still live.
	later := base.Add(2 * time.Minute)
	assert.True(t, gate.IsAllowed("incoming", later, time.Hour))

	assert.Equal(t, 2, gate.Size())
	assert.False(t, gate.IsAllowed("fresh", later, time.Hour), "surviving window still suppresses")
}

func TestThrottleGate_ResetClearsAllKeys(t *testing.T) {
	gate := logger.NewThrottleGate(time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, gate.IsAllowed("a", now, time.Hour))
	assert.True(t, gate.IsAllowed("b", now, time.Hour))

	gate.Reset()

	assert.Equal(t, 0, gate.Size())
	assert.True(t, gate.IsAllowed("a", now, time.Hour))
}

func TestThrottledLogger_WarnOncePerWindow(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewLogger(constants.LogLevelDebug, &buf)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	throttled := logger.NewThrottledLogger(base).WithClock(func() time.Time { return now })

	ctx := context.Background()

	assert.True(t, throttled.WarnThrottled(ctx, "expiry-warning", time.Hour, "License expires soon",
		logger.String("license_id", "lic-123"),
	))
	assert.False(t, throttled.WarnThrottled(ctx, "expiry-warning", time.Hour, "License expires soon",
		logger.String("license_id", "lic-123"),
	))

	lines := strings.Count(strings.TrimSpace(buf.String()), "\n") + 1
	assert.Equal(t, 1, lines, "suppressed repeat must not reach the log")
	assert.Contains(t, buf.String(), "License expires soon")

	// Advance past the window and the warning fires again.
	now = now.Add(2 * time.Hour)
	assert.True(t, throttled.WarnThrottled(ctx, "expiry-warning", time.Hour, "License expires soon"))
}
