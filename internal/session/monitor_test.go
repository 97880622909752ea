package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move wall-clock time deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMonitor(clock *fakeClock, cb Callbacks) *Monitor {
	return NewMonitor(Config{
		PollInterval: time.Hour, // transitions driven by explicit Check calls
		Clock:        clock.Now,
	}, cb)
}

func TestMonitorStateTransitions(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	var warnings, criticals, expirations int32
	monitor := newTestMonitor(clock, Callbacks{
		OnWarning:  func(time.Duration) { atomic.AddInt32(&warnings, 1) },
		OnCritical: func(time.Duration) { atomic.AddInt32(&criticals, 1) },
		OnExpired:  func() { atomic.AddInt32(&expirations, 1) },
	})
	defer monitor.Stop()

	monitor.Start(clock.Now().Add(10 * time.Minute))
	assert.Equal(t, StateValid, monitor.Check())

	clock.Advance(7*time.Minute + 30*time.Second) // 2m30s left
	assert.Equal(t, StateWarning, monitor.Check())
	assert.Equal(t, int32(1), atomic.LoadInt32(&warnings))

	// Re-checking inside the same band does not re-fire the callback.
	assert.Equal(t, StateWarning, monitor.Check())
	assert.Equal(t, int32(1), atomic.LoadInt32(&warnings))

	clock.Advance(time.Minute) // 1m30s left
	assert.Equal(t, StateCritical, monitor.Check())
	assert.Equal(t, int32(1), atomic.LoadInt32(&criticals))

	clock.Advance(2 * time.Minute) // past expiry
	assert.Equal(t, StateExpired, monitor.Check())
	assert.Equal(t, int32(1), atomic.LoadInt32(&expirations))
}

func TestConcurrentExpiryChecksFireOneLogout(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	var logouts int32
	monitor := newTestMonitor(clock, Callbacks{
		OnExpired: func() { atomic.AddInt32(&logouts, 1) },
	})
	defer monitor.Stop()

	monitor.Start(clock.Now().Add(time.Minute))
	clock.Advance(2 * time.Minute)

	const checkers = 32
	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(checkers)
	for i := 0; i < checkers; i++ {
		go func() {
			defer done.Done()
			start.Wait()
			monitor.Check()
		}()
	}
	start.Done()
	done.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&logouts),
		"overlapping expiry observations must force exactly one logout")
}

func TestStartCancelsPreviousCycle(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	var logouts int32
	monitor := newTestMonitor(clock, Callbacks{
		OnExpired: func() { atomic.AddInt32(&logouts, 1) },
	})
	defer monitor.Stop()

	// First session is about to expire; a fresh login replaces it
	// before any check observes expiry.
	monitor.Start(clock.Now().Add(time.Second))
	monitor.Start(clock.Now().Add(time.Hour))

	clock.Advance(time.Minute)
	assert.Equal(t, StateValid, monitor.Check())
	assert.Zero(t, atomic.LoadInt32(&logouts),
		"stale cycle must not force a logout after a fresh login")
}

func TestStartAfterExpiryFiresAgainForNewSession(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	var logouts int32
	monitor := newTestMonitor(clock, Callbacks{
		OnExpired: func() { atomic.AddInt32(&logouts, 1) },
	})
	defer monitor.Stop()

	monitor.Start(clock.Now().Add(time.Minute))
	clock.Advance(2 * time.Minute)
	monitor.Check()
	require.Equal(t, int32(1), atomic.LoadInt32(&logouts))

	monitor.Start(clock.Now().Add(time.Minute))
	clock.Advance(2 * time.Minute)
	monitor.Check()
	assert.Equal(t, int32(2), atomic.LoadInt32(&logouts),
		"each cycle gets its own single forced logout")
}

func TestStopIsIdempotent(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	monitor := newTestMonitor(clock, Callbacks{})

	monitor.Stop()
	monitor.Start(clock.Now().Add(time.Hour))
	monitor.Stop()
	monitor.Stop()
}

func TestRenew(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	monitor := newTestMonitor(clock, Callbacks{})
	defer monitor.Stop()

	assert.ErrorIs(t, monitor.Renew(), ErrNoSession)

	monitor.Start(clock.Now().Add(time.Hour))
	assert.NoError(t, monitor.Renew())

	clock.Advance(56 * time.Minute) // 4m left, below the 5m floor
	assert.ErrorIs(t, monitor.Renew(), ErrRenewTooLate)
}

func TestAlreadyExpiredTokenForcesImmediateLogout(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	var logouts int32
	monitor := newTestMonitor(clock, Callbacks{
		OnExpired: func() { atomic.AddInt32(&logouts, 1) },
	})
	defer monitor.Stop()

	monitor.Start(clock.Now().Add(-time.Minute))
	assert.Equal(t, int32(1), atomic.LoadInt32(&logouts),
		"Start must evaluate immediately, not wait for the first tick")
}

func TestDecodeExpiry(t *testing.T) {
	_, err := DecodeExpiry("garbage")
	assert.Error(t, err)
}
