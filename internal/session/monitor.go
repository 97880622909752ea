// Package session implements the client-local side of authentication:
// a wall-clock monitor that infers remaining token lifetime from
// locally held claims, and a small storage abstraction for the token
// with persistent and session-only scopes.
//
// Nothing here talks to the server. Expiry is detected purely from the
// token's embedded claims, and the monitor is not a source of truth
// for server-side authorization.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Default monitor thresholds.
const (
	DefaultPollInterval      = 30 * time.Second
	DefaultWarningThreshold  = 3 * time.Minute
	DefaultCriticalThreshold = 2 * time.Minute
	DefaultRenewMinRemaining = 5 * time.Minute
)

// ErrRenewTooLate is returned when the token no longer has enough life
// left for renewal; the user must authenticate again. Renewal never
// fabricates or extends a token.
var ErrRenewTooLate = errors.New("session too close to expiry, re-authentication required")

// ErrNoSession is returned when the monitor has no session to inspect.
var ErrNoSession = errors.New("no active session")

// State represents the monitor's view of the session.
type State int

const (
	StateValid State = iota
	StateWarning
	StateCritical
	StateExpired
)

// String returns a readable state name.
func (s State) String() string {
	switch s {
	case StateValid:
		return "VALID"
	case StateWarning:
		return "WARNING"
	case StateCritical:
		return "CRITICAL"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// ClientSession is the client-only projection of a token: the opaque
// token string, its expiry from the claims, and the remember flag that
// selects the storage scope.
type ClientSession struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Remember  bool      `json:"remember"`
}

// DecodeExpiry extracts the expiry claim from a token without
// verifying its signature. The client holds no signing key; the server
// remains the authority on token validity.
func DecodeExpiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token has no expiry claim")
	}
	return claims.ExpiresAt.Time, nil
}

// Config tunes monitor behavior. Zero values take the defaults above.
type Config struct {
	PollInterval      time.Duration
	WarningThreshold  time.Duration
	CriticalThreshold time.Duration
	RenewMinRemaining time.Duration
	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.WarningThreshold <= 0 {
		c.WarningThreshold = DefaultWarningThreshold
	}
	if c.CriticalThreshold <= 0 {
		c.CriticalThreshold = DefaultCriticalThreshold
	}
	if c.RenewMinRemaining <= 0 {
		c.RenewMinRemaining = DefaultRenewMinRemaining
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// Callbacks fire on state transitions. OnExpired is the forced-logout
// hook and fires exactly once per monitoring cycle no matter how many
// overlapping checks observe expiry.
type Callbacks struct {
	OnWarning  func(remaining time.Duration)
	OnCritical func(remaining time.Duration)
	OnExpired  func()
}

// Monitor tracks one session's remaining lifetime on a single timer.
// Starting a new cycle cancels the previous one, so two cycles can
// never race a forced logout after a fresh login.
type Monitor struct {
	cfg Config
	cb  Callbacks

	mu        sync.Mutex
	expiresAt time.Time
	state     State
	active    bool
	cancel    context.CancelFunc

	expiredFired atomic.Bool
}

// NewMonitor builds a monitor; callbacks may be partially nil.
func NewMonitor(cfg Config, cb Callbacks) *Monitor {
	return &Monitor{cfg: cfg.withDefaults(), cb: cb}
}

// Start begins a monitoring cycle for a session expiring at expiresAt.
// Any previous cycle is cancelled first.
func (m *Monitor) Start(expiresAt time.Time) {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.expiresAt = expiresAt
	m.state = StateValid
	m.active = true
	m.expiredFired.Store(false)
	interval := m.cfg.PollInterval
	m.mu.Unlock()

	// Evaluate immediately so an already-expired token forces logout
	// without waiting a full poll interval.
	m.Check()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if m.Check() == StateExpired {
					return
				}
			}
		}
	}()
}

// Stop cancels the active cycle. Idempotent; safe on a never-started
// monitor.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.active = false
}

// Check recomputes remaining lifetime and fires transition callbacks.
// Safe for concurrent use; the expired callback is guarded so it runs
// at most once per cycle.
func (m *Monitor) Check() State {
	m.mu.Lock()
	if !m.active {
		state := m.state
		m.mu.Unlock()
		return state
	}
	now := m.cfg.Clock()
	remaining := m.expiresAt.Sub(now)

	next := StateValid
	switch {
	case remaining <= 0:
		next = StateExpired
	case remaining <= m.cfg.CriticalThreshold:
		next = StateCritical
	case remaining <= m.cfg.WarningThreshold:
		next = StateWarning
	}

	prev := m.state
	m.state = next
	var onWarning, onCritical func(time.Duration)
	if next == StateWarning && prev < StateWarning {
		onWarning = m.cb.OnWarning
	}
	if next == StateCritical && prev < StateCritical {
		onCritical = m.cb.OnCritical
	}
	if next == StateExpired {
		m.active = false
	}
	m.mu.Unlock()

	if onWarning != nil {
		onWarning(remaining)
	}
	if onCritical != nil {
		onCritical(remaining)
	}
	if next == StateExpired && m.expiredFired.CompareAndSwap(false, true) {
		if m.cb.OnExpired != nil {
			m.cb.OnExpired()
		}
	}
	return next
}

// State returns the last computed state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Remaining returns the time left on the monitored session.
func (m *Monitor) Remaining() (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expiresAt.IsZero() {
		return 0, ErrNoSession
	}
	return m.expiresAt.Sub(m.cfg.Clock()), nil
}

// Renew checks whether the session already has comfortable life left.
// It never extends the token: when remaining time is at or below the
// renewal floor the caller must send the user back through login.
func (m *Monitor) Renew() error {
	remaining, err := m.Remaining()
	if err != nil {
		return err
	}
	if remaining <= m.cfg.RenewMinRemaining {
		return ErrRenewTooLate
	}
	return nil
}
