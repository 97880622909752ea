// Package lockout implements brute-force protection for login
// attempts: a per-credential counter of consecutive failures and a
// temporary lock window once the counter reaches the configured
// threshold.
//
// The transition rules live in Apply as a pure function. Persistent
// stores must apply the same transition atomically (the Postgres
// implementation uses a single UPDATE statement) so concurrent failed
// attempts against one credential never lose increments.
package lockout

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/staffdesk/internal/domain"
	apperrors "github.com/spec-kit/staffdesk/pkg/util"
)

// Default protection parameters, overridable via configuration.
const (
	DefaultThreshold = 5
	DefaultWindow    = 2 * time.Hour
)

// State is the lockout portion of a credential: consecutive failed
// attempts and the optional lock expiry. A credential is locked iff
// LockUntil is set and still in the future.
type State struct {
	FailedAttempts int
	LockUntil      *time.Time
}

// Locked reports whether the state is inside its lock window.
func (s State) Locked(now time.Time) bool {
	return s.LockUntil != nil && s.LockUntil.After(now)
}

// Outcome classifies a login attempt for the state machine.
type Outcome int

const (
	OutcomeFailure Outcome = iota
	OutcomeSuccess
)

// Apply computes the next lockout state for a login attempt.
//
// Failure while locked leaves the state untouched: reaching the
// threshold again must not extend an existing lock. Failure after a
// lock has lapsed restarts the count at one. Any success zeroes the
// counter and clears the lock unconditionally.
func Apply(s State, outcome Outcome, now time.Time, threshold int, window time.Duration) State {
	if outcome == OutcomeSuccess {
		return State{}
	}

	if s.Locked(now) {
		return s
	}

	count := s.FailedAttempts + 1
	if s.LockUntil != nil {
		// A lapsed lock means the previous streak already served
		// its penalty; this failure starts a new streak.
		count = 1
	}

	next := State{FailedAttempts: count}
	if count >= threshold {
		until := now.Add(window)
		next.LockUntil = &until
	}
	return next
}

// Store is the storage contract the guard drives. RecordLoginFailure
// must apply the failure transition atomically and return the
// resulting state; ClearLockout zeroes counter and lock.
type Store interface {
	RecordLoginFailure(ctx context.Context, id string, threshold int, window time.Duration) (State, error)
	ClearLockout(ctx context.Context, id string) error
}

// Guard enforces the lock window during login.
type Guard struct {
	store     Store
	threshold int
	window    time.Duration
}

// NewGuard builds a guard, substituting defaults for nonpositive
// parameters.
func NewGuard(store Store, threshold int, window time.Duration) *Guard {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Guard{store: store, threshold: threshold, window: window}
}

// Check rejects a locked credential before any password comparison.
// The error is a distinct locked-account signal, never a generic
// invalid-credentials one.
func (g *Guard) Check(cred *domain.Credential, now time.Time) error {
	if cred.Locked(now) {
		remaining := time.Until(*cred.LockUntil).Round(time.Minute)
		if remaining < time.Minute {
			remaining = time.Minute
		}
		return apperrors.NewLockedAccount(
			fmt.Sprintf("account locked due to repeated failed logins, try again in %s", remaining),
			map[string]any{"locked_until": cred.LockUntil},
		)
	}
	return nil
}

// RecordFailure registers one failed attempt and returns the resulting
// state.
func (g *Guard) RecordFailure(ctx context.Context, credentialID string) (State, error) {
	return g.store.RecordLoginFailure(ctx, credentialID, g.threshold, g.window)
}

// RecordSuccess clears counter and lock after a successful
// authentication, regardless of prior state.
func (g *Guard) RecordSuccess(ctx context.Context, credentialID string) error {
	return g.store.ClearLockout(ctx, credentialID)
}
