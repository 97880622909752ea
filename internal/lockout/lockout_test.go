package lockout

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/staffdesk/internal/domain"
	apperrors "github.com/spec-kit/staffdesk/pkg/util"
)

func TestApplyFailureIncrements(t *testing.T) {
	now := time.Now()

	next := Apply(State{FailedAttempts: 2}, OutcomeFailure, now, 5, 2*time.Hour)
	assert.Equal(t, 3, next.FailedAttempts)
	assert.Nil(t, next.LockUntil)
}

func TestApplyThresholdLocks(t *testing.T) {
	now := time.Now()

	next := Apply(State{FailedAttempts: 4}, OutcomeFailure, now, 5, 2*time.Hour)
	assert.Equal(t, 5, next.FailedAttempts)
	require.NotNil(t, next.LockUntil)
	assert.Equal(t, now.Add(2*time.Hour), *next.LockUntil)
	assert.True(t, next.LockUntil.After(now), "lock expiry must be strictly in the future")
}

func TestApplyFailureWhileLockedDoesNotExtend(t *testing.T) {
	now := time.Now()
	until := now.Add(time.Hour)
	locked := State{FailedAttempts: 5, LockUntil: &until}

	next := Apply(locked, OutcomeFailure, now, 5, 2*time.Hour)
	assert.Equal(t, locked.FailedAttempts, next.FailedAttempts)
	require.NotNil(t, next.LockUntil)
	assert.Equal(t, until, *next.LockUntil, "existing lock must not be extended")
}

func TestApplyStaleLockRestartsCount(t *testing.T) {
	now := time.Now()
	lapsed := now.Add(-time.Minute)

	next := Apply(State{FailedAttempts: 5, LockUntil: &lapsed}, OutcomeFailure, now, 5, 2*time.Hour)
	assert.Equal(t, 1, next.FailedAttempts)
	assert.Nil(t, next.LockUntil)
}

func TestApplySuccessClearsEverything(t *testing.T) {
	now := time.Now()
	until := now.Add(time.Hour)

	for _, prior := range []State{
		{},
		{FailedAttempts: 4},
		{FailedAttempts: 5, LockUntil: &until},
	} {
		next := Apply(prior, OutcomeSuccess, now, 5, 2*time.Hour)
		assert.Zero(t, next.FailedAttempts)
		assert.Nil(t, next.LockUntil)
	}
}

func TestStateLocked(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	assert.False(t, State{}.Locked(now))
	assert.True(t, State{LockUntil: &future}.Locked(now))
	assert.False(t, State{LockUntil: &past}.Locked(now))
}

func TestGuardCheckLocked(t *testing.T) {
	guard := NewGuard(nil, 5, 2*time.Hour)
	until := time.Now().Add(time.Hour)
	cred := &domain.Credential{ID: "c1", LockUntil: &until}

	err := guard.Check(cred, time.Now())
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "LOCKED_ACCOUNT", domainErr.Code, "locked must never read as a generic auth failure")
}

func TestGuardCheckUnlocked(t *testing.T) {
	guard := NewGuard(nil, 5, 2*time.Hour)
	assert.NoError(t, guard.Check(&domain.Credential{ID: "c1"}, time.Now()))

	past := time.Now().Add(-time.Minute)
	assert.NoError(t, guard.Check(&domain.Credential{ID: "c1", LockUntil: &past}, time.Now()))
}
