package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/staffdesk/internal/auth"
	"github.com/spec-kit/staffdesk/internal/config"
	"github.com/spec-kit/staffdesk/internal/domain"
	"github.com/spec-kit/staffdesk/internal/events"
	"github.com/spec-kit/staffdesk/internal/repository"
	apperrors "github.com/spec-kit/staffdesk/pkg/util"
)

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:         "test-secret",
			TokenTTL:          time.Hour,
			LockThreshold:     5,
			LockDuration:      2 * time.Hour,
			ResetTokenTTL:     10 * time.Minute,
			MinPasswordLength: 6,
			BcryptCost:        bcrypt.MinCost,
		},
	}
}

func newTestAuthService(t *testing.T) (*AuthService, *repository.InMemoryCredentialStore) {
	t.Helper()
	store := repository.NewInMemoryCredentialStore()
	svc := NewAuthService(testConfig(), store, events.NewInMemoryDispatcher())
	return svc, store
}

func createAccount(t *testing.T, svc *AuthService, role domain.Role) *domain.Credential {
	t.Helper()
	cred, err := svc.CreateCredential(context.Background(), CreateCredentialInput{
		Username: "mokafor",
		Email:    "mokafor@clinic.test",
		FullName: "Maia Okafor",
		Password: "rosebud7",
		Role:     role,
	})
	require.NoError(t, err)
	return cred
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %v", err)
	return domainErr.Code
}

func TestLoginSuccess(t *testing.T) {
	svc, _ := newTestAuthService(t)
	cred := createAccount(t, svc, domain.RoleDoctor)

	result, err := svc.Login(context.Background(), "mokafor", "rosebud7")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)

	// The returned token decodes to this account's identifier.
	claims, err := svc.TokenManager().Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, cred.ID, claims.SubjectID)
	assert.NotNil(t, result.Credential.LastLogin)
}

func TestLoginByEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)
	createAccount(t, svc, domain.RoleDoctor)

	_, err := svc.Login(context.Background(), "mokafor@clinic.test", "rosebud7")
	assert.NoError(t, err)
}

func TestLoginWrongPasswordIncrementsCounter(t *testing.T) {
	svc, store := newTestAuthService(t)
	cred := createAccount(t, svc, domain.RoleDoctor)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		_, err := svc.Login(ctx, "mokafor", "wrong")
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", domainCode(t, err))

		got, err := store.GetByID(ctx, cred.ID)
		require.NoError(t, err)
		assert.Equal(t, i, got.FailedLoginAttempts, "every failure must increment the counter")
	}
}

func TestLoginUnknownIdentifierIsGeneric(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "ghost", "whatever")
	require.Error(t, err)
	code := domainCode(t, err)
	assert.Equal(t, "UNAUTHORIZED", code)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestSixthAttemptWithCorrectPasswordStillLocked(t *testing.T) {
	svc, _ := newTestAuthService(t)
	createAccount(t, svc, domain.RoleDoctor)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Login(ctx, "mokafor", "wrong")
		require.Error(t, err)
	}

	_, err := svc.Login(ctx, "mokafor", "rosebud7")
	require.Error(t, err)
	assert.Equal(t, "LOCKED_ACCOUNT", domainCode(t, err),
		"correct password during the lock window must fail as locked, not succeed")
}

func TestSuccessfulLoginResetsLockout(t *testing.T) {
	svc, store := newTestAuthService(t)
	cred := createAccount(t, svc, domain.RoleDoctor)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.Login(ctx, "mokafor", "wrong")
		require.Error(t, err)
	}

	_, err := svc.Login(ctx, "mokafor", "rosebud7")
	require.NoError(t, err)

	got, err := store.GetByID(ctx, cred.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FailedLoginAttempts)
	assert.Nil(t, got.LockUntil)
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, store := newTestAuthService(t)
	cred := createAccount(t, svc, domain.RoleDoctor)
	ctx := context.Background()

	cred.Status = domain.CredentialStatusSuspended
	require.NoError(t, store.Update(ctx, cred))

	_, err := svc.Login(ctx, "mokafor", "rosebud7")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", domainCode(t, err))
	assert.Contains(t, err.Error(), "not active", "inactive must read differently from wrong password")
}

func TestLoginMissingFields(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "", "")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestCreateCredentialSeedsGrantsFromRole(t *testing.T) {
	svc, _ := newTestAuthService(t)
	cred := createAccount(t, svc, domain.RoleNurse)

	assert.Equal(t, domain.DefaultGrants(domain.RoleNurse), cred.Permissions)
	assert.NotEmpty(t, cred.ID)
	assert.NotEqual(t, "rosebud7", cred.PasswordHash)
}

func TestCreateCredentialRejectsShortPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.CreateCredential(context.Background(), CreateCredentialInput{
		Username: "short",
		Email:    "short@clinic.test",
		FullName: "Shorty",
		Password: "abc",
		Role:     domain.RoleNurse,
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestForgotResetPasswordFlow(t *testing.T) {
	svc, _ := newTestAuthService(t)
	createAccount(t, svc, domain.RoleDoctor)
	ctx := context.Background()

	token, err := svc.ForgotPassword(ctx, "mokafor@clinic.test")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, svc.ResetPassword(ctx, token, "newpass9", "newpass9"))

	// Old password is dead, new one works.
	_, err = svc.Login(ctx, "mokafor", "rosebud7")
	require.Error(t, err)
	_, err = svc.Login(ctx, "mokafor", "newpass9")
	assert.NoError(t, err)
}

func TestResetTokenSingleUse(t *testing.T) {
	svc, _ := newTestAuthService(t)
	createAccount(t, svc, domain.RoleDoctor)
	ctx := context.Background()

	token, err := svc.ForgotPassword(ctx, "mokafor@clinic.test")
	require.NoError(t, err)
	require.NoError(t, svc.ResetPassword(ctx, token, "newpass9", "newpass9"))

	err = svc.ResetPassword(ctx, token, "another9", "another9")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))

	_, err = svc.Login(ctx, "mokafor", "newpass9")
	assert.NoError(t, err, "second reset attempt must not have changed the password")
}

func TestResetTokenExpired(t *testing.T) {
	svc, store := newTestAuthService(t)
	cred := createAccount(t, svc, domain.RoleDoctor)
	ctx := context.Background()

	plaintext, digest, err := auth.GenerateResetToken()
	require.NoError(t, err)
	require.NoError(t, store.SetResetToken(ctx, cred.ID, digest, time.Now().Add(-time.Second)))

	err = svc.ResetPassword(ctx, plaintext, "newpass9", "newpass9")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))

	_, err = svc.Login(ctx, "mokafor", "rosebud7")
	assert.NoError(t, err, "password must be unchanged after expired-token rejection")
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)

	token, err := svc.ForgotPassword(context.Background(), "nobody@clinic.test")
	assert.NoError(t, err, "unknown email must not be probeable")
	assert.Empty(t, token)
}

func TestForgotPasswordReplacesOutstandingToken(t *testing.T) {
	svc, _ := newTestAuthService(t)
	createAccount(t, svc, domain.RoleDoctor)
	ctx := context.Background()

	first, err := svc.ForgotPassword(ctx, "mokafor@clinic.test")
	require.NoError(t, err)
	second, err := svc.ForgotPassword(ctx, "mokafor@clinic.test")
	require.NoError(t, err)

	err = svc.ResetPassword(ctx, first, "newpass9", "newpass9")
	require.Error(t, err, "superseded token must be invalid")
	assert.NoError(t, svc.ResetPassword(ctx, second, "newpass9", "newpass9"))
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestAuthService(t)
	cred := createAccount(t, svc, domain.RoleDoctor)
	ctx := context.Background()

	require.NoError(t, svc.ChangePassword(ctx, cred.ID, "rosebud7", "tulip88x", "tulip88x"))

	_, err := svc.Login(ctx, "mokafor", "tulip88x")
	assert.NoError(t, err)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	svc, _ := newTestAuthService(t)
	cred := createAccount(t, svc, domain.RoleDoctor)

	err := svc.ChangePassword(context.Background(), cred.ID, "wrong", "tulip88x", "tulip88x")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", domainCode(t, err))
}

func TestChangePasswordTooShortLeavesSecret(t *testing.T) {
	svc, _ := newTestAuthService(t)
	cred := createAccount(t, svc, domain.RoleDoctor)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, cred.ID, "rosebud7", "abc", "abc")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))

	_, err = svc.Login(ctx, "mokafor", "rosebud7")
	assert.NoError(t, err, "secret must be unchanged")
}

func TestChangePasswordConfirmMismatch(t *testing.T) {
	svc, _ := newTestAuthService(t)
	cred := createAccount(t, svc, domain.RoleDoctor)

	err := svc.ChangePassword(context.Background(), cred.ID, "rosebud7", "tulip88x", "tulip88y")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Logout(ctx, "cred-1"))
	assert.NoError(t, svc.Logout(ctx, "cred-1"))
}
