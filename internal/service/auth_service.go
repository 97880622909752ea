package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/staffdesk/internal/auth"
	"github.com/spec-kit/staffdesk/internal/config"
	"github.com/spec-kit/staffdesk/internal/domain"
	"github.com/spec-kit/staffdesk/internal/events"
	"github.com/spec-kit/staffdesk/internal/lockout"
	"github.com/spec-kit/staffdesk/internal/repository"
	apperrors "github.com/spec-kit/staffdesk/pkg/util"
)

// AuthService coordinates login, lockout and password lifecycle flows.
type AuthService struct {
	creds      repository.CredentialRepository
	guard      *lockout.Guard
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	bcryptCost int
	resetTTL   time.Duration
	minPassLen int
}

// NewAuthService builds the service from injected configuration; no
// auth parameter is read from ambient state after construction.
func NewAuthService(cfg config.Config, creds repository.CredentialRepository, dispatcher events.Dispatcher) *AuthService {
	return &AuthService{
		creds:      creds,
		guard:      lockout.NewGuard(creds, cfg.Auth.LockThreshold, cfg.Auth.LockDuration),
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		dispatcher: dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   cfg.Auth.ResetTokenTTL,
		minPassLen: cfg.Auth.MinPasswordLength,
	}
}

// LoginResult carries everything the login endpoint returns.
type LoginResult struct {
	Credential *domain.Credential
	Token      string
	ExpiresAt  time.Time
}

// Login authenticates a staff member by username or email.
//
// Order matters: the lockout check runs before any password
// comparison, so a locked account is rejected with the locked signal
// even when the submitted password is correct. Every bad-password exit
// goes through recordFailure, so no failure path can skip the counter.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperrors.NewValidationError("username/email and password are required", nil)
	}

	cred, err := s.creds.GetByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Unknown identifier: same generic message as a wrong
			// password so identifiers cannot be probed.
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}

	now := time.Now()
	if err := s.guard.Check(cred, now); err != nil {
		s.publish(ctx, events.EventLoginFailed, cred.ID, events.LoginFailedPayload{
			Identifier:     identifier,
			FailedAttempts: cred.FailedLoginAttempts,
		})
		return nil, err
	}

	if cred.Status != domain.CredentialStatusActive {
		return nil, apperrors.NewUnauthorized("account is not active, contact an administrator")
	}

	if err := auth.ComparePassword(cred.PasswordHash, password); err != nil {
		return nil, s.recordFailure(ctx, cred, identifier)
	}

	if err := s.guard.RecordSuccess(ctx, cred.ID); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.creds.UpdateLastLogin(ctx, cred.ID, now); err != nil {
		return nil, apperrors.MapError(err)
	}
	cred.FailedLoginAttempts = 0
	cred.LockUntil = nil
	cred.LastLogin = &now

	token, exp, err := s.tokenMgr.Sign(cred.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.EventLoginSucceeded, cred.ID, events.LoginSucceededPayload{Role: cred.Role})
	return &LoginResult{Credential: cred, Token: token, ExpiresAt: exp}, nil
}

// recordFailure is the single bad-password exit from Login. It always
// increments the lockout counter before returning a response.
func (s *AuthService) recordFailure(ctx context.Context, cred *domain.Credential, identifier string) error {
	state, err := s.guard.RecordFailure(ctx, cred.ID)
	if err != nil {
		return apperrors.MapError(err)
	}

	s.publish(ctx, events.EventLoginFailed, cred.ID, events.LoginFailedPayload{
		Identifier:     identifier,
		FailedAttempts: state.FailedAttempts,
	})
	if state.LockUntil != nil {
		s.publish(ctx, events.EventAccountLocked, cred.ID, events.AccountLockedPayload{LockUntil: *state.LockUntil})
	}
	return apperrors.NewUnauthorized("invalid credentials")
}

// Logout is a no-op server-side: tokens are stateless and are not
// revoked. Safe to call repeatedly and concurrently.
func (s *AuthService) Logout(_ context.Context, _ string) error {
	return nil
}

// CreateCredentialInput is the caller-visible shape for new accounts.
type CreateCredentialInput struct {
	Username string
	Email    string
	FullName string
	Password string
	Role     domain.Role
}

// CreateCredential builds and persists a credential through explicit,
// ordered preparation steps: validate, hash the secret, seed grants
// from the static role table, assign the identifier, persist. The role
// table is consulted here and nowhere else; grants are independently
// mutable afterwards.
func (s *AuthService) CreateCredential(ctx context.Context, in CreateCredentialInput) (*domain.Credential, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Username == "" || in.Email == "" || in.FullName == "" {
		return nil, apperrors.NewValidationError("username, email and full name are required", nil)
	}
	if !in.Role.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown role %q", in.Role), nil)
	}
	if err := s.validateNewPassword(in.Password, in.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	cred := &domain.Credential{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		Role:         in.Role,
		Status:       domain.CredentialStatusActive,
		Permissions:  domain.DefaultGrants(in.Role),
	}
	if err := s.creds.Create(ctx, cred); err != nil {
		return nil, apperrors.MapError(err)
	}
	return cred, nil
}

// ForgotPassword issues a reset token for the email. The plaintext is
// returned to the handler, which exposes it only in non-production
// diagnostic mode; an unknown email yields no token and no error, so
// registered addresses cannot be enumerated.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", apperrors.NewValidationError("email is required", nil)
	}

	cred, err := s.creds.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", apperrors.MapError(err)
	}

	plaintext, digest, err := auth.GenerateResetToken()
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}

	expiry := time.Now().Add(s.resetTTL)
	// Overwrites any previous token: at most one unexpired reset token
	// exists per credential.
	if err := s.creds.SetResetToken(ctx, cred.ID, digest, expiry); err != nil {
		return "", apperrors.MapError(err)
	}

	s.publish(ctx, events.EventPasswordResetRequested, cred.ID, events.PasswordResetRequestedPayload{ExpiresAt: expiry})
	return plaintext, nil
}

// ResetPassword consumes a reset token and sets the new password. The
// store swap is atomic, so the same plaintext can never be consumed
// twice.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error {
	if strings.TrimSpace(token) == "" {
		return apperrors.NewValidationError("reset token is required", nil)
	}
	if err := s.validateNewPassword(newPassword, confirmPassword); err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	credID, err := s.creds.ConsumeResetToken(ctx, auth.HashResetToken(token), hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("reset token is invalid or expired", nil)
		}
		return apperrors.MapError(err)
	}

	s.publish(ctx, events.EventPasswordResetCompleted, credID, nil)
	return nil
}

// ChangePassword verifies the current secret before updating.
func (s *AuthService) ChangePassword(ctx context.Context, credentialID, currentPassword, newPassword, confirmPassword string) error {
	if err := s.validateNewPassword(newPassword, confirmPassword); err != nil {
		return err
	}

	cred, err := s.creds.GetByID(ctx, credentialID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := auth.ComparePassword(cred.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("current password is incorrect")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	cred.PasswordHash = hash
	if err := s.creds.Update(ctx, cred); err != nil {
		return apperrors.MapError(err)
	}

	s.publish(ctx, events.EventPasswordChanged, cred.ID, nil)
	return nil
}

func (s *AuthService) validateNewPassword(newPassword, confirmPassword string) error {
	if len(newPassword) < s.minPassLen {
		return apperrors.NewValidationError(
			fmt.Sprintf("password must be at least %d characters", s.minPassLen), nil)
	}
	if newPassword != confirmPassword {
		return apperrors.NewValidationError("password confirmation does not match", nil)
	}
	return nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, credentialID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		CredentialID: credentialID,
		Timestamp:    time.Now(),
		Payload:      payload,
	})
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
