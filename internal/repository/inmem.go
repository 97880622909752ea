package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/staffdesk/internal/domain"
	"github.com/spec-kit/staffdesk/internal/lockout"
	apperrors "github.com/spec-kit/staffdesk/pkg/util"
)

// InMemoryCredentialStore is a mutex-guarded CredentialRepository used
// in tests and when no Postgres DSN is configured. The mutex serializes
// the lockout read-modify-write the same way the single-statement SQL
// does in the Postgres implementation.
type InMemoryCredentialStore struct {
	mu    sync.Mutex
	creds map[string]*domain.Credential
}

// NewInMemoryCredentialStore builds an empty store.
func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{creds: make(map[string]*domain.Credential)}
}

var _ CredentialRepository = (*InMemoryCredentialStore)(nil)

func (s *InMemoryCredentialStore) Create(_ context.Context, cred *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.creds {
		if strings.EqualFold(existing.Username, cred.Username) || strings.EqualFold(existing.Email, cred.Email) {
			return apperrors.NewConflict("username or email already registered", nil)
		}
	}
	now := time.Now()
	cred.CreatedAt = now
	cred.UpdatedAt = now
	s.creds[cred.ID] = cloneCredential(cred)
	return nil
}

func (s *InMemoryCredentialStore) Update(_ context.Context, cred *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.creds[cred.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	updated := cloneCredential(cred)
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now()
	// Lockout and reset fields are owned by their dedicated mutations.
	updated.FailedLoginAttempts = existing.FailedLoginAttempts
	updated.LockUntil = existing.LockUntil
	updated.ResetTokenHash = existing.ResetTokenHash
	updated.ResetTokenExpiry = existing.ResetTokenExpiry
	s.creds[cred.ID] = updated
	return nil
}

func (s *InMemoryCredentialStore) GetByID(_ context.Context, id string) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneCredential(cred), nil
}

func (s *InMemoryCredentialStore) GetByUsernameOrEmail(_ context.Context, identifier string) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cred := range s.creds {
		if strings.EqualFold(cred.Username, identifier) || strings.EqualFold(cred.Email, identifier) {
			return cloneCredential(cred), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *InMemoryCredentialStore) GetByEmail(_ context.Context, email string) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cred := range s.creds {
		if strings.EqualFold(cred.Email, email) {
			return cloneCredential(cred), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *InMemoryCredentialStore) List(_ context.Context) ([]*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds := make([]*domain.Credential, 0, len(s.creds))
	for _, cred := range s.creds {
		creds = append(creds, cloneCredential(cred))
	}
	return creds, nil
}

func (s *InMemoryCredentialStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[id]
	if !ok {
		return pgx.ErrNoRows
	}
	cred.LastLogin = &at
	cred.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryCredentialStore) UpdateGrants(_ context.Context, id string, grants []domain.PermissionGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[id]
	if !ok {
		return pgx.ErrNoRows
	}
	cred.Permissions = cloneGrants(grants)
	cred.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryCredentialStore) RecordLoginFailure(_ context.Context, id string, threshold int, window time.Duration) (lockout.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[id]
	if !ok {
		return lockout.State{}, pgx.ErrNoRows
	}

	state := lockout.Apply(
		lockout.State{FailedAttempts: cred.FailedLoginAttempts, LockUntil: cred.LockUntil},
		lockout.OutcomeFailure,
		time.Now(),
		threshold,
		window,
	)
	cred.FailedLoginAttempts = state.FailedAttempts
	cred.LockUntil = state.LockUntil
	cred.UpdatedAt = time.Now()
	return state, nil
}

func (s *InMemoryCredentialStore) ClearLockout(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[id]
	if !ok {
		return pgx.ErrNoRows
	}
	cred.FailedLoginAttempts = 0
	cred.LockUntil = nil
	cred.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryCredentialStore) SetResetToken(_ context.Context, id, digest string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[id]
	if !ok {
		return pgx.ErrNoRows
	}
	cred.ResetTokenHash = &digest
	cred.ResetTokenExpiry = &expiry
	cred.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryCredentialStore) ConsumeResetToken(_ context.Context, digest, newPasswordHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, cred := range s.creds {
		if cred.ResetTokenHash == nil || *cred.ResetTokenHash != digest {
			continue
		}
		if cred.ResetTokenExpiry == nil || !cred.ResetTokenExpiry.After(now) {
			continue
		}
		cred.PasswordHash = newPasswordHash
		cred.ResetTokenHash = nil
		cred.ResetTokenExpiry = nil
		cred.UpdatedAt = now
		return cred.ID, nil
	}
	return "", pgx.ErrNoRows
}

func cloneCredential(cred *domain.Credential) *domain.Credential {
	copied := *cred
	copied.Permissions = cloneGrants(cred.Permissions)
	if cred.LockUntil != nil {
		t := *cred.LockUntil
		copied.LockUntil = &t
	}
	if cred.ResetTokenExpiry != nil {
		t := *cred.ResetTokenExpiry
		copied.ResetTokenExpiry = &t
	}
	if cred.ResetTokenHash != nil {
		h := *cred.ResetTokenHash
		copied.ResetTokenHash = &h
	}
	if cred.LastLogin != nil {
		t := *cred.LastLogin
		copied.LastLogin = &t
	}
	return &copied
}

func cloneGrants(grants []domain.PermissionGrant) []domain.PermissionGrant {
	if grants == nil {
		return nil
	}
	copied := make([]domain.PermissionGrant, len(grants))
	for i, g := range grants {
		actions := make([]domain.Action, len(g.Actions))
		copy(actions, g.Actions)
		copied[i] = domain.PermissionGrant{Module: g.Module, Actions: actions}
	}
	return copied
}
