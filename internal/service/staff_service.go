package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/staffdesk/internal/domain"
	"github.com/spec-kit/staffdesk/internal/repository"
	apperrors "github.com/spec-kit/staffdesk/pkg/util"
)

// StaffService manages credential records on behalf of administrators.
type StaffService struct {
	creds repository.CredentialRepository
}

// NewStaffService builds the service.
func NewStaffService(creds repository.CredentialRepository) *StaffService {
	return &StaffService{creds: creds}
}

// List returns all credentials.
func (s *StaffService) List(ctx context.Context) ([]*domain.Credential, error) {
	creds, err := s.creds.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return creds, nil
}

// Get returns one credential by id.
func (s *StaffService) Get(ctx context.Context, id string) (*domain.Credential, error) {
	cred, err := s.creds.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return cred, nil
}

// UpdateProfileInput carries mutable profile fields.
type UpdateProfileInput struct {
	FullName *string
	Email    *string
	Role     *domain.Role
	Status   *domain.CredentialStatus
}

// UpdateProfile mutates profile fields. Changing the role never
// re-derives grants; the seed table only applies at creation.
func (s *StaffService) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (*domain.Credential, error) {
	cred, err := s.creds.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return nil, apperrors.NewValidationError("full name cannot be empty", nil)
		}
		cred.FullName = name
	}
	if in.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*in.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, apperrors.NewValidationError("valid email is required", nil)
		}
		cred.Email = email
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperrors.NewValidationError(fmt.Sprintf("unknown role %q", *in.Role), nil)
		}
		cred.Role = *in.Role
	}
	if in.Status != nil {
		switch *in.Status {
		case domain.CredentialStatusActive, domain.CredentialStatusInactive,
			domain.CredentialStatusSuspended, domain.CredentialStatusPending:
			cred.Status = *in.Status
		default:
			return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", *in.Status), nil)
		}
	}

	if err := s.creds.Update(ctx, cred); err != nil {
		return nil, apperrors.MapError(err)
	}
	return cred, nil
}

// UpdateGrants replaces the stored grant list. Grants are data, not a
// function of role, so any combination is accepted as long as the
// modules and actions exist.
func (s *StaffService) UpdateGrants(ctx context.Context, id string, grants []domain.PermissionGrant) (*domain.Credential, error) {
	seen := make(map[domain.Module]struct{}, len(grants))
	for _, grant := range grants {
		if !grant.Module.Valid() {
			return nil, apperrors.NewValidationError(fmt.Sprintf("unknown module %q", grant.Module), nil)
		}
		if _, dup := seen[grant.Module]; dup {
			return nil, apperrors.NewValidationError(fmt.Sprintf("duplicate grant for module %q", grant.Module), nil)
		}
		seen[grant.Module] = struct{}{}
		for _, action := range grant.Actions {
			if !action.Valid() {
				return nil, apperrors.NewValidationError(fmt.Sprintf("unknown action %q", action), nil)
			}
		}
	}

	if err := s.creds.UpdateGrants(ctx, id, grants); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.Get(ctx, id)
}
