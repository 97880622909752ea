package dto

import "github.com/spec-kit/staffdesk/internal/domain"

// CreateStaffRequest payload for new staff credentials.
type CreateStaffRequest struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// UpdateStaffRequest payload; nil fields are left untouched.
type UpdateStaffRequest struct {
	FullName *string                  `json:"full_name"`
	Email    *string                  `json:"email"`
	Role     *domain.Role             `json:"role"`
	Status   *domain.CredentialStatus `json:"status"`
}

// UpdateGrantsRequest replaces the permission grant list. The wire
// shape is an ordered list of {module, actions} pairs.
type UpdateGrantsRequest struct {
	Permissions []domain.PermissionGrant `json:"permissions"`
}
