package domain

import "time"

// CredentialStatus represents lifecycle states for a staff credential.
type CredentialStatus string

const (
	CredentialStatusActive    CredentialStatus = "ACTIVE"
	CredentialStatusInactive  CredentialStatus = "INACTIVE"
	CredentialStatusSuspended CredentialStatus = "SUSPENDED"
	CredentialStatusPending   CredentialStatus = "PENDING"
)

// Role enumerates the fixed set of staff roles. RoleAdmin is the
// distinguished super role that bypasses granular permission checks.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleDoctor       Role = "DOCTOR"
	RoleNurse        Role = "NURSE"
	RoleReceptionist Role = "RECEPTIONIST"
	RoleAccountant   Role = "ACCOUNTANT"
)

// Roles lists every valid role value.
var Roles = []Role{RoleAdmin, RoleDoctor, RoleNurse, RoleReceptionist, RoleAccountant}

// Valid reports whether r is a member of the fixed role set.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Credential is the identity record for a staff member. PasswordHash is
// present on every persisted record and is never serialized outward;
// external representations go through Sanitize.
type Credential struct {
	ID                  string
	Username            string
	Email               string
	FullName            string
	PasswordHash        string `json:"-"`
	Role                Role
	Status              CredentialStatus
	Permissions         []PermissionGrant
	FailedLoginAttempts int
	LockUntil           *time.Time
	ResetTokenHash      *string
	ResetTokenExpiry    *time.Time
	LastLogin           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Locked reports whether the credential is inside its lock window at
// the given instant. Lock state is derived, never stored separately.
func (c *Credential) Locked(now time.Time) bool {
	return c.LockUntil != nil && c.LockUntil.After(now)
}

// PublicCredential is the externally visible projection of a
// Credential. It carries no secret material.
type PublicCredential struct {
	ID          string            `json:"id"`
	Username    string            `json:"username"`
	Email       string            `json:"email"`
	FullName    string            `json:"full_name"`
	Role        Role              `json:"role"`
	Status      CredentialStatus  `json:"status"`
	Permissions []PermissionGrant `json:"permissions"`
	LastLogin   *time.Time        `json:"last_login,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Sanitize strips secret and reset-token material for responses.
func (c *Credential) Sanitize() PublicCredential {
	return PublicCredential{
		ID:          c.ID,
		Username:    c.Username,
		Email:       c.Email,
		FullName:    c.FullName,
		Role:        c.Role,
		Status:      c.Status,
		Permissions: c.Permissions,
		LastLogin:   c.LastLogin,
		CreatedAt:   c.CreatedAt,
	}
}
