package events

import (
	"time"

	"github.com/spec-kit/staffdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded         EventType = "login_succeeded"
	EventLoginFailed            EventType = "login_failed"
	EventAccountLocked          EventType = "account_locked"
	EventPasswordChanged        EventType = "password_changed"
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventPasswordResetCompleted EventType = "password_reset_completed"
)

// Event represents an auth domain event emitted by services.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	CredentialID string      `json:"credential_id,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload,omitempty"`
}

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	Identifier     string `json:"identifier"`
	FailedAttempts int    `json:"failed_attempts"`
}

// AccountLockedPayload payload.
type AccountLockedPayload struct {
	LockUntil time.Time `json:"lock_until"`
}

// LoginSucceededPayload payload.
type LoginSucceededPayload struct {
	Role domain.Role `json:"role"`
}

// PasswordResetRequestedPayload payload.
type PasswordResetRequestedPayload struct {
	ExpiresAt time.Time `json:"expires_at"`
}
