package audit

import (
	"context"
	"time"
)

type EventType string

const (
	EventRegistered             EventType = "REGISTERED"
	EventLoginSuccess           EventType = "LOGIN_SUCCESS"
	EventLoginFailed            EventType = "LOGIN_FAILED"
	EventAccountLocked          EventType = "ACCOUNT_LOCKED"
	EventAccountUnlocked        EventType = "ACCOUNT_UNLOCKED"
	EventLogout                 EventType = "LOGOUT"
	EventLogoutAll              EventType = "LOGOUT_ALL"
	EventPasswordChanged        EventType = "PASSWORD_CHANGED"
	EventPasswordResetRequested EventType = "PASSWORD_RESET_REQUESTED"
	EventPasswordReset          EventType = "PASSWORD_RESET"
	EventEmailVerified          EventType = "EMAIL_VERIFIED"
	EventRateLimited            EventType = "RATE_LIMITED"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Event is an immutable record of a security-relevant action.
type Event struct {
	ID             string            `json:"id"`
	Type           EventType         `json:"type"`
	Severity       Severity          `json:"severity"`
	UserID         string            `json:"userId,omitempty"`
	OrganizationID string            `json:"organizationId,omitempty"`
	IPAddress      string            `json:"ipAddress,omitempty"`
	UserAgent      string            `json:"userAgent,omitempty"`
	Description    string            `json:"description"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// Sink appends events. Sinks never update or delete.
type Sink interface {
	Write(ctx context.Context, event Event) error
}
