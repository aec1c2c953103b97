package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the caller. Every error leaving a service boundary
// maps onto exactly one Kind.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindConflict
	KindNotFound
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// HTTPStatus maps the kind onto the status code returned by the HTTP surface.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error. Message is safe to return to the client; Err is the
// underlying cause and is never exposed.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string // field-level validation detail
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies err under kind with a client-safe message.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation creates a validation error with field-level detail.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// KindOf returns the kind of the first classified error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the client-safe message for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "An unexpected error occurred"
}

// FieldErrors returns the validation detail carried by err, if any.
func FieldErrors(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

var (
	// Authentication errors
	ErrInvalidCredentials = New(KindUnauthorized, "Invalid email or password")
	ErrUnauthenticated    = New(KindUnauthorized, "Authentication required")
	ErrInvalidToken       = New(KindUnauthorized, "Invalid or expired token")
	ErrUserInactive       = New(KindUnauthorized, "Account is inactive")
	ErrAccountLocked      = New(KindForbidden, "Account is temporarily locked")

	// Session errors
	ErrSessionInvalid = New(KindUnauthorized, "Session is invalid or expired")

	// Authorization errors
	ErrForbidden              = New(KindForbidden, "You do not have permission to perform this action")
	ErrOrganizationAccess     = New(KindForbidden, "Access to this organization is denied")
	ErrOrganizationInactive   = New(KindForbidden, "Organization is suspended or cancelled")
	ErrTrialExpired           = New(KindForbidden, "Organization trial has expired")
	ErrFeatureNotAvailable    = New(KindForbidden, "This feature is not available on your plan")
	ErrUsageLimitExceeded     = New(KindForbidden, "Usage limit exceeded for your plan")
	ErrPasswordResetInvalid   = New(KindValidation, "Invalid or expired password reset token")
	ErrEmailVerificationToken = New(KindValidation, "Invalid or expired email verification token")

	// General errors
	ErrNotFound    = New(KindNotFound, "Resource not found")
	ErrConflict    = New(KindConflict, "Resource already exists")
	ErrRateLimited = New(KindRateLimited, "Too many requests, please try again later")
	ErrInternal    = New(KindInternal, "An unexpected error occurred")
)
