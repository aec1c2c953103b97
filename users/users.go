package users

import (
	"time"
)

// Role represents a user's role. System-level SUPER_ADMIN crosses organization boundaries,
// every other role is scoped to the user's organization.
type Role string

const (
	RoleSuperAdmin        Role = "SUPER_ADMIN"
	RoleOrganizationOwner Role = "ORGANIZATION_OWNER"
	RoleDietitian         Role = "DIETITIAN"
	RoleAssistant         Role = "ASSISTANT"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleOrganizationOwner, RoleDietitian, RoleAssistant:
		return true
	}
	return false
}

type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	NationalID     string `json:"-"` // national identity number, unique
	PasswordHash   string `json:"-"` // never serialize
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Role           Role   `json:"role"`
	OrganizationID string `json:"organizationId"`
	IsActive       bool   `json:"isActive"`
	EmailVerified  bool   `json:"emailVerified"`

	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`

	// Reset and verification tokens are stored hashed.
	PasswordResetToken       *string    `json:"-"`
	PasswordResetExpires     *time.Time `json:"-"`
	EmailVerificationToken   *string    `json:"-"`
	EmailVerificationExpires *time.Time `json:"-"`
	LastLoginAt              *time.Time `json:"lastLoginAt,omitempty"`
	PasswordChangedAt        *time.Time `json:"-"`
	CreatedAt                time.Time  `json:"createdAt"`
	UpdatedAt                time.Time  `json:"updatedAt"`
}

func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// HasRole reports whether the user holds one of roles.
func (u *User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

type ConsentType string

const (
	ConsentTerms          ConsentType = "TERMS_OF_SERVICE"
	ConsentPrivacy        ConsentType = "PRIVACY_POLICY"
	ConsentDataProcessing ConsentType = "DATA_PROCESSING"
	ConsentMarketing      ConsentType = "MARKETING"
)

// Consent is a record of a user accepting a versioned legal document.
type Consent struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userId"`
	Type       ConsentType `json:"type"`
	Version    string      `json:"version"`
	Accepted   bool        `json:"accepted"`
	IPAddress  string      `json:"ipAddress,omitempty"`
	AcceptedAt time.Time   `json:"acceptedAt"`
}
