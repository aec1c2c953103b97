package auth

import (
	"time"

	"github.com/jrsteele09/dietitian-server/organizations"
	"github.com/jrsteele09/dietitian-server/sessions"
	"github.com/jrsteele09/dietitian-server/users"
)

// ClientInfo is the network origin of a request.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

type RegisterRequest struct {
	OrganizationName     string `json:"organizationName"`
	Subdomain            string `json:"subdomain"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	FirstName            string `json:"firstName"`
	LastName             string `json:"lastName"`
	NationalID           string `json:"nationalId"`
	AcceptTerms          bool   `json:"acceptTerms"`
	AcceptPrivacy        bool   `json:"acceptPrivacy"`
	AcceptDataProcessing bool   `json:"acceptDataProcessing"`
	AcceptMarketing      bool   `json:"acceptMarketing"`
}

type RegisterResult struct {
	User         *users.User                 `json:"user"`
	Organization *organizations.Organization `json:"organization"`
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type LoginResult struct {
	User         *users.User       `json:"user"`
	Session      *sessions.Session `json:"-"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
	ExpiresAt    time.Time         `json:"expiresAt"`
	RememberMe   bool              `json:"-"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Profile is the current user with a summary of their organization.
type Profile struct {
	User         *users.User                 `json:"user"`
	Organization *organizations.Organization `json:"organization,omitempty"`
}
