package sessions

import (
	"time"

	"github.com/jrsteele09/dietitian-server/internal/utils"
)

// Session is a login on one device. The refresh token is the lookup key; a session is
// usable only while IsValid is true and ExpiresAt is in the future. Invalid sessions are
// never revived.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	RefreshToken   string    `json:"-"`
	AccessToken    string    `json:"-"`
	IPAddress      string    `json:"ipAddress,omitempty"`
	UserAgent      string    `json:"userAgent,omitempty"`
	Browser        string    `json:"browser,omitempty"`
	Device         string    `json:"device,omitempty"`
	OS             string    `json:"os,omitempty"`
	IsValid        bool      `json:"isValid"`
	ExpiresAt      time.Time `json:"expiresAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Update is a partial update of a Session.
type Update struct {
	AccessToken    utils.Optional[string]
	IsValid        utils.Optional[bool]
	LastActivityAt utils.Optional[time.Time]
}

func (up Update) Apply(s *Session) {
	up.AccessToken.ApplyTo(&s.AccessToken)
	up.IsValid.ApplyTo(&s.IsValid)
	up.LastActivityAt.ApplyTo(&s.LastActivityAt)
}
