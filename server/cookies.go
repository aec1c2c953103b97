package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/dietitian-server/authz"
)

func (s *Server) authCookie(name, value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	if expires.IsZero() {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	} else {
		c.Expires = expires
		c.MaxAge = int(time.Until(expires).Seconds())
	}
	return c
}

// setAuthCookies writes both token cookies with the session's expiry.
func (s *Server) setAuthCookies(w http.ResponseWriter, accessToken, refreshToken string, expires time.Time) {
	http.SetCookie(w, s.authCookie(authz.AccessTokenCookie, accessToken, expires))
	http.SetCookie(w, s.authCookie(authz.RefreshTokenCookie, refreshToken, expires))
}

func (s *Server) setAccessCookie(w http.ResponseWriter, accessToken string, expires time.Time) {
	http.SetCookie(w, s.authCookie(authz.AccessTokenCookie, accessToken, expires))
}

func (s *Server) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, s.authCookie(authz.AccessTokenCookie, "", time.Time{}))
	http.SetCookie(w, s.authCookie(authz.RefreshTokenCookie, "", time.Time{}))
}
