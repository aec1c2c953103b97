package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/dietitian-server/auth"
	"github.com/jrsteele09/dietitian-server/authz"
	apperrors "github.com/jrsteele09/dietitian-server/internal/errors"
	"github.com/jrsteele09/dietitian-server/users"
	"github.com/rs/zerolog/log"
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type refreshResponse struct {
	AccessToken string      `json:"accessToken"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	User        *users.User `json:"user"`
}

func (s *Server) clientInfo(r *http.Request) auth.ClientInfo {
	return auth.ClientInfo{IPAddress: s.clientIP(r), UserAgent: r.UserAgent()}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RegisterRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}
		res, err := s.svc.Auth.Register(r.Context(), req, s.clientInfo(r))
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondData(w, http.StatusCreated, res)
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}
		res, err := s.svc.Auth.Login(r.Context(), req, s.clientInfo(r))
		if err != nil {
			respondError(w, r, err)
			return
		}
		s.setAuthCookies(w, res.AccessToken, res.RefreshToken, res.ExpiresAt)
		respondData(w, http.StatusOK, res)
	}
}

// LogoutHandler ends the session named by the refresh token, authenticated or not. The
// token cookies are cleared in every case.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer respondMessage(w, "Logged out")
		defer s.clearAuthCookies(w)

		refreshToken := authz.ExtractRefreshToken(r)
		if refreshToken == "" {
			var body refreshRequest
			if err := decodeJSON(r, &body); err == nil {
				refreshToken = body.RefreshToken
			}
		}

		var err error
		if id, authErr := s.svc.Gate.Authenticate(r); authErr == nil {
			err = s.svc.Auth.Logout(r.Context(), id.ID, refreshToken, s.clientInfo(r))
		} else {
			err = s.svc.Auth.LogoutByRefreshToken(r.Context(), refreshToken, s.clientInfo(r))
		}
		if err != nil {
			log.Warn().Err(err).Msg("session invalidation failed during logout")
		}
	}
}

func (s *Server) LogoutAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authz.IdentityFrom(r.Context())
		n, err := s.svc.Auth.LogoutAll(r.Context(), id.ID, s.clientInfo(r))
		s.clearAuthCookies(w)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, map[string]int{"sessionsInvalidated": n})
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refreshToken := authz.ExtractRefreshToken(r)
		if refreshToken == "" {
			var body refreshRequest
			if err := decodeJSON(r, &body); err != nil {
				respondError(w, r, err)
				return
			}
			refreshToken = body.RefreshToken
		}

		res, err := s.svc.Auth.Refresh(r.Context(), refreshToken)
		if err != nil {
			if apperrors.KindOf(err) == apperrors.KindUnauthorized {
				s.clearAuthCookies(w)
			}
			respondError(w, r, err)
			return
		}
		s.setAccessCookie(w, res.AccessToken, res.Session.ExpiresAt)
		respondData(w, http.StatusOK, refreshResponse{
			AccessToken: res.AccessToken,
			ExpiresAt:   res.Session.ExpiresAt,
			User:        res.User,
		})
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authz.IdentityFrom(r.Context())
		profile, err := s.svc.Auth.Me(r.Context(), id.ID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, profile)
	}
}

func (s *Server) SessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authz.IdentityFrom(r.Context())
		list, err := s.svc.Auth.ListSessions(r.Context(), id.ID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, list)
	}
}

// ForgotPasswordHandler answers identically whether or not the address is registered.
func (s *Server) ForgotPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req forgotPasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}
		if err := s.svc.Auth.ForgotPassword(r.Context(), req.Email, s.clientInfo(r)); err != nil {
			respondError(w, r, err)
			return
		}
		respondMessage(w, "If an account exists for this email, a password reset link has been sent")
	}
}

func (s *Server) ResetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.ResetPasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}
		if err := s.svc.Auth.ResetPassword(r.Context(), req, s.clientInfo(r)); err != nil {
			respondError(w, r, err)
			return
		}
		s.clearAuthCookies(w)
		respondMessage(w, "Password has been reset. Please log in again")
	}
}

func (s *Server) VerifyResetTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.svc.Auth.VerifyResetToken(r.Context(), r.URL.Query().Get("token")); err != nil {
			respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, map[string]bool{"valid": true})
	}
}

func (s *Server) ChangePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authz.IdentityFrom(r.Context())
		var req auth.ChangePasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}
		err := s.svc.Auth.ChangePassword(r.Context(), id.ID, req, authz.ExtractRefreshToken(r), s.clientInfo(r))
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondMessage(w, "Password changed")
	}
}

func (s *Server) UnlockUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authz.IdentityFrom(r.Context())
		if err := s.svc.Auth.UnlockUser(r.Context(), id.ID, r.PathValue("userId"), s.clientInfo(r)); err != nil {
			respondError(w, r, err)
			return
		}
		respondMessage(w, "Account unlocked")
	}
}

func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.svc.Auth.VerifyEmail(r.Context(), r.URL.Query().Get("token"), s.clientInfo(r)); err != nil {
			respondError(w, r, err)
			return
		}
		respondMessage(w, "Email address verified")
	}
}

func (s *Server) ResendVerificationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := authz.IdentityFrom(r.Context())
		if err := s.svc.Auth.ResendVerification(r.Context(), id.ID); err != nil {
			respondError(w, r, err)
			return
		}
		respondMessage(w, "Verification email sent")
	}
}
