package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/jrsteele09/dietitian-server/audit"
	apperrors "github.com/jrsteele09/dietitian-server/internal/errors"
	"github.com/jrsteele09/dietitian-server/internal/metrics"
	"github.com/jrsteele09/dietitian-server/internal/utils"
	"github.com/jrsteele09/dietitian-server/lockout"
	"github.com/jrsteele09/dietitian-server/mail"
	"github.com/jrsteele09/dietitian-server/organizations"
	"github.com/jrsteele09/dietitian-server/sessions"
	"github.com/jrsteele09/dietitian-server/token"
	"github.com/jrsteele09/dietitian-server/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultRefreshTokenExpiry = "7d"
	defaultRememberMeExpiry   = "30d"
	defaultPasswordResetTTL   = time.Hour
	defaultVerificationTTL    = 24 * time.Hour
	defaultTrialPeriod        = 14 * 24 * time.Hour
	consentVersion            = "1.0"

	// Hashed once at startup. Logins for unknown emails compare against it.
	unknownUserPassword = "unknown-user-placeholder"
)

// Repos holds all repository dependencies for the AuthService
type Repos struct {
	Users         users.Repo
	Organizations organizations.Repo
	Registrar     Registrar
}

// Components holds the collaborating services used by the AuthService
type Components struct {
	Tokens   *token.Manager
	Sessions *sessions.Manager
	Lockout  *lockout.Guard
	Hasher   users.PasswordHasher
	Audit    *audit.Recorder
	Notifier *mail.Notifier
}

type Config struct {
	RefreshTokenExpiry   string
	RememberMeExpiry     string
	PasswordResetTTL     time.Duration
	EmailVerificationTTL time.Duration
	TrialPeriod          time.Duration
}

// AuthService implements the account flows: registration, login, logout, token refresh,
// password management and email verification.
type AuthService struct {
	repos     Repos
	c         Components
	cfg       Config
	metrics   *metrics.Metrics
	nowTime   func() time.Time
	dummyHash string
}

type Option func(*AuthService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(as *AuthService) {
		as.nowTime = nowFunc
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(as *AuthService) {
		as.metrics = m
	}
}

func NewAuthService(repos Repos, c Components, cfg Config, options ...Option) (*AuthService, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewAuthService] Users repo is required")
	}
	if repos.Organizations == nil {
		return nil, errors.New("[NewAuthService] Organizations repo is required")
	}
	if repos.Registrar == nil {
		return nil, errors.New("[NewAuthService] Registrar is required")
	}
	if c.Tokens == nil || c.Sessions == nil || c.Lockout == nil {
		return nil, errors.New("[NewAuthService] token, session and lockout components are required")
	}
	if c.Audit == nil || c.Notifier == nil {
		return nil, errors.New("[NewAuthService] audit recorder and notifier are required")
	}

	if cfg.RefreshTokenExpiry == "" {
		cfg.RefreshTokenExpiry = defaultRefreshTokenExpiry
	}
	if cfg.RememberMeExpiry == "" {
		cfg.RememberMeExpiry = defaultRememberMeExpiry
	}
	for _, expr := range []string{cfg.RefreshTokenExpiry, cfg.RememberMeExpiry} {
		if _, err := token.ParseDuration(expr); err != nil {
			return nil, errors.Wrap(err, "[NewAuthService] refresh token expiry")
		}
	}
	if cfg.PasswordResetTTL <= 0 {
		cfg.PasswordResetTTL = defaultPasswordResetTTL
	}
	if cfg.EmailVerificationTTL <= 0 {
		cfg.EmailVerificationTTL = defaultVerificationTTL
	}
	if cfg.TrialPeriod <= 0 {
		cfg.TrialPeriod = defaultTrialPeriod
	}
	if c.Hasher == nil {
		c.Hasher = users.NewHasher(0)
	}
	dummyHash, err := c.Hasher.Hash(unknownUserPassword)
	if err != nil {
		return nil, errors.Wrap(err, "[NewAuthService] Hash")
	}

	as := &AuthService{
		repos:     repos,
		c:         c,
		cfg:       cfg,
		nowTime:   time.Now,
		dummyHash: dummyHash,
	}
	for _, opt := range options {
		opt(as)
	}
	if as.metrics == nil {
		as.metrics = metrics.NewUnregistered()
	}
	return as, nil
}

func (as *AuthService) record(ctx context.Context, event audit.Event, client ClientInfo) {
	event.IPAddress = client.IPAddress
	event.UserAgent = client.UserAgent
	as.c.Audit.Record(ctx, event)
}

// Register creates a trial organization and its owner in one atomic step. The owner is
// not logged in; a verification email is sent best-effort.
func (as *AuthService) Register(ctx context.Context, req RegisterRequest, client ClientInfo) (*RegisterResult, error) {
	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	passwordHash, err := as.c.Hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.Wrap(err, "[AuthService.Register] Hash")
	}
	rawVerification, verificationHash, err := newSecretToken()
	if err != nil {
		return nil, errors.Wrap(err, "[AuthService.Register]")
	}

	now := as.nowTime()
	trialEndsAt := now.Add(as.cfg.TrialPeriod)
	verificationExpires := now.Add(as.cfg.EmailVerificationTTL)

	org := &organizations.Organization{
		Name:             req.OrganizationName,
		Subdomain:        req.Subdomain,
		Status:           organizations.StatusTrial,
		Plan:             organizations.PlanStarter,
		TrialEndsAt:      &trialEndsAt,
		CurrentUsers:     1,
		AIQueriesResetAt: now,
	}
	org.ApplyLimits(organizations.LimitsFor(org.Plan))

	owner := &users.User{
		Email:                    req.Email,
		NationalID:               req.NationalID,
		PasswordHash:             passwordHash,
		FirstName:                req.FirstName,
		LastName:                 req.LastName,
		Role:                     users.RoleOrganizationOwner,
		IsActive:                 true,
		EmailVerificationToken:   &verificationHash,
		EmailVerificationExpires: &verificationExpires,
		PasswordChangedAt:        &now,
	}

	consents := []users.Consent{
		{Type: users.ConsentTerms, Accepted: true},
		{Type: users.ConsentPrivacy, Accepted: true},
		{Type: users.ConsentDataProcessing, Accepted: true},
		{Type: users.ConsentMarketing, Accepted: req.AcceptMarketing},
	}
	for i := range consents {
		consents[i].Version = consentVersion
		consents[i].IPAddress = client.IPAddress
		consents[i].AcceptedAt = now
	}

	if err := as.repos.Registrar.Register(ctx, org, owner, consents); err != nil {
		if apperrors.KindOf(err) == apperrors.KindConflict {
			return nil, err
		}
		return nil, errors.Wrap(err, "[AuthService.Register] Register")
	}

	as.record(ctx, audit.Event{
		Type:           audit.EventRegistered,
		UserID:         owner.ID,
		OrganizationID: org.ID,
		Description:    "Organization and owner registered",
		Metadata:       map[string]string{"subdomain": org.Subdomain},
	}, client)

	as.c.Notifier.SendWelcome(ctx, owner.Email, owner.FullName(), org.Name)
	as.c.Notifier.SendEmailVerification(ctx, owner.Email, owner.FullName(), rawVerification)

	return &RegisterResult{User: owner, Organization: org}, nil
}

// Login verifies credentials, enforces account lockout and creates a session.
func (as *AuthService) Login(ctx context.Context, req LoginRequest, client ClientInfo) (*LoginResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := as.repos.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if apperrors.KindOf(err) != apperrors.KindNotFound {
			return nil, errors.Wrap(err, "[AuthService.Login] GetByEmail")
		}
		as.c.Hasher.Compare(as.dummyHash, req.Password)
		as.metrics.LoginAttempts.WithLabelValues("unknown_user").Inc()
		as.record(ctx, audit.Event{
			Type:        audit.EventLoginFailed,
			Severity:    audit.SeverityMedium,
			Description: "Login attempt for unknown email",
			Metadata:    map[string]string{"email": req.Email},
		}, client)
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := as.c.Lockout.Check(user); err != nil {
		as.metrics.LoginAttempts.WithLabelValues("locked").Inc()
		as.record(ctx, audit.Event{
			Type:           audit.EventLoginFailed,
			Severity:       audit.SeverityHigh,
			UserID:         user.ID,
			OrganizationID: user.OrganizationID,
			Description:    "Login attempt on locked account",
		}, client)
		return nil, err
	}

	if !as.c.Hasher.Compare(user.PasswordHash, req.Password) {
		return nil, as.loginFailed(ctx, user, client)
	}

	if !user.IsActive {
		as.metrics.LoginAttempts.WithLabelValues("inactive").Inc()
		return nil, apperrors.ErrUserInactive
	}

	if !user.IsSuperAdmin() {
		org, err := as.repos.Organizations.GetByID(ctx, user.OrganizationID)
		if err != nil {
			return nil, errors.Wrap(err, "[AuthService.Login] GetByID organization")
		}
		if org.Status.Inactive() {
			as.metrics.LoginAttempts.WithLabelValues("organization_inactive").Inc()
			return nil, apperrors.ErrOrganizationInactive
		}
	}

	if err := as.c.Lockout.RecordSuccess(ctx, user); err != nil {
		return nil, errors.Wrap(err, "[AuthService.Login]")
	}

	result, err := as.startSession(ctx, user, req.RememberMe, client)
	if err != nil {
		return nil, err
	}

	now := as.nowTime()
	if _, err := as.repos.Users.Update(ctx, user.ID, users.Update{LastLoginAt: utils.Set(&now)}); err != nil {
		log.Err(err).Str("userId", user.ID).Msg("failed to record last login")
	}
	user.LastLoginAt = &now

	as.metrics.LoginAttempts.WithLabelValues("success").Inc()
	as.record(ctx, audit.Event{
		Type:           audit.EventLoginSuccess,
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Description:    "User logged in",
		Metadata:       map[string]string{"sessionId": result.Session.ID},
	}, client)
	return result, nil
}

func (as *AuthService) loginFailed(ctx context.Context, user *users.User, client ClientInfo) error {
	res, err := as.c.Lockout.RecordFailure(ctx, user)
	if err != nil {
		return errors.Wrap(err, "[AuthService.Login]")
	}

	as.metrics.LoginAttempts.WithLabelValues("failure").Inc()
	as.record(ctx, audit.Event{
		Type:           audit.EventLoginFailed,
		Severity:       audit.SeverityMedium,
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Description:    "Invalid password",
		Metadata:       map[string]string{"attempts": strconv.Itoa(res.Attempts)},
	}, client)

	if !res.Locked {
		return apperrors.ErrInvalidCredentials
	}

	as.metrics.Lockouts.Inc()
	as.record(ctx, audit.Event{
		Type:           audit.EventAccountLocked,
		Severity:       audit.SeverityHigh,
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Description:    "Account locked after repeated failed logins",
		Metadata:       map[string]string{"lockedFor": res.Remaining.String()},
	}, client)
	return lockout.LockedError(res.Remaining)
}

func (as *AuthService) startSession(ctx context.Context, user *users.User, rememberMe bool, client ClientInfo) (*LoginResult, error) {
	accessToken, err := as.c.Tokens.IssueAccessToken(token.AccessClaims{
		SubjectID:      user.ID,
		Email:          user.Email,
		Role:           string(user.Role),
		OrganizationID: user.OrganizationID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[AuthService.startSession] IssueAccessToken")
	}
	refreshToken, err := as.c.Tokens.IssueRefreshToken()
	if err != nil {
		return nil, errors.Wrap(err, "[AuthService.startSession] IssueRefreshToken")
	}

	expiry := as.cfg.RefreshTokenExpiry
	if rememberMe {
		expiry = as.cfg.RememberMeExpiry
	}
	expiresAt, err := token.ExpiryFrom(as.nowTime(), expiry)
	if err != nil {
		return nil, errors.Wrap(err, "[AuthService.startSession] ExpiryFrom")
	}

	session, err := as.c.Sessions.CreateSession(ctx, sessions.CreateParams{
		UserID:       user.ID,
		RefreshToken: refreshToken,
		AccessToken:  accessToken,
		Metadata:     sessions.ParseClientMetadata(client.IPAddress, client.UserAgent),
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[AuthService.startSession]")
	}

	return &LoginResult{
		User:         user,
		Session:      session,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		RememberMe:   rememberMe,
	}, nil
}

// Logout invalidates the session holding refreshToken.
func (as *AuthService) Logout(ctx context.Context, userID, refreshToken string, client ClientInfo) error {
	if err := as.c.Sessions.Invalidate(ctx, userID, refreshToken); err != nil {
		return errors.Wrap(err, "[AuthService.Logout]")
	}
	as.record(ctx, audit.Event{Type: audit.EventLogout, UserID: userID, Description: "User logged out"}, client)
	return nil
}

// LogoutByRefreshToken ends the session holding refreshToken when the caller's access
// token is missing or expired.
func (as *AuthService) LogoutByRefreshToken(ctx context.Context, refreshToken string, client ClientInfo) error {
	userID, err := as.c.Sessions.InvalidateByToken(ctx, refreshToken)
	if err != nil {
		return errors.Wrap(err, "[AuthService.LogoutByRefreshToken]")
	}
	if userID != "" {
		as.record(ctx, audit.Event{Type: audit.EventLogout, UserID: userID, Description: "User logged out"}, client)
	}
	return nil
}

// LogoutAll invalidates every session of the user and returns how many were ended.
func (as *AuthService) LogoutAll(ctx context.Context, userID string, client ClientInfo) (int, error) {
	n, err := as.c.Sessions.InvalidateAll(ctx, userID, "")
	if err != nil {
		return 0, errors.Wrap(err, "[AuthService.LogoutAll]")
	}
	as.record(ctx, audit.Event{
		Type:        audit.EventLogoutAll,
		Severity:    audit.SeverityMedium,
		UserID:      userID,
		Description: "All sessions ended",
		Metadata:    map[string]string{"sessions": strconv.Itoa(n)},
	}, client)
	return n, nil
}

// Refresh mints a new access token for the session holding refreshToken.
func (as *AuthService) Refresh(ctx context.Context, refreshToken string) (*sessions.RefreshResult, error) {
	res, err := as.c.Sessions.Refresh(ctx, refreshToken)
	if err != nil {
		as.metrics.SessionRefreshes.WithLabelValues("failure").Inc()
		return nil, err
	}
	as.metrics.SessionRefreshes.WithLabelValues("success").Inc()
	return res, nil
}

// ForgotPassword emails a reset link when the address belongs to an active user. It
// reports success in every case so callers cannot tell which accounts exist.
func (as *AuthService) ForgotPassword(ctx context.Context, email string, client ClientInfo) error {
	email = normalizeEmail(email)
	fe := fieldErrors{}
	validateEmail(fe, "email", email)
	if err := fe.err(); err != nil {
		return err
	}

	user, err := as.repos.Users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.KindOf(err) != apperrors.KindNotFound {
			log.Err(err).Msg("forgot password lookup failed")
		}
		return nil
	}
	if !user.IsActive {
		return nil
	}

	raw, hash, err := newSecretToken()
	if err != nil {
		log.Err(err).Msg("forgot password token generation failed")
		return nil
	}
	expires := as.nowTime().Add(as.cfg.PasswordResetTTL)
	if _, err := as.repos.Users.Update(ctx, user.ID, users.Update{
		PasswordResetToken:   utils.Set(&hash),
		PasswordResetExpires: utils.Set(&expires),
	}); err != nil {
		log.Err(err).Str("userId", user.ID).Msg("failed to store password reset token")
		return nil
	}

	as.record(ctx, audit.Event{
		Type:           audit.EventPasswordResetRequested,
		Severity:       audit.SeverityMedium,
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Description:    "Password reset requested",
	}, client)
	as.c.Notifier.SendPasswordReset(ctx, user.Email, user.FullName(), raw)
	return nil
}

func (as *AuthService) userByResetToken(ctx context.Context, rawToken string) (*users.User, error) {
	if rawToken == "" {
		return nil, apperrors.ErrPasswordResetInvalid
	}
	user, err := as.repos.Users.GetByPasswordResetToken(ctx, hashSecretToken(rawToken))
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil, apperrors.ErrPasswordResetInvalid
		}
		return nil, errors.Wrap(err, "[AuthService] GetByPasswordResetToken")
	}
	if user.PasswordResetExpires == nil || !as.nowTime().Before(*user.PasswordResetExpires) {
		return nil, apperrors.ErrPasswordResetInvalid
	}
	return user, nil
}

// VerifyResetToken checks that a reset token exists and has not expired.
func (as *AuthService) VerifyResetToken(ctx context.Context, rawToken string) error {
	_, err := as.userByResetToken(ctx, rawToken)
	return err
}

// ResetPassword sets a new password from a reset token and ends every session of the user.
func (as *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest, client ClientInfo) error {
	if err := req.Validate(); err != nil {
		return err
	}
	user, err := as.userByResetToken(ctx, req.Token)
	if err != nil {
		return err
	}

	hash, err := as.c.Hasher.Hash(req.Password)
	if err != nil {
		return errors.Wrap(err, "[AuthService.ResetPassword] Hash")
	}
	now := as.nowTime()
	if _, err := as.repos.Users.Update(ctx, user.ID, users.Update{
		PasswordHash:         utils.Set(hash),
		PasswordResetToken:   utils.Set[*string](nil),
		PasswordResetExpires: utils.Set[*time.Time](nil),
		PasswordChangedAt:    utils.Set(&now),
	}); err != nil {
		return errors.Wrap(err, "[AuthService.ResetPassword] Update")
	}

	n, err := as.c.Sessions.InvalidateAll(ctx, user.ID, "")
	if err != nil {
		return errors.Wrap(err, "[AuthService.ResetPassword]")
	}

	as.record(ctx, audit.Event{
		Type:           audit.EventPasswordReset,
		Severity:       audit.SeverityHigh,
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Description:    "Password reset with emailed token",
		Metadata:       map[string]string{"sessionsInvalidated": strconv.Itoa(n)},
	}, client)
	as.c.Notifier.SendPasswordChanged(ctx, user.Email, user.FullName())
	return nil
}

// ChangePassword replaces the password of an authenticated user. Every other session is
// ended; the session holding currentRefreshToken survives.
func (as *AuthService) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest, currentRefreshToken string, client ClientInfo) error {
	if err := req.Validate(); err != nil {
		return err
	}
	user, err := as.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "[AuthService.ChangePassword] GetByID")
	}

	if !as.c.Hasher.Compare(user.PasswordHash, req.CurrentPassword) {
		as.record(ctx, audit.Event{
			Type:           audit.EventPasswordChanged,
			Severity:       audit.SeverityMedium,
			UserID:         user.ID,
			OrganizationID: user.OrganizationID,
			Description:    "Password change rejected: current password mismatch",
			Metadata:       map[string]string{"result": "failure"},
		}, client)
		return apperrors.Validation("Current password is incorrect", map[string]string{
			"currentPassword": "current password is incorrect",
		})
	}

	hash, err := as.c.Hasher.Hash(req.NewPassword)
	if err != nil {
		return errors.Wrap(err, "[AuthService.ChangePassword] Hash")
	}
	now := as.nowTime()
	if _, err := as.repos.Users.Update(ctx, user.ID, users.Update{
		PasswordHash:      utils.Set(hash),
		PasswordChangedAt: utils.Set(&now),
	}); err != nil {
		return errors.Wrap(err, "[AuthService.ChangePassword] Update")
	}

	n, err := as.c.Sessions.InvalidateAll(ctx, user.ID, currentRefreshToken)
	if err != nil {
		return errors.Wrap(err, "[AuthService.ChangePassword]")
	}

	as.record(ctx, audit.Event{
		Type:           audit.EventPasswordChanged,
		Severity:       audit.SeverityHigh,
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Description:    "Password changed",
		Metadata:       map[string]string{"result": "success", "sessionsInvalidated": strconv.Itoa(n)},
	}, client)
	as.c.Notifier.SendPasswordChanged(ctx, user.Email, user.FullName())
	return nil
}

// VerifyEmail marks the user holding rawToken as verified.
func (as *AuthService) VerifyEmail(ctx context.Context, rawToken string, client ClientInfo) error {
	if rawToken == "" {
		return apperrors.ErrEmailVerificationToken
	}
	user, err := as.repos.Users.GetByEmailVerificationToken(ctx, hashSecretToken(rawToken))
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return apperrors.ErrEmailVerificationToken
		}
		return errors.Wrap(err, "[AuthService.VerifyEmail] GetByEmailVerificationToken")
	}
	if user.EmailVerificationExpires == nil || !as.nowTime().Before(*user.EmailVerificationExpires) {
		return apperrors.ErrEmailVerificationToken
	}

	if _, err := as.repos.Users.Update(ctx, user.ID, users.Update{
		EmailVerified:            utils.Set(true),
		EmailVerificationToken:   utils.Set[*string](nil),
		EmailVerificationExpires: utils.Set[*time.Time](nil),
	}); err != nil {
		return errors.Wrap(err, "[AuthService.VerifyEmail] Update")
	}

	as.record(ctx, audit.Event{
		Type:           audit.EventEmailVerified,
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Description:    "Email address verified",
	}, client)
	return nil
}

// ResendVerification issues a fresh verification token and emails it.
func (as *AuthService) ResendVerification(ctx context.Context, userID string) error {
	user, err := as.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "[AuthService.ResendVerification] GetByID")
	}
	if user.EmailVerified {
		return apperrors.Validation("Email address is already verified", nil)
	}

	raw, hash, err := newSecretToken()
	if err != nil {
		return errors.Wrap(err, "[AuthService.ResendVerification]")
	}
	expires := as.nowTime().Add(as.cfg.EmailVerificationTTL)
	if _, err := as.repos.Users.Update(ctx, user.ID, users.Update{
		EmailVerificationToken:   utils.Set(&hash),
		EmailVerificationExpires: utils.Set(&expires),
	}); err != nil {
		return errors.Wrap(err, "[AuthService.ResendVerification] Update")
	}

	as.c.Notifier.SendEmailVerification(ctx, user.Email, user.FullName(), raw)
	return nil
}

// Me returns the user's profile and, for organization members, their organization.
func (as *AuthService) Me(ctx context.Context, userID string) (*Profile, error) {
	user, err := as.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "[AuthService.Me] GetByID")
	}
	profile := &Profile{User: user}
	if user.OrganizationID == "" {
		return profile, nil
	}
	org, err := as.repos.Organizations.GetByID(ctx, user.OrganizationID)
	if err != nil {
		return nil, errors.Wrap(err, "[AuthService.Me] GetByID organization")
	}
	profile.Organization = org
	return profile, nil
}

// ListSessions returns the user's active sessions.
func (as *AuthService) ListSessions(ctx context.Context, userID string) ([]*sessions.Session, error) {
	return as.c.Sessions.ListActive(ctx, userID)
}

// UnlockUser clears the lockout of target. Super admins may unlock anyone; organization
// owners only members of their own organization.
func (as *AuthService) UnlockUser(ctx context.Context, actorID, targetID string, client ClientInfo) error {
	actor, err := as.repos.Users.GetByID(ctx, actorID)
	if err != nil {
		return errors.Wrap(err, "[AuthService.UnlockUser] GetByID actor")
	}
	target, err := as.repos.Users.GetByID(ctx, targetID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return apperrors.Wrap(apperrors.KindNotFound, err, "User not found")
		}
		return errors.Wrap(err, "[AuthService.UnlockUser] GetByID target")
	}

	allowed := actor.IsSuperAdmin() ||
		(actor.HasRole(users.RoleOrganizationOwner) && actor.OrganizationID == target.OrganizationID)
	if !allowed {
		return apperrors.ErrForbidden
	}

	if err := as.c.Lockout.Unlock(ctx, target.ID); err != nil {
		return errors.Wrap(err, "[AuthService.UnlockUser]")
	}
	as.record(ctx, audit.Event{
		Type:           audit.EventAccountUnlocked,
		Severity:       audit.SeverityMedium,
		UserID:         target.ID,
		OrganizationID: target.OrganizationID,
		Description:    "Account unlocked by administrator",
		Metadata:       map[string]string{"actorId": actor.ID},
	}, client)
	return nil
}
