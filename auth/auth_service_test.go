package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/dietitian-server/audit"
	auditfakes "github.com/jrsteele09/dietitian-server/audit/repofakes"
	"github.com/jrsteele09/dietitian-server/auth"
	"github.com/jrsteele09/dietitian-server/auth/repofakes"
	apperrors "github.com/jrsteele09/dietitian-server/internal/errors"
	"github.com/jrsteele09/dietitian-server/internal/utils"
	"github.com/jrsteele09/dietitian-server/lockout"
	"github.com/jrsteele09/dietitian-server/mail"
	mailfakes "github.com/jrsteele09/dietitian-server/mail/repofakes"
	"github.com/jrsteele09/dietitian-server/organizations"
	orgfakes "github.com/jrsteele09/dietitian-server/organizations/repofakes"
	"github.com/jrsteele09/dietitian-server/sessions"
	sessionfakes "github.com/jrsteele09/dietitian-server/sessions/repofakes"
	"github.com/jrsteele09/dietitian-server/token"
	"github.com/jrsteele09/dietitian-server/users"
	"github.com/jrsteele09/dietitian-server/users/repofake"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const ownerPassword = "Secret123"

var client = auth.ClientInfo{
	IPAddress: "10.0.0.1",
	UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
}

type testFixture struct {
	now         time.Time
	userRepo    *repofake.FakeUserRepo
	orgRepo     *orgfakes.FakeOrganizationRepo
	sessionRepo *sessionfakes.FakeSessionRepo
	sink        *auditfakes.FakeSink
	mailer      *mailfakes.FakeMailer
	tokens      *token.Manager
	hasher      users.Hasher
	service     *auth.AuthService
}

func setupTestFixture(t *testing.T) *testFixture {
	f := &testFixture{
		now:         time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		userRepo:    repofake.NewFakeUserRepo(),
		orgRepo:     orgfakes.NewFakeOrganizationRepo(),
		sessionRepo: sessionfakes.NewFakeSessionRepo(),
		sink:        auditfakes.NewFakeSink(),
		mailer:      mailfakes.NewFakeMailer(),
		hasher:      users.NewHasher(bcrypt.MinCost),
	}
	nowFunc := func() time.Time { return f.now }

	tokens, err := token.New(token.NewHMACSigner("test-secret"), token.WithNowFunc(nowFunc))
	require.NoError(t, err)
	f.tokens = tokens

	service, err := auth.NewAuthService(
		auth.Repos{
			Users:         f.userRepo,
			Organizations: f.orgRepo,
			Registrar:     repofakes.NewFakeRegistrar(f.orgRepo, f.userRepo),
		},
		auth.Components{
			Tokens:   tokens,
			Sessions: sessions.NewManager(f.sessionRepo, f.userRepo, tokens, sessions.WithNowTime(nowFunc)),
			Lockout:  lockout.NewGuard(f.userRepo, lockout.Config{}, lockout.WithNowTime(nowFunc)),
			Hasher:   f.hasher,
			Audit:    audit.NewRecorder(f.sink, audit.WithNowTime(nowFunc)),
			Notifier: mail.NewNotifier(f.mailer, "Dietitian", "https://app.example.com"),
		},
		auth.Config{},
		auth.WithNowTime(nowFunc),
	)
	require.NoError(t, err)
	f.service = service
	return f
}

func registerRequest(subdomain, email string) auth.RegisterRequest {
	return auth.RegisterRequest{
		OrganizationName:     "Green Plate Clinic",
		Subdomain:            subdomain,
		Email:                email,
		Password:             ownerPassword,
		FirstName:            "Ayse",
		LastName:             "Demir",
		AcceptTerms:          true,
		AcceptPrivacy:        true,
		AcceptDataProcessing: true,
	}
}

func (f *testFixture) register(t *testing.T) *auth.RegisterResult {
	res, err := f.service.Register(context.Background(), registerRequest("greenplate", "owner@example.com"), client)
	require.NoError(t, err)
	return res
}

func (f *testFixture) login(t *testing.T, email, password string) *auth.LoginResult {
	res, err := f.service.Login(context.Background(), auth.LoginRequest{Email: email, Password: password}, client)
	require.NoError(t, err)
	return res
}

func (f *testFixture) addMember(t *testing.T, orgID string, role users.Role, email string) *users.User {
	hash, err := f.hasher.Hash(ownerPassword)
	require.NoError(t, err)
	u := &users.User{
		Email:          email,
		PasswordHash:   hash,
		FirstName:      "Can",
		LastName:       "Yilmaz",
		Role:           role,
		OrganizationID: orgID,
		IsActive:       true,
	}
	require.NoError(t, f.userRepo.Create(context.Background(), u))
	return u
}

func tokenFromMail(t *testing.T, msg mail.Message) string {
	idx := strings.Index(msg.Text, "?token=")
	require.GreaterOrEqual(t, idx, 0, "mail has no token link")
	rest := msg.Text[idx+len("?token="):]
	if end := strings.IndexByte(rest, '\n'); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

func TestNewAuthServiceRequiresRepos(t *testing.T) {
	_, err := auth.NewAuthService(auth.Repos{}, auth.Components{}, auth.Config{})
	require.Error(t, err)
}

func TestRegisterCreatesTrialOrganizationAndOwner(t *testing.T) {
	f := setupTestFixture(t)
	res := f.register(t)

	org := res.Organization
	require.NotEmpty(t, org.ID)
	require.Equal(t, organizations.StatusTrial, org.Status)
	require.Equal(t, organizations.PlanStarter, org.Plan)
	require.NotNil(t, org.TrialEndsAt)
	require.Equal(t, f.now.Add(14*24*time.Hour), *org.TrialEndsAt)
	require.Equal(t, 1, org.CurrentUsers)
	require.Equal(t, 3, org.MaxUsers)

	owner, err := f.userRepo.GetByEmail(context.Background(), "owner@example.com")
	require.NoError(t, err)
	require.Equal(t, users.RoleOrganizationOwner, owner.Role)
	require.Equal(t, org.ID, owner.OrganizationID)
	require.False(t, owner.EmailVerified)
	require.NotEqual(t, ownerPassword, owner.PasswordHash)
	require.Len(t, f.userRepo.Consents(owner.ID), 4)

	require.Len(t, f.mailer.Sent(), 2)
	require.Contains(t, f.sink.Types(), audit.EventRegistered)
}

func TestRegisterNormalizesInput(t *testing.T) {
	f := setupTestFixture(t)
	res, err := f.service.Register(context.Background(), registerRequest(" GreenPlate ", " Owner@Example.COM "), client)
	require.NoError(t, err)
	require.Equal(t, "greenplate", res.Organization.Subdomain)
	require.Equal(t, "owner@example.com", res.User.Email)
}

func TestRegisterSubdomainConflictPersistsNothing(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	_, err := f.service.Register(context.Background(), registerRequest("greenplate", "other@example.com"), client)
	require.Error(t, err)
	require.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	require.Equal(t, 1, f.orgRepo.Count())
	require.Equal(t, 1, f.userRepo.Count())
}

func TestRegisterEmailConflictPersistsNothing(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	_, err := f.service.Register(context.Background(), registerRequest("otherclinic", "owner@example.com"), client)
	require.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	require.Equal(t, 1, f.orgRepo.Count())
	_, err = f.orgRepo.GetBySubdomain(context.Background(), "otherclinic")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRegisterValidation(t *testing.T) {
	f := setupTestFixture(t)
	req := registerRequest("www", "not-an-email")
	req.Password = "short"
	req.AcceptTerms = false

	_, err := f.service.Register(context.Background(), req, client)
	require.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	fields := apperrors.FieldErrors(err)
	require.Contains(t, fields, "subdomain")
	require.Contains(t, fields, "email")
	require.Contains(t, fields, "password")
	require.Contains(t, fields, "acceptTerms")
	require.Equal(t, 0, f.orgRepo.Count())
}

func TestLoginIssuesTokensAndSession(t *testing.T) {
	f := setupTestFixture(t)
	reg := f.register(t)

	res := f.login(t, "OWNER@example.com", ownerPassword)
	require.NotEmpty(t, res.RefreshToken)
	require.Equal(t, f.now.Add(7*24*time.Hour), res.ExpiresAt)
	require.Equal(t, "desktop", res.Session.Device)

	claims, err := f.tokens.VerifyAccessToken(res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, claims.SubjectID)
	require.Equal(t, reg.Organization.ID, claims.OrganizationID)
	require.Equal(t, string(users.RoleOrganizationOwner), claims.Role)

	stored, err := f.userRepo.GetByID(context.Background(), reg.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)
	require.Contains(t, f.sink.Types(), audit.EventLoginSuccess)
}

func TestLoginRememberMeExtendsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	res, err := f.service.Login(context.Background(), auth.LoginRequest{
		Email: "owner@example.com", Password: ownerPassword, RememberMe: true,
	}, client)
	require.NoError(t, err)
	require.Equal(t, f.now.Add(30*24*time.Hour), res.ExpiresAt)
	require.Equal(t, res.ExpiresAt, res.Session.ExpiresAt)
}

func TestLoginUnknownEmail(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.service.Login(context.Background(), auth.LoginRequest{Email: "nobody@example.com", Password: "x"}, client)
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	require.Equal(t, []audit.EventType{audit.EventLoginFailed}, f.sink.Types())
}

type countingHasher struct {
	users.Hasher
	compares int
}

func (h *countingHasher) Compare(hash, password string) bool {
	h.compares++
	return h.Hasher.Compare(hash, password)
}

func TestLoginUnknownEmailComparesPassword(t *testing.T) {
	f := setupTestFixture(t)
	hasher := &countingHasher{Hasher: f.hasher}
	nowFunc := func() time.Time { return f.now }
	service, err := auth.NewAuthService(
		auth.Repos{
			Users:         f.userRepo,
			Organizations: f.orgRepo,
			Registrar:     repofakes.NewFakeRegistrar(f.orgRepo, f.userRepo),
		},
		auth.Components{
			Tokens:   f.tokens,
			Sessions: sessions.NewManager(f.sessionRepo, f.userRepo, f.tokens, sessions.WithNowTime(nowFunc)),
			Lockout:  lockout.NewGuard(f.userRepo, lockout.Config{}, lockout.WithNowTime(nowFunc)),
			Hasher:   hasher,
			Audit:    audit.NewRecorder(f.sink, audit.WithNowTime(nowFunc)),
			Notifier: mail.NewNotifier(f.mailer, "Dietitian", "https://app.example.com"),
		},
		auth.Config{},
		auth.WithNowTime(nowFunc),
	)
	require.NoError(t, err)

	_, err = service.Login(context.Background(), auth.LoginRequest{Email: "nobody@example.com", Password: ownerPassword}, client)
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	require.Equal(t, 1, hasher.compares)
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	f := setupTestFixture(t)
	reg := f.register(t)
	ctx := context.Background()
	wrong := auth.LoginRequest{Email: "owner@example.com", Password: "Wrong1234"}

	for i := 0; i < lockout.DefaultMaxAttempts-1; i++ {
		_, err := f.service.Login(ctx, wrong, client)
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	}

	_, err := f.service.Login(ctx, wrong, client)
	require.ErrorIs(t, err, apperrors.ErrAccountLocked)
	require.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
	require.Contains(t, f.sink.Types(), audit.EventAccountLocked)

	// correct password is still rejected while locked, and the counter does not move
	_, err = f.service.Login(ctx, auth.LoginRequest{Email: "owner@example.com", Password: ownerPassword}, client)
	require.ErrorIs(t, err, apperrors.ErrAccountLocked)
	stored, err := f.userRepo.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Equal(t, lockout.DefaultMaxAttempts, stored.FailedLoginAttempts)

	f.now = f.now.Add(lockout.DefaultLockDuration + time.Second)
	f.login(t, "owner@example.com", ownerPassword)

	stored, err = f.userRepo.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Equal(t, 0, stored.FailedLoginAttempts)
	require.Nil(t, stored.LockedUntil)
}

func TestLoginSuccessResetsFailureCounter(t *testing.T) {
	f := setupTestFixture(t)
	reg := f.register(t)
	ctx := context.Background()

	_, err := f.service.Login(ctx, auth.LoginRequest{Email: "owner@example.com", Password: "Wrong1234"}, client)
	require.Error(t, err)
	f.login(t, "owner@example.com", ownerPassword)

	stored, err := f.userRepo.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Equal(t, 0, stored.FailedLoginAttempts)
}

func TestLoginRejectsInactiveUserAndOrganization(t *testing.T) {
	f := setupTestFixture(t)
	reg := f.register(t)
	ctx := context.Background()
	req := auth.LoginRequest{Email: "owner@example.com", Password: ownerPassword}

	_, err := f.orgRepo.Update(ctx, reg.Organization.ID, organizations.Update{Status: utils.Set(organizations.StatusSuspended)})
	require.NoError(t, err)
	_, err = f.service.Login(ctx, req, client)
	require.ErrorIs(t, err, apperrors.ErrOrganizationInactive)

	_, err = f.userRepo.Update(ctx, reg.User.ID, users.Update{IsActive: utils.Set(false)})
	require.NoError(t, err)
	_, err = f.service.Login(ctx, req, client)
	require.ErrorIs(t, err, apperrors.ErrUserInactive)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	f := setupTestFixture(t)
	reg := f.register(t)
	ctx := context.Background()
	res := f.login(t, "owner@example.com", ownerPassword)

	_, err := f.service.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, reg.User.ID, res.RefreshToken, client))
	_, err = f.service.Refresh(ctx, res.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrSessionInvalid)
}

func TestLogoutAll(t *testing.T) {
	f := setupTestFixture(t)
	reg := f.register(t)
	ctx := context.Background()
	f.login(t, "owner@example.com", ownerPassword)
	f.login(t, "owner@example.com", ownerPassword)

	n, err := f.service.LogoutAll(ctx, reg.User.ID, client)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	active, err := f.service.ListSessions(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestChangePasswordKeepsCurrentSession(t *testing.T) {
	f := setupTestFixture(t)
	reg := f.register(t)
	ctx := context.Background()
	current := f.login(t, "owner@example.com", ownerPassword)
	other := f.login(t, "owner@example.com", ownerPassword)

	err := f.service.ChangePassword(ctx, reg.User.ID, auth.ChangePasswordRequest{
		CurrentPassword: ownerPassword,
		NewPassword:     "Changed456",
	}, current.RefreshToken, client)
	require.NoError(t, err)

	_, err = f.service.Refresh(ctx, current.RefreshToken)
	require.NoError(t, err)
	_, err = f.service.Refresh(ctx, other.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrSessionInvalid)

	f.login(t, "owner@example.com", "Changed456")
	_, err = f.service.Login(ctx, auth.LoginRequest{Email: "owner@example.com", Password: ownerPassword}, client)
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestChangePasswordWrongCurrentPassword(t *testing.T) {
	f := setupTestFixture(t)
	reg := f.register(t)

	err := f.service.ChangePassword(context.Background(), reg.User.ID, auth.ChangePasswordRequest{
		CurrentPassword: "Wrong1234",
		NewPassword:     "Changed456",
	}, "", client)
	require.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	require.Contains(t, apperrors.FieldErrors(err), "currentPassword")
	require.Contains(t, f.sink.Types(), audit.EventPasswordChanged)
}

func TestPasswordResetFlow(t *testing.T) {
	f := setupTestFixture(t)
	reg := f.register(t)
	ctx := context.Background()
	session := f.login(t, "owner@example.com", ownerPassword)

	require.NoError(t, f.service.ForgotPassword(ctx, "owner@example.com", client))
	msg, ok := f.mailer.LastTo("owner@example.com")
	require.True(t, ok)
	require.Equal(t, "Reset your password", msg.Subject)
	raw := tokenFromMail(t, msg)

	stored, err := f.userRepo.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PasswordResetToken)
	require.NotEqual(t, raw, *stored.PasswordResetToken, "only the token hash is stored")

	require.NoError(t, f.service.VerifyResetToken(ctx, raw))
	require.NoError(t, f.service.ResetPassword(ctx, auth.ResetPasswordRequest{Token: raw, Password: "Reset7890"}, client))

	_, err = f.service.Refresh(ctx, session.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrSessionInvalid)
	require.ErrorIs(t, f.service.VerifyResetToken(ctx, raw), apperrors.ErrPasswordResetInvalid)

	f.login(t, "owner@example.com", "Reset7890")
}

func TestPasswordResetTokenExpires(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)
	ctx := context.Background()

	require.NoError(t, f.service.ForgotPassword(ctx, "owner@example.com", client))
	msg, ok := f.mailer.LastTo("owner@example.com")
	require.True(t, ok)
	raw := tokenFromMail(t, msg)

	f.now = f.now.Add(time.Hour)
	err := f.service.ResetPassword(ctx, auth.ResetPasswordRequest{Token: raw, Password: "Reset7890"}, client)
	require.ErrorIs(t, err, apperrors.ErrPasswordResetInvalid)
}

func TestForgotPasswordUnknownEmailSucceedsSilently(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.service.ForgotPassword(context.Background(), "nobody@example.com", client))
	require.Empty(t, f.mailer.Sent())
}

func TestForgotPasswordIgnoresMailFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)
	f.mailer.FailWith(errors.New("smtp down"))
	require.NoError(t, f.service.ForgotPassword(context.Background(), "owner@example.com", client))
}

func TestVerifyEmail(t *testing.T) {
	f := setupTestFixture(t)
	reg := f.register(t)
	ctx := context.Background()

	var verification mail.Message
	for _, m := range f.mailer.Sent() {
		if m.Subject == "Verify your email address" {
			verification = m
		}
	}
	raw := tokenFromMail(t, verification)

	require.NoError(t, f.service.VerifyEmail(ctx, raw, client))
	stored, err := f.userRepo.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.True(t, stored.EmailVerified)
	require.Nil(t, stored.EmailVerificationToken)

	require.ErrorIs(t, f.service.VerifyEmail(ctx, raw, client), apperrors.ErrEmailVerificationToken)
	require.Equal(t, apperrors.KindValidation, apperrors.KindOf(f.service.ResendVerification(ctx, reg.User.ID)))
}

func TestResendVerificationReplacesToken(t *testing.T) {
	f := setupTestFixture(t)
	reg := f.register(t)
	ctx := context.Background()

	f.now = f.now.Add(25 * time.Hour)
	require.NoError(t, f.service.ResendVerification(ctx, reg.User.ID))
	msg, ok := f.mailer.LastTo("owner@example.com")
	require.True(t, ok)

	require.NoError(t, f.service.VerifyEmail(ctx, tokenFromMail(t, msg), client))
}

func TestMe(t *testing.T) {
	f := setupTestFixture(t)
	reg := f.register(t)

	profile, err := f.service.Me(context.Background(), reg.User.ID)
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, profile.User.ID)
	require.Equal(t, "greenplate", profile.Organization.Subdomain)
}

func TestUnlockUser(t *testing.T) {
	f := setupTestFixture(t)
	reg := f.register(t)
	ctx := context.Background()
	member := f.addMember(t, reg.Organization.ID, users.RoleDietitian, "diet@example.com")
	outsider := f.addMember(t, "another-org", users.RoleOrganizationOwner, "outsider@example.com")

	locked := f.now.Add(10 * time.Minute)
	_, err := f.userRepo.Update(ctx, member.ID, users.Update{
		FailedLoginAttempts: utils.Set(5),
		LockedUntil:         utils.Set(&locked),
	})
	require.NoError(t, err)

	require.ErrorIs(t, f.service.UnlockUser(ctx, outsider.ID, member.ID, client), apperrors.ErrForbidden)
	require.ErrorIs(t, f.service.UnlockUser(ctx, member.ID, member.ID, client), apperrors.ErrForbidden)

	require.NoError(t, f.service.UnlockUser(ctx, reg.User.ID, member.ID, client))
	f.login(t, "diet@example.com", ownerPassword)
	require.Contains(t, f.sink.Types(), audit.EventAccountUnlocked)
}
