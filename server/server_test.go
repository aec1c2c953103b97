package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/dietitian-server/audit"
	auditfakes "github.com/jrsteele09/dietitian-server/audit/repofakes"
	"github.com/jrsteele09/dietitian-server/auth"
	"github.com/jrsteele09/dietitian-server/auth/repofakes"
	"github.com/jrsteele09/dietitian-server/authz"
	"github.com/jrsteele09/dietitian-server/entitlements"
	"github.com/jrsteele09/dietitian-server/internal/config"
	"github.com/jrsteele09/dietitian-server/internal/metrics"
	"github.com/jrsteele09/dietitian-server/internal/utils"
	"github.com/jrsteele09/dietitian-server/lockout"
	"github.com/jrsteele09/dietitian-server/mail"
	mailfakes "github.com/jrsteele09/dietitian-server/mail/repofakes"
	"github.com/jrsteele09/dietitian-server/organizations"
	orgfakes "github.com/jrsteele09/dietitian-server/organizations/repofakes"
	"github.com/jrsteele09/dietitian-server/ratelimit"
	"github.com/jrsteele09/dietitian-server/server"
	"github.com/jrsteele09/dietitian-server/sessions"
	sessionfakes "github.com/jrsteele09/dietitian-server/sessions/repofakes"
	"github.com/jrsteele09/dietitian-server/token"
	"github.com/jrsteele09/dietitian-server/users"
	"github.com/jrsteele09/dietitian-server/users/repofake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const password = "Secret123"

type testFixture struct {
	userRepo *repofake.FakeUserRepo
	orgRepo  *orgfakes.FakeOrganizationRepo
	sink     *auditfakes.FakeSink
	hasher   users.Hasher
	server   *server.Server
}

type response struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Setenv("ENV", "test")
	f := &testFixture{
		userRepo: repofake.NewFakeUserRepo(),
		orgRepo:  orgfakes.NewFakeOrganizationRepo(),
		sink:     auditfakes.NewFakeSink(),
		hasher:   users.NewHasher(bcrypt.MinCost),
	}
	sessionRepo := sessionfakes.NewFakeSessionRepo()
	m := metrics.New(prometheus.NewRegistry())
	recorder := audit.NewRecorder(f.sink)

	tokens, err := token.New(token.NewHMACSigner("server-test-secret"))
	require.NoError(t, err)

	authService, err := auth.NewAuthService(
		auth.Repos{
			Users:         f.userRepo,
			Organizations: f.orgRepo,
			Registrar:     repofakes.NewFakeRegistrar(f.orgRepo, f.userRepo),
		},
		auth.Components{
			Tokens:   tokens,
			Sessions: sessions.NewManager(sessionRepo, f.userRepo, tokens),
			Lockout:  lockout.NewGuard(f.userRepo, lockout.Config{}),
			Hasher:   f.hasher,
			Audit:    recorder,
			Notifier: mail.NewNotifier(mailfakes.NewFakeMailer(), "Dietitian", "http://localhost:3000"),
		},
		auth.Config{},
		auth.WithMetrics(m),
	)
	require.NoError(t, err)

	f.server, err = server.New(config.New(), server.Services{
		Auth:          authService,
		Gate:          authz.NewGate(tokens, f.userRepo),
		Entitlements:  entitlements.NewResolver(f.orgRepo),
		Limiter:       ratelimit.New(ratelimit.NewMemoryStore(), true),
		Organizations: f.orgRepo,
		Audit:         recorder,
		Metrics:       m,
	})
	require.NoError(t, err)
	return f
}

func (f *testFixture) do(t *testing.T, method, path string, body any, opts ...func(*http.Request)) (*httptest.ResponseRecorder, response) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	var resp response
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func bearer(accessToken string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+accessToken)
	}
}

func fromIP(ip string) func(*http.Request) {
	return func(r *http.Request) {
		r.RemoteAddr = ip + ":41234"
	}
}

func forwardedFor(xff string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("X-Forwarded-For", xff)
	}
}

func withCookies(cookies []*http.Cookie) func(*http.Request) {
	return func(r *http.Request) {
		for _, c := range cookies {
			r.AddCookie(c)
		}
	}
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (f *testFixture) register(t *testing.T, subdomain, email string) *auth.RegisterResult {
	rec, resp := f.do(t, http.MethodPost, server.RouteAuthRegister, auth.RegisterRequest{
		OrganizationName:     "Clinic " + subdomain,
		Subdomain:            subdomain,
		Email:                email,
		Password:             password,
		FirstName:            "Elif",
		LastName:             "Kaya",
		AcceptTerms:          true,
		AcceptPrivacy:        true,
		AcceptDataProcessing: true,
	}, fromIP(fmt.Sprintf("198.51.100.%d", subdomain[0])))
	require.Equal(t, http.StatusCreated, rec.Code, resp.Error)

	var res auth.RegisterResult
	require.NoError(t, json.Unmarshal(resp.Data, &res))
	return &res
}

func (f *testFixture) login(t *testing.T, email string) (*auth.LoginResult, []*http.Cookie) {
	rec, resp := f.do(t, http.MethodPost, server.RouteAuthLogin, auth.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)

	var res auth.LoginResult
	require.NoError(t, json.Unmarshal(resp.Data, &res))
	return &res, rec.Result().Cookies()
}

func (f *testFixture) addMember(t *testing.T, orgID string, role users.Role, email string) {
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	require.NoError(t, f.userRepo.Create(context.Background(), &users.User{
		Email:          email,
		PasswordHash:   hash,
		FirstName:      "Deniz",
		LastName:       "Arslan",
		Role:           role,
		OrganizationID: orgID,
		IsActive:       true,
	}))
}

func TestNewRequiresServices(t *testing.T) {
	_, err := server.New(config.New(), server.Services{})
	require.Error(t, err)
}

func TestRegisterAndLoginSetCookies(t *testing.T) {
	f := setupTestFixture(t)
	reg := f.register(t, "alpha", "owner@alpha.com")
	require.Equal(t, "owner@alpha.com", reg.User.Email)
	require.Equal(t, organizations.StatusTrial, reg.Organization.Status)

	res, cookies := f.login(t, "owner@alpha.com")
	require.NotEmpty(t, res.AccessToken)

	access := cookieNamed(cookies, authz.AccessTokenCookie)
	require.NotNil(t, access)
	require.True(t, access.HttpOnly)
	require.Equal(t, res.AccessToken, access.Value)
	refresh := cookieNamed(cookies, authz.RefreshTokenCookie)
	require.NotNil(t, refresh)
	require.Equal(t, res.RefreshToken, refresh.Value)
}

func TestMeRequiresAuthentication(t *testing.T) {
	f := setupTestFixture(t)

	rec, resp := f.do(t, http.MethodGet, server.RouteAuthMe, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, resp.Success)
	require.NotEmpty(t, resp.Error)

	rec, _ = f.do(t, http.MethodGet, server.RouteAuthMe, nil, bearer("not-a-token"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeWithBearerAndCookie(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t, "alpha", "owner@alpha.com")
	res, cookies := f.login(t, "owner@alpha.com")

	rec, resp := f.do(t, http.MethodGet, server.RouteAuthMe, nil, bearer(res.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	var profile auth.Profile
	require.NoError(t, json.Unmarshal(resp.Data, &profile))
	require.Equal(t, "owner@alpha.com", profile.User.Email)
	require.NotNil(t, profile.Organization)

	rec, _ = f.do(t, http.MethodGet, server.RouteAuthMe, nil, withCookies(cookies))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestInvalidBodyIsValidationError(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodPost, server.RouteAuthLogin, bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Contains(t, resp.Errors, "body")
}

func TestRegisterValidationErrors(t *testing.T) {
	f := setupTestFixture(t)

	rec, resp := f.do(t, http.MethodPost, server.RouteAuthRegister, auth.RegisterRequest{Email: "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, resp.Errors, "email")
	require.Contains(t, resp.Errors, "subdomain")
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t, "alpha", "owner@alpha.com")
	_, cookies := f.login(t, "owner@alpha.com")

	refresh := cookieNamed(cookies, authz.RefreshTokenCookie)
	rec, resp := f.do(t, http.MethodPost, server.RouteAuthRefresh, nil, withCookies([]*http.Cookie{refresh}))
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)
	require.NotNil(t, cookieNamed(rec.Result().Cookies(), authz.AccessTokenCookie))

	rec, _ = f.do(t, http.MethodPost, server.RouteAuthRefresh, map[string]string{"refreshToken": "unknown"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutClearsCookiesAndSession(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t, "alpha", "owner@alpha.com")
	_, cookies := f.login(t, "owner@alpha.com")

	rec, resp := f.do(t, http.MethodPost, server.RouteAuthLogout, nil, withCookies(cookies))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	for _, name := range []string{authz.AccessTokenCookie, authz.RefreshTokenCookie} {
		c := cookieNamed(rec.Result().Cookies(), name)
		require.NotNil(t, c, name)
		require.Empty(t, c.Value)
		require.Less(t, c.MaxAge, 0)
	}

	refresh := cookieNamed(cookies, authz.RefreshTokenCookie)
	rec, _ = f.do(t, http.MethodPost, server.RouteAuthRefresh, nil, withCookies([]*http.Cookie{refresh}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutWithOnlyRefreshCookieEndsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t, "alpha", "owner@alpha.com")
	_, cookies := f.login(t, "owner@alpha.com")
	refresh := cookieNamed(cookies, authz.RefreshTokenCookie)

	rec, resp := f.do(t, http.MethodPost, server.RouteAuthLogout, nil, withCookies([]*http.Cookie{refresh}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	rec, _ = f.do(t, http.MethodPost, server.RouteAuthRefresh, nil, withCookies([]*http.Cookie{refresh}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutWithoutSessionStillSucceeds(t *testing.T) {
	f := setupTestFixture(t)

	rec, resp := f.do(t, http.MethodPost, server.RouteAuthLogout, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	require.NotNil(t, cookieNamed(rec.Result().Cookies(), authz.AccessTokenCookie))
}

func TestOrganizationTenantIsolation(t *testing.T) {
	f := setupTestFixture(t)
	alpha := f.register(t, "alpha", "owner@alpha.com")
	beta := f.register(t, "beta", "owner@beta.com")
	res, _ := f.login(t, "owner@alpha.com")

	rec, resp := f.do(t, http.MethodGet, "/organizations/"+alpha.Organization.ID, nil, bearer(res.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	var org organizations.Organization
	require.NoError(t, json.Unmarshal(resp.Data, &org))
	require.Equal(t, "alpha", org.Subdomain)

	rec, resp = f.do(t, http.MethodGet, "/organizations/"+beta.Organization.ID, nil, bearer(res.AccessToken))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.False(t, resp.Success)
}

func TestSuperAdminCrossesTenants(t *testing.T) {
	f := setupTestFixture(t)
	alpha := f.register(t, "alpha", "owner@alpha.com")
	f.addMember(t, "", users.RoleSuperAdmin, "root@platform.com")
	res, _ := f.login(t, "root@platform.com")

	rec, _ := f.do(t, http.MethodGet, "/organizations/"+alpha.Organization.ID+"/usage", nil, bearer(res.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUsageRequiresOwnerRole(t *testing.T) {
	f := setupTestFixture(t)
	alpha := f.register(t, "alpha", "owner@alpha.com")
	f.addMember(t, alpha.Organization.ID, users.RoleDietitian, "dietitian@alpha.com")
	path := "/organizations/" + alpha.Organization.ID + "/usage"

	dietitian, _ := f.login(t, "dietitian@alpha.com")
	rec, _ := f.do(t, http.MethodGet, path, nil, bearer(dietitian.AccessToken))
	require.Equal(t, http.StatusForbidden, rec.Code)

	owner, _ := f.login(t, "owner@alpha.com")
	rec, resp := f.do(t, http.MethodGet, path, nil, bearer(owner.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	var usage map[organizations.Resource]entitlements.UsageStatus
	require.NoError(t, json.Unmarshal(resp.Data, &usage))
	require.Len(t, usage, len(organizations.Resources))
	require.Equal(t, 1, usage[organizations.ResourceUsers].Current)
}

func TestFeaturesReportPlan(t *testing.T) {
	f := setupTestFixture(t)
	alpha := f.register(t, "alpha", "owner@alpha.com")
	res, _ := f.login(t, "owner@alpha.com")

	rec, resp := f.do(t, http.MethodGet, "/organizations/"+alpha.Organization.ID+"/features", nil, bearer(res.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Plan         organizations.Plan `json:"plan"`
		Features     []string           `json:"features"`
		TrialExpired bool               `json:"trialExpired"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &body))
	require.Equal(t, organizations.PlanStarter, body.Plan)
	require.Contains(t, body.Features, entitlements.FeatureAIDietPlans)
	require.False(t, body.TrialExpired)
}

func TestAIQueryRequiresFeature(t *testing.T) {
	f := setupTestFixture(t)
	alpha := f.register(t, "alpha", "owner@alpha.com")
	res, _ := f.login(t, "owner@alpha.com")
	path := "/organizations/" + alpha.Organization.ID + "/ai-queries"

	rec, resp := f.do(t, http.MethodPost, path, nil, bearer(res.AccessToken))
	require.Equal(t, http.StatusCreated, rec.Code, resp.Error)
	var status entitlements.UsageStatus
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	require.Equal(t, 1, status.Current)

	_, err := f.orgRepo.Update(context.Background(), alpha.Organization.ID, organizations.Update{
		Plan: utils.Set(organizations.PlanFree),
	})
	require.NoError(t, err)

	rec, resp = f.do(t, http.MethodPost, path, nil, bearer(res.AccessToken))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.False(t, resp.Success)
}

func TestAIQueryRejectsSuspendedOrganization(t *testing.T) {
	f := setupTestFixture(t)
	alpha := f.register(t, "alpha", "owner@alpha.com")
	res, _ := f.login(t, "owner@alpha.com")

	_, err := f.orgRepo.Update(context.Background(), alpha.Organization.ID, organizations.Update{
		Status: utils.Set(organizations.StatusSuspended),
	})
	require.NoError(t, err)

	rec, _ := f.do(t, http.MethodPost, "/organizations/"+alpha.Organization.ID+"/ai-queries", nil, bearer(res.AccessToken))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginRateLimited(t *testing.T) {
	f := setupTestFixture(t)
	body := auth.LoginRequest{Email: "nobody@example.com", Password: password}

	for i := 0; i < 10; i++ {
		rec, _ := f.do(t, http.MethodPost, server.RouteAuthLogin, body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec, resp := f.do(t, http.MethodPost, server.RouteAuthLogin, body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
	require.False(t, resp.Success)
	require.Contains(t, f.sink.Types(), audit.EventRateLimited)

	rec, _ = f.do(t, http.MethodPost, server.RouteAuthLogin, body, fromIP("203.0.113.9"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	f := setupTestFixture(t)
	body := auth.LoginRequest{Email: "nobody@example.com", Password: password}

	for i := 0; i < 10; i++ {
		rec, _ := f.do(t, http.MethodPost, server.RouteAuthLogin, body,
			fromIP("198.51.100.7"), forwardedFor(fmt.Sprintf("10.0.0.%d", i)))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec, _ := f.do(t, http.MethodPost, server.RouteAuthLogin, body,
		fromIP("198.51.100.7"), forwardedFor("10.0.0.200"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLoginRateLimitHonoursForwardedForFromTrustedProxy(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8")
	f := setupTestFixture(t)
	body := auth.LoginRequest{Email: "nobody@example.com", Password: password}
	viaProxy := fromIP("10.0.0.1")

	for i := 0; i < 10; i++ {
		rec, _ := f.do(t, http.MethodPost, server.RouteAuthLogin, body, viaProxy, forwardedFor("203.0.113.5"))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec, _ := f.do(t, http.MethodPost, server.RouteAuthLogin, body, viaProxy, forwardedFor("203.0.113.5"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A client-supplied leading hop does not change the address the proxy saw.
	rec, _ = f.do(t, http.MethodPost, server.RouteAuthLogin, body, viaProxy, forwardedFor("198.18.0.1, 203.0.113.5"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec, _ = f.do(t, http.MethodPost, server.RouteAuthLogin, body, viaProxy, forwardedFor("203.0.113.6, 10.0.0.2"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServerRejectsMalformedTrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/99")
	_, err := server.New(config.New(), server.Services{})
	require.ErrorContains(t, err, "TRUSTED_PROXIES")
}

func TestCorsPreflight(t *testing.T) {
	f := setupTestFixture(t)

	rec, _ := f.do(t, http.MethodOptions, server.RouteAuthLogin, nil, func(r *http.Request) {
		r.Header.Set("Origin", "http://localhost:3000")
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	require.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))

	rec, _ = f.do(t, http.MethodOptions, server.RouteAuthLogin, nil, func(r *http.Request) {
		r.Header.Set("Origin", "https://evil.example.com")
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	f := setupTestFixture(t)

	rec, _ := f.do(t, http.MethodGet, server.RouteAuthMe, nil)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestMetricsEndpoint(t *testing.T) {
	f := setupTestFixture(t)
	f.do(t, http.MethodGet, server.RouteAuthMe, nil)

	req := httptest.NewRequest(http.MethodGet, server.RouteMetrics, nil)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
	require.Contains(t, rec.Body.String(), `route="GET /auth/me"`)
}

func TestThrottleSweep(t *testing.T) {
	f := setupTestFixture(t)
	f.do(t, http.MethodGet, server.RouteAuthMe, nil)
	require.Equal(t, 0, f.server.SweepThrottles())
}
