package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/dietitian-server/entitlements"
	"github.com/jrsteele09/dietitian-server/users"
)

var (
	registerLimit = &RateLimit{Action: "register", Limit: 3, Window: time.Hour, By: ByIP}
	loginLimit    = &RateLimit{Action: "login", Limit: 10, Window: time.Minute, By: ByIP}
	forgotLimit   = &RateLimit{Action: "forgot-password", Limit: 3, Window: time.Hour, By: ByIP}
	resendLimit   = &RateLimit{Action: "verify-email", Limit: 3, Window: time.Hour, By: ByUser}
	aiQueryLimit  = &RateLimit{Action: "ai-query", Limit: 30, Window: time.Minute, By: ByUser}
)

var public = Policy{Public: true}

func (s *Server) initRoutes() {
	// AUTH
	s.api("POST "+RouteAuthRegister, Policy{Public: true, RateLimit: registerLimit}, s.RegisterHandler())
	s.api("POST "+RouteAuthLogin, Policy{Public: true, RateLimit: loginLimit}, s.LoginHandler())
	s.api("POST "+RouteAuthLogout, public, s.LogoutHandler())
	s.api("DELETE "+RouteAuthLogoutAll, Policy{}, s.LogoutAllHandler())
	s.api("POST "+RouteAuthRefresh, public, s.RefreshHandler())
	s.api("GET "+RouteAuthMe, Policy{}, s.MeHandler())
	s.api("GET "+RouteAuthSessions, Policy{}, s.SessionsHandler())

	// PASSWORDS
	s.api("POST "+RouteForgotPassword, Policy{Public: true, RateLimit: forgotLimit}, s.ForgotPasswordHandler())
	s.api("POST "+RouteResetPassword, public, s.ResetPasswordHandler())
	s.api("GET "+RouteVerifyResetToken, public, s.VerifyResetTokenHandler())
	s.api("POST "+RouteChangePassword, Policy{}, s.ChangePasswordHandler())
	s.api("POST "+RouteUnlockUser, Policy{
		Roles: []users.Role{users.RoleSuperAdmin, users.RoleOrganizationOwner},
	}, s.UnlockUserHandler())

	// EMAIL VERIFICATION
	s.api("GET "+RouteVerifyEmail, public, s.VerifyEmailHandler())
	s.api("POST "+RouteResendVerification, Policy{RateLimit: resendLimit}, s.ResendVerificationHandler())

	// ORGANIZATIONS
	s.api("GET "+RouteOrganization, Policy{TenantParam: organizationParam}, s.OrganizationHandler())
	s.api("GET "+RouteOrganizationUsage, Policy{
		Roles:       []users.Role{users.RoleSuperAdmin, users.RoleOrganizationOwner},
		TenantParam: organizationParam,
	}, s.OrganizationUsageHandler())
	s.api("GET "+RouteOrganizationFeatures, Policy{TenantParam: organizationParam}, s.OrganizationFeaturesHandler())
	s.api("POST "+RouteOrganizationAIQuery, Policy{
		RateLimit:   aiQueryLimit,
		Roles:       []users.Role{users.RoleOrganizationOwner, users.RoleDietitian},
		TenantParam: organizationParam,
		Feature:     entitlements.FeatureAIDietPlans,
	}, s.RecordAIQueryHandler())

	// CORS preflight for every path
	s.RegisterRouteFunc("OPTIONS /", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.SecurityHeadersMiddleware, s.CorsMiddleware))

	s.RegisterRouteHandler("GET "+RouteMetrics, s.svc.Metrics.Handler())
}

// api registers a JSON route behind the standard middleware and the request pipeline.
func (s *Server) api(pattern string, p Policy, handler http.HandlerFunc) {
	s.RegisterRouteHandler(pattern, ChainMiddleware(s.Pipeline(p, handler), s.APIMiddleware()...))
}
