package server

// Route path constants
const (
	// Auth Routes - Registration, Login & Logout
	RouteAuthRegister  = "/auth/register"
	RouteAuthLogin     = "/auth/login"
	RouteAuthLogout    = "/auth/logout"
	RouteAuthLogoutAll = "/auth/logout/all"
	RouteAuthRefresh   = "/auth/refresh"
	RouteAuthMe        = "/auth/me"
	RouteAuthSessions  = "/auth/sessions"

	// Auth Routes - Password Management
	RouteChangePassword   = "/auth/change-password"
	RouteForgotPassword   = "/auth/forgot-password"
	RouteResetPassword    = "/auth/reset-password"
	RouteVerifyResetToken = "/auth/reset-password/verify"
	RouteUnlockUser       = "/users/{userId}/unlock"

	// Auth Routes - Email Verification
	RouteVerifyEmail        = "/auth/verify-email"
	RouteResendVerification = "/auth/verify-email/resend"

	// Organization Routes
	RouteOrganization         = "/organizations/{organizationId}"
	RouteOrganizationUsage    = "/organizations/{organizationId}/usage"
	RouteOrganizationFeatures = "/organizations/{organizationId}/features"
	RouteOrganizationAIQuery  = "/organizations/{organizationId}/ai-queries"

	RouteMetrics = "/metrics"
)

const organizationParam = "organizationId"
