package main

import (
	"github.com/jrsteele09/dietitian-server/audit"
	"github.com/jrsteele09/dietitian-server/auth"
	"github.com/jrsteele09/dietitian-server/authz"
	"github.com/jrsteele09/dietitian-server/entitlements"
	"github.com/jrsteele09/dietitian-server/internal/config"
	"github.com/jrsteele09/dietitian-server/internal/metrics"
	"github.com/jrsteele09/dietitian-server/lockout"
	"github.com/jrsteele09/dietitian-server/mail"
	"github.com/jrsteele09/dietitian-server/ratelimit"
	"github.com/jrsteele09/dietitian-server/server"
	"github.com/jrsteele09/dietitian-server/sessions"
	"github.com/jrsteele09/dietitian-server/token"
	"github.com/jrsteele09/dietitian-server/users"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

const devJWTSecret = "dev-only-insecure-secret"

func buildServices(c config.Config, b *backends) (server.Services, error) {
	secret := c.GetJWTSecret()
	if secret == "" {
		log.Warn().Msg("JWT_SECRET not set; using an insecure development secret")
		secret = devJWTSecret
	}
	tokens, err := token.New(
		token.NewHMACSigner(secret),
		token.WithIssuer(c.GetJWTIssuer()),
		token.WithAccessTokenExpiry(c.GetAccessTokenExpiry()),
		token.WithRefreshTokenBytes(c.GetRefreshTokenLength()),
	)
	if err != nil {
		return server.Services{}, errors.Wrap(err, "token.New")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	recorder := audit.NewRecorder(b.auditSink)
	authService, err := auth.NewAuthService(
		auth.Repos{
			Users:         b.users,
			Organizations: b.organizations,
			Registrar:     b.registrar,
		},
		auth.Components{
			Tokens:   tokens,
			Sessions: sessions.NewManager(b.sessions, b.users, tokens),
			Lockout: lockout.NewGuard(b.users, lockout.Config{
				MaxAttempts:  c.GetMaxLoginAttempts(),
				LockDuration: c.GetLockDuration(),
			}),
			Hasher:   users.NewHasher(c.GetBcryptCost()),
			Audit:    recorder,
			Notifier: mail.NewNotifier(b.mailer, c.GetAppName(), c.GetBaseURL()),
		},
		auth.Config{
			RefreshTokenExpiry:   c.GetRefreshTokenExpiry(),
			RememberMeExpiry:     c.GetRememberMeExpiry(),
			PasswordResetTTL:     c.GetPasswordResetTTL(),
			EmailVerificationTTL: c.GetEmailVerificationTTL(),
			TrialPeriod:          c.GetTrialPeriod(),
		},
		auth.WithMetrics(m),
	)
	if err != nil {
		return server.Services{}, errors.Wrap(err, "auth.NewAuthService")
	}

	return server.Services{
		Auth:          authService,
		Gate:          authz.NewGate(tokens, b.users),
		Entitlements:  entitlements.NewResolver(b.organizations),
		Limiter:       ratelimit.New(b.counters, c.GetEnableRateLimiting()),
		Organizations: b.organizations,
		Audit:         recorder,
		Metrics:       m,
	}, nil
}
