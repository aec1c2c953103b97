package main

import (
	"context"
	"io"

	"github.com/jrsteele09/dietitian-server/audit"
	"github.com/jrsteele09/dietitian-server/auth"
	authfakes "github.com/jrsteele09/dietitian-server/auth/repofakes"
	"github.com/jrsteele09/dietitian-server/internal/config"
	"github.com/jrsteele09/dietitian-server/mail"
	"github.com/jrsteele09/dietitian-server/organizations"
	orgfakes "github.com/jrsteele09/dietitian-server/organizations/repofakes"
	"github.com/jrsteele09/dietitian-server/ratelimit"
	"github.com/jrsteele09/dietitian-server/sessions"
	sessionfakes "github.com/jrsteele09/dietitian-server/sessions/repofakes"
	"github.com/jrsteele09/dietitian-server/store/postgres"
	"github.com/jrsteele09/dietitian-server/users"
	"github.com/jrsteele09/dietitian-server/users/repofake"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// backends are the storage, counter, audit and mail implementations selected by config.
type backends struct {
	users         users.Repo
	organizations organizations.Repo
	sessions      sessions.Repo
	registrar     auth.Registrar
	counters      ratelimit.CounterStore
	auditSink     audit.Sink
	mailer        mail.Mailer

	closers []io.Closer
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close backend")
		}
	}
}

func openBackends(ctx context.Context, c config.Config) (*backends, error) {
	b := &backends{}
	var pg *postgres.Store

	switch c.GetStorageBackend() {
	case config.BackendMemory:
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		userRepo := repofake.NewFakeUserRepo()
		orgRepo := orgfakes.NewFakeOrganizationRepo()
		b.users = userRepo
		b.organizations = orgRepo
		b.sessions = sessionfakes.NewFakeSessionRepo()
		b.registrar = authfakes.NewFakeRegistrar(orgRepo, userRepo)
	case config.BackendPostgres:
		store, err := postgres.Open(c.GetDatabaseURL())
		if err != nil {
			return nil, errors.Wrap(err, "postgres.Open")
		}
		b.closers = append(b.closers, store)
		if err := store.Migrate(ctx); err != nil {
			b.Close()
			return nil, errors.Wrap(err, "postgres Migrate")
		}
		pg = store
		b.users = store.Users()
		b.organizations = store.Organizations()
		b.sessions = store.Sessions()
		b.registrar = store.Registrar()
	default:
		return nil, errors.Errorf("unknown storage backend %q", c.GetStorageBackend())
	}

	switch c.GetRateLimitBackend() {
	case config.BackendMemory:
		store := ratelimit.NewMemoryStore()
		go store.RunSweeper(ctx, sweepInterval)
		b.counters = store
	case config.BackendRedis:
		opts, err := redis.ParseURL(c.GetRedisURL())
		if err != nil {
			b.Close()
			return nil, errors.Wrap(err, "redis.ParseURL")
		}
		client := redis.NewClient(opts)
		b.closers = append(b.closers, client)
		if err := client.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, errors.Wrap(err, "redis Ping")
		}
		b.counters = ratelimit.NewRedisStore(client, c.GetAppName()+":")
	default:
		b.Close()
		return nil, errors.Errorf("unknown rate limit backend %q", c.GetRateLimitBackend())
	}

	switch c.GetAuditSink() {
	case config.AuditSinkLog:
		b.auditSink = audit.LogSink{}
	case config.AuditSinkPostgres:
		if pg == nil {
			b.Close()
			return nil, errors.New("AUDIT_SINK=postgres requires STORAGE_BACKEND=postgres")
		}
		b.auditSink = pg.AuditSink()
	case config.AuditSinkBolt:
		sink, err := audit.OpenBoltSink(c.GetAuditBoltPath())
		if err != nil {
			b.Close()
			return nil, errors.Wrap(err, "audit.OpenBoltSink")
		}
		b.closers = append(b.closers, sink)
		b.auditSink = sink
	default:
		b.Close()
		return nil, errors.Errorf("unknown audit sink %q", c.GetAuditSink())
	}

	if c.GetSmtpHost() != "" {
		b.mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     c.GetSmtpHost(),
			Port:     c.GetSmtpPort(),
			Account:  c.GetSmtpAccount(),
			Password: c.GetSmtpPassword(),
			From:     c.GetMailFrom(),
		})
	} else {
		log.Warn().Msg("SMTP_HOST not set; outbound mail is logged only")
		b.mailer = mail.LogMailer{}
	}

	return b, nil
}
