package lockout

import (
	"context"
	"fmt"
	"math"
	"time"

	apperrors "github.com/jrsteele09/dietitian-server/internal/errors"
	"github.com/jrsteele09/dietitian-server/internal/utils"
	"github.com/jrsteele09/dietitian-server/users"
	"github.com/pkg/errors"
)

type State string

const (
	StateOpen   State = "OPEN"
	StateLocked State = "LOCKED"
)

const (
	DefaultMaxAttempts  = 5
	DefaultLockDuration = 15 * time.Minute
)

type Config struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// Result describes the outcome of a recorded failure.
type Result struct {
	Attempts  int
	Locked    bool
	Remaining time.Duration
}

// Guard tracks failed logins per user and locks the account for LockDuration once
// MaxAttempts consecutive failures are reached. Lock expiry is lazy: a user whose lock
// has passed is treated as open on the next attempt.
type Guard struct {
	users   users.Repo
	cfg     Config
	nowTime func() time.Time
}

type Option func(*Guard)

func WithNowTime(now func() time.Time) Option {
	return func(g *Guard) {
		g.nowTime = now
	}
}

func NewGuard(repo users.Repo, cfg Config, options ...Option) *Guard {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = DefaultLockDuration
	}
	g := &Guard{
		users:   repo,
		cfg:     cfg,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

func (g *Guard) State(u *users.User) State {
	if g.remaining(u) > 0 {
		return StateLocked
	}
	return StateOpen
}

// Check rejects a login attempt for a locked user before any password check.
func (g *Guard) Check(u *users.User) error {
	remaining := g.remaining(u)
	if remaining <= 0 {
		return nil
	}
	return LockedError(remaining)
}

// RecordFailure counts a failed password check and locks the account when the
// counter reaches MaxAttempts.
func (g *Guard) RecordFailure(ctx context.Context, u *users.User) (Result, error) {
	attempts, err := g.users.IncrementFailedLogins(ctx, u.ID)
	if err != nil {
		return Result{}, errors.Wrap(err, "[Guard.RecordFailure] IncrementFailedLogins")
	}
	u.FailedLoginAttempts = attempts

	if attempts < g.cfg.MaxAttempts {
		return Result{Attempts: attempts}, nil
	}

	lockedUntil := g.nowTime().Add(g.cfg.LockDuration)
	if _, err := g.users.Update(ctx, u.ID, users.Update{
		LockedUntil: utils.Set(&lockedUntil),
	}); err != nil {
		return Result{}, errors.Wrap(err, "[Guard.RecordFailure] Update")
	}
	u.LockedUntil = &lockedUntil

	return Result{Attempts: attempts, Locked: true, Remaining: g.cfg.LockDuration}, nil
}

// RecordSuccess clears the counter and any lock after a successful login.
func (g *Guard) RecordSuccess(ctx context.Context, u *users.User) error {
	if u.FailedLoginAttempts == 0 && u.LockedUntil == nil {
		return nil
	}
	if err := g.reset(ctx, u.ID); err != nil {
		return errors.Wrap(err, "[Guard.RecordSuccess]")
	}
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	return nil
}

// Unlock is the administrative reset of a user's counter and lock.
func (g *Guard) Unlock(ctx context.Context, userID string) error {
	if err := g.reset(ctx, userID); err != nil {
		return errors.Wrap(err, "[Guard.Unlock]")
	}
	return nil
}

func (g *Guard) reset(ctx context.Context, userID string) error {
	_, err := g.users.Update(ctx, userID, users.Update{
		FailedLoginAttempts: utils.Set(0),
		LockedUntil:         utils.Set[*time.Time](nil),
	})
	return err
}

func (g *Guard) remaining(u *users.User) time.Duration {
	if u.LockedUntil == nil {
		return 0
	}
	return u.LockedUntil.Sub(g.nowTime())
}

// LockedError reports a locked account with the remaining lock time in whole minutes.
func LockedError(remaining time.Duration) error {
	minutes := int(math.Ceil(remaining.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return apperrors.Wrap(apperrors.KindForbidden, apperrors.ErrAccountLocked,
		fmt.Sprintf("Account is temporarily locked. Try again in %d minutes", minutes))
}
