package sessions

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/dietitian-server/internal/errors"
	"github.com/jrsteele09/dietitian-server/internal/utils"
	"github.com/jrsteele09/dietitian-server/token"
	"github.com/jrsteele09/dietitian-server/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AccessTokenIssuer mints access tokens for a refreshed session.
type AccessTokenIssuer interface {
	IssueAccessToken(claims token.AccessClaims) (string, error)
}

type Manager struct {
	repo    Repo
	users   users.Repo
	tokens  AccessTokenIssuer
	nowTime func() time.Time
}

type Option func(*Manager)

func WithNowTime(now func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = now
	}
}

func NewManager(repo Repo, userRepo users.Repo, tokens AccessTokenIssuer, options ...Option) *Manager {
	m := &Manager{
		repo:    repo,
		users:   userRepo,
		tokens:  tokens,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

type CreateParams struct {
	UserID       string
	RefreshToken string
	AccessToken  string
	Metadata     ClientMetadata
	ExpiresAt    time.Time
}

// CreateSession stores a new valid session. A user may hold any number of sessions.
func (m *Manager) CreateSession(ctx context.Context, params CreateParams) (*Session, error) {
	now := m.nowTime()
	session := &Session{
		UserID:         params.UserID,
		RefreshToken:   params.RefreshToken,
		AccessToken:    params.AccessToken,
		IPAddress:      params.Metadata.IPAddress,
		UserAgent:      params.Metadata.UserAgent,
		Browser:        params.Metadata.Browser,
		Device:         params.Metadata.Device,
		OS:             params.Metadata.OS,
		IsValid:        true,
		ExpiresAt:      params.ExpiresAt,
		LastActivityAt: now,
		CreatedAt:      now,
	}
	if err := m.repo.Create(ctx, session); err != nil {
		return nil, errors.Wrap(err, "[Manager.CreateSession] Create")
	}
	return session, nil
}

// RefreshResult is the outcome of a successful refresh.
type RefreshResult struct {
	AccessToken string
	Session     *Session
	User        *users.User
}

// Refresh exchanges a refresh token for a new access token. The refresh token itself
// is not rotated. An expired session is marked invalid as a side effect.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, apperrors.ErrSessionInvalid
	}

	session, err := m.repo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil, apperrors.ErrSessionInvalid
		}
		return nil, errors.Wrap(err, "[Manager.Refresh] GetByRefreshToken")
	}
	if !session.IsValid {
		return nil, apperrors.ErrSessionInvalid
	}

	now := m.nowTime()
	if session.Expired(now) {
		if _, err := m.repo.Update(ctx, session.ID, Update{IsValid: utils.Set(false)}); err != nil {
			log.Err(err).Str("sessionId", session.ID).Msg("failed to invalidate expired session")
		}
		return nil, apperrors.ErrSessionInvalid
	}

	user, err := m.users.GetByID(ctx, session.UserID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil, apperrors.ErrSessionInvalid
		}
		return nil, errors.Wrap(err, "[Manager.Refresh] GetByID")
	}
	if !user.IsActive {
		return nil, apperrors.ErrUserInactive
	}

	accessToken, err := m.tokens.IssueAccessToken(token.AccessClaims{
		SubjectID:      user.ID,
		Email:          user.Email,
		Role:           string(user.Role),
		OrganizationID: user.OrganizationID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Refresh] IssueAccessToken")
	}

	session, err = m.repo.Update(ctx, session.ID, Update{
		AccessToken:    utils.Set(accessToken),
		LastActivityAt: utils.Set(now),
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Refresh] Update")
	}

	return &RefreshResult{AccessToken: accessToken, Session: session, User: user}, nil
}

// Invalidate marks the user's session holding refreshToken invalid. Unknown tokens are ignored.
func (m *Manager) Invalidate(ctx context.Context, userID, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := m.repo.InvalidateByRefreshToken(ctx, userID, refreshToken); err != nil {
		return errors.Wrap(err, "[Manager.Invalidate]")
	}
	return nil
}

// InvalidateByToken marks the session holding refreshToken invalid without knowing its
// owner, and returns the owner's ID. Unknown tokens return an empty ID and no error.
func (m *Manager) InvalidateByToken(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", nil
	}
	session, err := m.repo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return "", nil
		}
		return "", errors.Wrap(err, "[Manager.InvalidateByToken] GetByRefreshToken")
	}
	if err := m.repo.InvalidateByRefreshToken(ctx, session.UserID, refreshToken); err != nil {
		return "", errors.Wrap(err, "[Manager.InvalidateByToken]")
	}
	return session.UserID, nil
}

// InvalidateAll marks every valid session of the user invalid, keeping the session
// holding exceptRefreshToken when it is non-empty.
func (m *Manager) InvalidateAll(ctx context.Context, userID, exceptRefreshToken string) (int, error) {
	n, err := m.repo.InvalidateAllForUser(ctx, userID, exceptRefreshToken)
	if err != nil {
		return 0, errors.Wrap(err, "[Manager.InvalidateAll]")
	}
	return n, nil
}

func (m *Manager) ListActive(ctx context.Context, userID string) ([]*Session, error) {
	list, err := m.repo.ListValidForUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.ListActive]")
	}
	now := m.nowTime()
	active := make([]*Session, 0, len(list))
	for _, s := range list {
		if !s.Expired(now) {
			active = append(active, s)
		}
	}
	return active, nil
}
