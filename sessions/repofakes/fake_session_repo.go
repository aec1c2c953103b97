package repofakes

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/dietitian-server/internal/errors"
	"github.com/jrsteele09/dietitian-server/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	sessions map[string]*sessions.Session
	tokens   map[string]string // refresh token to session id
	lock     sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]*sessions.Session),
		tokens:   make(map[string]string),
	}
}

func (sr *FakeSessionRepo) Create(_ context.Context, session *sessions.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if _, ok := sr.tokens[session.RefreshToken]; ok {
		return apperrors.Wrap(apperrors.KindConflict, apperrors.ErrConflict, "Refresh token already in use")
	}
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	stored := *session
	sr.sessions[session.ID] = &stored
	sr.tokens[session.RefreshToken] = session.ID
	return nil
}

func (sr *FakeSessionRepo) GetByRefreshToken(_ context.Context, refreshToken string) (*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	id, ok := sr.tokens[refreshToken]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *sr.sessions[id]
	return &c, nil
}

func (sr *FakeSessionRepo) Update(_ context.Context, id string, update sessions.Update) (*sessions.Session, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	s, ok := sr.sessions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	update.Apply(s)
	c := *s
	return &c, nil
}

func (sr *FakeSessionRepo) InvalidateByRefreshToken(_ context.Context, userID, refreshToken string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	id, ok := sr.tokens[refreshToken]
	if !ok {
		return nil
	}
	if s := sr.sessions[id]; s.UserID == userID {
		s.IsValid = false
	}
	return nil
}

func (sr *FakeSessionRepo) InvalidateAllForUser(_ context.Context, userID, exceptRefreshToken string) (int, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	n := 0
	for _, s := range sr.sessions {
		if s.UserID != userID || !s.IsValid {
			continue
		}
		if exceptRefreshToken != "" && s.RefreshToken == exceptRefreshToken {
			continue
		}
		s.IsValid = false
		n++
	}
	return n, nil
}

func (sr *FakeSessionRepo) ListValidForUser(_ context.Context, userID string) ([]*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	list := make([]*sessions.Session, 0)
	for _, s := range sr.sessions {
		if s.UserID == userID && s.IsValid {
			c := *s
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// Get returns a session by ID.
func (sr *FakeSessionRepo) Get(id string) (*sessions.Session, bool) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	s, ok := sr.sessions[id]
	if !ok {
		return nil, false
	}
	c := *s
	return &c, true
}
