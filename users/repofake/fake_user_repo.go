package repofake

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/dietitian-server/internal/errors"
	"github.com/jrsteele09/dietitian-server/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // lower-cased email to user id
	consents []users.Consent
	nowTime  func() time.Time
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
		nowTime:  time.Now,
	}
}

func (ur *FakeUserRepo) Create(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()
	return ur.createLocked(user)
}

func (ur *FakeUserRepo) createLocked(user *users.User) error {
	email := strings.ToLower(user.Email)
	if _, ok := ur.emailIds[email]; ok {
		return apperrors.Wrap(apperrors.KindConflict, apperrors.ErrConflict, "Email is already registered")
	}
	if user.NationalID != "" {
		for _, u := range ur.users {
			if u.NationalID == user.NationalID {
				return apperrors.Wrap(apperrors.KindConflict, apperrors.ErrConflict, "National ID is already registered")
			}
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := ur.nowTime()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	stored := *user
	ur.users[user.ID] = &stored
	ur.emailIds[email] = user.ID
	return nil
}

// Exists reports whether a user would collide with an existing email or national ID.
func (ur *FakeUserRepo) Exists(email, nationalID string) bool {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	if _, ok := ur.emailIds[strings.ToLower(email)]; ok {
		return true
	}
	for _, u := range ur.users {
		if nationalID != "" && u.NationalID == nationalID {
			return true
		}
	}
	return false
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return copyUser(u), nil
}

func (ur *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[strings.ToLower(email)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return copyUser(ur.users[id]), nil
}

func (ur *FakeUserRepo) GetByNationalID(_ context.Context, nationalID string) (*users.User, error) {
	return ur.find(func(u *users.User) bool { return u.NationalID == nationalID })
}

func (ur *FakeUserRepo) GetByPasswordResetToken(_ context.Context, tokenHash string) (*users.User, error) {
	return ur.find(func(u *users.User) bool {
		return u.PasswordResetToken != nil && *u.PasswordResetToken == tokenHash
	})
}

func (ur *FakeUserRepo) GetByEmailVerificationToken(_ context.Context, tokenHash string) (*users.User, error) {
	return ur.find(func(u *users.User) bool {
		return u.EmailVerificationToken != nil && *u.EmailVerificationToken == tokenHash
	})
}

func (ur *FakeUserRepo) Update(_ context.Context, id string, update users.Update) (*users.User, error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	update.Apply(u)
	u.UpdatedAt = ur.nowTime()
	return copyUser(u), nil
}

func (ur *FakeUserRepo) IncrementFailedLogins(_ context.Context, id string) (int, error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	u, ok := ur.users[id]
	if !ok {
		return 0, apperrors.ErrNotFound
	}
	u.FailedLoginAttempts++
	return u.FailedLoginAttempts, nil
}

func (ur *FakeUserRepo) AddConsents(_ context.Context, consents []users.Consent) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()
	ur.addConsentsLocked(consents)
	return nil
}

func (ur *FakeUserRepo) addConsentsLocked(consents []users.Consent) {
	for _, c := range consents {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		ur.consents = append(ur.consents, c)
	}
}

// CreateWithConsents inserts a user and its consents under one lock.
func (ur *FakeUserRepo) CreateWithConsents(user *users.User, consents []users.Consent) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()
	if err := ur.createLocked(user); err != nil {
		return err
	}
	for i := range consents {
		consents[i].UserID = user.ID
	}
	ur.addConsentsLocked(consents)
	return nil
}

// Consents returns the consents stored for userID.
func (ur *FakeUserRepo) Consents(userID string) []users.Consent {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	var out []users.Consent
	for _, c := range ur.consents {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of stored users.
func (ur *FakeUserRepo) Count() int {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return len(ur.users)
}

func (ur *FakeUserRepo) find(match func(*users.User) bool) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	for _, u := range ur.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func copyUser(u *users.User) *users.User {
	c := *u
	return &c
}
