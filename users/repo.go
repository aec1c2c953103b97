package users

import "context"

// Repo persists users. Lookups return an error of kind NotFound when nothing matches and
// Create returns kind Conflict on a duplicate email or national ID.
type Repo interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByNationalID(ctx context.Context, nationalID string) (*User, error)
	GetByPasswordResetToken(ctx context.Context, tokenHash string) (*User, error)
	GetByEmailVerificationToken(ctx context.Context, tokenHash string) (*User, error)
	Update(ctx context.Context, id string, update Update) (*User, error)
	// IncrementFailedLogins atomically adds one to the failed login counter and returns the new value.
	IncrementFailedLogins(ctx context.Context, id string) (int, error)
	AddConsents(ctx context.Context, consents []Consent) error
}
