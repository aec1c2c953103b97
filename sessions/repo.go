package sessions

import "context"

// Repo defines the interface for session storage operations.
// Sessions are invalidated, never deleted.
type Repo interface {
	// Create inserts a new session
	Create(ctx context.Context, session *Session) error

	// GetByRefreshToken returns the session holding refreshToken, valid or not
	GetByRefreshToken(ctx context.Context, refreshToken string) (*Session, error)

	// Update applies a partial update to the session with the given ID
	Update(ctx context.Context, id string, update Update) (*Session, error)

	// InvalidateByRefreshToken marks the user's session holding refreshToken invalid.
	// It is not an error when nothing matches.
	InvalidateByRefreshToken(ctx context.Context, userID, refreshToken string) error

	// InvalidateAllForUser marks every valid session of the user invalid except the one
	// holding exceptRefreshToken (when non-empty) and returns how many were changed
	InvalidateAllForUser(ctx context.Context, userID, exceptRefreshToken string) (int, error)

	// ListValidForUser returns the user's valid sessions, newest first
	ListValidForUser(ctx context.Context, userID string) ([]*Session, error)
}
