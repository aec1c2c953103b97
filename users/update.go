package users

import (
	"time"

	"github.com/jrsteele09/dietitian-server/internal/utils"
)

// Update is a partial update of a User. Only fields that are set are written; a set pointer
// field holding nil clears the stored value.
type Update struct {
	PasswordHash             utils.Optional[string]
	FirstName                utils.Optional[string]
	LastName                 utils.Optional[string]
	IsActive                 utils.Optional[bool]
	EmailVerified            utils.Optional[bool]
	FailedLoginAttempts      utils.Optional[int]
	LockedUntil              utils.Optional[*time.Time]
	PasswordResetToken       utils.Optional[*string]
	PasswordResetExpires     utils.Optional[*time.Time]
	EmailVerificationToken   utils.Optional[*string]
	EmailVerificationExpires utils.Optional[*time.Time]
	LastLoginAt              utils.Optional[*time.Time]
	PasswordChangedAt        utils.Optional[*time.Time]
}

func (up Update) IsEmpty() bool {
	return !up.PasswordHash.IsSet() &&
		!up.FirstName.IsSet() &&
		!up.LastName.IsSet() &&
		!up.IsActive.IsSet() &&
		!up.EmailVerified.IsSet() &&
		!up.FailedLoginAttempts.IsSet() &&
		!up.LockedUntil.IsSet() &&
		!up.PasswordResetToken.IsSet() &&
		!up.PasswordResetExpires.IsSet() &&
		!up.EmailVerificationToken.IsSet() &&
		!up.EmailVerificationExpires.IsSet() &&
		!up.LastLoginAt.IsSet() &&
		!up.PasswordChangedAt.IsSet()
}

// Apply copies the set fields onto u.
func (up Update) Apply(u *User) {
	up.PasswordHash.ApplyTo(&u.PasswordHash)
	up.FirstName.ApplyTo(&u.FirstName)
	up.LastName.ApplyTo(&u.LastName)
	up.IsActive.ApplyTo(&u.IsActive)
	up.EmailVerified.ApplyTo(&u.EmailVerified)
	up.FailedLoginAttempts.ApplyTo(&u.FailedLoginAttempts)
	up.LockedUntil.ApplyTo(&u.LockedUntil)
	up.PasswordResetToken.ApplyTo(&u.PasswordResetToken)
	up.PasswordResetExpires.ApplyTo(&u.PasswordResetExpires)
	up.EmailVerificationToken.ApplyTo(&u.EmailVerificationToken)
	up.EmailVerificationExpires.ApplyTo(&u.EmailVerificationExpires)
	up.LastLoginAt.ApplyTo(&u.LastLoginAt)
	up.PasswordChangedAt.ApplyTo(&u.PasswordChangedAt)
}
