package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jrsteele09/dietitian-server/users"
	pkgerrors "github.com/pkg/errors"
)

var _ users.Repo = (*UserRepo)(nil)

const userColumns = `id, email, national_id, password_hash, first_name, last_name, role, organization_id,
	is_active, email_verified, failed_login_attempts, locked_until, password_reset_token,
	password_reset_expires, email_verification_token, email_verification_expires, last_login_at,
	password_changed_at, created_at, updated_at`

type UserRepo struct {
	db *sql.DB
}

func scanUser(row rowScanner) (*users.User, error) {
	var (
		u          users.User
		nationalID sql.NullString
		orgID      sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &nationalID, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &orgID,
		&u.IsActive, &u.EmailVerified, &u.FailedLoginAttempts, &u.LockedUntil, &u.PasswordResetToken,
		&u.PasswordResetExpires, &u.EmailVerificationToken, &u.EmailVerificationExpires, &u.LastLoginAt,
		&u.PasswordChangedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.NationalID = nationalID.String
	u.OrganizationID = orgID.String
	return &u, nil
}

func insertUser(ctx context.Context, db execer, u *users.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	_, err := db.ExecContext(ctx, `insert into users (id, email, national_id, password_hash, first_name, last_name,
		role, organization_id, is_active, email_verified, email_verification_token, email_verification_expires,
		password_changed_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		u.ID, u.Email, nullString(u.NationalID), u.PasswordHash, u.FirstName, u.LastName,
		string(u.Role), nullString(u.OrganizationID), u.IsActive, u.EmailVerified, u.EmailVerificationToken,
		u.EmailVerificationExpires, u.PasswordChangedAt)
	return mapError(err, "[insertUser]")
}

func insertConsents(ctx context.Context, db execer, consents []users.Consent) error {
	for i := range consents {
		c := &consents[i]
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if _, err := db.ExecContext(ctx, `insert into consents (id, user_id, type, version, accepted, ip_address, accepted_at)
			values ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, c.UserID, string(c.Type), c.Version, c.Accepted, c.IPAddress, c.AcceptedAt); err != nil {
			return mapError(err, "[insertConsents]")
		}
	}
	return nil
}

func (r *UserRepo) Create(ctx context.Context, user *users.User) error {
	return insertUser(ctx, r.db, user)
}

func (r *UserRepo) getBy(ctx context.Context, column, value string) (*users.User, error) {
	row := r.db.QueryRowContext(ctx, `select `+userColumns+` from users where `+column+` = $1`, value)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapError(err, "[UserRepo.getBy] "+column)
	}
	return u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *UserRepo) GetByNationalID(ctx context.Context, nationalID string) (*users.User, error) {
	return r.getBy(ctx, "national_id", nationalID)
}

func (r *UserRepo) GetByPasswordResetToken(ctx context.Context, tokenHash string) (*users.User, error) {
	return r.getBy(ctx, "password_reset_token", tokenHash)
}

func (r *UserRepo) GetByEmailVerificationToken(ctx context.Context, tokenHash string) (*users.User, error) {
	return r.getBy(ctx, "email_verification_token", tokenHash)
}

func (r *UserRepo) Update(ctx context.Context, id string, update users.Update) (*users.User, error) {
	if update.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	b := &updateBuilder{}
	setIf(b, "password_hash", update.PasswordHash)
	setIf(b, "first_name", update.FirstName)
	setIf(b, "last_name", update.LastName)
	setIf(b, "is_active", update.IsActive)
	setIf(b, "email_verified", update.EmailVerified)
	setIf(b, "failed_login_attempts", update.FailedLoginAttempts)
	setIf(b, "locked_until", update.LockedUntil)
	setIf(b, "password_reset_token", update.PasswordResetToken)
	setIf(b, "password_reset_expires", update.PasswordResetExpires)
	setIf(b, "email_verification_token", update.EmailVerificationToken)
	setIf(b, "email_verification_expires", update.EmailVerificationExpires)
	setIf(b, "last_login_at", update.LastLoginAt)
	setIf(b, "password_changed_at", update.PasswordChangedAt)

	query, args := b.build("users", id, userColumns, true)
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "[UserRepo.Update]")
	}
	return u, nil
}

func (r *UserRepo) IncrementFailedLogins(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx,
		`update users set failed_login_attempts = failed_login_attempts + 1, updated_at = now()
		where id = $1 returning failed_login_attempts`, id).Scan(&attempts)
	if err != nil {
		return 0, mapError(err, "[UserRepo.IncrementFailedLogins]")
	}
	return attempts, nil
}

func (r *UserRepo) AddConsents(ctx context.Context, consents []users.Consent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "[UserRepo.AddConsents] BeginTx")
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertConsents(ctx, tx, consents); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return pkgerrors.Wrap(err, "[UserRepo.AddConsents] Commit")
	}
	return nil
}
