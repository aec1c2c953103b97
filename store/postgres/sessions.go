package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jrsteele09/dietitian-server/sessions"
	pkgerrors "github.com/pkg/errors"
)

var _ sessions.Repo = (*SessionRepo)(nil)

const sessionColumns = `id, user_id, refresh_token, access_token, ip_address, user_agent, browser, device, os,
	is_valid, expires_at, last_activity_at, created_at`

type SessionRepo struct {
	db *sql.DB
}

func scanSession(row rowScanner) (*sessions.Session, error) {
	var (
		s                              sessions.Session
		ip, ua, browser, device, osStr sql.NullString
	)
	err := row.Scan(&s.ID, &s.UserID, &s.RefreshToken, &s.AccessToken, &ip, &ua, &browser, &device, &osStr,
		&s.IsValid, &s.ExpiresAt, &s.LastActivityAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.IPAddress, s.UserAgent, s.Browser, s.Device, s.OS = ip.String, ua.String, browser.String, device.String, osStr.String
	return &s, nil
}

func (r *SessionRepo) Create(ctx context.Context, s *sessions.Session) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `insert into sessions (id, user_id, refresh_token, access_token, ip_address,
		user_agent, browser, device, os, is_valid, expires_at, last_activity_at, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.ID, s.UserID, s.RefreshToken, s.AccessToken, s.IPAddress, s.UserAgent, s.Browser, s.Device, s.OS,
		s.IsValid, s.ExpiresAt, s.LastActivityAt, s.CreatedAt)
	return mapError(err, "[SessionRepo.Create]")
}

func (r *SessionRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (*sessions.Session, error) {
	row := r.db.QueryRowContext(ctx, `select `+sessionColumns+` from sessions where refresh_token = $1`, refreshToken)
	s, err := scanSession(row)
	if err != nil {
		return nil, mapError(err, "[SessionRepo.GetByRefreshToken]")
	}
	return s, nil
}

func (r *SessionRepo) Update(ctx context.Context, id string, update sessions.Update) (*sessions.Session, error) {
	b := &updateBuilder{}
	setIf(b, "access_token", update.AccessToken)
	setIf(b, "is_valid", update.IsValid)
	setIf(b, "last_activity_at", update.LastActivityAt)
	if len(b.sets) == 0 {
		return nil, pkgerrors.New("[SessionRepo.Update] empty update")
	}

	query, args := b.build("sessions", id, sessionColumns, false)
	s, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "[SessionRepo.Update]")
	}
	return s, nil
}

func (r *SessionRepo) InvalidateByRefreshToken(ctx context.Context, userID, refreshToken string) error {
	_, err := r.db.ExecContext(ctx,
		`update sessions set is_valid = false where user_id = $1 and refresh_token = $2`, userID, refreshToken)
	return mapError(err, "[SessionRepo.InvalidateByRefreshToken]")
}

func (r *SessionRepo) InvalidateAllForUser(ctx context.Context, userID, exceptRefreshToken string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`update sessions set is_valid = false where user_id = $1 and is_valid and refresh_token <> $2`,
		userID, exceptRefreshToken)
	if err != nil {
		return 0, mapError(err, "[SessionRepo.InvalidateAllForUser]")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, pkgerrors.Wrap(err, "[SessionRepo.InvalidateAllForUser] RowsAffected")
	}
	return int(n), nil
}

func (r *SessionRepo) ListValidForUser(ctx context.Context, userID string) ([]*sessions.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`select `+sessionColumns+` from sessions where user_id = $1 and is_valid order by last_activity_at desc`, userID)
	if err != nil {
		return nil, mapError(err, "[SessionRepo.ListValidForUser]")
	}
	defer rows.Close()

	var list []*sessions.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "[SessionRepo.ListValidForUser] Scan")
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
