// Package postgres implements the repositories on PostgreSQL through the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	apperrors "github.com/jrsteele09/dietitian-server/internal/errors"
	"github.com/jrsteele09/dietitian-server/internal/utils"
	pkgerrors "github.com/pkg/errors"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// Store owns the connection pool shared by the repositories.
type Store struct {
	db *sql.DB
}

// Open connects to dsn with pool settings suited to a small API server.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[postgres.Open]")
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing pool.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates any missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return pkgerrors.Wrapf(err, "[Store.Migrate] %.40s", stmt)
		}
	}
	return nil
}

func (s *Store) Users() *UserRepo                 { return &UserRepo{db: s.db} }
func (s *Store) Organizations() *OrganizationRepo { return &OrganizationRepo{db: s.db} }
func (s *Store) Sessions() *SessionRepo           { return &SessionRepo{db: s.db} }
func (s *Store) Registrar() *Registrar            { return &Registrar{db: s.db} }
func (s *Store) AuditSink() *AuditSink            { return &AuditSink{db: s.db} }

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// mapError converts driver errors into the application's error kinds.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperrors.Wrap(apperrors.KindConflict, apperrors.ErrConflict, conflictMessage(pgErr.ConstraintName))
	}
	return pkgerrors.Wrap(err, op)
}

func conflictMessage(constraint string) string {
	switch {
	case strings.Contains(constraint, "email"):
		return "Email is already registered"
	case strings.Contains(constraint, "national_id"):
		return "National ID is already registered"
	case strings.Contains(constraint, "subdomain"):
		return "Subdomain is already taken"
	case strings.Contains(constraint, "custom_domain"):
		return "Custom domain is already taken"
	}
	return "Resource already exists"
}

// updateBuilder accumulates "column = $n" assignments for a partial update.
type updateBuilder struct {
	sets []string
	args []any
}

func (b *updateBuilder) add(column string, value any) {
	b.args = append(b.args, value)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

func setIf[T any](b *updateBuilder, column string, o utils.Optional[T]) {
	if v, ok := o.Get(); ok {
		b.add(column, v)
	}
}

// build returns "update <table> set ..., updated_at = now() where id = $n returning <columns>".
func (b *updateBuilder) build(table, id, returning string, touch bool) (string, []any) {
	sets := b.sets
	if touch {
		sets = append(sets, "updated_at = now()")
	}
	args := append(b.args, id)
	return fmt.Sprintf("update %s set %s where id = $%d returning %s",
		table, strings.Join(sets, ", "), len(args), returning), args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
