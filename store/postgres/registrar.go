package postgres

import (
	"context"
	"database/sql"

	"github.com/jrsteele09/dietitian-server/auth"
	"github.com/jrsteele09/dietitian-server/organizations"
	"github.com/jrsteele09/dietitian-server/users"
	pkgerrors "github.com/pkg/errors"
)

var _ auth.Registrar = (*Registrar)(nil)

// Registrar inserts an organization, its owner and the owner's consents in one transaction.
type Registrar struct {
	db *sql.DB
}

func (r *Registrar) Register(ctx context.Context, org *organizations.Organization, owner *users.User, consents []users.Consent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "[Registrar.Register] BeginTx")
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertOrganization(ctx, tx, org); err != nil {
		return err
	}
	owner.OrganizationID = org.ID
	if err := insertUser(ctx, tx, owner); err != nil {
		return err
	}
	for i := range consents {
		consents[i].UserID = owner.ID
	}
	if err := insertConsents(ctx, tx, consents); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return pkgerrors.Wrap(err, "[Registrar.Register] Commit")
	}
	return nil
}
