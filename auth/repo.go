package auth

import (
	"context"

	"github.com/jrsteele09/dietitian-server/organizations"
	"github.com/jrsteele09/dietitian-server/users"
)

// Registrar persists a new organization together with its owner and the owner's consents.
// Either everything is stored or nothing is: an organization without its owner must
// never become visible.
type Registrar interface {
	Register(ctx context.Context, org *organizations.Organization, owner *users.User, consents []users.Consent) error
}
