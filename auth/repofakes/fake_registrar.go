package repofakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/dietitian-server/auth"
	apperrors "github.com/jrsteele09/dietitian-server/internal/errors"
	"github.com/jrsteele09/dietitian-server/organizations"
	orgfakes "github.com/jrsteele09/dietitian-server/organizations/repofakes"
	"github.com/jrsteele09/dietitian-server/users"
	"github.com/jrsteele09/dietitian-server/users/repofake"
)

var _ auth.Registrar = (*FakeRegistrar)(nil)

// FakeRegistrar registers an organization and its owner across the in-memory repos.
// Conflicts are checked before anything is written so a rejected registration leaves
// both repos untouched.
type FakeRegistrar struct {
	orgs  *orgfakes.FakeOrganizationRepo
	users *repofake.FakeUserRepo
	lock  sync.Mutex
}

func NewFakeRegistrar(orgs *orgfakes.FakeOrganizationRepo, users *repofake.FakeUserRepo) *FakeRegistrar {
	return &FakeRegistrar{orgs: orgs, users: users}
}

func (fr *FakeRegistrar) Register(ctx context.Context, org *organizations.Organization, owner *users.User, consents []users.Consent) error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	if err := fr.orgs.Conflicts(org); err != nil {
		return err
	}
	if fr.users.Exists(owner.Email, owner.NationalID) {
		return apperrors.Wrap(apperrors.KindConflict, apperrors.ErrConflict, "Email or national ID is already registered")
	}

	if err := fr.orgs.Create(ctx, org); err != nil {
		return err
	}
	owner.OrganizationID = org.ID
	if err := fr.users.CreateWithConsents(owner, consents); err != nil {
		fr.orgs.Remove(org.ID)
		return err
	}
	return nil
}
