package repofakes

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/dietitian-server/internal/errors"
	"github.com/jrsteele09/dietitian-server/internal/utils"
	"github.com/jrsteele09/dietitian-server/organizations"
)

var _ organizations.Repo = (*FakeOrganizationRepo)(nil)

type FakeOrganizationRepo struct {
	orgs    map[string]*organizations.Organization
	nowTime func() time.Time
	lock    sync.RWMutex
}

func NewFakeOrganizationRepo() *FakeOrganizationRepo {
	return &FakeOrganizationRepo{
		orgs:    make(map[string]*organizations.Organization),
		nowTime: time.Now,
	}
}

func (or *FakeOrganizationRepo) Create(_ context.Context, org *organizations.Organization) error {
	or.lock.Lock()
	defer or.lock.Unlock()
	return or.createLocked(org)
}

func (or *FakeOrganizationRepo) createLocked(org *organizations.Organization) error {
	if err := or.conflictLocked(org.Subdomain, org.CustomDomain); err != nil {
		return err
	}
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	now := or.nowTime()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = now

	stored := *org
	or.orgs[org.ID] = &stored
	return nil
}

func (or *FakeOrganizationRepo) conflictLocked(subdomain string, customDomain *string) error {
	for _, o := range or.orgs {
		if o.Subdomain == subdomain {
			return apperrors.Wrap(apperrors.KindConflict, apperrors.ErrConflict, "Subdomain is already taken")
		}
		if customDomain != nil && utils.Value(o.CustomDomain) == *customDomain {
			return apperrors.Wrap(apperrors.KindConflict, apperrors.ErrConflict, "Custom domain is already taken")
		}
	}
	return nil
}

// Conflicts reports the conflict error Create would return for org, without inserting it.
func (or *FakeOrganizationRepo) Conflicts(org *organizations.Organization) error {
	or.lock.RLock()
	defer or.lock.RUnlock()
	return or.conflictLocked(org.Subdomain, org.CustomDomain)
}

// Remove deletes an organization. Only used to undo a failed registration.
func (or *FakeOrganizationRepo) Remove(id string) {
	or.lock.Lock()
	defer or.lock.Unlock()
	delete(or.orgs, id)
}

func (or *FakeOrganizationRepo) GetByID(_ context.Context, id string) (*organizations.Organization, error) {
	or.lock.RLock()
	defer or.lock.RUnlock()
	o, ok := or.orgs[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *o
	return &c, nil
}

func (or *FakeOrganizationRepo) GetBySubdomain(_ context.Context, subdomain string) (*organizations.Organization, error) {
	return or.find(func(o *organizations.Organization) bool { return o.Subdomain == subdomain })
}

func (or *FakeOrganizationRepo) GetByCustomDomain(_ context.Context, domain string) (*organizations.Organization, error) {
	return or.find(func(o *organizations.Organization) bool {
		return domain != "" && utils.Value(o.CustomDomain) == domain
	})
}

func (or *FakeOrganizationRepo) Update(_ context.Context, id string, update organizations.Update) (*organizations.Organization, error) {
	or.lock.Lock()
	defer or.lock.Unlock()
	o, ok := or.orgs[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	update.Apply(o)
	o.UpdatedAt = or.nowTime()
	c := *o
	return &c, nil
}

func (or *FakeOrganizationRepo) IncrementUsage(_ context.Context, id string, resource organizations.Resource, delta int) error {
	or.lock.Lock()
	defer or.lock.Unlock()
	o, ok := or.orgs[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	o.AddUsage(resource, delta)
	return nil
}

// Count returns the number of stored organizations.
func (or *FakeOrganizationRepo) Count() int {
	or.lock.RLock()
	defer or.lock.RUnlock()
	return len(or.orgs)
}

func (or *FakeOrganizationRepo) find(match func(*organizations.Organization) bool) (*organizations.Organization, error) {
	or.lock.RLock()
	defer or.lock.RUnlock()
	for _, o := range or.orgs {
		if match(o) {
			c := *o
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}
