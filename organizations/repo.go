package organizations

import "context"

type Repo interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id string) (*Organization, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*Organization, error)
	GetByCustomDomain(ctx context.Context, domain string) (*Organization, error)
	Update(ctx context.Context, id string, update Update) (*Organization, error)
	// IncrementUsage atomically adds delta (which may be negative) to a usage counter,
	// clamping the result at zero.
	IncrementUsage(ctx context.Context, id string, resource Resource, delta int) error
}
