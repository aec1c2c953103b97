package entitlements

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/dietitian-server/internal/errors"
	"github.com/jrsteele09/dietitian-server/internal/utils"
	"github.com/jrsteele09/dietitian-server/organizations"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// UsageStatus is the result of a usage limit check.
type UsageStatus struct {
	Exceeded bool `json:"exceeded"`
	Current  int  `json:"current"`
	Max      int  `json:"max"`
}

// Resolver enforces plan features, organization status and usage quotas.
type Resolver struct {
	orgs    organizations.Repo
	nowTime func() time.Time
}

type Option func(*Resolver)

func WithNowTime(now func() time.Time) Option {
	return func(r *Resolver) {
		r.nowTime = now
	}
}

func NewResolver(orgs organizations.Repo, options ...Option) *Resolver {
	r := &Resolver{orgs: orgs, nowTime: time.Now}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *Resolver) load(ctx context.Context, organizationID string) (*organizations.Organization, error) {
	org, err := r.orgs.GetByID(ctx, organizationID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil, apperrors.Wrap(apperrors.KindNotFound, err, "Organization not found")
		}
		return nil, errors.Wrap(err, "[Resolver] GetByID")
	}
	return org, nil
}

// CheckAccess fails when the organization is suspended, cancelled or past its trial.
func (r *Resolver) CheckAccess(org *organizations.Organization) error {
	if org.Status.Inactive() {
		return apperrors.ErrOrganizationInactive
	}
	if org.TrialExpired(r.nowTime()) {
		return apperrors.ErrTrialExpired
	}
	return nil
}

// RequireFeature fails unless the organization is usable and its plan includes feature.
func (r *Resolver) RequireFeature(ctx context.Context, organizationID, feature string) error {
	org, err := r.load(ctx, organizationID)
	if err != nil {
		return err
	}
	if err := r.CheckAccess(org); err != nil {
		return err
	}
	if !HasFeature(org.Plan, feature) {
		return apperrors.Wrap(apperrors.KindForbidden, apperrors.ErrFeatureNotAvailable,
			fmt.Sprintf("Feature %q is not available on the %s plan", feature, org.Plan))
	}
	return nil
}

// CheckUsageLimit reads the counter for resource. The aiQueries counter is reset, and
// reported as not exceeded, once a full month has passed since its last reset.
func (r *Resolver) CheckUsageLimit(ctx context.Context, organizationID string, resource organizations.Resource) (UsageStatus, error) {
	if !resource.Valid() {
		return UsageStatus{}, apperrors.Validation("Unknown resource type", map[string]string{"resource": string(resource)})
	}
	org, err := r.load(ctx, organizationID)
	if err != nil {
		return UsageStatus{}, err
	}

	if resource == organizations.ResourceAIQueries {
		now := r.nowTime()
		if fullMonthElapsed(org.AIQueriesResetAt, now) {
			if _, err := r.orgs.Update(ctx, org.ID, organizations.Update{
				CurrentAIQueries: utils.Set(0),
				AIQueriesResetAt: utils.Set(now),
			}); err != nil {
				return UsageStatus{}, errors.Wrap(err, "[Resolver.CheckUsageLimit] reset ai queries")
			}
			return UsageStatus{Exceeded: false, Current: 0, Max: org.MaxAIQueries}, nil
		}
	}

	usage := org.Usage(resource)
	return UsageStatus{Exceeded: usage.Exceeded(), Current: usage.Current, Max: usage.Max}, nil
}

// CheckAndIncrementUsage adds amount to the counter unless it is already at its limit.
// The check and the increment are separate store operations, so concurrent callers may
// briefly overshoot the limit.
func (r *Resolver) CheckAndIncrementUsage(ctx context.Context, organizationID string, resource organizations.Resource, amount int) error {
	if amount <= 0 {
		amount = 1
	}
	status, err := r.CheckUsageLimit(ctx, organizationID, resource)
	if err != nil {
		return err
	}
	if status.Exceeded {
		return apperrors.Wrap(apperrors.KindForbidden, apperrors.ErrUsageLimitExceeded,
			fmt.Sprintf("Usage limit reached for %s (%d/%d)", resource, status.Current, status.Max))
	}
	if err := r.orgs.IncrementUsage(ctx, organizationID, resource, amount); err != nil {
		return errors.Wrap(err, "[Resolver.CheckAndIncrementUsage] IncrementUsage")
	}
	return nil
}

// DecrementUsage releases amount from the counter when a counted resource is removed.
// Counters never drop below zero. Failures are logged, never returned.
func (r *Resolver) DecrementUsage(ctx context.Context, organizationID string, resource organizations.Resource, amount int) {
	if amount <= 0 {
		amount = 1
	}
	if err := r.orgs.IncrementUsage(ctx, organizationID, resource, -amount); err != nil {
		log.Err(err).
			Str("organizationId", organizationID).
			Str("resource", string(resource)).
			Msg("failed to decrement usage")
	}
}

// IsTrialExpired is true only for a TRIAL organization whose trial end has passed.
func (r *Resolver) IsTrialExpired(ctx context.Context, organizationID string) (bool, error) {
	org, err := r.load(ctx, organizationID)
	if err != nil {
		return false, err
	}
	return org.TrialExpired(r.nowTime()), nil
}

// fullMonthElapsed reports whether at least one whole calendar month separates from and to.
func fullMonthElapsed(from, to time.Time) bool {
	if from.IsZero() {
		return true
	}
	return !to.Before(from.AddDate(0, 1, 0))
}
