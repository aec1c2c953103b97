package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/dietitian-server/internal/errors"
	"github.com/jrsteele09/dietitian-server/organizations"
	pkgerrors "github.com/pkg/errors"
)

var _ organizations.Repo = (*OrganizationRepo)(nil)

const organizationColumns = `id, name, subdomain, custom_domain, custom_domain_verified, status, plan, trial_ends_at,
	current_users, max_users, current_patients, max_patients, current_storage_mb, max_storage_mb,
	current_ai_queries, max_ai_queries, ai_queries_reset_at, created_at, updated_at`

// usageColumns whitelists the counter column per resource.
var usageColumns = map[organizations.Resource]string{
	organizations.ResourceUsers:     "current_users",
	organizations.ResourcePatients:  "current_patients",
	organizations.ResourceStorage:   "current_storage_mb",
	organizations.ResourceAIQueries: "current_ai_queries",
}

type OrganizationRepo struct {
	db *sql.DB
}

func scanOrganization(row rowScanner) (*organizations.Organization, error) {
	var o organizations.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Subdomain, &o.CustomDomain, &o.CustomDomainVerified, &o.Status, &o.Plan,
		&o.TrialEndsAt, &o.CurrentUsers, &o.MaxUsers, &o.CurrentPatients, &o.MaxPatients, &o.CurrentStorageMB,
		&o.MaxStorageMB, &o.CurrentAIQueries, &o.MaxAIQueries, &o.AIQueriesResetAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func insertOrganization(ctx context.Context, db execer, o *organizations.Organization) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	_, err := db.ExecContext(ctx, `insert into organizations (id, name, subdomain, custom_domain, status, plan,
		trial_ends_at, current_users, max_users, current_patients, max_patients, current_storage_mb, max_storage_mb,
		current_ai_queries, max_ai_queries, ai_queries_reset_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		o.ID, o.Name, o.Subdomain, o.CustomDomain, string(o.Status), string(o.Plan), o.TrialEndsAt,
		o.CurrentUsers, o.MaxUsers, o.CurrentPatients, o.MaxPatients, o.CurrentStorageMB, o.MaxStorageMB,
		o.CurrentAIQueries, o.MaxAIQueries, o.AIQueriesResetAt)
	return mapError(err, "[insertOrganization]")
}

func (r *OrganizationRepo) Create(ctx context.Context, org *organizations.Organization) error {
	return insertOrganization(ctx, r.db, org)
}

func (r *OrganizationRepo) getBy(ctx context.Context, column, value string) (*organizations.Organization, error) {
	row := r.db.QueryRowContext(ctx, `select `+organizationColumns+` from organizations where `+column+` = $1`, value)
	o, err := scanOrganization(row)
	if err != nil {
		return nil, mapError(err, "[OrganizationRepo.getBy] "+column)
	}
	return o, nil
}

func (r *OrganizationRepo) GetByID(ctx context.Context, id string) (*organizations.Organization, error) {
	return r.getBy(ctx, "id", id)
}

func (r *OrganizationRepo) GetBySubdomain(ctx context.Context, subdomain string) (*organizations.Organization, error) {
	return r.getBy(ctx, "subdomain", subdomain)
}

func (r *OrganizationRepo) GetByCustomDomain(ctx context.Context, domain string) (*organizations.Organization, error) {
	return r.getBy(ctx, "custom_domain", domain)
}

func (r *OrganizationRepo) Update(ctx context.Context, id string, update organizations.Update) (*organizations.Organization, error) {
	if update.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	b := &updateBuilder{}
	setIf(b, "name", update.Name)
	setIf(b, "custom_domain", update.CustomDomain)
	setIf(b, "custom_domain_verified", update.CustomDomainVerified)
	setIf(b, "status", update.Status)
	setIf(b, "trial_ends_at", update.TrialEndsAt)
	setIf(b, "current_ai_queries", update.CurrentAIQueries)
	setIf(b, "ai_queries_reset_at", update.AIQueriesResetAt)
	if plan, ok := update.Plan.Get(); ok {
		limits := organizations.LimitsFor(plan)
		b.add("plan", string(plan))
		b.add("max_users", limits.Users)
		b.add("max_patients", limits.Patients)
		b.add("max_storage_mb", limits.StorageMB)
		b.add("max_ai_queries", limits.AIQueries)
	}

	query, args := b.build("organizations", id, organizationColumns, true)
	o, err := scanOrganization(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "[OrganizationRepo.Update]")
	}
	return o, nil
}

func (r *OrganizationRepo) IncrementUsage(ctx context.Context, id string, resource organizations.Resource, delta int) error {
	column, ok := usageColumns[resource]
	if !ok {
		return apperrors.Validation("Unknown usage resource", map[string]string{"resource": string(resource)})
	}
	res, err := r.db.ExecContext(ctx,
		`update organizations set `+column+` = greatest(`+column+` + $2, 0), updated_at = now() where id = $1`,
		id, delta)
	if err != nil {
		return mapError(err, "[OrganizationRepo.IncrementUsage]")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.Wrap(err, "[OrganizationRepo.IncrementUsage] RowsAffected")
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
