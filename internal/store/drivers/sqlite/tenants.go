package sqlite

import (
	"context"
	"time"

	"github.com/haven-collective/haven/internal/domain"
)

type tenantsRepo struct {
	db dbtx
}

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant) error {
	now := time.Now().UTC()
	// The UNIQUE constraint on slug resolves concurrent same-slug creation:
	// the loser surfaces ErrAlreadyExists.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, slug, status, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Slug, t.Status, t.CreatedBy, now, now,
	)
	return mapConstraint(err)
}

func (r *tenantsRepo) GetTenantByID(ctx context.Context, id string) (domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, slug, status, created_by, created_at, updated_at
		FROM tenants WHERE id = ?`, id)
	return scanTenant(row)
}

func (r *tenantsRepo) GetTenantBySlug(ctx context.Context, slug string) (domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, slug, status, created_by, created_at, updated_at
		FROM tenants WHERE slug = ?`, slug)
	return scanTenant(row)
}

func (r *tenantsRepo) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, slug, status, created_by, created_at, updated_at
		FROM tenants ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *tenantsRepo) SetStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tenants SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanTenant(row rowScanner) (domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Status, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Tenant{}, mapNotFound(err)
	}
	return t, nil
}

type tenantSettingsRepo struct {
	db dbtx
}

func (r *tenantSettingsRepo) CreateSettings(ctx context.Context, s domain.TenantSettings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenant_settings (tenant_id, public_signup, require_approval, updated_at)
		VALUES (?, ?, ?, ?)`,
		s.TenantID, s.PublicSignup, s.RequireApproval, time.Now().UTC(),
	)
	return mapConstraint(err)
}

func (r *tenantSettingsRepo) GetSettings(ctx context.Context, tenantID string) (domain.TenantSettings, error) {
	var s domain.TenantSettings
	err := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, public_signup, require_approval, updated_at
		FROM tenant_settings WHERE tenant_id = ?`, tenantID,
	).Scan(&s.TenantID, &s.PublicSignup, &s.RequireApproval, &s.UpdatedAt)
	if err != nil {
		return domain.TenantSettings{}, mapNotFound(err)
	}
	return s, nil
}

func (r *tenantSettingsRepo) UpdateSettings(ctx context.Context, s domain.TenantSettings) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tenant_settings SET public_signup = ?, require_approval = ?, updated_at = ?
		WHERE tenant_id = ?`,
		s.PublicSignup, s.RequireApproval, time.Now().UTC(), s.TenantID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}
