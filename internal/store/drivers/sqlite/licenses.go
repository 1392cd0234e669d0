package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/haven-collective/haven/internal/domain"
	"github.com/haven-collective/haven/internal/store"
)

type licensesRepo struct {
	db dbtx
}

const licenseColumns = `id, key, plan_id, status, single_use, expires_at,
	claimed_at, claimed_by_user_id, claimed_tenant_id,
	max_members, max_admins, feature_flags, created_by, created_at, updated_at`

func (r *licensesRepo) CreateLicense(ctx context.Context, l domain.License) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO licenses (id, key, plan_id, status, single_use, expires_at,
			max_members, max_admins, feature_flags, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Key, l.PlanID, l.Status, l.SingleUse, mapOptionalTime(l.ExpiresAt),
		l.Limits.MaxMembers, l.Limits.MaxAdmins, strings.Join(l.Limits.FeatureFlags, " "),
		l.CreatedBy, now, now,
	)
	return mapConstraint(err)
}

func (r *licensesRepo) GetLicenseByID(ctx context.Context, id string) (domain.License, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+licenseColumns+` FROM licenses WHERE id = ?`, id)
	return scanLicense(row)
}

func (r *licensesRepo) GetLicenseByKey(ctx context.Context, key string) (domain.License, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+licenseColumns+` FROM licenses WHERE key = ?`, key)
	return scanLicense(row)
}

func (r *licensesRepo) ListLicenses(ctx context.Context) ([]domain.License, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+licenseColumns+` FROM licenses ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.License
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *licensesRepo) SetStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE licenses SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ExpireIfDue is the lazy-expiry write: a single conditional UPDATE so that
// concurrent readers racing past the expiry produce exactly one transition.
func (r *licensesRepo) ExpireIfDue(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE licenses SET status = ?, updated_at = ?
		WHERE id = ? AND status = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		domain.LicenseStatusExpired, now.UTC(), id, domain.LicenseStatusActive, now.UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkClaimed conditions on claimed_at still being null so a second claim of
// the same license matches zero rows and reports ErrNotFound.
func (r *licensesRepo) MarkClaimed(
	ctx context.Context,
	id, userID, tenantID string,
	limits domain.Limits,
	now time.Time,
) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE licenses
		SET status = ?, claimed_at = ?, claimed_by_user_id = ?, claimed_tenant_id = ?,
			max_members = ?, max_admins = ?, feature_flags = ?, updated_at = ?
		WHERE id = ? AND claimed_at IS NULL`,
		domain.LicenseStatusClaimed, now.UTC(), userID, tenantID,
		limits.MaxMembers, limits.MaxAdmins, strings.Join(limits.FeatureFlags, " "),
		now.UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanLicense(row rowScanner) (domain.License, error) {
	var (
		l              domain.License
		expiresAt      sql.NullTime
		claimedAt      sql.NullTime
		claimedBy      sql.NullString
		claimedTenant  sql.NullString
		flags          string
	)
	err := row.Scan(
		&l.ID, &l.Key, &l.PlanID, &l.Status, &l.SingleUse, &expiresAt,
		&claimedAt, &claimedBy, &claimedTenant,
		&l.Limits.MaxMembers, &l.Limits.MaxAdmins, &flags,
		&l.CreatedBy, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return domain.License{}, mapNotFound(err)
	}
	l.ExpiresAt = mapNullTimePtr(expiresAt)
	l.ClaimedAt = mapNullTimePtr(claimedAt)
	l.ClaimedByUserID = mapNullStringPtr(claimedBy)
	l.ClaimedTenantID = mapNullStringPtr(claimedTenant)
	l.Limits.FeatureFlags = splitAndFilter(flags)
	return l, nil
}
