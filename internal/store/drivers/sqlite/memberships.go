package sqlite

import (
	"context"
	"time"

	"github.com/haven-collective/haven/internal/domain"
)

type membershipsRepo struct {
	db dbtx
}

func (r *membershipsRepo) CreateMembership(ctx context.Context, m domain.Membership) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO memberships (tenant_id, user_id, role, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.TenantID, m.UserID, m.Role, m.Status, now, now,
	)
	return mapConstraint(err)
}

// UpsertMembership is the join-path write: insert-or-update in one statement
// so concurrent joins cannot produce a second row for the same pair.
func (r *membershipsRepo) UpsertMembership(ctx context.Context, m domain.Membership) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO memberships (tenant_id, user_id, role, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, user_id)
		DO UPDATE SET role = excluded.role, status = excluded.status, updated_at = excluded.updated_at`,
		m.TenantID, m.UserID, m.Role, m.Status, now, now,
	)
	return err
}

func (r *membershipsRepo) GetMembership(ctx context.Context, tenantID, userID string) (domain.Membership, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, user_id, role, status, created_at, updated_at
		FROM memberships WHERE tenant_id = ? AND user_id = ?`, tenantID, userID)
	return scanMembership(row)
}

func (r *membershipsRepo) ListMembers(ctx context.Context, tenantID string) ([]domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tenant_id, user_id, role, status, created_at, updated_at
		FROM memberships WHERE tenant_id = ? ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *membershipsRepo) ListUserMemberships(ctx context.Context, userID string) ([]domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tenant_id, user_id, role, status, created_at, updated_at
		FROM memberships WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *membershipsRepo) UpdateMembership(ctx context.Context, tenantID, userID, role, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE memberships SET role = ?, status = ?, updated_at = ?
		WHERE tenant_id = ? AND user_id = ?`,
		role, status, time.Now().UTC(), tenantID, userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanMembership(row rowScanner) (domain.Membership, error) {
	var m domain.Membership
	err := row.Scan(&m.TenantID, &m.UserID, &m.Role, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return domain.Membership{}, mapNotFound(err)
	}
	return m, nil
}

type profilesRepo struct {
	db dbtx
}

func (r *profilesRepo) UpsertProfile(ctx context.Context, p domain.MemberProfile) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO member_profiles (tenant_id, user_id, display_name, bio, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, user_id)
		DO UPDATE SET display_name = excluded.display_name, bio = excluded.bio,
			avatar_url = excluded.avatar_url, updated_at = excluded.updated_at`,
		p.TenantID, p.UserID, p.DisplayName, p.Bio, p.AvatarURL, now, now,
	)
	return err
}

func (r *profilesRepo) GetProfile(ctx context.Context, tenantID, userID string) (domain.MemberProfile, error) {
	var p domain.MemberProfile
	err := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, user_id, display_name, bio, avatar_url, created_at, updated_at
		FROM member_profiles WHERE tenant_id = ? AND user_id = ?`, tenantID, userID,
	).Scan(&p.TenantID, &p.UserID, &p.DisplayName, &p.Bio, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.MemberProfile{}, mapNotFound(err)
	}
	return p, nil
}
