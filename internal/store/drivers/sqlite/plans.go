package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/haven-collective/haven/internal/domain"
)

type plansRepo struct {
	db dbtx
}

func (r *plansRepo) CreatePlan(ctx context.Context, p domain.Plan) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO plans (id, name, max_members, max_admins, feature_flags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.MaxMembers, p.MaxAdmins, strings.Join(p.FeatureFlags, " "), now, now,
	)
	return mapConstraint(err)
}

func (r *plansRepo) GetPlanByID(ctx context.Context, id string) (domain.Plan, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, max_members, max_admins, feature_flags, created_at, updated_at
		FROM plans WHERE id = ?`, id)
	return scanPlan(row)
}

func (r *plansRepo) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, max_members, max_admins, feature_flags, created_at, updated_at
		FROM plans ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPlan(row rowScanner) (domain.Plan, error) {
	var (
		p     domain.Plan
		flags string
	)
	err := row.Scan(&p.ID, &p.Name, &p.MaxMembers, &p.MaxAdmins, &flags, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Plan{}, mapNotFound(err)
	}
	p.FeatureFlags = splitAndFilter(flags)
	return p, nil
}
