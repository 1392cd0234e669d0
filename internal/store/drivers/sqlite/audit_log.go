package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/haven-collective/haven/internal/domain"
)

type auditLogRepo struct {
	db dbtx
}

func (r *auditLogRepo) Append(ctx context.Context, e domain.AuditEntry) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor_user_id, tenant_id, action, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, mapOptionalString(e.ActorUserID), mapOptionalString(e.TenantID),
		e.Action, string(meta), time.Now().UTC(),
	)
	return err
}

func (r *auditLogRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, actor_user_id, tenant_id, action, metadata, created_at
		FROM audit_log WHERE tenant_id = ? ORDER BY created_at DESC LIMIT ?`,
		tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var (
			e     domain.AuditEntry
			actor sql.NullString
			ten   sql.NullString
			meta  string
		)
		if err := rows.Scan(&e.ID, &actor, &ten, &e.Action, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ActorUserID = mapNullStringPtr(actor)
		e.TenantID = mapNullStringPtr(ten)
		if meta != "" {
			_ = json.Unmarshal([]byte(meta), &e.Metadata)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
