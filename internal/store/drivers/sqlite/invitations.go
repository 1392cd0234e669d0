package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/haven-collective/haven/internal/domain"
)

type invitationsRepo struct {
	db dbtx
}

const invitationColumns = `id, tenant_id, email, phone, role, token_hash, status,
	expires_at, invited_by, accepted_by_user_id, accepted_at,
	revoked_by_user_id, revoked_at, created_at, updated_at`

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invitations (id, tenant_id, email, phone, role, token_hash, status,
			expires_at, invited_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.TenantID, inv.Email, inv.Phone, inv.Role, inv.TokenHash, inv.Status,
		inv.ExpiresAt.UTC(), inv.InvitedBy, now, now,
	)
	return mapConstraint(err)
}

func (r *invitationsRepo) GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id)
	return scanInvitation(row)
}

func (r *invitationsRepo) GetInvitationByTokenHash(ctx context.Context, hash string) (domain.Invitation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE token_hash = ?`, hash)
	return scanInvitation(row)
}

// FindLiveInvitation matches the stored-sent, unexpired invitation for a
// (tenant, email) pair. The email column is COLLATE NOCASE.
func (r *invitationsRepo) FindLiveInvitation(
	ctx context.Context,
	tenantID, email string,
	now time.Time,
) (domain.Invitation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations
		WHERE tenant_id = ? AND email = ? AND status = ? AND expires_at > ?
		ORDER BY created_at DESC LIMIT 1`,
		tenantID, email, domain.InvitationStatusSent, now.UTC())
	return scanInvitation(row)
}

func (r *invitationsRepo) ListInvitations(ctx context.Context, tenantID string) ([]domain.Invitation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations
		WHERE tenant_id = ? ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// MarkAccepted conditions on status = 'sent' so acceptance consumes the
// invitation exactly once under concurrent joins.
func (r *invitationsRepo) MarkAccepted(ctx context.Context, id, userID string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invitations
		SET status = ?, accepted_by_user_id = ?, accepted_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		domain.InvitationStatusAccepted, userID, now.UTC(), now.UTC(),
		id, domain.InvitationStatusSent,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *invitationsRepo) MarkRevoked(ctx context.Context, id, userID string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invitations
		SET status = ?, revoked_by_user_id = ?, revoked_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		domain.InvitationStatusRevoked, userID, now.UTC(), now.UTC(),
		id, domain.InvitationStatusSent,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ResetForResend reissues the invitation in place. Accepted invitations are
// terminal, hence the status condition.
func (r *invitationsRepo) ResetForResend(ctx context.Context, id, newTokenHash string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invitations
		SET token_hash = ?, status = ?, expires_at = ?,
			revoked_by_user_id = NULL, revoked_at = NULL, updated_at = ?
		WHERE id = ? AND status != ?`,
		newTokenHash, domain.InvitationStatusSent, expiresAt.UTC(), time.Now().UTC(),
		id, domain.InvitationStatusAccepted,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanInvitation(row rowScanner) (domain.Invitation, error) {
	var (
		inv        domain.Invitation
		acceptedBy sql.NullString
		acceptedAt sql.NullTime
		revokedBy  sql.NullString
		revokedAt  sql.NullTime
	)
	err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.Email, &inv.Phone, &inv.Role, &inv.TokenHash, &inv.Status,
		&inv.ExpiresAt, &inv.InvitedBy, &acceptedBy, &acceptedAt,
		&revokedBy, &revokedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	inv.AcceptedByUserID = mapNullStringPtr(acceptedBy)
	inv.AcceptedAt = mapNullTimePtr(acceptedAt)
	inv.RevokedByUserID = mapNullStringPtr(revokedBy)
	inv.RevokedAt = mapNullTimePtr(revokedAt)
	return inv, nil
}
