package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/haven-collective/haven/internal/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, ip, user_agent, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, t.IP, t.UserAgent, t.ExpiresAt.UTC(), time.Now().UTC(),
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetByHash(ctx context.Context, hash, userID string) (domain.RefreshToken, error) {
	var (
		t          domain.RefreshToken
		revokedAt  sql.NullTime
		replacedBy sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, ip, user_agent, expires_at, revoked_at, replaced_by_hash, created_at
		FROM refresh_tokens WHERE token_hash = ? AND user_id = ?`, hash, userID,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.IP, &t.UserAgent,
		&t.ExpiresAt, &revokedAt, &replacedBy, &t.CreatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.RevokedAt = mapNullTimePtr(revokedAt)
	t.ReplacedByHash = mapNullStringPtr(replacedBy)
	return t, nil
}

// MarkRotated consumes the old token in one conditional write: it matches
// only an unrevoked, unexpired row, records the revocation time, and links
// forward to the replacement. A replayed (already revoked) token matches
// zero rows and rotation fails.
func (r *refreshTokensRepo) MarkRotated(
	ctx context.Context,
	oldHash, userID, replacedByHash string,
	now time.Time,
) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = ?, replaced_by_hash = ?
		WHERE token_hash = ? AND user_id = ? AND revoked_at IS NULL AND expires_at > ?`,
		now.UTC(), replacedByHash, oldHash, userID, now.UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Revoke is idempotent: zero rows affected is fine.
func (r *refreshTokensRepo) Revoke(ctx context.Context, hash, userID string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = ?
		WHERE token_hash = ? AND user_id = ? AND revoked_at IS NULL`,
		now.UTC(), hash, userID,
	)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
