package sqlite

import (
	"context"
	"database/sql"

	"github.com/haven-collective/haven/internal/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // nothing to close; caller will commit/rollback and outer DB stays open

// Ping is a no-op for transactions. The connection is already established
// when the transaction is created.
func (t *txStore) Ping(ctx context.Context) error {
	return nil
}

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users                       { return &usersRepo{db: t.tx} }
func (t *txStore) Plans() store.Plans                       { return &plansRepo{db: t.tx} }
func (t *txStore) Licenses() store.Licenses                 { return &licensesRepo{db: t.tx} }
func (t *txStore) Tenants() store.Tenants                   { return &tenantsRepo{db: t.tx} }
func (t *txStore) TenantSettings() store.TenantSettingsRepo { return &tenantSettingsRepo{db: t.tx} }
func (t *txStore) Memberships() store.Memberships           { return &membershipsRepo{db: t.tx} }
func (t *txStore) Profiles() store.Profiles                 { return &profilesRepo{db: t.tx} }
func (t *txStore) Invitations() store.Invitations           { return &invitationsRepo{db: t.tx} }
func (t *txStore) RefreshTokens() store.RefreshTokens       { return &refreshTokensRepo{db: t.tx} }
func (t *txStore) AuditLog() store.AuditLog                 { return &auditLogRepo{db: t.tx} }

func (t *txStore) ApplyMigrations() error { return nil } // no-op; migrations should be applied before starting a tx
