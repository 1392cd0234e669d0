package store

import (
	"context"
	"errors"
	"time"

	"github.com/haven-collective/haven/internal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and to stop callers from accidentally nesting transactions.
type Store interface {
	Users() Users
	Plans() Plans
	Licenses() Licenses
	Tenants() Tenants
	TenantSettings() TenantSettingsRepo
	Memberships() Memberships
	Profiles() Profiles
	Invitations() Invitations
	RefreshTokens() RefreshTokens
	AuditLog() AuditLog

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to run multi-step operations that must be atomic
	// (license claim, refresh rotation, invite acceptance).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists if the normalized email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches case-insensitively against the stored email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// UpdateRole changes the user's global role.
	UpdateRole(ctx context.Context, userID, role string) error

	// IsEmpty returns true if there are no users (bootstrap guard).
	IsEmpty(ctx context.Context) (bool, error)
}

type Plans interface {
	CreatePlan(ctx context.Context, p domain.Plan) error
	GetPlanByID(ctx context.Context, id string) (domain.Plan, error)
	ListPlans(ctx context.Context) ([]domain.Plan, error)
}

type Licenses interface {
	CreateLicense(ctx context.Context, l domain.License) error
	GetLicenseByID(ctx context.Context, id string) (domain.License, error)

	// GetLicenseByKey expects the canonical (uppercase) key.
	GetLicenseByKey(ctx context.Context, key string) (domain.License, error)

	ListLicenses(ctx context.Context) ([]domain.License, error)

	// SetStatus writes the status directly (administrative suspend).
	SetStatus(ctx context.Context, id, status string) error

	// ExpireIfDue transitions an active license past its expiry to expired
	// in a single conditional write. Returns true if the row transitioned.
	ExpireIfDue(ctx context.Context, id string, now time.Time) (bool, error)

	// MarkClaimed consumes the license: sets status claimed, claimant and
	// tenant linkage, and the refreshed limits snapshot. The write is
	// conditional on claimed_at still being null, which closes the
	// double-claim race. Returns ErrNotFound if no row matched.
	MarkClaimed(ctx context.Context, id, userID, tenantID string, limits domain.Limits, now time.Time) error
}

type Tenants interface {
	// CreateTenant returns ErrAlreadyExists on a slug collision.
	CreateTenant(ctx context.Context, t domain.Tenant) error

	GetTenantByID(ctx context.Context, id string) (domain.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (domain.Tenant, error)
	ListTenants(ctx context.Context) ([]domain.Tenant, error)
	SetStatus(ctx context.Context, id, status string) error
}

type TenantSettingsRepo interface {
	CreateSettings(ctx context.Context, s domain.TenantSettings) error
	GetSettings(ctx context.Context, tenantID string) (domain.TenantSettings, error)
	UpdateSettings(ctx context.Context, s domain.TenantSettings) error
}

type Memberships interface {
	// CreateMembership inserts a new row; ErrAlreadyExists on a duplicate pair.
	CreateMembership(ctx context.Context, m domain.Membership) error

	// UpsertMembership inserts or updates the (tenant, user) row atomically.
	// Used by join paths so concurrent joins cannot create duplicate pairs.
	UpsertMembership(ctx context.Context, m domain.Membership) error

	GetMembership(ctx context.Context, tenantID, userID string) (domain.Membership, error)
	ListMembers(ctx context.Context, tenantID string) ([]domain.Membership, error)
	ListUserMemberships(ctx context.Context, userID string) ([]domain.Membership, error)

	// UpdateMembership sets role and status directly (admin path).
	UpdateMembership(ctx context.Context, tenantID, userID, role, status string) error
}

type Profiles interface {
	// UpsertProfile inserts or updates the profile keyed on (tenant, user).
	UpsertProfile(ctx context.Context, p domain.MemberProfile) error

	GetProfile(ctx context.Context, tenantID, userID string) (domain.MemberProfile, error)
}

type Invitations interface {
	// CreateInvitation stores a new invitation (token_hash unique).
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error)
	GetInvitationByTokenHash(ctx context.Context, hash string) (domain.Invitation, error)

	// FindLiveInvitation returns a stored-sent, unexpired invitation for the
	// (tenant, email) pair, or ErrNotFound.
	FindLiveInvitation(ctx context.Context, tenantID, email string, now time.Time) (domain.Invitation, error)

	ListInvitations(ctx context.Context, tenantID string) ([]domain.Invitation, error)

	// MarkAccepted flips a sent invitation to accepted. Conditional on the
	// stored status still being sent; returns ErrNotFound otherwise, which
	// makes acceptance single-consumption under concurrency.
	MarkAccepted(ctx context.Context, id, userID string, now time.Time) error

	// MarkRevoked flips a sent invitation to revoked, conditionally.
	MarkRevoked(ctx context.Context, id, userID string, now time.Time) error

	// ResetForResend regenerates the invitation in place: new token hash,
	// status back to sent, revocation fields cleared, expiry extended.
	// Conditional on the stored status not being accepted.
	ResetForResend(ctx context.Context, id, newTokenHash string, expiresAt time.Time) error
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetByHash looks up the token by fingerprint, scoped to the user.
	GetByHash(ctx context.Context, hash, userID string) (domain.RefreshToken, error)

	// MarkRotated revokes the old row and records the forward link to its
	// replacement in one conditional write: it matches only an unrevoked,
	// unexpired row for the user. Returns true if the row was consumed.
	MarkRotated(ctx context.Context, oldHash, userID, replacedByHash string, now time.Time) (bool, error)

	// Revoke is idempotent: no-op when the row is absent or already revoked.
	Revoke(ctx context.Context, hash, userID string, now time.Time) error

	// DeleteExpiredBefore removes rows whose expiry is older than the cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type AuditLog interface {
	Append(ctx context.Context, e domain.AuditEntry) error
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]domain.AuditEntry, error)
}
