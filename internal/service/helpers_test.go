package service

import (
	"context"
	"testing"
	"time"

	"github.com/haven-collective/haven/internal/domain"
	"github.com/haven-collective/haven/internal/store"
	"github.com/haven-collective/haven/internal/store/drivers/sqlite"
	"github.com/haven-collective/haven/pkg/cryptox"
	"github.com/haven-collective/haven/pkg/idx"
	"github.com/haven-collective/haven/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	cryptox.SetPepperPath(t.TempDir() + "/pepper")

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTestSigner(t *testing.T) *jwtx.EdDSASigner {
	t.Helper()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("test-key", pemKey)
	require.NoError(t, err)
	return signer
}

func newAuthService(t *testing.T, st store.Store) *AuthService {
	t.Helper()
	return &AuthService{
		Store:      st,
		Signer:     newTestSigner(t),
		Issuer:     "haven-test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
}

func newClaimsWithoutRole(subject string) jwtx.Claims {
	return jwtx.NewAccessClaims(subject, subject+"@example.com", "", time.Minute, "haven-test", time.Now())
}

func seedUser(t *testing.T, st store.Store, email string) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword("correct horse battery")
	require.NoError(t, err)

	u := domain.User{
		ID:           idx.New().String(),
		Email:        domain.NormalizeEmail(email),
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func seedPlan(t *testing.T, st store.Store, name string, maxMembers int) domain.Plan {
	t.Helper()

	p := domain.Plan{
		ID:           idx.New().String(),
		Name:         name,
		MaxMembers:   maxMembers,
		MaxAdmins:    3,
		FeatureFlags: []string{"events", "resources"},
	}
	require.NoError(t, st.Plans().CreatePlan(context.Background(), p))
	return p
}

func seedTenant(t *testing.T, st store.Store, slug string, publicSignup, requireApproval bool) domain.Tenant {
	t.Helper()
	ctx := context.Background()

	tenant := domain.Tenant{
		ID:        idx.New().String(),
		Name:      slug,
		Slug:      slug,
		Status:    domain.TenantStatusActive,
		CreatedBy: "seed",
	}
	require.NoError(t, st.Tenants().CreateTenant(ctx, tenant))
	require.NoError(t, st.TenantSettings().CreateSettings(ctx, domain.TenantSettings{
		TenantID:        tenant.ID,
		PublicSignup:    publicSignup,
		RequireApproval: requireApproval,
	}))
	return tenant
}
