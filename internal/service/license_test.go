package service

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/haven-collective/haven/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestGenerateLicense(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &LicenseService{Store: st}

	plan := seedPlan(t, st, "starter", 25)
	admin := seedUser(t, st, "ops@example.com")

	t.Run("unknown plan", func(t *testing.T) {
		_, err := svc.Generate(ctx, "no-such-plan", true, nil, admin.ID)
		require.ErrorIs(t, err, ErrPlanNotFound)
	})

	lic, err := svc.Generate(ctx, plan.ID, true, nil, admin.ID)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^HVN(-[0-9A-F]{4}){5}$`), lic.Key)
	require.Equal(t, domain.LicenseStatusActive, lic.Status)
	require.True(t, lic.SingleUse)

	t.Run("limits snapshot copied from plan", func(t *testing.T) {
		require.Equal(t, 25, lic.Limits.MaxMembers)
		require.Equal(t, plan.FeatureFlags, lic.Limits.FeatureFlags)
	})
}

func TestVerifyLicense(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &LicenseService{Store: st}

	plan := seedPlan(t, st, "starter", 25)
	admin := seedUser(t, st, "ops@example.com")

	lic, err := svc.Generate(ctx, plan.ID, true, nil, admin.ID)
	require.NoError(t, err)

	t.Run("canonicalizes the key", func(t *testing.T) {
		got, err := svc.Verify(ctx, "  "+strings.ToLower(lic.Key)+"  ")
		require.NoError(t, err)
		require.Equal(t, lic.ID, got.License.ID)
		require.Equal(t, 25, got.Limits.MaxMembers)
		require.Equal(t, plan.ID, got.Plan.ID)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := svc.Verify(ctx, "HVN-0000-0000-0000-0000-0000")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("suspended reads as invalid", func(t *testing.T) {
		suspended, err := svc.Generate(ctx, plan.ID, true, nil, admin.ID)
		require.NoError(t, err)
		_, err = svc.Suspend(ctx, suspended.ID, admin.ID)
		require.NoError(t, err)

		_, err = svc.Verify(ctx, suspended.Key)
		require.ErrorIs(t, err, ErrLicenseInvalid)
	})

	t.Run("lazy expiry persists the transition", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		expiring, err := svc.Generate(ctx, plan.ID, true, &past, admin.ID)
		require.NoError(t, err)

		_, err = svc.Verify(ctx, expiring.Key)
		require.ErrorIs(t, err, ErrLicenseExpired)

		// The write happened: the stored row is now expired.
		stored, err := st.Licenses().GetLicenseByID(ctx, expiring.ID)
		require.NoError(t, err)
		require.Equal(t, domain.LicenseStatusExpired, stored.Status)
	})
}

func TestClaimLicense(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &LicenseService{Store: st}

	plan := seedPlan(t, st, "starter", 25)
	admin := seedUser(t, st, "ops@example.com")
	alice := seedUser(t, st, "alice@example.com")

	lic, err := svc.Generate(ctx, plan.ID, true, nil, admin.ID)
	require.NoError(t, err)

	tenant, err := svc.Claim(ctx, lic.Key, alice.ID, TenantDraft{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)
	require.Equal(t, "acme", tenant.Slug)
	require.Equal(t, domain.TenantStatusActive, tenant.Status)

	t.Run("owner membership created active", func(t *testing.T) {
		m, err := st.Memberships().GetMembership(ctx, tenant.ID, alice.ID)
		require.NoError(t, err)
		require.Equal(t, domain.MemberRoleOwner, m.Role)
		require.Equal(t, domain.MemberStatusActive, m.Status)
	})

	t.Run("license marked claimed with linkage", func(t *testing.T) {
		stored, err := st.Licenses().GetLicenseByID(ctx, lic.ID)
		require.NoError(t, err)
		require.Equal(t, domain.LicenseStatusClaimed, stored.Status)
		require.NotNil(t, stored.ClaimedAt)
		require.Equal(t, alice.ID, *stored.ClaimedByUserID)
		require.Equal(t, tenant.ID, *stored.ClaimedTenantID)
		require.Equal(t, 25, stored.Limits.MaxMembers)
	})

	t.Run("second claim fails and creates no tenant", func(t *testing.T) {
		before, err := st.Tenants().ListTenants(ctx)
		require.NoError(t, err)

		_, err = svc.Claim(ctx, lic.Key, alice.ID, TenantDraft{Name: "Again", Slug: "acme-two"})
		require.ErrorIs(t, err, ErrLicenseClaimed)

		after, err := st.Tenants().ListTenants(ctx)
		require.NoError(t, err)
		require.Len(t, after, len(before))
	})

	t.Run("verify of a claimed license reads as invalid", func(t *testing.T) {
		_, err := svc.Verify(ctx, lic.Key)
		require.ErrorIs(t, err, ErrLicenseInvalid)
	})

	t.Run("slug collision rolls back and preserves the license", func(t *testing.T) {
		second, err := svc.Generate(ctx, plan.ID, true, nil, admin.ID)
		require.NoError(t, err)

		_, err = svc.Claim(ctx, second.Key, alice.ID, TenantDraft{Name: "Other Acme", Slug: "acme"})
		require.ErrorIs(t, err, ErrSlugExists)

		// Claim failed, so the license must still be consumable.
		stored, err := st.Licenses().GetLicenseByID(ctx, second.ID)
		require.NoError(t, err)
		require.Nil(t, stored.ClaimedAt)
		require.Equal(t, domain.LicenseStatusActive, stored.Status)
	})

	t.Run("expired license cannot claim", func(t *testing.T) {
		past := time.Now().Add(-time.Minute)
		expired, err := svc.Generate(ctx, plan.ID, true, &past, admin.ID)
		require.NoError(t, err)

		_, err = svc.Claim(ctx, expired.Key, alice.ID, TenantDraft{Name: "Late", Slug: "late-co"})
		require.ErrorIs(t, err, ErrLicenseExpired)
	})

	t.Run("invalid slug rejected before any write", func(t *testing.T) {
		third, err := svc.Generate(ctx, plan.ID, true, nil, admin.ID)
		require.NoError(t, err)

		_, err = svc.Claim(ctx, third.Key, alice.ID, TenantDraft{Name: "Bad", Slug: "Not A Slug"})
		require.ErrorIs(t, err, ErrValidation)
	})
}
