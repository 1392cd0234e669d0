package service

import (
	"context"
	"testing"

	"github.com/haven-collective/haven/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &BootstrapService{Store: st, Token: "boot-token"}

	plans := []PlanSeed{
		{Name: "starter", MaxMembers: 25, MaxAdmins: 3},
		{Name: "growth", MaxMembers: 250, MaxAdmins: 10, FeatureFlags: []string{"events"}},
	}

	t.Run("wrong token rejected", func(t *testing.T) {
		_, err := svc.Bootstrap(ctx, "nope", "root@example.com", "s3cure-password", plans)
		require.ErrorIs(t, err, ErrBootstrapUnauthorized)
	})

	adminID, err := svc.Bootstrap(ctx, "boot-token", "root@example.com", "s3cure-password", plans)
	require.NoError(t, err)
	require.NotEmpty(t, adminID)

	t.Run("operator seeded as super_admin", func(t *testing.T) {
		user, err := st.Users().GetUserByID(ctx, adminID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleSuperAdmin, user.Role)
	})

	t.Run("plan catalog seeded", func(t *testing.T) {
		got, err := st.Plans().ListPlans(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("second bootstrap rejected", func(t *testing.T) {
		_, err := svc.Bootstrap(ctx, "boot-token", "root2@example.com", "s3cure-password", plans)
		require.ErrorIs(t, err, ErrBootstrapAlready)
	})
}
