package service

import (
	"testing"

	"github.com/haven-collective/haven/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestCanPerform(t *testing.T) {
	t.Parallel()

	operator := Actor{UserID: "op", GlobalRole: domain.RoleSuperAdmin}
	owner := Actor{UserID: "o", GlobalRole: domain.RoleUser, Memberships: []domain.Membership{
		{TenantID: "t1", UserID: "o", Role: domain.MemberRoleOwner, Status: domain.MemberStatusActive},
	}}
	admin := Actor{UserID: "a", GlobalRole: domain.RoleUser, Memberships: []domain.Membership{
		{TenantID: "t1", UserID: "a", Role: domain.MemberRoleAdmin, Status: domain.MemberStatusActive},
	}}
	member := Actor{UserID: "m", GlobalRole: domain.RoleUser, Memberships: []domain.Membership{
		{TenantID: "t1", UserID: "m", Role: domain.MemberRoleMember, Status: domain.MemberStatusActive},
	}}
	pending := Actor{UserID: "p", GlobalRole: domain.RoleUser, Memberships: []domain.Membership{
		{TenantID: "t1", UserID: "p", Role: domain.MemberRoleAdmin, Status: domain.MemberStatusPending},
	}}
	outsider := Actor{UserID: "x", GlobalRole: domain.RoleUser}

	t.Run("operator can do everything", func(t *testing.T) {
		require.True(t, CanPerform(operator, ActionLicenseGenerate, ""))
		require.True(t, CanPerform(operator, ActionTenantSuspend, "t1"))
		require.True(t, CanPerform(operator, ActionInviteManage, "t9"))
	})

	t.Run("platform actions are operator only", func(t *testing.T) {
		require.False(t, CanPerform(owner, ActionLicenseGenerate, ""))
		require.False(t, CanPerform(owner, ActionTenantCreate, ""))
		require.False(t, CanPerform(admin, ActionLicenseSuspend, "t1"))
	})

	t.Run("tenant suspend requires owner", func(t *testing.T) {
		require.True(t, CanPerform(owner, ActionTenantSuspend, "t1"))
		require.False(t, CanPerform(admin, ActionTenantSuspend, "t1"))
	})

	t.Run("admin actions require admin or above", func(t *testing.T) {
		require.True(t, CanPerform(owner, ActionInviteManage, "t1"))
		require.True(t, CanPerform(admin, ActionMemberUpdate, "t1"))
		require.False(t, CanPerform(member, ActionMemberUpdate, "t1"))
	})

	t.Run("member listing requires any active membership", func(t *testing.T) {
		require.True(t, CanPerform(member, ActionMemberList, "t1"))
		require.False(t, CanPerform(outsider, ActionMemberList, "t1"))
	})

	t.Run("inactive membership grants nothing", func(t *testing.T) {
		require.False(t, CanPerform(pending, ActionInviteManage, "t1"))
		require.False(t, CanPerform(pending, ActionMemberList, "t1"))
	})

	t.Run("membership in one tenant grants nothing in another", func(t *testing.T) {
		require.False(t, CanPerform(admin, ActionMemberUpdate, "t2"))
	})
}
