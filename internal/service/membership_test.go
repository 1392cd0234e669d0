package service

import (
	"context"
	"testing"
	"time"

	"github.com/haven-collective/haven/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestDirectJoin(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &MembershipService{Store: st}

	t.Run("closed tenant rejects direct join", func(t *testing.T) {
		tenant := seedTenant(t, st, "closed-club", false, false)
		user := seedUser(t, st, "a@example.com")

		_, err := svc.Join(ctx, user.ID, tenant.ID, "")
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("approval-required tenant starts pending", func(t *testing.T) {
		tenant := seedTenant(t, st, "careful-org", true, true)
		user := seedUser(t, st, "b@example.com")

		m, err := svc.Join(ctx, user.ID, tenant.ID, "")
		require.NoError(t, err)
		require.Equal(t, domain.MemberStatusPending, m.Status)
		require.Equal(t, domain.MemberRoleMember, m.Role)
	})

	t.Run("open tenant joins active", func(t *testing.T) {
		tenant := seedTenant(t, st, "open-org", true, false)
		user := seedUser(t, st, "c@example.com")

		m, err := svc.Join(ctx, user.ID, tenant.ID, "")
		require.NoError(t, err)
		require.Equal(t, domain.MemberStatusActive, m.Status)
	})

	t.Run("active re-join is idempotent", func(t *testing.T) {
		tenant := seedTenant(t, st, "steady-org", true, false)
		user := seedUser(t, st, "d@example.com")

		first, err := svc.Join(ctx, user.ID, tenant.ID, "")
		require.NoError(t, err)

		again, err := svc.Join(ctx, user.ID, tenant.ID, "")
		require.NoError(t, err)
		require.Equal(t, first.Role, again.Role)
		require.Equal(t, first.Status, again.Status)

		members, err := svc.ListMembers(ctx, tenant.ID)
		require.NoError(t, err)
		require.Len(t, members, 1)
	})

	t.Run("banned member is always blocked", func(t *testing.T) {
		tenant := seedTenant(t, st, "strict-org", true, false)
		user := seedUser(t, st, "e@example.com")

		_, err := svc.Join(ctx, user.ID, tenant.ID, "")
		require.NoError(t, err)

		_, err = svc.UpdateMember(ctx, tenant.ID, user.ID, domain.MemberRoleMember, domain.MemberStatusBanned, "admin")
		require.NoError(t, err)

		_, err = svc.Join(ctx, user.ID, tenant.ID, "")
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		user := seedUser(t, st, "f@example.com")
		_, err := svc.Join(ctx, user.ID, "no-such-tenant", "")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestInviteJoin(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	members := &MembershipService{Store: st}
	invites := &InvitationService{Store: st}

	// Approval required, so invite acceptance overriding policy is visible.
	tenant := seedTenant(t, st, "invite-org", false, true)
	admin := seedUser(t, st, "admin@example.com")

	t.Run("accepted invite activates with invite role despite approval policy", func(t *testing.T) {
		bob := seedUser(t, st, "bob@x.com")

		issued, err := invites.Invite(ctx, tenant.ID, "bob@x.com", "", domain.MemberRoleAdmin, 7*24*time.Hour, admin.ID)
		require.NoError(t, err)

		m, err := members.Join(ctx, bob.ID, tenant.ID, issued.RawToken)
		require.NoError(t, err)
		require.Equal(t, domain.MemberRoleAdmin, m.Role)
		require.Equal(t, domain.MemberStatusActive, m.Status)

		stored, err := st.Invitations().GetInvitationByID(ctx, issued.Invitation.ID)
		require.NoError(t, err)
		require.Equal(t, domain.InvitationStatusAccepted, stored.Status)
		require.Equal(t, bob.ID, *stored.AcceptedByUserID)

		t.Run("second join with the same token fails", func(t *testing.T) {
			carol := seedUser(t, st, "carol@example.com")
			_, err := members.Join(ctx, carol.ID, tenant.ID, issued.RawToken)
			require.Error(t, err)
		})
	})

	t.Run("email match is case-insensitive", func(t *testing.T) {
		// Stored lowercase, account registered with different casing.
		user := seedUser(t, st, "USER@X.com")
		issued, err := invites.Invite(ctx, tenant.ID, "user@x.com", "", domain.MemberRoleMember, time.Hour, admin.ID)
		require.NoError(t, err)

		m, err := members.Join(ctx, user.ID, tenant.ID, issued.RawToken)
		require.NoError(t, err)
		require.Equal(t, domain.MemberStatusActive, m.Status)
	})

	t.Run("email mismatch is forbidden", func(t *testing.T) {
		issued, err := invites.Invite(ctx, tenant.ID, "intended@x.com", "", domain.MemberRoleMember, time.Hour, admin.ID)
		require.NoError(t, err)

		interloper := seedUser(t, st, "other@x.com")
		_, err = members.Join(ctx, interloper.ID, tenant.ID, issued.RawToken)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("expired invite cannot be accepted", func(t *testing.T) {
		user := seedUser(t, st, "late@x.com")
		issued, err := invites.Invite(ctx, tenant.ID, "late@x.com", "", domain.MemberRoleMember, time.Millisecond, admin.ID)
		require.NoError(t, err)

		time.Sleep(5 * time.Millisecond)
		_, err = members.Join(ctx, user.ID, tenant.ID, issued.RawToken)
		require.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("unknown token", func(t *testing.T) {
		user := seedUser(t, st, "g@example.com")
		_, err := members.Join(ctx, user.ID, tenant.ID, "bogus-token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestUpsertProfile(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &MembershipService{Store: st}

	tenant := seedTenant(t, st, "profile-org", true, false)
	user := seedUser(t, st, "p@example.com")

	t.Run("requires membership", func(t *testing.T) {
		_, err := svc.UpsertProfile(ctx, domain.MemberProfile{TenantID: tenant.ID, UserID: user.ID, DisplayName: "P"})
		require.ErrorIs(t, err, ErrNotFound)
	})

	_, err := svc.Join(ctx, user.ID, tenant.ID, "")
	require.NoError(t, err)

	p, err := svc.UpsertProfile(ctx, domain.MemberProfile{TenantID: tenant.ID, UserID: user.ID, DisplayName: "P", Bio: "first"})
	require.NoError(t, err)
	require.Equal(t, "first", p.Bio)

	t.Run("upsert is idempotent on the pair", func(t *testing.T) {
		p, err := svc.UpsertProfile(ctx, domain.MemberProfile{TenantID: tenant.ID, UserID: user.ID, DisplayName: "P", Bio: "second"})
		require.NoError(t, err)
		require.Equal(t, "second", p.Bio)
	})
}
