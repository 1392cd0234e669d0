package service

import (
	"context"
	"testing"
	"time"

	"github.com/haven-collective/haven/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestInvite(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &InvitationService{Store: st}

	tenant := seedTenant(t, st, "inv-org", false, true)
	admin := seedUser(t, st, "admin@example.com")

	issued, err := svc.Invite(ctx, tenant.ID, "New@Example.com", "", domain.MemberRoleMember, time.Hour, admin.ID)
	require.NoError(t, err)
	require.NotEmpty(t, issued.RawToken)
	require.Equal(t, "new@example.com", issued.Invitation.Email)
	require.Equal(t, domain.InvitationStatusSent, issued.Invitation.Status)

	t.Run("raw token never stored", func(t *testing.T) {
		require.NotEqual(t, issued.RawToken, issued.Invitation.TokenHash)
	})

	t.Run("live duplicate rejected case-insensitively", func(t *testing.T) {
		_, err := svc.Invite(ctx, tenant.ID, "NEW@example.COM", "", domain.MemberRoleAdmin, time.Hour, admin.ID)
		require.ErrorIs(t, err, ErrInvitationExists)
	})

	t.Run("expired invitation does not block a new one", func(t *testing.T) {
		first, err := svc.Invite(ctx, tenant.ID, "soon@example.com", "", domain.MemberRoleMember, time.Millisecond, admin.ID)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)

		_, err = svc.Invite(ctx, tenant.ID, "soon@example.com", "", domain.MemberRoleMember, time.Hour, admin.ID)
		require.NoError(t, err)
		_ = first
	})

	t.Run("invalid role rejected", func(t *testing.T) {
		_, err := svc.Invite(ctx, tenant.ID, "x@example.com", "", "emperor", time.Hour, admin.ID)
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestResend(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	invites := &InvitationService{Store: st}
	members := &MembershipService{Store: st}

	tenant := seedTenant(t, st, "resend-org", false, true)
	admin := seedUser(t, st, "admin@example.com")

	t.Run("regenerates token and revives a revoked invitation", func(t *testing.T) {
		issued, err := invites.Invite(ctx, tenant.ID, "r@example.com", "", domain.MemberRoleMember, time.Hour, admin.ID)
		require.NoError(t, err)
		require.NoError(t, invites.Revoke(ctx, issued.Invitation.ID, admin.ID))

		reissued, err := invites.Resend(ctx, issued.Invitation.ID, time.Hour, admin.ID)
		require.NoError(t, err)
		require.NotEqual(t, issued.RawToken, reissued.RawToken)
		require.Equal(t, domain.InvitationStatusSent, reissued.Invitation.Status)
		require.Nil(t, reissued.Invitation.RevokedAt)
		require.Nil(t, reissued.Invitation.RevokedByUserID)

		t.Run("old token no longer works", func(t *testing.T) {
			user := seedUser(t, st, "r@example.com")
			_, err := members.Join(ctx, user.ID, tenant.ID, issued.RawToken)
			require.ErrorIs(t, err, ErrInvalidToken)

			m, err := members.Join(ctx, user.ID, tenant.ID, reissued.RawToken)
			require.NoError(t, err)
			require.Equal(t, domain.MemberStatusActive, m.Status)
		})
	})

	t.Run("accepted invitation cannot be resent", func(t *testing.T) {
		user := seedUser(t, st, "done@example.com")
		issued, err := invites.Invite(ctx, tenant.ID, "done@example.com", "", domain.MemberRoleMember, time.Hour, admin.ID)
		require.NoError(t, err)
		_, err = members.Join(ctx, user.ID, tenant.ID, issued.RawToken)
		require.NoError(t, err)

		_, err = invites.Resend(ctx, issued.Invitation.ID, time.Hour, admin.ID)
		require.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("unknown invitation", func(t *testing.T) {
		_, err := invites.Resend(ctx, "missing", time.Hour, admin.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	invites := &InvitationService{Store: st}
	members := &MembershipService{Store: st}

	tenant := seedTenant(t, st, "revoke-org", false, true)
	admin := seedUser(t, st, "admin@example.com")

	t.Run("revoked invite cannot be accepted", func(t *testing.T) {
		user := seedUser(t, st, "v@example.com")
		issued, err := invites.Invite(ctx, tenant.ID, "v@example.com", "", domain.MemberRoleMember, time.Hour, admin.ID)
		require.NoError(t, err)

		require.NoError(t, invites.Revoke(ctx, issued.Invitation.ID, admin.ID))
		// Idempotent on repeat.
		require.NoError(t, invites.Revoke(ctx, issued.Invitation.ID, admin.ID))

		_, err = members.Join(ctx, user.ID, tenant.ID, issued.RawToken)
		require.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("accepted invitation cannot be revoked", func(t *testing.T) {
		user := seedUser(t, st, "w@example.com")
		issued, err := invites.Invite(ctx, tenant.ID, "w@example.com", "", domain.MemberRoleMember, time.Hour, admin.ID)
		require.NoError(t, err)
		_, err = members.Join(ctx, user.ID, tenant.ID, issued.RawToken)
		require.NoError(t, err)

		err = invites.Revoke(ctx, issued.Invitation.ID, admin.ID)
		require.ErrorIs(t, err, ErrForbidden)
	})
}

func TestListDerivesStatusWithoutWriting(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &InvitationService{Store: st}

	tenant := seedTenant(t, st, "list-org", false, true)
	admin := seedUser(t, st, "admin@example.com")

	issued, err := svc.Invite(ctx, tenant.ID, "exp@example.com", "", domain.MemberRoleMember, time.Millisecond, admin.ID)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	views, err := svc.List(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, domain.InvitationStatusExpired, views[0].EffectiveStatus)

	// Unlike license lazy expiry, nothing was written: stored status is
	// still sent.
	stored, err := st.Invitations().GetInvitationByID(ctx, issued.Invitation.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InvitationStatusSent, stored.Status)
}
