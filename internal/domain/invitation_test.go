package domain_test

import (
	"testing"
	"time"

	"github.com/haven-collective/haven/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestInvitationEffectiveStatus(t *testing.T) {
	now := time.Now()

	t.Run("sent and unexpired reads as sent", func(t *testing.T) {
		inv := domain.Invitation{Status: domain.InvitationStatusSent, ExpiresAt: now.Add(time.Hour)}
		require.Equal(t, domain.InvitationStatusSent, inv.EffectiveStatus(now))
		require.True(t, inv.IsAcceptable(now))
	})

	t.Run("sent past expiry reads as expired", func(t *testing.T) {
		inv := domain.Invitation{Status: domain.InvitationStatusSent, ExpiresAt: now.Add(-time.Minute)}
		require.Equal(t, domain.InvitationStatusExpired, inv.EffectiveStatus(now))
		require.False(t, inv.IsAcceptable(now))
		// Stored status is untouched: expiry is a pure read-time view.
		require.Equal(t, domain.InvitationStatusSent, inv.Status)
	})

	t.Run("terminal stored states win over expiry", func(t *testing.T) {
		accepted := domain.Invitation{Status: domain.InvitationStatusAccepted, ExpiresAt: now.Add(-time.Hour)}
		require.Equal(t, domain.InvitationStatusAccepted, accepted.EffectiveStatus(now))

		revoked := domain.Invitation{Status: domain.InvitationStatusRevoked, ExpiresAt: now.Add(time.Hour)}
		require.Equal(t, domain.InvitationStatusRevoked, revoked.EffectiveStatus(now))
	})
}

func TestLicenseClaimAndExpiry(t *testing.T) {
	now := time.Now()

	claimed := now.Add(-time.Hour)
	lic := domain.License{Status: domain.LicenseStatusActive, ClaimedAt: &claimed}
	require.True(t, lic.IsClaimed())

	exp := now.Add(-time.Minute)
	expired := domain.License{Status: domain.LicenseStatusActive, ExpiresAt: &exp}
	require.True(t, expired.IsExpiredAt(now))
	require.False(t, domain.License{Status: domain.LicenseStatusActive}.IsExpiredAt(now))
}

func TestValidSlug(t *testing.T) {
	require.True(t, domain.ValidSlug("acme"))
	require.True(t, domain.ValidSlug("acme-corp-2"))
	require.False(t, domain.ValidSlug("ab"))
	require.False(t, domain.ValidSlug("Acme"))
	require.False(t, domain.ValidSlug("-acme"))
	require.False(t, domain.ValidSlug("acme--corp"))
}
