package service

import (
	"context"
	"testing"
	"time"

	"github.com/haven-collective/haven/internal/domain"
	"github.com/haven-collective/haven/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newAuthService(t, st)

	user, err := svc.Register(ctx, "  Alice@Example.COM ", "s3cure-password")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, domain.RoleUser, user.Role)

	t.Run("duplicate email fails regardless of case", func(t *testing.T) {
		_, err := svc.Register(ctx, "ALICE@example.com", "another-password")
		require.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("wrong password always fails", func(t *testing.T) {
		_, _, err := svc.Authenticate(ctx, "alice@example.com", "wrong-password", SessionMeta{})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email fails the same way", func(t *testing.T) {
		_, _, err := svc.Authenticate(ctx, "nobody@example.com", "s3cure-password", SessionMeta{})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("correct password issues a pair", func(t *testing.T) {
		got, pair, err := svc.Authenticate(ctx, "alice@example.com", "s3cure-password", SessionMeta{IP: "10.0.0.1", UserAgent: "test"})
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
		require.Equal(t, "Bearer", pair.TokenType)
	})
}

func TestRefreshRotationIsSingleUse(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newAuthService(t, st)

	_, err := svc.Register(ctx, "bob@example.com", "s3cure-password")
	require.NoError(t, err)
	_, pair, err := svc.Authenticate(ctx, "bob@example.com", "s3cure-password", SessionMeta{})
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken, SessionMeta{})
	require.NoError(t, err)
	require.NotEmpty(t, next.RefreshToken)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	t.Run("replay of the rotated token fails", func(t *testing.T) {
		_, err := svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken, SessionMeta{})
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rotation records the forward link", func(t *testing.T) {
		user, err := st.Users().GetUserByEmail(ctx, "bob@example.com")
		require.NoError(t, err)

		old, err := st.RefreshTokens().GetByHash(ctx, cryptox.FingerprintToken(pair.RefreshToken), user.ID)
		require.NoError(t, err)
		require.NotNil(t, old.RevokedAt)
		require.NotNil(t, old.ReplacedByHash)
		require.Equal(t, cryptox.FingerprintToken(next.RefreshToken), *old.ReplacedByHash)
	})

	t.Run("the replacement still rotates", func(t *testing.T) {
		_, err := svc.Refresh(ctx, pair.AccessToken, next.RefreshToken, SessionMeta{})
		require.NoError(t, err)
	})
}

func TestRefreshRequiresStructuralClaims(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newAuthService(t, st)

	_, err := svc.Register(ctx, "carol@example.com", "s3cure-password")
	require.NoError(t, err)
	_, pair, err := svc.Authenticate(ctx, "carol@example.com", "s3cure-password", SessionMeta{})
	require.NoError(t, err)

	t.Run("garbage access token", func(t *testing.T) {
		_, err := svc.Refresh(ctx, "not-a-jwt", pair.RefreshToken, SessionMeta{})
		require.ErrorIs(t, err, ErrInvalidTokenPayload)
	})

	t.Run("payload missing role", func(t *testing.T) {
		// Structurally valid JWT whose claims lack the role field.
		signer := newTestSigner(t)
		token, err := signer.Sign(newClaimsWithoutRole("carol"))
		require.NoError(t, err)

		_, err = svc.Refresh(ctx, token, pair.RefreshToken, SessionMeta{})
		require.ErrorIs(t, err, ErrInvalidTokenPayload)
	})
}

func TestLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newAuthService(t, st)

	user, err := svc.Register(ctx, "dave@example.com", "s3cure-password")
	require.NoError(t, err)
	_, pair, err := svc.Authenticate(ctx, "dave@example.com", "s3cure-password", SessionMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.RefreshToken, user.ID))
	require.NoError(t, svc.Logout(ctx, pair.RefreshToken, user.ID))
	require.NoError(t, svc.Logout(ctx, "never-issued", user.ID))

	t.Run("revoked token cannot rotate", func(t *testing.T) {
		_, err := svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken, SessionMeta{})
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("stored record reads as unusable", func(t *testing.T) {
		rec, err := st.RefreshTokens().GetByHash(ctx, cryptox.FingerprintToken(pair.RefreshToken), user.ID)
		require.NoError(t, err)
		require.False(t, rec.Usable(time.Now()))
	})
}
