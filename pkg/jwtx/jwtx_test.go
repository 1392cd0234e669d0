package jwtx_test

import (
	"testing"
	"time"

	"github.com/haven-collective/haven/pkg/cryptox"
	"github.com/haven-collective/haven/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newSigner(t *testing.T) *jwtx.EdDSASigner {
	t.Helper()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	signer, err := jwtx.NewSignerEdDSA("test-key", pemKey)
	require.NoError(t, err)
	return signer
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	signer := newSigner(t)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	verifier := jwtx.NewVerifierEdDSA(keys, "haven-test")

	claims := jwtx.NewAccessClaims(
		"user-1", "alice@example.com", "user",
		time.Hour, "haven-test", time.Now(),
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "alice@example.com", got.Email)
	require.Equal(t, "user", got.Role)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	signer := newSigner(t)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	verifier := jwtx.NewVerifierEdDSA(keys, "expected-issuer")

	claims := jwtx.NewAccessClaims("u", "u@x.com", "user", time.Hour, "other-issuer", time.Now())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()

	signer := newSigner(t)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	verifier := jwtx.NewVerifierEdDSA(keys, "haven-test")

	claims := jwtx.NewAccessClaims("u", "u@x.com", "user", time.Hour, "haven-test", time.Now().Add(-2*time.Hour))
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsUnknownKID(t *testing.T) {
	t.Parallel()

	signer := newSigner(t)
	// Key set that never saw this signer's public key.
	verifier := jwtx.NewVerifierEdDSA(jwtx.NewKeySet(), "haven-test")

	token, err := signer.Sign(jwtx.NewAccessClaims("u", "u@x.com", "user", time.Hour, "haven-test", time.Now()))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestDecodeUnverified(t *testing.T) {
	t.Parallel()

	signer := newSigner(t)

	// Expired token still decodes: refresh relies on this.
	claims := jwtx.NewAccessClaims("user-9", "bob@x.com", "super_admin", time.Minute, "haven-test", time.Now().Add(-time.Hour))
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := jwtx.DecodeUnverified(token)
	require.NoError(t, err)
	require.Equal(t, "user-9", got.Subject)
	require.Equal(t, "bob@x.com", got.Email)
	require.Equal(t, "super_admin", got.Role)

	_, err = jwtx.DecodeUnverified("garbage")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}
