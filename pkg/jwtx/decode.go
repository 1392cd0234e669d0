package jwtx

import (
	"github.com/golang-jwt/jwt/v5"
)

// DecodeUnverified extracts the claims from a compact JWT WITHOUT verifying
// its signature or expiry.
//
// This exists for exactly one caller: the token-refresh flow, which trusts
// the presented access token only structurally (to recover subject, email
// and role) and relies on possession of a live refresh token as the actual
// authority check. Never use this for trust decisions.
func DecodeUnverified(tokenStr string) (Claims, error) {
	parser := jwt.NewParser()

	var claims Claims
	if _, _, err := parser.ParseUnverified(tokenStr, &claims); err != nil {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}
