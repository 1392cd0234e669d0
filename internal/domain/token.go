package domain

import "time"

// TokenPair is what credential endpoints return: the signed access token and
// the opaque refresh token, whose raw value is shown exactly once.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string // typically "Bearer"
	ExpiresIn    time.Duration
}

// RefreshToken models the stored refresh token record. Only the fingerprint
// of the raw token is ever persisted.
type RefreshToken struct {
	ID             string
	UserID         string
	TokenHash      string // deterministic fingerprint (base64url SHA-256)
	IP             string
	UserAgent      string
	ExpiresAt      time.Time
	RevokedAt      *time.Time
	ReplacedByHash *string // forward link in the rotation chain
	CreatedAt      time.Time
}

// Usable reports whether the token can still authorize a rotation.
func (t RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
