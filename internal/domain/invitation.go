package domain

import "time"

// Stored invitation statuses. Expired is never persisted; it is derived at
// read time by EffectiveStatus.
const (
	InvitationStatusSent     = "sent"
	InvitationStatusAccepted = "accepted"
	InvitationStatusRevoked  = "revoked"
	InvitationStatusExpired  = "expired" // derived only
)

type Invitation struct {
	ID               string
	TenantID         string
	Email            string // normalized lowercase
	Phone            string
	Role             string
	TokenHash        string // fingerprint of the opaque token, unique
	Status           string // stored: sent, accepted, revoked
	ExpiresAt        time.Time
	InvitedBy        string
	AcceptedByUserID *string
	AcceptedAt       *time.Time
	RevokedByUserID  *string
	RevokedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EffectiveStatus resolves the invitation's visible status at a point in
// time. Terminal stored states win; a sent invitation past its expiry reads
// as expired without any write having occurred.
func (i Invitation) EffectiveStatus(now time.Time) string {
	switch i.Status {
	case InvitationStatusRevoked:
		return InvitationStatusRevoked
	case InvitationStatusAccepted:
		return InvitationStatusAccepted
	}
	if now.After(i.ExpiresAt) {
		return InvitationStatusExpired
	}
	return InvitationStatusSent
}

// IsAcceptable reports whether the invitation can still be consumed.
func (i Invitation) IsAcceptable(now time.Time) bool {
	return i.EffectiveStatus(now) == InvitationStatusSent
}
