package domain

import "time"

const (
	LicenseStatusActive    = "active"
	LicenseStatusSuspended = "suspended"
	LicenseStatusExpired   = "expired"
	LicenseStatusClaimed   = "claimed"
)

// LicenseKeyPrefix is the human-visible prefix on every issued key.
const LicenseKeyPrefix = "HVN"

type License struct {
	ID              string
	Key             string // canonical uppercase, unique
	PlanID          string
	Status          string
	SingleUse       bool
	ExpiresAt       *time.Time
	ClaimedAt       *time.Time
	ClaimedByUserID *string
	ClaimedTenantID *string
	Limits          Limits // snapshot, refreshed at claim
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsClaimed reports whether the license has ever been consumed. A non-null
// claimed_at blocks further claims regardless of status drift.
func (l License) IsClaimed() bool {
	return l.ClaimedAt != nil
}

// IsExpiredAt reports whether an active license is past its expiry. The
// persisted transition to expired happens lazily on read, not here.
func (l License) IsExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}
