package domain

import "time"

type Plan struct {
	ID           string
	Name         string
	MaxMembers   int
	MaxAdmins    int
	FeatureFlags []string // parsed from space-delimited storage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Limits is the entitlement snapshot copied onto a license at generation and
// refreshed at claim. Later plan edits never change an already-issued license.
type Limits struct {
	MaxMembers   int
	MaxAdmins    int
	FeatureFlags []string
}

func (p Plan) Limits() Limits {
	return Limits{
		MaxMembers:   p.MaxMembers,
		MaxAdmins:    p.MaxAdmins,
		FeatureFlags: p.FeatureFlags,
	}
}
