package domain

import (
	"regexp"
	"time"
)

const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
)

type Tenant struct {
	ID        string
	Name      string
	Slug      string // unique, lowercase, immutable after creation
	Status    string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TenantSettings is the per-tenant policy consulted by the join flow.
type TenantSettings struct {
	TenantID        string
	PublicSignup    bool
	RequireApproval bool
	UpdatedAt       time.Time
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether s is an acceptable tenant slug: lowercase
// alphanumeric segments joined by single hyphens, 3 to 63 characters.
func ValidSlug(s string) bool {
	if len(s) < 3 || len(s) > 63 {
		return false
	}
	return slugPattern.MatchString(s)
}
