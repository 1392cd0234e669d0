package domain

import (
	"strings"
	"time"
)

// Global roles. Tenant-scoped roles live on Membership.
const (
	RoleUser       = "user"
	RoleSuperAdmin = "super_admin"
)

type User struct {
	ID           string
	Email        string // normalized lowercase
	PasswordHash string // argon2 encoded
	Role         string // global role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail trims and lowercases an email for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
