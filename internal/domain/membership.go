package domain

import "time"

// Tenant-scoped roles, ordered by privilege.
const (
	MemberRoleOwner     = "owner"
	MemberRoleAdmin     = "admin"
	MemberRoleModerator = "moderator"
	MemberRoleMember    = "member"
)

const (
	MemberStatusPending   = "pending"
	MemberStatusActive    = "active"
	MemberStatusSuspended = "suspended"
	MemberStatusBanned    = "banned"
)

// Membership is the (tenant, user) relation that gates all tenant-scoped
// access. At most one row exists per pair.
type Membership struct {
	TenantID  string
	UserID    string
	Role      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the membership carries admin-or-above privilege.
func (m Membership) IsAdmin() bool {
	return m.Role == MemberRoleOwner || m.Role == MemberRoleAdmin
}

// ValidMemberRole reports whether r is a known tenant role.
func ValidMemberRole(r string) bool {
	switch r {
	case MemberRoleOwner, MemberRoleAdmin, MemberRoleModerator, MemberRoleMember:
		return true
	}
	return false
}

// ValidMemberStatus reports whether s is a known membership status.
func ValidMemberStatus(s string) bool {
	switch s {
	case MemberStatusPending, MemberStatusActive, MemberStatusSuspended, MemberStatusBanned:
		return true
	}
	return false
}

// MemberProfile holds the per-tenant display profile, keyed like Membership.
type MemberProfile struct {
	TenantID    string
	UserID      string
	DisplayName string
	Bio         string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
