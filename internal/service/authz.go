package service

import "github.com/haven-collective/haven/internal/domain"

// Actions checked by CanPerform.
const (
	ActionLicenseGenerate = "license.generate"
	ActionLicenseSuspend  = "license.suspend"
	ActionLicenseList     = "license.list"
	ActionTenantCreate    = "tenant.create"
	ActionTenantSuspend   = "tenant.suspend"
	ActionTenantSettings  = "tenant.update_settings"
	ActionMemberUpdate    = "member.update"
	ActionMemberList      = "member.list"
	ActionInviteManage    = "invitation.manage"
)

// Actor is the authorization view of a caller: global role plus tenant
// memberships, assembled per request.
type Actor struct {
	UserID      string
	GlobalRole  string
	Memberships []domain.Membership
}

func (a Actor) membership(tenantID string) (domain.Membership, bool) {
	for _, m := range a.Memberships {
		if m.TenantID == tenantID {
			return m, true
		}
	}
	return domain.Membership{}, false
}

// CanPerform is a pure predicate: no store access, no shared state. Platform
// operators (super_admin) can do everything; tenant-scoped actions otherwise
// require an active membership with sufficient role.
func CanPerform(actor Actor, action, tenantID string) bool {
	if actor.GlobalRole == domain.RoleSuperAdmin {
		return true
	}

	switch action {
	case ActionLicenseGenerate, ActionLicenseSuspend, ActionLicenseList, ActionTenantCreate:
		// Platform-level actions, operator only.
		return false
	}

	m, ok := actor.membership(tenantID)
	if !ok || m.Status != domain.MemberStatusActive {
		return false
	}

	switch action {
	case ActionTenantSuspend:
		return m.Role == domain.MemberRoleOwner
	case ActionTenantSettings, ActionMemberUpdate, ActionInviteManage:
		return m.IsAdmin()
	case ActionMemberList:
		return true
	}
	return false
}
