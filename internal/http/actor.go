package http

import (
	"context"
	"net/http"

	"github.com/haven-collective/haven/internal/service"
	"github.com/haven-collective/haven/internal/store"
	"github.com/haven-collective/haven/pkg/httpx"
)

// loadActor assembles the authorization view of the authenticated caller:
// identity and global role from the verified token, tenant memberships from
// the store.
func loadActor(ctx context.Context, st store.Store) (service.Actor, error) {
	userID := httpx.UserIDFromCtx(ctx)
	role := httpx.RoleFromCtx(ctx)

	memberships, err := st.Memberships().ListUserMemberships(ctx, userID)
	if err != nil {
		return service.Actor{}, err
	}

	return service.Actor{
		UserID:      userID,
		GlobalRole:  role,
		Memberships: memberships,
	}, nil
}

// requireTenantAction loads the actor and checks the tenant-scoped action,
// writing the error response itself on failure. Returns the actor and true
// when the caller may proceed.
func requireTenantAction(w http.ResponseWriter, r *http.Request, st store.Store, action, tenantID string) (service.Actor, bool) {
	actor, err := loadActor(r.Context(), st)
	if err != nil {
		writeServiceError(w, r, err)
		return service.Actor{}, false
	}
	if !service.CanPerform(actor, action, tenantID) {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "Insufficient privileges for this tenant")
		return service.Actor{}, false
	}
	return actor, true
}
