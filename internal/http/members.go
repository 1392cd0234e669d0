package http

import (
	"encoding/json"
	"net/http"

	"github.com/haven-collective/haven/internal/domain"
	"github.com/haven-collective/haven/internal/service"
	"github.com/haven-collective/haven/internal/store"
	"github.com/haven-collective/haven/pkg/httpx"
)

type MemberHandler struct {
	MembershipService *service.MembershipService
	Store             store.Store
}

type joinRequest struct {
	InviteToken string `json:"invite_token,omitempty"`
}

// HandleJoin godoc
//
//	@Summary		Tenant Join Endpoint
//	@Description	Join a tenant as the authenticated user. With an invite token the invitation is consumed and the membership
//	@Description	becomes active with the invited role. Without one, the tenant's join policy decides whether the membership
//	@Description	starts pending or active, or whether the join is refused.
//	@Tags			Members
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Tenant ID"
//	@Param			request	body		joinRequest			false	"Join request"
//	@Success		200		{object}	MembershipResponse	"tenant_id, user_id, role, status"
//	@Failure		401		{object}	ErrorResponse		"error, error_description"
//	@Failure		403		{object}	ErrorResponse		"error, error_description"
//	@Failure		409		{object}	ErrorResponse		"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{id}/join [post].
func (h *MemberHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
			return
		}
	}

	m, err := h.MembershipService.Join(r.Context(), httpx.UserIDFromCtx(r.Context()), r.PathValue("id"), req.InviteToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newMembershipResponse(m))
}

// HandleList godoc
//
//	@Summary		Member Listing Endpoint
//	@Description	List the tenant's memberships. Requires an active membership in the tenant.
//	@Tags			Members
//	@Produce		json
//	@Param			id	path		string				true	"Tenant ID"
//	@Success		200	{array}		MembershipResponse	"members"
//	@Failure		403	{object}	ErrorResponse		"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{id}/members [get].
func (h *MemberHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")

	if _, ok := requireTenantAction(w, r, h.Store, service.ActionMemberList, tenantID); !ok {
		return
	}

	members, err := h.MembershipService.ListMembers(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]MembershipResponse, 0, len(members))
	for _, m := range members {
		out = append(out, newMembershipResponse(m))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type updateMemberRequest struct {
	Role   string `json:"role"`
	Status string `json:"status"`
}

// HandleUpdate godoc
//
//	@Summary		Member Update Endpoint
//	@Description	Set a member's role and status directly. This is the admin path for approval, suspension and bans.
//	@Tags			Members
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Tenant ID"
//	@Param			userID	path		string				true	"User ID"
//	@Param			request	body		updateMemberRequest	true	"Member update"
//	@Success		200		{object}	MembershipResponse	"tenant_id, user_id, role, status"
//	@Failure		400		{object}	ErrorResponse		"error, error_description"
//	@Failure		403		{object}	ErrorResponse		"error, error_description"
//	@Failure		404		{object}	ErrorResponse		"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{id}/members/{userID} [patch].
func (h *MemberHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")

	actor, ok := requireTenantAction(w, r, h.Store, service.ActionMemberUpdate, tenantID)
	if !ok {
		return
	}

	var req updateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	m, err := h.MembershipService.UpdateMember(r.Context(), tenantID, r.PathValue("userID"), req.Role, req.Status, actor.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newMembershipResponse(m))
}

type profileRequest struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// HandlePutProfile godoc
//
//	@Summary		Member Profile Endpoint
//	@Description	Create or replace a member's per-tenant profile. Members may only write their own profile; tenant admins may write any.
//	@Tags			Members
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Tenant ID"
//	@Param			userID	path		string			true	"User ID"
//	@Param			request	body		profileRequest	true	"Profile"
//	@Success		200		{object}	ProfileResponse	"tenant_id, user_id, display_name, bio, avatar_url"
//	@Failure		403		{object}	ErrorResponse	"error, error_description"
//	@Failure		404		{object}	ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{id}/members/{userID}/profile [put].
func (h *MemberHandler) HandlePutProfile(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	userID := r.PathValue("userID")

	// Writing someone else's profile requires member-update privilege.
	if httpx.UserIDFromCtx(r.Context()) != userID {
		if _, ok := requireTenantAction(w, r, h.Store, service.ActionMemberUpdate, tenantID); !ok {
			return
		}
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	profile, err := h.MembershipService.UpsertProfile(r.Context(), domain.MemberProfile{
		TenantID:    tenantID,
		UserID:      userID,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newProfileResponse(profile))
}
