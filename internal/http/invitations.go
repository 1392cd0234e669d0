package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/haven-collective/haven/internal/service"
	"github.com/haven-collective/haven/internal/store"
	"github.com/haven-collective/haven/pkg/httpx"
)

type InvitationHandler struct {
	InvitationService *service.InvitationService
	Store             store.Store
}

type inviteRequest struct {
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
	ExpiresIn int64  `json:"expires_in,omitempty"` // seconds, defaults to 7 days
}

// HandleInvite godoc
//
//	@Summary		Invitation Issue Endpoint
//	@Description	Invite an email address to join the tenant with a role. The raw invite token appears only in this response;
//	@Description	only its fingerprint is stored. An email with a live invitation for the tenant cannot be invited again.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Tenant ID"
//	@Param			request	body		inviteRequest		true	"Invite request"
//	@Success		201		{object}	InvitationResponse	"id, email, role, status, token, expires_at"
//	@Failure		400		{object}	ErrorResponse		"error, error_description"
//	@Failure		403		{object}	ErrorResponse		"error, error_description"
//	@Failure		409		{object}	ErrorResponse		"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{id}/invitations [post].
func (h *InvitationHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")

	actor, ok := requireTenantAction(w, r, h.Store, service.ActionInviteManage, tenantID)
	if !ok {
		return
	}

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	issued, err := h.InvitationService.Invite(
		r.Context(),
		tenantID,
		req.Email,
		req.Phone,
		req.Role,
		time.Duration(req.ExpiresIn)*time.Second,
		actor.UserID,
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated,
		newInvitationResponse(issued.Invitation, issued.Invitation.Status, issued.RawToken))
}

// HandleList godoc
//
//	@Summary		Invitation Listing Endpoint
//	@Description	List the tenant's invitations. Statuses are derived at read time: a sent invitation past its expiry reads
//	@Description	as expired without being rewritten. Tokens are never included.
//	@Tags			Invitations
//	@Produce		json
//	@Param			id	path		string				true	"Tenant ID"
//	@Success		200	{array}		InvitationResponse	"invitations"
//	@Failure		403	{object}	ErrorResponse		"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{id}/invitations [get].
func (h *InvitationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")

	if _, ok := requireTenantAction(w, r, h.Store, service.ActionInviteManage, tenantID); !ok {
		return
	}

	views, err := h.InvitationService.List(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]InvitationResponse, 0, len(views))
	for _, v := range views {
		out = append(out, newInvitationResponse(v.Invitation, v.EffectiveStatus, ""))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type resendRequest struct {
	ExpiresIn int64 `json:"expires_in,omitempty"` // seconds, defaults to 7 days
}

// HandleResend godoc
//
//	@Summary		Invitation Resend Endpoint
//	@Description	Reissue an invitation with a fresh token and extended expiry. A revoked or expired invitation becomes
//	@Description	acceptable again; an accepted one is terminal. The old token stops working immediately.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Invitation ID"
//	@Param			request	body		resendRequest		false	"Resend request"
//	@Success		200		{object}	InvitationResponse	"id, email, role, status, token, expires_at"
//	@Failure		403		{object}	ErrorResponse		"error, error_description"
//	@Failure		404		{object}	ErrorResponse		"error, error_description"
//	@Failure		409		{object}	ErrorResponse		"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/invitations/{id}/resend [post].
func (h *InvitationHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	inv, err := h.InvitationService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	actor, ok := requireTenantAction(w, r, h.Store, service.ActionInviteManage, inv.TenantID)
	if !ok {
		return
	}

	var req resendRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
			return
		}
	}

	issued, err := h.InvitationService.Resend(r.Context(), inv.ID, time.Duration(req.ExpiresIn)*time.Second, actor.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK,
		newInvitationResponse(issued.Invitation, issued.Invitation.Status, issued.RawToken))
}

// HandleRevoke godoc
//
//	@Summary		Invitation Revoke Endpoint
//	@Description	Withdraw a pending invitation so its token can no longer be accepted. Revoking an already-revoked
//	@Description	invitation is a no-op; an accepted invitation cannot be revoked.
//	@Tags			Invitations
//	@Param			id	path	string	true	"Invitation ID"
//	@Success		204	"invitation revoked"
//	@Failure		403	{object}	ErrorResponse	"error, error_description"
//	@Failure		404	{object}	ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/invitations/{id}/revoke [post].
func (h *InvitationHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	inv, err := h.InvitationService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	actor, ok := requireTenantAction(w, r, h.Store, service.ActionInviteManage, inv.TenantID)
	if !ok {
		return
	}

	if err := h.InvitationService.Revoke(r.Context(), inv.ID, actor.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
