package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/haven-collective/haven/internal/domain"
	"github.com/haven-collective/haven/internal/service"
	"github.com/haven-collective/haven/internal/store"
	"github.com/haven-collective/haven/pkg/httpx"
)

type TenantHandler struct {
	TenantService *service.TenantService
	Store         store.Store
}

type createTenantRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// HandleCreate godoc
//
//	@Summary		Tenant Creation Endpoint
//	@Description	Provision a tenant directly, outside the license flow. The caller becomes the owner. Operator-only;
//	@Description	regular users provision tenants by claiming a license.
//	@Tags			Tenants
//	@Accept			json
//	@Produce		json
//	@Param			request	body		createTenantRequest	true	"Tenant request"
//	@Success		201		{object}	TenantResponse		"id, name, slug, status"
//	@Failure		400		{object}	ErrorResponse		"error, error_description"
//	@Failure		409		{object}	ErrorResponse		"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/tenants [post].
func (h *TenantHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	tenant, err := h.TenantService.Create(r.Context(), req.Name, req.Slug, httpx.UserIDFromCtx(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, newTenantResponse(tenant))
}

// HandleList godoc
//
//	@Summary		Tenant Listing Endpoint
//	@Description	List all tenants, newest first. Operator-only.
//	@Tags			Tenants
//	@Produce		json
//	@Success		200	{array}		TenantResponse	"tenants"
//	@Failure		401	{object}	ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/tenants [get].
func (h *TenantHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.TenantService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]TenantResponse, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, newTenantResponse(t))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type tenantDetailResponse struct {
	TenantResponse
	Settings SettingsResponse `json:"settings"`
}

// HandleGet godoc
//
//	@Summary		Tenant Detail Endpoint
//	@Description	Fetch a tenant and its join policy settings.
//	@Tags			Tenants
//	@Produce		json
//	@Param			id	path		string					true	"Tenant ID"
//	@Success		200	{object}	tenantDetailResponse	"tenant plus settings"
//	@Failure		404	{object}	ErrorResponse			"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{id} [get].
func (h *TenantHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tenant, settings, err := h.TenantService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tenantDetailResponse{
		TenantResponse: newTenantResponse(tenant),
		Settings:       newSettingsResponse(settings),
	})
}

type updateSettingsRequest struct {
	PublicSignup    *bool `json:"public_signup,omitempty"`
	RequireApproval *bool `json:"require_approval,omitempty"`
}

// HandleUpdateSettings godoc
//
//	@Summary		Tenant Settings Endpoint
//	@Description	Patch the tenant's join policy. Omitted fields keep their current value. Requires tenant admin.
//	@Tags			Tenants
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Tenant ID"
//	@Param			request	body		updateSettingsRequest	true	"Settings patch"
//	@Success		200		{object}	SettingsResponse		"public_signup, require_approval"
//	@Failure		403		{object}	ErrorResponse			"error, error_description"
//	@Failure		404		{object}	ErrorResponse			"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{id}/settings [patch].
func (h *TenantHandler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")

	actor, ok := requireTenantAction(w, r, h.Store, service.ActionTenantSettings, tenantID)
	if !ok {
		return
	}

	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	_, current, err := h.TenantService.Get(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	publicSignup := current.PublicSignup
	if req.PublicSignup != nil {
		publicSignup = *req.PublicSignup
	}
	requireApproval := current.RequireApproval
	if req.RequireApproval != nil {
		requireApproval = *req.RequireApproval
	}

	settings, err := h.TenantService.UpdateSettings(r.Context(), tenantID, publicSignup, requireApproval, actor.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newSettingsResponse(settings))
}

// HandleSuspend godoc
//
//	@Summary		Tenant Suspension Endpoint
//	@Description	Suspend a tenant, blocking joins and member activity. Requires the tenant owner or a platform operator.
//	@Tags			Tenants
//	@Produce		json
//	@Param			id	path		string			true	"Tenant ID"
//	@Success		200	{object}	TenantResponse	"id, name, slug, status"
//	@Failure		403	{object}	ErrorResponse	"error, error_description"
//	@Failure		404	{object}	ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{id}/suspend [post].
func (h *TenantHandler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")

	actor, ok := requireTenantAction(w, r, h.Store, service.ActionTenantSuspend, tenantID)
	if !ok {
		return
	}

	tenant, err := h.TenantService.Suspend(r.Context(), tenantID, actor.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newTenantResponse(tenant))
}

// AuditEntryResponse is one row of a tenant's audit trail.
type AuditEntryResponse struct {
	ID          string         `json:"id"`
	ActorUserID *string        `json:"actor_user_id,omitempty"`
	Action      string         `json:"action"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func newAuditEntryResponse(e domain.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:          e.ID,
		ActorUserID: e.ActorUserID,
		Action:      e.Action,
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
}

// HandleAudit godoc
//
//	@Summary		Tenant Audit Trail Endpoint
//	@Description	List the tenant's most recent audit entries, newest first. Requires tenant admin.
//	@Tags			Tenants
//	@Produce		json
//	@Param			id		path		string	true	"Tenant ID"
//	@Param			limit	query		int		false	"Maximum entries to return (default 50)"
//	@Success		200		{array}		AuditEntryResponse	"entries"
//	@Failure		403		{object}	ErrorResponse		"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/tenants/{id}/audit [get].
func (h *TenantHandler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")

	if _, ok := requireTenantAction(w, r, h.Store, service.ActionTenantSettings, tenantID); !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.TenantService.AuditTrail(r.Context(), tenantID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, newAuditEntryResponse(e))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
