package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/haven-collective/haven/internal/service"
	"github.com/haven-collective/haven/pkg/httpx"
)

type LicenseHandler struct {
	LicenseService *service.LicenseService
}

type generateLicenseRequest struct {
	PlanID    string     `json:"plan_id"`
	SingleUse bool       `json:"single_use"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// HandleGenerate godoc
//
//	@Summary		License Generation Endpoint
//	@Description	Issue a new license key against a plan. The plan's limits are snapshotted onto the license; later plan edits do not affect it.
//	@Description	The key is returned once in this response and stored only in canonical form. Operator-only.
//	@Tags			Licenses
//	@Accept			json
//	@Produce		json
//	@Param			request	body		generateLicenseRequest	true	"Generation request"
//	@Success		201		{object}	LicenseResponse			"id, key, plan_id, status, limits"
//	@Failure		400		{object}	ErrorResponse			"error, error_description"
//	@Failure		404		{object}	ErrorResponse			"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/licenses [post].
func (h *LicenseHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.PlanID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "plan_id is required")
		return
	}

	lic, err := h.LicenseService.Generate(r.Context(), req.PlanID, req.SingleUse, req.ExpiresAt, httpx.UserIDFromCtx(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, newLicenseResponse(lic, true))
}

// HandleVerify godoc
//
//	@Summary		License Verification Endpoint
//	@Description	Check whether a license key is valid and what entitlements it carries. Keys are canonicalized before lookup.
//	@Description	An active license past its expiry is transitioned to expired as part of this call.
//	@Tags			Licenses
//	@Produce		json
//	@Param			key	query		string			true	"License key"
//	@Success		200	{object}	VerifyResponse	"valid, plan_name, limits"
//	@Failure		404	{object}	ErrorResponse	"error, error_description"
//	@Failure		410	{object}	ErrorResponse	"error, error_description"
//	@Failure		422	{object}	ErrorResponse	"error, error_description"
//	@Router			/v1/licenses/verify [get].
func (h *LicenseHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "key is required")
		return
	}

	verified, err := h.LicenseService.Verify(r.Context(), key)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, VerifyResponse{
		Valid:    true,
		PlanName: verified.Plan.Name,
		Limits:   newLimitsResponse(verified.Limits),
	})
}

// HandleSuspend godoc
//
//	@Summary		License Suspension Endpoint
//	@Description	Suspend a license so it can no longer be verified or claimed. Operator-only.
//	@Tags			Licenses
//	@Produce		json
//	@Param			id	path		string			true	"License ID"
//	@Success		200	{object}	LicenseResponse	"id, plan_id, status"
//	@Failure		404	{object}	ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/licenses/{id}/suspend [post].
func (h *LicenseHandler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	lic, err := h.LicenseService.Suspend(r.Context(), r.PathValue("id"), httpx.UserIDFromCtx(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newLicenseResponse(lic, false))
}

// HandleList godoc
//
//	@Summary		License Listing Endpoint
//	@Description	List all issued licenses, newest first. Keys are never included. Operator-only.
//	@Tags			Licenses
//	@Produce		json
//	@Success		200	{array}		LicenseResponse	"licenses"
//	@Failure		401	{object}	ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/licenses [get].
func (h *LicenseHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	lics, err := h.LicenseService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]LicenseResponse, 0, len(lics))
	for _, lic := range lics {
		out = append(out, newLicenseResponse(lic, false))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet godoc
//
//	@Summary		License Detail Endpoint
//	@Description	Fetch one license by ID. The key is never included. Operator-only.
//	@Tags			Licenses
//	@Produce		json
//	@Param			id	path		string			true	"License ID"
//	@Success		200	{object}	LicenseResponse	"license"
//	@Failure		404	{object}	ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/licenses/{id} [get].
func (h *LicenseHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	lic, err := h.LicenseService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newLicenseResponse(lic, false))
}

type claimLicenseRequest struct {
	Key        string `json:"key"`
	TenantName string `json:"tenant_name"`
	TenantSlug string `json:"tenant_slug"`
}

// HandleClaim godoc
//
//	@Summary		License Claim Endpoint
//	@Description	Consume a license and provision a tenant in one transaction. The caller becomes the tenant's owner and the
//	@Description	license records who claimed it and which tenant it produced. A license can be claimed at most once.
//	@Tags			Licenses
//	@Accept			json
//	@Produce		json
//	@Param			request	body		claimLicenseRequest	true	"Claim request"
//	@Success		201		{object}	TenantResponse		"id, name, slug, status"
//	@Failure		400		{object}	ErrorResponse		"error, error_description"
//	@Failure		409		{object}	ErrorResponse		"error, error_description"
//	@Failure		410		{object}	ErrorResponse		"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/licenses/claim [post].
func (h *LicenseHandler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Key == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "key is required")
		return
	}

	tenant, err := h.LicenseService.Claim(r.Context(), req.Key, httpx.UserIDFromCtx(r.Context()), service.TenantDraft{
		Name: req.TenantName,
		Slug: req.TenantSlug,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, newTenantResponse(tenant))
}
