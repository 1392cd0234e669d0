package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/haven-collective/haven/internal/service"
	"github.com/haven-collective/haven/pkg/httpx"
)

type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

type planSeedRequest struct {
	Name         string   `json:"name"`
	MaxMembers   int      `json:"max_members"`
	MaxAdmins    int      `json:"max_admins"`
	FeatureFlags []string `json:"feature_flags,omitempty"`
}

type bootstrapRequest struct {
	Token         string            `json:"token"`
	AdminEmail    string            `json:"admin_email"`
	AdminPassword string            `json:"admin_password"`
	Plans         []planSeedRequest `json:"plans"`
}

type bootstrapResponse struct {
	AdminUserID string `json:"admin_user_id"`
}

// ServeHTTP godoc
//
//	@Summary		Bootstrap Endpoint
//	@Description	One-time system initialization: creates the platform operator account and seeds the plan catalog.
//	@Description	Only works while no users exist and the pre-configured bootstrap token matches.
//	@Tags			System
//	@Accept			json
//	@Produce		json
//	@Param			request	body		bootstrapRequest	true	"Bootstrap request"
//	@Success		201		{object}	bootstrapResponse	"admin_user_id"
//	@Failure		400		{object}	ErrorResponse		"error, error_description"
//	@Failure		401		{object}	ErrorResponse		"error, error_description"
//	@Failure		409		{object}	ErrorResponse		"error, error_description"
//	@Router			/v1/bootstrap [post].
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req bootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	seeds := make([]service.PlanSeed, 0, len(req.Plans))
	for _, p := range req.Plans {
		seeds = append(seeds, service.PlanSeed{
			Name:         p.Name,
			MaxMembers:   p.MaxMembers,
			MaxAdmins:    p.MaxAdmins,
			FeatureFlags: p.FeatureFlags,
		})
	}

	adminUserID, err := h.BootstrapService.Bootstrap(r.Context(), req.Token, req.AdminEmail, req.AdminPassword, seeds)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBootstrapAlready):
			httpx.WriteError(w, http.StatusConflict, "already_bootstrapped", "System has already been bootstrapped")
		case errors.Is(err, service.ErrBootstrapUnauthorized):
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Bootstrap token mismatch")
		default:
			writeServiceError(w, r, err)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, bootstrapResponse{AdminUserID: adminUserID})
}
