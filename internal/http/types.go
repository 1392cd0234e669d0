package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/haven-collective/haven/internal/domain"
	"github.com/haven-collective/haven/internal/service"
	"github.com/haven-collective/haven/pkg/httpx"
	"github.com/haven-collective/haven/pkg/slogx"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// TokenResponse is returned by the credential endpoints.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

func newTokenResponse(pair domain.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int64(pair.ExpiresIn / time.Second),
	}
}

// UserResponse is the public view of a user account.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

// LimitsResponse is the entitlement snapshot carried by a license.
type LimitsResponse struct {
	MaxMembers   int      `json:"max_members"`
	MaxAdmins    int      `json:"max_admins"`
	FeatureFlags []string `json:"feature_flags,omitempty"`
}

func newLimitsResponse(l domain.Limits) LimitsResponse {
	return LimitsResponse{MaxMembers: l.MaxMembers, MaxAdmins: l.MaxAdmins, FeatureFlags: l.FeatureFlags}
}

// LicenseResponse is the administrative view of a license. The key is only
// included on generation.
type LicenseResponse struct {
	ID              string         `json:"id"`
	Key             string         `json:"key,omitempty"`
	PlanID          string         `json:"plan_id"`
	Status          string         `json:"status"`
	SingleUse       bool           `json:"single_use"`
	ExpiresAt       *time.Time     `json:"expires_at,omitempty"`
	ClaimedAt       *time.Time     `json:"claimed_at,omitempty"`
	ClaimedByUserID *string        `json:"claimed_by_user_id,omitempty"`
	ClaimedTenantID *string        `json:"claimed_tenant_id,omitempty"`
	Limits          LimitsResponse `json:"limits"`
	CreatedAt       time.Time      `json:"created_at"`
}

func newLicenseResponse(l domain.License, includeKey bool) LicenseResponse {
	resp := LicenseResponse{
		ID:              l.ID,
		PlanID:          l.PlanID,
		Status:          l.Status,
		SingleUse:       l.SingleUse,
		ExpiresAt:       l.ExpiresAt,
		ClaimedAt:       l.ClaimedAt,
		ClaimedByUserID: l.ClaimedByUserID,
		ClaimedTenantID: l.ClaimedTenantID,
		Limits:          newLimitsResponse(l.Limits),
		CreatedAt:       l.CreatedAt,
	}
	if includeKey {
		resp.Key = l.Key
	}
	return resp
}

// VerifyResponse is what a successful license verification returns.
type VerifyResponse struct {
	Valid    bool           `json:"valid"`
	PlanName string         `json:"plan_name"`
	Limits   LimitsResponse `json:"limits"`
}

// TenantResponse is the public view of a tenant.
type TenantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func newTenantResponse(t domain.Tenant) TenantResponse {
	return TenantResponse{ID: t.ID, Name: t.Name, Slug: t.Slug, Status: t.Status, CreatedAt: t.CreatedAt}
}

// SettingsResponse is the tenant's join policy.
type SettingsResponse struct {
	PublicSignup    bool `json:"public_signup"`
	RequireApproval bool `json:"require_approval"`
}

func newSettingsResponse(s domain.TenantSettings) SettingsResponse {
	return SettingsResponse{PublicSignup: s.PublicSignup, RequireApproval: s.RequireApproval}
}

// MembershipResponse is one (tenant, user) relation.
type MembershipResponse struct {
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func newMembershipResponse(m domain.Membership) MembershipResponse {
	return MembershipResponse{TenantID: m.TenantID, UserID: m.UserID, Role: m.Role, Status: m.Status, CreatedAt: m.CreatedAt}
}

// ProfileResponse is a member's per-tenant display profile.
type ProfileResponse struct {
	TenantID    string `json:"tenant_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

func newProfileResponse(p domain.MemberProfile) ProfileResponse {
	return ProfileResponse{
		TenantID:    p.TenantID,
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		AvatarURL:   p.AvatarURL,
	}
}

// InvitationResponse is the admin view of an invitation. The status field is
// the derived status; the raw token is only present on issue and resend.
type InvitationResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	InvitedBy string    `json:"invited_by"`
	CreatedAt time.Time `json:"created_at"`
}

func newInvitationResponse(inv domain.Invitation, status, rawToken string) InvitationResponse {
	return InvitationResponse{
		ID:        inv.ID,
		TenantID:  inv.TenantID,
		Email:     inv.Email,
		Phone:     inv.Phone,
		Role:      inv.Role,
		Status:    status,
		Token:     rawToken,
		ExpiresAt: inv.ExpiresAt,
		InvitedBy: inv.InvitedBy,
		CreatedAt: inv.CreatedAt,
	}
}

// writeServiceError maps service sentinel errors onto HTTP statuses and the
// standard error envelope. Unrecognized errors are logged and reported as a
// plain 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request failed validation")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	case errors.Is(err, service.ErrInvalidToken):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Token is invalid, revoked or already used")
	case errors.Is(err, service.ErrInvalidTokenPayload):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Token payload is malformed")
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "Not allowed")
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, service.ErrPlanNotFound):
		httpx.WriteError(w, http.StatusNotFound, "plan_not_found", "Plan not found")
	case errors.Is(err, service.ErrEmailExists):
		httpx.WriteError(w, http.StatusConflict, "email_exists", "Email is already registered")
	case errors.Is(err, service.ErrSlugExists):
		httpx.WriteError(w, http.StatusConflict, "slug_exists", "Tenant slug is already taken")
	case errors.Is(err, service.ErrInvitationExists):
		httpx.WriteError(w, http.StatusConflict, "invitation_exists", "A live invitation already exists for this email")
	case errors.Is(err, service.ErrInvalidState):
		httpx.WriteError(w, http.StatusConflict, "invalid_state", "Resource is not in a state that allows this operation")
	case errors.Is(err, service.ErrLicenseClaimed):
		httpx.WriteError(w, http.StatusConflict, "license_claimed", "License has already been claimed")
	case errors.Is(err, service.ErrLicenseExpired):
		httpx.WriteError(w, http.StatusGone, "license_expired", "License has expired")
	case errors.Is(err, service.ErrLicenseInvalid):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "license_invalid", "License is not usable")
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}

// sessionMeta captures per-request client metadata for refresh token records.
func sessionMeta(r *http.Request) service.SessionMeta {
	return service.SessionMeta{
		IP:        httpx.IPKeyExtractor(r),
		UserAgent: r.UserAgent(),
	}
}
