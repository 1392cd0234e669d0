package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/haven-collective/haven/internal/service"
	"github.com/haven-collective/haven/internal/store"
	"github.com/haven-collective/haven/internal/store/drivers/sqlite"
	"github.com/haven-collective/haven/pkg/cryptox"
	"github.com/haven-collective/haven/pkg/jwtx"
	"github.com/haven-collective/haven/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const bootstrapToken = "e2e-bootstrap-token"

func newTestRouter(t *testing.T) (*Router, store.Store) {
	t.Helper()

	cryptox.SetPepperPath(t.TempDir() + "/pepper")

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("test-key", pemKey)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	verifier := jwtx.NewVerifierEdDSA(keys, "haven-test")

	logger := slogx.New(slogx.Config{Service: "haven-test", Format: "text", Level: "error"})

	r := NewRouter(keys, verifier, "test", st, logger)
	r.AuthService = &service.AuthService{
		Store:      st,
		Signer:     signer,
		Issuer:     "haven-test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
	r.LicenseService = &service.LicenseService{Store: st}
	r.TenantService = &service.TenantService{Store: st}
	r.MembershipService = &service.MembershipService{Store: st}
	r.InvitationService = &service.InvitationService{Store: st}
	r.BootstrapService = &service.BootstrapService{Store: st, Token: bootstrapToken}
	r.ApplyRoutes()

	return r, st
}

// doJSON performs a request against the router and decodes the JSON response
// into out when it is non-nil.
func doJSON(t *testing.T, r *Router, method, path, bearer string, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
	}
	return rec.Code
}

func registerAndLogin(t *testing.T, r *Router, email, password string) (UserResponse, loginResponse) {
	t.Helper()

	var user UserResponse
	code := doJSON(t, r, http.MethodPost, "/v1/auth/register", "",
		registerRequest{Email: email, Password: password}, &user)
	require.Equal(t, http.StatusCreated, code)

	var login loginResponse
	code = doJSON(t, r, http.MethodPost, "/v1/auth/login", "",
		loginRequest{Email: email, Password: password}, &login)
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, login.AccessToken)

	return user, login
}

func TestProvisioningLifecycle(t *testing.T) {
	r, st := newTestRouter(t)
	ctx := t.Context()

	// Bootstrap the platform with an operator and one plan.
	var boot bootstrapResponse
	code := doJSON(t, r, http.MethodPost, "/v1/bootstrap", "", bootstrapRequest{
		Token:         bootstrapToken,
		AdminEmail:    "ops@haven.io",
		AdminPassword: "operator-password",
		Plans:         []planSeedRequest{{Name: "starter", MaxMembers: 25, MaxAdmins: 3}},
	}, &boot)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, boot.AdminUserID)

	// Bootstrap is one-shot.
	code = doJSON(t, r, http.MethodPost, "/v1/bootstrap", "", bootstrapRequest{
		Token:         bootstrapToken,
		AdminEmail:    "ops2@haven.io",
		AdminPassword: "operator-password",
	}, nil)
	require.Equal(t, http.StatusConflict, code)

	var adminLogin loginResponse
	code = doJSON(t, r, http.MethodPost, "/v1/auth/login", "",
		loginRequest{Email: "ops@haven.io", Password: "operator-password"}, &adminLogin)
	require.Equal(t, http.StatusOK, code)
	adminToken := adminLogin.AccessToken

	plans, err := st.Plans().ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 1)

	// License surfaces are operator-only.
	code = doJSON(t, r, http.MethodGet, "/v1/licenses", "", nil, nil)
	require.Equal(t, http.StatusUnauthorized, code)

	var lic LicenseResponse
	code = doJSON(t, r, http.MethodPost, "/v1/licenses", adminToken,
		generateLicenseRequest{PlanID: plans[0].ID}, &lic)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, lic.Key)
	require.Equal(t, 25, lic.Limits.MaxMembers)

	_, founderLogin := registerAndLogin(t, r, "founder@acme.com", "founder-password")

	code = doJSON(t, r, http.MethodGet, "/v1/licenses", founderLogin.AccessToken, nil, nil)
	require.Equal(t, http.StatusForbidden, code)

	// A fresh key verifies.
	var verify VerifyResponse
	code = doJSON(t, r, http.MethodGet, "/v1/licenses/verify?key="+lic.Key, "", nil, &verify)
	require.Equal(t, http.StatusOK, code)
	require.True(t, verify.Valid)
	require.Equal(t, "starter", verify.PlanName)

	// Claiming provisions the tenant with the claimant as owner.
	var tenant TenantResponse
	code = doJSON(t, r, http.MethodPost, "/v1/licenses/claim", founderLogin.AccessToken,
		claimLicenseRequest{Key: lic.Key, TenantName: "Acme", TenantSlug: "acme"}, &tenant)
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "acme", tenant.Slug)

	// A consumed key no longer verifies and cannot be claimed again.
	code = doJSON(t, r, http.MethodGet, "/v1/licenses/verify?key="+lic.Key, "", nil, nil)
	require.Equal(t, http.StatusUnprocessableEntity, code)

	code = doJSON(t, r, http.MethodPost, "/v1/licenses/claim", founderLogin.AccessToken,
		claimLicenseRequest{Key: lic.Key, TenantName: "Acme Again", TenantSlug: "acme2"}, nil)
	require.Equal(t, http.StatusConflict, code)

	var detail tenantDetailResponse
	code = doJSON(t, r, http.MethodGet, "/v1/tenants/"+tenant.ID, founderLogin.AccessToken, nil, &detail)
	require.Equal(t, http.StatusOK, code)
	require.False(t, detail.Settings.PublicSignup)

	// Open the tenant for public signup; approval stays required.
	open := true
	var settings SettingsResponse
	code = doJSON(t, r, http.MethodPatch, "/v1/tenants/"+tenant.ID+"/settings", founderLogin.AccessToken,
		updateSettingsRequest{PublicSignup: &open}, &settings)
	require.Equal(t, http.StatusOK, code)
	require.True(t, settings.PublicSignup)
	require.True(t, settings.RequireApproval)

	// A stranger may not change settings.
	_, strangerLogin := registerAndLogin(t, r, "stranger@example.com", "stranger-password")
	code = doJSON(t, r, http.MethodPatch, "/v1/tenants/"+tenant.ID+"/settings", strangerLogin.AccessToken,
		updateSettingsRequest{PublicSignup: &open}, nil)
	require.Equal(t, http.StatusForbidden, code)

	// Direct join lands pending under the approval policy.
	applicant, applicantLogin := registerAndLogin(t, r, "applicant@example.com", "applicant-password")
	var m MembershipResponse
	code = doJSON(t, r, http.MethodPost, "/v1/tenants/"+tenant.ID+"/join", applicantLogin.AccessToken, nil, &m)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "pending", m.Status)

	// The owner approves.
	code = doJSON(t, r, http.MethodPatch, "/v1/tenants/"+tenant.ID+"/members/"+applicant.ID, founderLogin.AccessToken,
		updateMemberRequest{Role: "member", Status: "active"}, &m)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "active", m.Status)

	var members []MembershipResponse
	code = doJSON(t, r, http.MethodGet, "/v1/tenants/"+tenant.ID+"/members", founderLogin.AccessToken, nil, &members)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, members, 2)

	// Invited members skip the approval queue and land with the invited role.
	var inv InvitationResponse
	code = doJSON(t, r, http.MethodPost, "/v1/tenants/"+tenant.ID+"/invitations", founderLogin.AccessToken,
		inviteRequest{Email: "mod@example.com", Role: "moderator"}, &inv)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, inv.Token)

	_, modLogin := registerAndLogin(t, r, "mod@example.com", "moderator-password")
	code = doJSON(t, r, http.MethodPost, "/v1/tenants/"+tenant.ID+"/join", modLogin.AccessToken,
		joinRequest{InviteToken: inv.Token}, &m)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "moderator", m.Role)
	require.Equal(t, "active", m.Status)

	// The consumed invitation is terminal.
	code = doJSON(t, r, http.MethodPost, "/v1/invitations/"+inv.ID+"/revoke", founderLogin.AccessToken, nil, nil)
	require.Equal(t, http.StatusForbidden, code)

	// The applicant's profile is their own to write.
	var profile ProfileResponse
	code = doJSON(t, r, http.MethodPut, "/v1/tenants/"+tenant.ID+"/members/"+applicant.ID+"/profile", applicantLogin.AccessToken,
		profileRequest{DisplayName: "App Licant"}, &profile)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "App Licant", profile.DisplayName)
}

func TestRefreshAndLogout(t *testing.T) {
	r, _ := newTestRouter(t)

	code := doJSON(t, r, http.MethodPost, "/v1/bootstrap", "", bootstrapRequest{
		Token:         bootstrapToken,
		AdminEmail:    "ops@haven.io",
		AdminPassword: "operator-password",
	}, nil)
	require.Equal(t, http.StatusCreated, code)

	_, login := registerAndLogin(t, r, "user@example.com", "user-password")

	var rotated TokenResponse
	code = doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "",
		refreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken}, &rotated)
	require.Equal(t, http.StatusOK, code)
	require.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	// Replaying the rotated-away token fails.
	code = doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "",
		refreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken}, nil)
	require.Equal(t, http.StatusUnauthorized, code)

	// Logout revokes; the revoked token cannot rotate.
	code = doJSON(t, r, http.MethodPost, "/v1/auth/logout", rotated.AccessToken,
		logoutRequest{RefreshToken: rotated.RefreshToken}, nil)
	require.Equal(t, http.StatusNoContent, code)

	code = doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "",
		refreshRequest{AccessToken: rotated.AccessToken, RefreshToken: rotated.RefreshToken}, nil)
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestHealthAndJWKS(t *testing.T) {
	r, _ := newTestRouter(t)

	var health HealthResponse
	code := doJSON(t, r, http.MethodGet, "/livez", "", nil, &health)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", health.Status)

	code = doJSON(t, r, http.MethodGet, "/readyz", "", nil, &health)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)

	var jwks jwtx.JWKS
	code = doJSON(t, r, http.MethodGet, "/.well-known/jwks.json", "", nil, &jwks)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "OKP", jwks.Keys[0].Kty)
}
