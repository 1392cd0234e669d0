package service

import "errors"

// Sentinel errors surfaced to the HTTP boundary, which maps each to a
// response code. Strings are the wire-visible error codes.
var (
	ErrNotFound   = errors.New("not_found")
	ErrValidation = errors.New("validation_error")

	ErrEmailExists      = errors.New("email_exists")
	ErrSlugExists       = errors.New("slug_exists")
	ErrInvitationExists = errors.New("invitation_exists")

	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrInvalidToken        = errors.New("invalid_token")
	ErrInvalidTokenPayload = errors.New("invalid_token_payload")

	ErrLicenseInvalid = errors.New("license_invalid")
	ErrLicenseExpired = errors.New("license_expired")
	ErrLicenseClaimed = errors.New("license_claimed")
	ErrPlanNotFound   = errors.New("plan_not_found")

	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid_state")
)
