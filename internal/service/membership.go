package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/haven-collective/haven/internal/domain"
	"github.com/haven-collective/haven/internal/store"
	"github.com/haven-collective/haven/pkg/cryptox"
	"github.com/haven-collective/haven/pkg/slogx"
)

// MembershipService runs the join state machine and member administration.
type MembershipService struct {
	Store store.Store
	Audit *AuditRecorder
}

// Join handles both join paths. With an invite token, the invitation is
// consumed and the membership becomes active with the invitation's role,
// overriding tenant approval policy. Without one, tenant settings decide
// whether the membership starts pending or active.
//
// A banned membership blocks every path. Re-join by an active member is
// idempotent and returns the existing row unchanged.
func (s *MembershipService) Join(ctx context.Context, userID, tenantID, inviteToken string) (domain.Membership, error) {
	ctx = slogx.WithTenant(ctx, tenantID)
	log := slogx.FromContext(ctx)
	now := time.Now()

	tenant, err := s.Store.Tenants().GetTenantByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Membership{}, ErrNotFound
		}
		return domain.Membership{}, err
	}
	if tenant.Status != domain.TenantStatusActive {
		return domain.Membership{}, ErrForbidden
	}

	existing, err := s.Store.Memberships().GetMembership(ctx, tenantID, userID)
	switch {
	case err == nil:
		switch existing.Status {
		case domain.MemberStatusBanned:
			return domain.Membership{}, ErrForbidden
		case domain.MemberStatusActive:
			return existing, nil
		case domain.MemberStatusSuspended:
			return domain.Membership{}, ErrForbidden
		}
		// pending falls through: the join may upgrade it (via invite) or
		// re-upsert it unchanged.
	case errors.Is(err, store.ErrNotFound):
	default:
		return domain.Membership{}, err
	}

	if inviteToken != "" {
		return s.joinWithInvite(ctx, userID, tenantID, inviteToken, now)
	}

	settings, err := s.Store.TenantSettings().GetSettings(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Membership{}, ErrNotFound
		}
		return domain.Membership{}, err
	}
	if !settings.PublicSignup {
		return domain.Membership{}, ErrForbidden
	}

	status := domain.MemberStatusActive
	if settings.RequireApproval {
		status = domain.MemberStatusPending
	}

	m := domain.Membership{
		TenantID: tenantID,
		UserID:   userID,
		Role:     domain.MemberRoleMember,
		Status:   status,
	}
	if err := s.Store.Memberships().UpsertMembership(ctx, m); err != nil {
		return domain.Membership{}, err
	}

	log.Info("member joined", slog.String("user_id", userID), slog.String("status", status))
	s.Audit.Record(ctx, strPtr(userID), strPtr(tenantID), "membership.join", map[string]any{"status": status})
	return m, nil
}

func (s *MembershipService) joinWithInvite(ctx context.Context, userID, tenantID, inviteToken string, now time.Time) (domain.Membership, error) {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Membership{}, ErrNotFound
		}
		return domain.Membership{}, err
	}

	var m domain.Membership
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		inv, err := tx.Invitations().GetInvitationByTokenHash(ctx, cryptox.FingerprintToken(inviteToken))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		if inv.TenantID != tenantID {
			return ErrInvalidToken
		}
		if !inv.IsAcceptable(now) {
			return ErrInvalidState
		}
		if !strings.EqualFold(inv.Email, user.Email) {
			return ErrForbidden
		}

		// Conditional on status still being sent: the invitation is
		// consumed exactly once even under concurrent joins.
		if err := tx.Invitations().MarkAccepted(ctx, inv.ID, userID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidState
			}
			return err
		}

		m = domain.Membership{
			TenantID: tenantID,
			UserID:   userID,
			Role:     inv.Role,
			Status:   domain.MemberStatusActive,
		}
		return tx.Memberships().UpsertMembership(ctx, m)
	})
	if err != nil {
		return domain.Membership{}, err
	}

	log.Info("invite accepted", slog.String("user_id", userID))
	s.Audit.Record(ctx, strPtr(userID), strPtr(tenantID), "membership.join_invite", map[string]any{"role": m.Role})
	return m, nil
}

// UpdateMember is the admin direct write for role and status.
func (s *MembershipService) UpdateMember(ctx context.Context, tenantID, userID, role, status, actorUserID string) (domain.Membership, error) {
	if !domain.ValidMemberRole(role) || !domain.ValidMemberStatus(status) {
		return domain.Membership{}, ErrValidation
	}

	if err := s.Store.Memberships().UpdateMembership(ctx, tenantID, userID, role, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Membership{}, ErrNotFound
		}
		return domain.Membership{}, err
	}

	m, err := s.Store.Memberships().GetMembership(ctx, tenantID, userID)
	if err != nil {
		return domain.Membership{}, err
	}

	s.Audit.Record(ctx, strPtr(actorUserID), strPtr(tenantID), "membership.update", map[string]any{
		"user_id": userID,
		"role":    role,
		"status":  status,
	})
	return m, nil
}

// ListMembers returns the tenant's membership rows.
func (s *MembershipService) ListMembers(ctx context.Context, tenantID string) ([]domain.Membership, error) {
	return s.Store.Memberships().ListMembers(ctx, tenantID)
}

// UpsertProfile writes the member's per-tenant profile. Only existing
// members may have one.
func (s *MembershipService) UpsertProfile(ctx context.Context, p domain.MemberProfile) (domain.MemberProfile, error) {
	if _, err := s.Store.Memberships().GetMembership(ctx, p.TenantID, p.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.MemberProfile{}, ErrNotFound
		}
		return domain.MemberProfile{}, err
	}

	if err := s.Store.Profiles().UpsertProfile(ctx, p); err != nil {
		return domain.MemberProfile{}, err
	}
	return s.Store.Profiles().GetProfile(ctx, p.TenantID, p.UserID)
}
