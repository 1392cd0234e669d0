package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/haven-collective/haven/internal/domain"
	"github.com/haven-collective/haven/internal/store"
	"github.com/haven-collective/haven/pkg/cryptox"
	"github.com/haven-collective/haven/pkg/idx"
	"github.com/haven-collective/haven/pkg/slogx"
)

// DefaultInvitationTTL bounds how long an invitation stays acceptable.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// InvitationService issues, reissues and revokes tenant invitations.
type InvitationService struct {
	Store store.Store
	Audit *AuditRecorder
}

// IssuedInvitation pairs the stored record with the raw token, which is
// returned exactly once and never retrievable again.
type IssuedInvitation struct {
	Invitation domain.Invitation
	RawToken   string
}

// InvitationView is a read-model row: the stored record plus its derived
// status at read time.
type InvitationView struct {
	domain.Invitation
	EffectiveStatus string
}

// Invite creates an invitation for an email to join with a role. An email
// that already holds a live (sent, unexpired) invitation for the tenant
// reports ErrInvitationExists.
func (s *InvitationService) Invite(
	ctx context.Context,
	tenantID, email, phone, role string,
	ttl time.Duration,
	invitedBy string,
) (IssuedInvitation, error) {
	log := slogx.FromContext(ctx)

	email = domain.NormalizeEmail(email)
	if email == "" {
		return IssuedInvitation{}, ErrValidation
	}
	if !domain.ValidMemberRole(role) {
		return IssuedInvitation{}, ErrValidation
	}
	if ttl <= 0 {
		ttl = DefaultInvitationTTL
	}

	now := time.Now()
	if _, err := s.Store.Invitations().FindLiveInvitation(ctx, tenantID, email, now); err == nil {
		return IssuedInvitation{}, ErrInvitationExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return IssuedInvitation{}, err
	}

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return IssuedInvitation{}, err
	}

	inv := domain.Invitation{
		ID:        idx.New().String(),
		TenantID:  tenantID,
		Email:     email,
		Phone:     phone,
		Role:      role,
		TokenHash: cryptox.FingerprintToken(raw),
		Status:    domain.InvitationStatusSent,
		ExpiresAt: now.Add(ttl),
		InvitedBy: invitedBy,
	}
	if err := s.Store.Invitations().CreateInvitation(ctx, inv); err != nil {
		return IssuedInvitation{}, err
	}

	log.Info("invitation issued", slog.String("tenant_id", tenantID), slog.String("invitation_id", inv.ID))
	s.Audit.Record(ctx, strPtr(invitedBy), strPtr(tenantID), "invitation.issue", map[string]any{
		"invitation_id": inv.ID,
		"role":          role,
	})
	return IssuedInvitation{Invitation: inv, RawToken: raw}, nil
}

// Resend reissues an invitation: fresh token, status back to sent,
// revocation cleared, expiry extended. An accepted invitation is terminal
// and reports ErrInvalidState.
func (s *InvitationService) Resend(ctx context.Context, id string, ttl time.Duration, actorUserID string) (IssuedInvitation, error) {
	if ttl <= 0 {
		ttl = DefaultInvitationTTL
	}

	inv, err := s.Store.Invitations().GetInvitationByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return IssuedInvitation{}, ErrNotFound
		}
		return IssuedInvitation{}, err
	}
	if inv.Status == domain.InvitationStatusAccepted {
		return IssuedInvitation{}, ErrInvalidState
	}

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return IssuedInvitation{}, err
	}

	expiresAt := time.Now().Add(ttl)
	if err := s.Store.Invitations().ResetForResend(ctx, id, cryptox.FingerprintToken(raw), expiresAt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Accepted between the read and the conditional write.
			return IssuedInvitation{}, ErrInvalidState
		}
		return IssuedInvitation{}, err
	}

	inv, err = s.Store.Invitations().GetInvitationByID(ctx, id)
	if err != nil {
		return IssuedInvitation{}, err
	}

	s.Audit.Record(ctx, strPtr(actorUserID), strPtr(inv.TenantID), "invitation.resend", map[string]any{
		"invitation_id": id,
	})
	return IssuedInvitation{Invitation: inv, RawToken: raw}, nil
}

// Get returns one invitation by id.
func (s *InvitationService) Get(ctx context.Context, id string) (domain.Invitation, error) {
	inv, err := s.Store.Invitations().GetInvitationByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invitation{}, ErrNotFound
		}
		return domain.Invitation{}, err
	}
	return inv, nil
}

// Revoke withdraws a pending invitation. Revoking an accepted invitation is
// ErrForbidden; revoking an already-revoked one is a no-op.
func (s *InvitationService) Revoke(ctx context.Context, id, actorUserID string) error {
	inv, err := s.Store.Invitations().GetInvitationByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	switch inv.Status {
	case domain.InvitationStatusAccepted:
		return ErrForbidden
	case domain.InvitationStatusRevoked:
		return nil
	}

	if err := s.Store.Invitations().MarkRevoked(ctx, id, actorUserID, time.Now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidState
		}
		return err
	}

	s.Audit.Record(ctx, strPtr(actorUserID), strPtr(inv.TenantID), "invitation.revoke", map[string]any{
		"invitation_id": id,
	})
	return nil
}

// List returns the tenant's invitations with derived statuses. Purely a
// read: expired rows are reported as expired without being written.
func (s *InvitationService) List(ctx context.Context, tenantID string) ([]InvitationView, error) {
	invs, err := s.Store.Invitations().ListInvitations(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := make([]InvitationView, 0, len(invs))
	for _, inv := range invs {
		out = append(out, InvitationView{
			Invitation:      inv,
			EffectiveStatus: inv.EffectiveStatus(now),
		})
	}
	return out, nil
}
