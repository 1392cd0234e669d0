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

// LicenseService governs the license key lifecycle: generation, verification
// with lazy expiry, administrative suspension, and the claim transaction that
// turns a license into a tenant.
type LicenseService struct {
	Store store.Store
	Audit *AuditRecorder
}

// VerifiedLicense is what a successful verification returns.
type VerifiedLicense struct {
	License domain.License
	Plan    domain.Plan
	Limits  domain.Limits
}

// TenantDraft is the requested shape of the tenant a claim creates.
type TenantDraft struct {
	Name string
	Slug string
}

// Generate issues a new license against a plan. The limits snapshot is
// copied from the plan now; later plan edits do not change issued licenses.
func (s *LicenseService) Generate(
	ctx context.Context,
	planID string,
	singleUse bool,
	expiresAt *time.Time,
	createdBy string,
) (domain.License, error) {
	log := slogx.FromContext(ctx)

	plan, err := s.Store.Plans().GetPlanByID(ctx, planID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.License{}, ErrPlanNotFound
		}
		return domain.License{}, err
	}

	lic := domain.License{
		ID:        idx.New().String(),
		PlanID:    plan.ID,
		Status:    domain.LicenseStatusActive,
		SingleUse: singleUse,
		ExpiresAt: expiresAt,
		Limits:    plan.Limits(),
		CreatedBy: createdBy,
	}

	// Keys carry 80 bits of entropy; a collision against the UNIQUE
	// constraint is astronomically rare, so a short retry loop suffices.
	for attempt := 0; ; attempt++ {
		key, err := cryptox.GenerateLicenseKey(domain.LicenseKeyPrefix)
		if err != nil {
			return domain.License{}, err
		}
		lic.Key = key

		err = s.Store.Licenses().CreateLicense(ctx, lic)
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrAlreadyExists) && attempt < 2 {
			continue
		}
		return domain.License{}, err
	}

	log.Info("license generated", slog.String("license_id", lic.ID), slog.String("plan_id", plan.ID))
	s.Audit.Record(ctx, strPtr(createdBy), nil, "license.generate", map[string]any{
		"license_id": lic.ID,
		"plan_id":    plan.ID,
	})
	return lic, nil
}

// Verify canonicalizes and looks up the key. An active license past its
// expiry is transitioned to expired with a conditional write before the
// expired error is returned, so subsequent reads observe the persisted
// state without a background sweeper.
func (s *LicenseService) Verify(ctx context.Context, key string) (VerifiedLicense, error) {
	lic, err := s.Store.Licenses().GetLicenseByKey(ctx, cryptox.CanonicalLicenseKey(key))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return VerifiedLicense{}, ErrNotFound
		}
		return VerifiedLicense{}, err
	}

	now := time.Now()
	if lic.Status == domain.LicenseStatusActive && lic.IsExpiredAt(now) {
		if _, err := s.Store.Licenses().ExpireIfDue(ctx, lic.ID, now); err != nil {
			return VerifiedLicense{}, err
		}
		return VerifiedLicense{}, ErrLicenseExpired
	}

	switch lic.Status {
	case domain.LicenseStatusActive:
	case domain.LicenseStatusExpired:
		return VerifiedLicense{}, ErrLicenseExpired
	default:
		// suspended or claimed
		return VerifiedLicense{}, ErrLicenseInvalid
	}

	plan, err := s.Store.Plans().GetPlanByID(ctx, lic.PlanID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return VerifiedLicense{}, ErrPlanNotFound
		}
		return VerifiedLicense{}, err
	}

	return VerifiedLicense{License: lic, Plan: plan, Limits: lic.Limits}, nil
}

// Suspend is the administrative one-way transition.
func (s *LicenseService) Suspend(ctx context.Context, id, actorUserID string) (domain.License, error) {
	if err := s.Store.Licenses().SetStatus(ctx, id, domain.LicenseStatusSuspended); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.License{}, ErrNotFound
		}
		return domain.License{}, err
	}

	lic, err := s.Store.Licenses().GetLicenseByID(ctx, id)
	if err != nil {
		return domain.License{}, err
	}

	s.Audit.Record(ctx, strPtr(actorUserID), nil, "license.suspend", map[string]any{"license_id": id})
	return lic, nil
}

// Claim consumes the license and provisions the tenant in one transaction:
// validate license state, create tenant + default settings + owner
// membership, then mark the license claimed with a refreshed limits
// snapshot. The mark-claimed write conditions on claimed_at still being
// null, and the tenant insert relies on the slug UNIQUE constraint, so
// concurrent claims cannot double-consume or double-create.
func (s *LicenseService) Claim(ctx context.Context, key, userID string, draft TenantDraft) (domain.Tenant, error) {
	log := slogx.FromContext(ctx)

	if draft.Name == "" || !domain.ValidSlug(draft.Slug) {
		return domain.Tenant{}, ErrValidation
	}

	now := time.Now()
	var tenant domain.Tenant

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		lic, err := tx.Licenses().GetLicenseByKey(ctx, cryptox.CanonicalLicenseKey(key))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}

		// A non-null claimed_at blocks further claims regardless of any
		// status drift.
		if lic.IsClaimed() {
			return ErrLicenseClaimed
		}
		if lic.Status == domain.LicenseStatusActive && lic.IsExpiredAt(now) {
			if _, err := tx.Licenses().ExpireIfDue(ctx, lic.ID, now); err != nil {
				return err
			}
			return ErrLicenseExpired
		}
		switch lic.Status {
		case domain.LicenseStatusActive:
		case domain.LicenseStatusExpired:
			return ErrLicenseExpired
		default:
			return ErrLicenseInvalid
		}

		plan, err := tx.Plans().GetPlanByID(ctx, lic.PlanID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrPlanNotFound
			}
			return err
		}

		tenant = domain.Tenant{
			ID:        idx.New().String(),
			Name:      draft.Name,
			Slug:      draft.Slug,
			Status:    domain.TenantStatusActive,
			CreatedBy: userID,
		}
		if err := tx.Tenants().CreateTenant(ctx, tenant); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrSlugExists
			}
			return err
		}

		if err := tx.TenantSettings().CreateSettings(ctx, domain.TenantSettings{
			TenantID:        tenant.ID,
			PublicSignup:    false,
			RequireApproval: true,
		}); err != nil {
			return err
		}

		if err := tx.Memberships().CreateMembership(ctx, domain.Membership{
			TenantID: tenant.ID,
			UserID:   userID,
			Role:     domain.MemberRoleOwner,
			Status:   domain.MemberStatusActive,
		}); err != nil {
			return err
		}

		// Refresh the limits snapshot from the plan's current entitlements.
		if err := tx.Licenses().MarkClaimed(ctx, lic.ID, userID, tenant.ID, plan.Limits(), now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrLicenseClaimed
			}
			return err
		}

		return nil
	})
	if err != nil {
		return domain.Tenant{}, err
	}

	log.Info("license claimed",
		slog.String("tenant_id", tenant.ID),
		slog.String("slug", tenant.Slug),
		slog.String("user_id", userID),
	)
	s.Audit.Record(ctx, strPtr(userID), strPtr(tenant.ID), "license.claim", map[string]any{
		"slug": tenant.Slug,
	})
	return tenant, nil
}

// List returns all licenses, newest first.
func (s *LicenseService) List(ctx context.Context) ([]domain.License, error) {
	return s.Store.Licenses().ListLicenses(ctx)
}

// Get returns one license by id.
func (s *LicenseService) Get(ctx context.Context, id string) (domain.License, error) {
	lic, err := s.Store.Licenses().GetLicenseByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.License{}, ErrNotFound
		}
		return domain.License{}, err
	}
	return lic, nil
}
