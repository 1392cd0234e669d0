package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/haven-collective/haven/internal/domain"
	"github.com/haven-collective/haven/internal/store"
	"github.com/haven-collective/haven/pkg/idx"
	"github.com/haven-collective/haven/pkg/slogx"
)

// TenantService covers the direct administrative tenant surface. The usual
// provisioning path is LicenseService.Claim.
type TenantService struct {
	Store store.Store
	Audit *AuditRecorder
}

// Create provisions a tenant directly, without a license. The creator
// becomes the owner. Slug collisions report ErrSlugExists.
func (s *TenantService) Create(ctx context.Context, name, slug, createdBy string) (domain.Tenant, error) {
	log := slogx.FromContext(ctx)

	if name == "" || !domain.ValidSlug(slug) {
		return domain.Tenant{}, ErrValidation
	}

	tenant := domain.Tenant{
		ID:        idx.New().String(),
		Name:      name,
		Slug:      slug,
		Status:    domain.TenantStatusActive,
		CreatedBy: createdBy,
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
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

		return tx.Memberships().CreateMembership(ctx, domain.Membership{
			TenantID: tenant.ID,
			UserID:   createdBy,
			Role:     domain.MemberRoleOwner,
			Status:   domain.MemberStatusActive,
		})
	})
	if err != nil {
		return domain.Tenant{}, err
	}

	log.Info("tenant created", slog.String("tenant_id", tenant.ID), slog.String("slug", slug))
	s.Audit.Record(ctx, strPtr(createdBy), strPtr(tenant.ID), "tenant.create", map[string]any{"slug": slug})
	return tenant, nil
}

// Get returns the tenant and its settings.
func (s *TenantService) Get(ctx context.Context, id string) (domain.Tenant, domain.TenantSettings, error) {
	tenant, err := s.Store.Tenants().GetTenantByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Tenant{}, domain.TenantSettings{}, ErrNotFound
		}
		return domain.Tenant{}, domain.TenantSettings{}, err
	}

	settings, err := s.Store.TenantSettings().GetSettings(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.Tenant{}, domain.TenantSettings{}, err
	}
	return tenant, settings, nil
}

// UpdateSettings writes the join policy. The slug and name are immutable
// here; only policy fields move.
func (s *TenantService) UpdateSettings(ctx context.Context, tenantID string, publicSignup, requireApproval bool, actorUserID string) (domain.TenantSettings, error) {
	settings := domain.TenantSettings{
		TenantID:        tenantID,
		PublicSignup:    publicSignup,
		RequireApproval: requireApproval,
	}
	if err := s.Store.TenantSettings().UpdateSettings(ctx, settings); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TenantSettings{}, ErrNotFound
		}
		return domain.TenantSettings{}, err
	}

	s.Audit.Record(ctx, strPtr(actorUserID), strPtr(tenantID), "tenant.update_settings", map[string]any{
		"public_signup":    publicSignup,
		"require_approval": requireApproval,
	})
	return s.Store.TenantSettings().GetSettings(ctx, tenantID)
}

// Suspend takes the tenant out of service.
func (s *TenantService) Suspend(ctx context.Context, tenantID, actorUserID string) (domain.Tenant, error) {
	if err := s.Store.Tenants().SetStatus(ctx, tenantID, domain.TenantStatusSuspended); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Tenant{}, ErrNotFound
		}
		return domain.Tenant{}, err
	}

	tenant, err := s.Store.Tenants().GetTenantByID(ctx, tenantID)
	if err != nil {
		return domain.Tenant{}, err
	}

	s.Audit.Record(ctx, strPtr(actorUserID), strPtr(tenantID), "tenant.suspend", nil)
	return tenant, nil
}

// List returns all tenants, newest first.
func (s *TenantService) List(ctx context.Context) ([]domain.Tenant, error) {
	return s.Store.Tenants().ListTenants(ctx)
}

// AuditTrail returns the tenant's most recent audit entries.
func (s *TenantService) AuditTrail(ctx context.Context, tenantID string, limit int) ([]domain.AuditEntry, error) {
	if _, err := s.Store.Tenants().GetTenantByID(ctx, tenantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Store.AuditLog().ListByTenant(ctx, tenantID, limit)
}
