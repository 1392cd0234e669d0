package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/haven-collective/haven/internal/domain"
	"github.com/haven-collective/haven/internal/store"
	"github.com/haven-collective/haven/pkg/cryptox"
	"github.com/haven-collective/haven/pkg/idx"
	"github.com/haven-collective/haven/pkg/slogx"
)

var (
	ErrBootstrapAlready      = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")
)

// BootstrapService performs one-time initialization: it seeds the operator
// account and the initial plan catalog. It only works while the user table
// is empty and the configured bootstrap token matches.
type BootstrapService struct {
	Store store.Store
	Token string // pre-configured bootstrap token
}

// PlanSeed describes one plan to create during bootstrap.
type PlanSeed struct {
	Name         string
	MaxMembers   int
	MaxAdmins    int
	FeatureFlags []string
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Bootstrap creates the super_admin user and the plan catalog in one
// transaction. Returns the new operator's user ID.
func (s *BootstrapService) Bootstrap(
	ctx context.Context,
	token, adminEmail, adminPassword string,
	plans []PlanSeed,
) (string, error) {
	l := slogx.FromContext(ctx)

	// 1. Check if already bootstrapped
	if bootstrapped, _ := s.IsBootstrapped(ctx); bootstrapped {
		l.Warn("attempted bootstrap on already-bootstrapped system")
		return "", ErrBootstrapAlready
	}

	// 2. Validate provided token
	if s.Token == "" || token != s.Token {
		l.Warn("unauthorized bootstrap attempt")
		return "", ErrBootstrapUnauthorized
	}

	adminEmail = domain.NormalizeEmail(adminEmail)
	if adminEmail == "" || len(adminPassword) < 8 {
		return "", ErrValidation
	}

	// 3. Hash password
	passHash, err := cryptox.HashPassword(adminPassword)
	if err != nil {
		l.Error("failed to hash operator password", slog.Any("error", err))
		return "", err
	}

	// 4. Create operator and plans in a transaction
	adminUserID := idx.New().String()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, domain.User{
			ID:           adminUserID,
			Email:        adminEmail,
			PasswordHash: passHash,
			Role:         domain.RoleSuperAdmin,
		}); err != nil {
			l.Error("failed to create operator user", slog.Any("error", err))
			return err
		}

		for _, seed := range plans {
			if seed.Name == "" {
				return ErrValidation
			}
			if err := tx.Plans().CreatePlan(ctx, domain.Plan{
				ID:           idx.New().String(),
				Name:         seed.Name,
				MaxMembers:   seed.MaxMembers,
				MaxAdmins:    seed.MaxAdmins,
				FeatureFlags: seed.FeatureFlags,
			}); err != nil {
				l.Error("failed to create plan", slog.String("plan", seed.Name), slog.Any("error", err))
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	l.Info("system bootstrapped", slog.String("admin_user_id", adminUserID), slog.Int("plans", len(plans)))
	return adminUserID, nil
}
