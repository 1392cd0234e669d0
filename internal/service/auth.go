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
	"github.com/haven-collective/haven/pkg/jwtx"
	"github.com/haven-collective/haven/pkg/slogx"
)

// AuthService handles registration, password authentication and the
// access/refresh token lifecycle.
type AuthService struct {
	Store      store.Store
	Signer     jwtx.Signer
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Audit      *AuditRecorder
}

// SessionMeta carries per-request metadata stored alongside refresh tokens.
type SessionMeta struct {
	IP        string
	UserAgent string
}

// Register creates a new user with a normalized email and an argon2 password
// hash. A taken email reports ErrEmailExists.
func (s *AuthService) Register(ctx context.Context, email, password string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	email = domain.NormalizeEmail(email)
	if email == "" || len(password) < 8 {
		return domain.User{}, ErrValidation
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailExists
		}
		return domain.User{}, err
	}

	log.Info("user registered", slog.String("user_id", user.ID))
	s.Audit.Record(ctx, strPtr(user.ID), nil, "auth.register", map[string]any{"email": email})
	return user, nil
}

// Authenticate verifies the password and issues a fresh token pair.
func (s *AuthService) Authenticate(ctx context.Context, email, password string, meta SessionMeta) (domain.User, domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		log.Info("authentication failed", slog.String("user_id", user.ID))
		return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, s.Store, user.ID, user.Email, user.Role, meta, time.Now())
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	s.Audit.Record(ctx, strPtr(user.ID), nil, "auth.login", map[string]any{"ip": meta.IP})
	return user, pair, nil
}

// Refresh rotates the presented refresh token and issues a new pair.
//
// The presented access token is decoded WITHOUT signature verification: an
// expired access token can still be refreshed, and possession of the live
// refresh token is the actual authority check. A payload missing subject,
// email or role fails with ErrInvalidTokenPayload before any rotation.
func (s *AuthService) Refresh(ctx context.Context, accessToken, rawRefresh string, meta SessionMeta) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	claims, err := jwtx.DecodeUnverified(accessToken)
	if err != nil {
		return domain.TokenPair{}, ErrInvalidTokenPayload
	}
	if claims.Subject == "" || claims.Email == "" || claims.Role == "" {
		return domain.TokenPair{}, ErrInvalidTokenPayload
	}

	now := time.Now()
	oldHash := cryptox.FingerprintToken(rawRefresh)

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		newRaw, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return err
		}
		newHash := cryptox.FingerprintToken(newRaw)

		// Single conditional write: matches only an unrevoked, unexpired
		// row for this user. A replayed token matches nothing.
		rotated, err := tx.RefreshTokens().MarkRotated(ctx, oldHash, claims.Subject, newHash, now)
		if err != nil {
			return err
		}
		if !rotated {
			log.Warn("refresh token rotation rejected", slog.String("user_id", claims.Subject))
			return ErrInvalidToken
		}

		if err := tx.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    claims.Subject,
			TokenHash: newHash,
			IP:        meta.IP,
			UserAgent: meta.UserAgent,
			ExpiresAt: now.Add(s.refreshTTL()),
		}); err != nil {
			return err
		}

		access, err := s.signAccess(claims.Subject, claims.Email, claims.Role, now)
		if err != nil {
			return err
		}

		pair = domain.TokenPair{
			AccessToken:  access,
			RefreshToken: newRaw,
			TokenType:    "Bearer",
			ExpiresIn:    s.accessTTL(),
		}
		return nil
	})
	if err != nil {
		return domain.TokenPair{}, err
	}
	return pair, nil
}

// Logout revokes the presented refresh token. Idempotent: revoking an
// already-revoked or unknown token succeeds silently.
func (s *AuthService) Logout(ctx context.Context, rawRefresh, userID string) error {
	hash := cryptox.FingerprintToken(rawRefresh)
	if err := s.Store.RefreshTokens().Revoke(ctx, hash, userID, time.Now()); err != nil {
		return err
	}
	s.Audit.Record(ctx, strPtr(userID), nil, "auth.logout", nil)
	return nil
}

// issuePair issues a signed access token plus a fresh opaque refresh token.
func (s *AuthService) issuePair(
	ctx context.Context,
	st store.Store,
	userID, email, role string,
	meta SessionMeta,
	now time.Time,
) (domain.TokenPair, error) {
	access, err := s.signAccess(userID, email, role, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	rawRefresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, err
	}

	if err := st.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(rawRefresh),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		ExpiresAt: now.Add(s.refreshTTL()),
	}); err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: rawRefresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.accessTTL(),
	}, nil
}

func (s *AuthService) signAccess(userID, email, role string, now time.Time) (string, error) {
	claims := jwtx.NewAccessClaims(userID, email, role, s.accessTTL(), s.Issuer, now)
	return s.Signer.Sign(claims)
}

func (s *AuthService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

func (s *AuthService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}
