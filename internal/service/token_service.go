package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
)

// TokenService issues, rotates and revokes token pairs. It composes the
// TokenManager and RefreshTokenStore.
type TokenService struct {
	manager    model.TokenManager
	store      model.RefreshTokenStore
	refreshTTL time.Duration
	logger     *logger.Logger
	now        func() time.Time
}

// NewTokenService creates a TokenService. refreshTTL is the persisted expiry
// and must match the lifetime the manager signs into refresh tokens.
func NewTokenService(manager model.TokenManager, store model.RefreshTokenStore, refreshTTL time.Duration, logger *logger.Logger) *TokenService {
	return &TokenService{
		manager:    manager,
		store:      store,
		refreshTTL: refreshTTL,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID) (model.Session, error) {
	session, rt, err := s.generate(userID)
	if err != nil {
		return model.Session{}, err
	}

	if err := s.store.Create(ctx, rt); err != nil {
		return model.Session{}, fmt.Errorf("persist refresh: %w", err)
	}

	return session, nil
}

// Refresh validates the presented refresh token against its stored hash and
// rotates it. Any failure to validate is reported as model.ErrUnauthorized.
func (s *TokenService) Refresh(ctx context.Context, presentedRefresh string) (model.Session, error) {
	userID, jti, err := s.manager.ParseRefreshToken(presentedRefresh)
	if err != nil {
		return model.Session{}, fmt.Errorf("%w: %w", model.ErrUnauthorized, err)
	}

	rt, err := s.store.GetByJTI(ctx, jti)
	if err != nil {
		return model.Session{}, fmt.Errorf("%w: %w", model.ErrUnauthorized, err)
	}

	if err := validateRecord(rt, hashRefresh(presentedRefresh), s.now()); err != nil {
		s.logger.Warn("Token service: refresh rejected",
			"user_id", userID,
			"jti", jti,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("%w: %w", model.ErrUnauthorized, err)
	}

	session, next, err := s.generate(userID)
	if err != nil {
		return model.Session{}, err
	}

	if err := s.store.Rotate(ctx, jti, next); err != nil {
		return model.Session{}, fmt.Errorf("%w: rotate refresh: %w", model.ErrUnauthorized, err)
	}

	return session, nil
}

func (s *TokenService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.RevokeAllByUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

// GetUserID resolves an access token to its user.
func (s *TokenService) GetUserID(ctx context.Context, token string) (uuid.UUID, error) {
	userID, err := s.manager.ParseAccessToken(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", model.ErrUnauthorized, err)
	}
	return userID, nil
}

func (s *TokenService) generate(userID uuid.UUID) (model.Session, model.RefreshToken, error) {
	access, err := s.manager.GenerateAccessToken(userID)
	if err != nil {
		return model.Session{}, model.RefreshToken{}, fmt.Errorf("issue access: %w", err)
	}

	refresh, jti, err := s.manager.GenerateRefreshToken(userID)
	if err != nil {
		return model.Session{}, model.RefreshToken{}, fmt.Errorf("issue refresh: %w", err)
	}

	now := s.now()
	rt := model.RefreshToken{
		ID:        uuid.New(),
		JTI:       jti,
		UserID:    userID,
		TokenHash: hashRefresh(refresh),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTTL),
	}

	return model.Session{AccessToken: access, RefreshToken: refresh}, rt, nil
}

func hashRefresh(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}

func validateRecord(rt model.RefreshToken, presentedHash []byte, now time.Time) error {
	if err := rt.Usable(now); err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(rt.TokenHash, presentedHash) != 1 {
		return model.ErrTokenMismatch
	}
	return nil
}
