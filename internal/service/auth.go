package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
)

const minPasswordLength = 8

// Auth authenticates users and hands out sessions.
type Auth struct {
	userStore    model.UserStore
	tokenService *TokenService
	bcryptCost   int
	logger       *logger.Logger
}

func NewAuth(userStore model.UserStore, tokenService *TokenService, logger *logger.Logger) *Auth {
	return &Auth{
		userStore:    userStore,
		tokenService: tokenService,
		bcryptCost:   bcrypt.DefaultCost,
		logger:       logger,
	}
}

func (a *Auth) Register(ctx context.Context, params model.RegisterParams) (model.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return model.Profile{}, model.NewValidationError("email", "email is invalid")
	}
	if len(params.Password) < minPasswordLength {
		return model.Profile{}, model.NewValidationError("password",
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	a.logger.Debug("Auth service: registering user", "email", email)

	_, err := a.userStore.GetByEmail(ctx, email)
	if err == nil {
		a.logger.Info("Auth service: user already exists", "email", email)
		return model.Profile{}, model.ErrEmailTaken
	}
	if !errors.Is(err, model.ErrNotFound) {
		a.logger.Error("Auth service: failed to get user by email",
			"email", email,
			"error", err.Error())
		return model.Profile{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), a.bcryptCost)
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := a.userStore.Create(ctx, model.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         trimmedOrNil(params.Name),
		AvatarURL:    trimmedOrNil(params.Avatar),
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return model.Profile{}, err
		}
		a.logger.Error("Auth service: failed to create user",
			"email", email,
			"error", err.Error())
		return model.Profile{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.Info("Auth service: user registered", "user_id", user.ID)

	return user.Profile(), nil
}

func (a *Auth) Login(ctx context.Context, email, password string) (model.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := a.userStore.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		a.logger.Info("Auth service: login for unknown email", "email", email)
		return model.Session{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		a.logger.Info("Auth service: wrong password", "user_id", user.ID)
		return model.Session{}, model.ErrInvalidCredentials
	}

	session, err := a.tokenService.Issue(ctx, user.ID)
	if err != nil {
		a.logger.Error("Auth service: failed to issue tokens",
			"user_id", user.ID,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	a.logger.Info("Auth service: user logged in", "user_id", user.ID)

	return session, nil
}

func (a *Auth) Refresh(ctx context.Context, refreshToken string) (model.Session, error) {
	return a.tokenService.Refresh(ctx, refreshToken)
}

// SignOut revokes every refresh token of the user. Access tokens stay valid
// until they expire.
func (a *Auth) SignOut(ctx context.Context, userID uuid.UUID) error {
	if err := a.tokenService.RevokeAllForUser(ctx, userID); err != nil {
		a.logger.Error("Auth service: failed to sign out",
			"user_id", userID,
			"error", err.Error())
		return err
	}
	a.logger.Info("Auth service: user signed out", "user_id", userID)
	return nil
}

func (a *Auth) CurrentUser(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	user, err := a.userStore.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Profile{}, model.ErrUnauthorized
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user.Profile(), nil
}

// GetUserID resolves an access token to its user.
func (a *Auth) GetUserID(ctx context.Context, token string) (uuid.UUID, error) {
	return a.tokenService.GetUserID(ctx, token)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
