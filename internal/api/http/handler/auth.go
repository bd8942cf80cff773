package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
)

// AuthService is the identity provider used by the auth handlers.
type AuthService interface {
	Register(ctx context.Context, params model.RegisterParams) (model.Profile, error)
	Login(ctx context.Context, email, password string) (model.Session, error)
	Refresh(ctx context.Context, refreshToken string) (model.Session, error)
	SignOut(ctx context.Context, userID uuid.UUID) error
	CurrentUser(ctx context.Context, userID uuid.UUID) (model.Profile, error)
}

// Auth serves /api/auth.
type Auth struct {
	service        AuthService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewAuth(service AuthService, contextManager model.ContextManager, logger *logger.Logger) *Auth {
	return &Auth{
		service:        service,
		contextManager: contextManager,
		logger:         logger,
	}
}

type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, err, h.logger)
		return
	}

	profile, err := h.service.Register(r.Context(), model.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Avatar:   req.Avatar,
	})
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusCreated, profile)
}

func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, err, h.logger)
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, session)
}

func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, err, h.logger)
		return
	}
	if req.RefreshToken == "" {
		WriteError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	session, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, session)
}

func (h *Auth) SignOut(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.SignOut(r.Context(), userID); err != nil {
		handleError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *Auth) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	profile, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, profile)
}
