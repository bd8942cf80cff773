package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
)

// ExportService archives bookmark exports.
type ExportService interface {
	Create(ctx context.Context, ownerID uuid.UUID) (string, error)
	Open(ctx context.Context, ownerID uuid.UUID, name string) (io.ReadCloser, error)
}

// Export serves /api/bookmarks/exports.
type Export struct {
	service        ExportService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewExport(service ExportService, contextManager model.ContextManager, logger *logger.Logger) *Export {
	return &Export{
		service:        service,
		contextManager: contextManager,
		logger:         logger,
	}
}

type ExportResponse struct {
	Name string `json:"name"`
}

func (h *Export) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	name, err := h.service.Create(r.Context(), userID)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusCreated, ExportResponse{Name: name})
}

func (h *Export) Download(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	rc, err := h.service.Open(r.Context(), userID, chi.URLParam(r, "name"))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("Export handler: failed to stream export", "error", err.Error())
	}
}
