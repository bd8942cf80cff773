package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
)

// BookmarkService is the mutation gateway used by the bookmark handlers.
type BookmarkService interface {
	Create(ctx context.Context, params model.CreateBookmarkParams) (model.Bookmark, error)
	Delete(ctx context.Context, ownerID uuid.UUID, id uuid.UUID) error
	List(ctx context.Context, ownerID uuid.UUID) ([]model.Bookmark, error)
}

// Bookmark serves /api/bookmarks.
type Bookmark struct {
	service        BookmarkService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewBookmark(service BookmarkService, contextManager model.ContextManager, logger *logger.Logger) *Bookmark {
	return &Bookmark{
		service:        service,
		contextManager: contextManager,
		logger:         logger,
	}
}

// CreateBookmarkRequest is the body of POST /api/bookmarks.
type CreateBookmarkRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

func (h *Bookmark) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	bookmarks, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, bookmarks)
}

func (h *Bookmark) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateBookmarkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, err, h.logger)
		return
	}

	bookmark, err := h.service.Create(r.Context(), model.CreateBookmarkParams{
		OwnerID: userID,
		URL:     req.URL,
		Title:   req.Title,
	})
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusCreated, bookmark)
}

// Delete handles DELETE /api/bookmarks?id={id}.
func (h *Bookmark) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	rawID := r.URL.Query().Get("id")
	if rawID == "" {
		WriteError(w, http.StatusBadRequest, "ID is required")
		return
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "ID is invalid")
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		handleError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
