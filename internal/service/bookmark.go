package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
)

// Bookmark validates and applies bookmark mutations for an authenticated owner.
type Bookmark struct {
	store     model.BookmarkStore
	publisher model.ChangePublisher
	logger    *logger.Logger
}

func NewBookmark(store model.BookmarkStore, publisher model.ChangePublisher, logger *logger.Logger) *Bookmark {
	return &Bookmark{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Create stores a bookmark for ownerID. Blank url or title yields a
// ValidationError; the url gets an https scheme when it has none.
func (s *Bookmark) Create(ctx context.Context, params model.CreateBookmarkParams) (model.Bookmark, error) {
	url := model.NormalizeURL(params.URL)
	title := strings.TrimSpace(params.Title)

	if url == "" {
		return model.Bookmark{}, model.NewValidationError("url", "URL and title are required")
	}
	if title == "" {
		return model.Bookmark{}, model.NewValidationError("title", "URL and title are required")
	}

	saved, err := s.store.Insert(ctx, model.Bookmark{
		URL:     url,
		Title:   title,
		OwnerID: params.OwnerID,
	})
	if err != nil {
		s.logger.Error("Bookmark service: failed to insert bookmark",
			"owner_id", params.OwnerID,
			"error", err.Error())
		return model.Bookmark{}, model.NewStoreError("insert bookmark", err)
	}

	s.publish(ctx, model.NewInsertEvent(saved))

	s.logger.Info("Bookmark service: bookmark created",
		"owner_id", saved.OwnerID,
		"bookmark_id", saved.ID)

	return saved, nil
}

// Delete removes bookmark id when it belongs to ownerID. Deleting a missing
// or foreign bookmark succeeds without effect.
func (s *Bookmark) Delete(ctx context.Context, ownerID uuid.UUID, id uuid.UUID) error {
	if id == uuid.Nil {
		return model.NewValidationError("id", "ID is required")
	}

	removed, err := s.store.DeleteOwned(ctx, ownerID, id)
	if err != nil {
		s.logger.Error("Bookmark service: failed to delete bookmark",
			"owner_id", ownerID,
			"bookmark_id", id,
			"error", err.Error())
		return model.NewStoreError("delete bookmark", err)
	}

	if !removed {
		s.logger.Debug("Bookmark service: nothing to delete",
			"owner_id", ownerID,
			"bookmark_id", id)
		return nil
	}

	s.publish(ctx, model.NewDeleteEvent(ownerID, id))

	s.logger.Info("Bookmark service: bookmark deleted",
		"owner_id", ownerID,
		"bookmark_id", id)

	return nil
}

// List returns the owner's bookmarks, newest first.
func (s *Bookmark) List(ctx context.Context, ownerID uuid.UUID) ([]model.Bookmark, error) {
	bookmarks, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("Bookmark service: failed to list bookmarks",
			"owner_id", ownerID,
			"error", err.Error())
		return nil, model.NewStoreError("list bookmarks", err)
	}
	return bookmarks, nil
}

// publish announces a committed change. Publish failures are logged, never
// returned to the caller.
func (s *Bookmark) publish(ctx context.Context, event model.ChangeEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Bookmark service: failed to publish change",
			"type", event.Type,
			"bookmark_id", event.BookmarkID(),
			"error", err.Error())
	}
}
