package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookmarkStore defines persistence operations for bookmarks.
// Every read and delete is scoped by owner.
type BookmarkStore interface {
	Insert(ctx context.Context, bookmark Bookmark) (Bookmark, error)
	DeleteOwned(ctx context.Context, ownerID uuid.UUID, id uuid.UUID) (bool, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Bookmark, error)
}

// Bookmark is a saved URL owned by exactly one user.
type Bookmark struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	OwnerID   uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BookmarkRef identifies a bookmark that no longer exists.
type BookmarkRef struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"user_id"`
}

// CreateBookmarkParams contains parameters to create a bookmark.
type CreateBookmarkParams struct {
	OwnerID uuid.UUID
	URL     string
	Title   string
}
