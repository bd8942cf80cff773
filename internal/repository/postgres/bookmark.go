package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/smartmarks-server/internal/model"
)

var _ model.BookmarkStore = (*BookmarkRepository)(nil)

type BookmarkRepository struct {
	db *Connection
}

func NewBookmarkRepository(db *Connection) *BookmarkRepository {
	return &BookmarkRepository{
		db: db,
	}
}

// Insert stores a bookmark. The id and created_at are assigned by the database.
func (r *BookmarkRepository) Insert(ctx context.Context, bookmark model.Bookmark) (model.Bookmark, error) {
	query := `INSERT INTO bookmarks (url, title, user_id)
			  VALUES ($1, $2, $3)
			  RETURNING id, url, title, user_id, created_at`

	var saved model.Bookmark
	err := r.db.QueryRow(ctx, query, bookmark.URL, bookmark.Title, bookmark.OwnerID).Scan(
		&saved.ID, &saved.URL, &saved.Title, &saved.OwnerID, &saved.CreatedAt,
	)
	if err != nil {
		return model.Bookmark{}, fmt.Errorf("failed to insert bookmark: %w", err)
	}

	return saved, nil
}

// DeleteOwned removes the bookmark only when both id and owner match.
// It reports whether a row was removed.
func (r *BookmarkRepository) DeleteOwned(ctx context.Context, ownerID uuid.UUID, id uuid.UUID) (bool, error) {
	query := `DELETE FROM bookmarks WHERE id = $1 AND user_id = $2`

	tag, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to delete bookmark: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListByOwner returns the owner's bookmarks, newest first.
func (r *BookmarkRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Bookmark, error) {
	query := `SELECT id, url, title, user_id, created_at
			  FROM bookmarks
			  WHERE user_id = $1
			  ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	bookmarks := make([]model.Bookmark, 0)
	for rows.Next() {
		var b model.Bookmark
		if err := rows.Scan(&b.ID, &b.URL, &b.Title, &b.OwnerID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookmarks: %w", err)
	}

	return bookmarks, nil
}
