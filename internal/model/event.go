package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ChangeType enumerates row-level change kinds delivered by the change feed.
type ChangeType string

const (
	// ChangeInsert is emitted after a bookmark row is inserted.
	ChangeInsert ChangeType = "INSERT"
	// ChangeDelete is emitted after a bookmark row is deleted.
	ChangeDelete ChangeType = "DELETE"
	// ChangeReset is emitted by a source that may have missed changes, for
	// example after it reconnected. It is never sent over the wire.
	ChangeReset ChangeType = "RESET"
)

// ChangeEvent describes a single row-level change of the bookmarks table.
// New is set for inserts, Old for deletes.
type ChangeEvent struct {
	Type ChangeType   `json:"type"`
	New  *Bookmark    `json:"new,omitempty"`
	Old  *BookmarkRef `json:"old,omitempty"`
}

// OwnerID returns the owner of the changed row.
func (e ChangeEvent) OwnerID() uuid.UUID {
	switch {
	case e.New != nil:
		return e.New.OwnerID
	case e.Old != nil:
		return e.Old.OwnerID
	default:
		return uuid.Nil
	}
}

// BookmarkID returns the id of the changed row.
func (e ChangeEvent) BookmarkID() uuid.UUID {
	switch {
	case e.New != nil:
		return e.New.ID
	case e.Old != nil:
		return e.Old.ID
	default:
		return uuid.Nil
	}
}

// Valid reports whether the event carries the payload its type requires.
func (e ChangeEvent) Valid() bool {
	switch e.Type {
	case ChangeInsert:
		return e.New != nil && e.New.ID != uuid.Nil
	case ChangeDelete:
		return e.Old != nil && e.Old.ID != uuid.Nil
	default:
		return false
	}
}

// NewInsertEvent builds an insert change for a stored bookmark.
func NewInsertEvent(b Bookmark) ChangeEvent {
	return ChangeEvent{Type: ChangeInsert, New: &b}
}

// NewDeleteEvent builds a delete change for a removed bookmark.
func NewDeleteEvent(ownerID, id uuid.UUID) ChangeEvent {
	return ChangeEvent{Type: ChangeDelete, Old: &BookmarkRef{ID: id, OwnerID: ownerID}}
}

// NewResetEvent builds the marker a source emits after a gap in its stream.
func NewResetEvent() ChangeEvent {
	return ChangeEvent{Type: ChangeReset}
}

// ChangePublisher announces bookmark changes to the change feed.
type ChangePublisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

// ChangeSource produces change events until ctx is done or the source fails.
// After recovering from a gap it emits a reset event.
type ChangeSource interface {
	Run(ctx context.Context, out chan<- ChangeEvent) error
}

// ParseChangeEvent decodes the JSON wire form of a change and validates it.
func ParseChangeEvent(data []byte) (ChangeEvent, error) {
	var event ChangeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return ChangeEvent{}, fmt.Errorf("failed to decode change: %w", err)
	}
	if !event.Valid() {
		return ChangeEvent{}, errors.New("change event is incomplete")
	}
	return event, nil
}

// Subscription is a scoped stream of one owner's changes. Close is idempotent
// and closes the Events channel.
type Subscription interface {
	Events() <-chan ChangeEvent
	Close()
}

// ChangeFeed hands out owner-scoped subscriptions.
type ChangeFeed interface {
	Subscribe(ownerID uuid.UUID) Subscription
}
