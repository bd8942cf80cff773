package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
)

var _ model.ChangeFeed = (*Hub)(nil)

// Hub fans change events out to subscriptions of the event's owner.
type Hub struct {
	mu         sync.RWMutex
	subs       map[uuid.UUID]map[*Subscription]struct{}
	closed     bool
	bufferSize int
	logger     *logger.Logger
}

// NewHub creates a Hub whose subscriptions buffer up to bufferSize events.
func NewHub(bufferSize int, logger *logger.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Hub{
		subs:       make(map[uuid.UUID]map[*Subscription]struct{}),
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Subscribe registers interest in the changes of ownerID.
// The caller must Close the subscription.
func (h *Hub) Subscribe(ownerID uuid.UUID) model.Subscription {
	sub := &Subscription{
		hub:     h,
		ownerID: ownerID,
		events:  make(chan model.ChangeEvent, h.bufferSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.events)
		sub.done = true
		return sub
	}

	owned, ok := h.subs[ownerID]
	if !ok {
		owned = make(map[*Subscription]struct{})
		h.subs[ownerID] = owned
	}
	owned[sub] = struct{}{}

	return sub
}

// Dispatch delivers event to every subscription of its owner. A subscription
// whose buffer is full is closed instead, so its reader resyncs rather than
// silently missing the event. A reset event closes every subscription.
func (h *Hub) Dispatch(event model.ChangeEvent) {
	if event.Type == model.ChangeReset {
		h.logger.Warn("Hub: source reported a gap, closing subscriptions")
		h.closeSubscriptions()
		return
	}

	owner := event.OwnerID()
	if owner == uuid.Nil {
		return
	}

	var overflowed []*Subscription

	h.mu.RLock()
	for sub := range h.subs[owner] {
		select {
		case sub.events <- event:
		default:
			overflowed = append(overflowed, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range overflowed {
		h.logger.Warn("Hub: subscriber is slow, closing subscription",
			"owner_id", owner, "bookmark_id", event.BookmarkID(), "type", event.Type)
		h.remove(sub)
	}
}

// Run consumes source and dispatches its events until ctx is done or the
// source fails. Every open subscription is closed when Run returns.
func (h *Hub) Run(ctx context.Context, source model.ChangeSource) error {
	defer h.closeAll()

	events := make(chan model.ChangeEvent, h.bufferSize)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return source.Run(ctx, events)
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case event := <-events:
				h.Dispatch(event)
			}
		}
	})

	return g.Wait()
}

// Subscribers returns the number of open subscriptions of ownerID.
func (h *Hub) Subscribers(ownerID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[ownerID])
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub.done {
		return
	}
	sub.done = true

	if owned, ok := h.subs[sub.ownerID]; ok {
		delete(owned, sub)
		if len(owned) == 0 {
			delete(h.subs, sub.ownerID)
		}
	}
	close(sub.events)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	h.closeLocked()
}

// closeSubscriptions ends every open subscription and keeps accepting new ones.
func (h *Hub) closeSubscriptions() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closeLocked()
}

func (h *Hub) closeLocked() {
	for owner, owned := range h.subs {
		for sub := range owned {
			sub.done = true
			close(sub.events)
		}
		delete(h.subs, owner)
	}
}

// Subscription is a scoped stream of one owner's changes.
type Subscription struct {
	hub     *Hub
	ownerID uuid.UUID
	events  chan model.ChangeEvent
	// guarded by hub.mu
	done bool
}

// Events returns the stream of changes. It is closed after Close or when the
// hub stops.
func (s *Subscription) Events() <-chan model.ChangeEvent {
	return s.events
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}
