package reconcile

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
)

// ErrStopped is returned once Run has returned.
var ErrStopped = errors.New("reconciler stopped")

// EventKind names a producer input.
type EventKind int

const (
	EventSnapshot EventKind = iota + 1
	EventCreateStarted
	EventCreateFailed
	EventLocalInsert
	EventRemoteInsert
	EventRemoteDelete
	EventDeleteStarted
	EventDeleteFailed
	EventLocalDeleteConfirmed
	EventResyncStarted
	EventResyncAborted
)

func (k EventKind) String() string {
	switch k {
	case EventSnapshot:
		return "snapshot"
	case EventCreateStarted:
		return "create_started"
	case EventCreateFailed:
		return "create_failed"
	case EventLocalInsert:
		return "local_insert"
	case EventRemoteInsert:
		return "remote_insert"
	case EventRemoteDelete:
		return "remote_delete"
	case EventDeleteStarted:
		return "delete_started"
	case EventDeleteFailed:
		return "delete_failed"
	case EventLocalDeleteConfirmed:
		return "local_delete_confirmed"
	case EventResyncStarted:
		return "resync_started"
	case EventResyncAborted:
		return "resync_aborted"
	default:
		return "unknown"
	}
}

// Event is one input to the reconciler. Build events with the constructors
// below.
type Event struct {
	Kind     EventKind
	Snapshot []model.Bookmark
	Bookmark model.Bookmark
	ID       uuid.UUID
}

func Snapshot(bookmarks []model.Bookmark) Event {
	return Event{Kind: EventSnapshot, Snapshot: bookmarks}
}

func CreateStarted() Event { return Event{Kind: EventCreateStarted} }

func CreateFailed() Event { return Event{Kind: EventCreateFailed} }

func LocalInsert(b model.Bookmark) Event { return Event{Kind: EventLocalInsert, Bookmark: b} }

func RemoteInsert(b model.Bookmark) Event { return Event{Kind: EventRemoteInsert, Bookmark: b} }

func RemoteDelete(id uuid.UUID) Event { return Event{Kind: EventRemoteDelete, ID: id} }

func DeleteStarted(id uuid.UUID) Event { return Event{Kind: EventDeleteStarted, ID: id} }

func DeleteFailed(id uuid.UUID) Event { return Event{Kind: EventDeleteFailed, ID: id} }

func LocalDeleteConfirmed(id uuid.UUID) Event {
	return Event{Kind: EventLocalDeleteConfirmed, ID: id}
}

// ResyncStarted must be submitted before a snapshot request is sent. Inserts
// and deletes applied until the snapshot arrives are reapplied on top of it,
// since the snapshot may have been read before they happened.
func ResyncStarted() Event { return Event{Kind: EventResyncStarted} }

// ResyncAborted ends a resync whose snapshot request failed.
func ResyncAborted() Event { return Event{Kind: EventResyncAborted} }

// FromChange translates a realtime change into a reconciler event.
func FromChange(change model.ChangeEvent) (Event, bool) {
	switch {
	case change.Type == model.ChangeInsert && change.New != nil:
		return RemoteInsert(*change.New), true
	case change.Type == model.ChangeDelete && change.Old != nil:
		return RemoteDelete(change.Old.ID), true
	default:
		return Event{}, false
	}
}

// Update is the view after a change.
type Update struct {
	Items   []Entry
	Pending int
}

// Reconciler owns a View and applies events to it from a single goroutine.
// Producers call Submit from any goroutine; observers read Updates.
type Reconciler struct {
	view    *View
	pending int

	// journal holds inserts and deletes applied since ResyncStarted; nil
	// while no resync is in flight.
	journal []Event

	events  chan Event
	reads   chan chan Update
	updates chan Update
	done    chan struct{}
	runOnce sync.Once
	logger  *logger.Logger
}

// New creates a Reconciler whose input queue holds buffer events.
func New(buffer int, logger *logger.Logger) *Reconciler {
	if buffer < 1 {
		buffer = 1
	}
	return &Reconciler{
		view:    NewView(),
		events:  make(chan Event, buffer),
		reads:   make(chan chan Update),
		updates: make(chan Update, 1),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// Run applies events until ctx is cancelled. It closes Updates on return.
func (r *Reconciler) Run(ctx context.Context) error {
	err := ErrStopped
	r.runOnce.Do(func() {
		defer close(r.updates)
		defer close(r.done)

		for {
			select {
			case <-ctx.Done():
				err = ctx.Err()
				return
			case ev := <-r.events:
				if r.apply(ev) {
					r.publish()
				}
			case reply := <-r.reads:
				r.drain()
				reply <- r.snapshot()
			}
		}
	})
	return err
}

// Submit queues ev for the loop.
func (r *Reconciler) Submit(ctx context.Context, ev Event) error {
	select {
	case <-r.done:
		return ErrStopped
	default:
	}

	select {
	case r.events <- ev:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current returns the view after every event accepted by Submit before the
// call has been applied.
func (r *Reconciler) Current(ctx context.Context) (Update, error) {
	reply := make(chan Update, 1)
	select {
	case r.reads <- reply:
	case <-r.done:
		return Update{}, ErrStopped
	case <-ctx.Done():
		return Update{}, ctx.Err()
	}
	select {
	case u := <-reply:
		return u, nil
	case <-ctx.Done():
		return Update{}, ctx.Err()
	}
}

// Updates delivers the latest view after each change. Intermediate updates
// are dropped when the observer falls behind.
func (r *Reconciler) Updates() <-chan Update {
	return r.updates
}

// Done is closed when Run returns.
func (r *Reconciler) Done() <-chan struct{} {
	return r.done
}

func (r *Reconciler) apply(ev Event) bool {
	switch ev.Kind {
	case EventLocalInsert, EventRemoteInsert, EventRemoteDelete, EventLocalDeleteConfirmed:
		if r.journal != nil {
			r.journal = append(r.journal, ev)
		}
	}

	switch ev.Kind {
	case EventResyncStarted:
		r.journal = make([]Event, 0)
		return false
	case EventResyncAborted:
		r.journal = nil
		return false
	case EventSnapshot:
		r.view.Load(ev.Snapshot)
		for _, j := range r.journal {
			r.replay(j)
		}
		r.journal = nil
		return true
	case EventCreateStarted:
		r.pending++
		return true
	case EventCreateFailed:
		return r.settleCreate()
	case EventLocalInsert:
		settled := r.settleCreate()
		return r.view.MergeInsert(ev.Bookmark) || settled
	case EventRemoteInsert:
		return r.view.MergeInsert(ev.Bookmark)
	case EventRemoteDelete, EventLocalDeleteConfirmed:
		return r.view.MergeDelete(ev.ID)
	case EventDeleteStarted:
		return r.view.MarkDeleting(ev.ID)
	case EventDeleteFailed:
		return r.view.ClearDeleting(ev.ID)
	default:
		r.logger.Warn("Reconciler: unknown event", "kind", int(ev.Kind))
		return false
	}
}

// replay reapplies a journaled change on top of a freshly loaded view.
func (r *Reconciler) replay(ev Event) {
	switch ev.Kind {
	case EventLocalInsert, EventRemoteInsert:
		r.view.MergeInsert(ev.Bookmark)
	case EventRemoteDelete, EventLocalDeleteConfirmed:
		r.view.MergeDelete(ev.ID)
	}
}

// drain applies queued events so reads observe every accepted Submit.
func (r *Reconciler) drain() {
	changed := false
	for {
		select {
		case ev := <-r.events:
			if r.apply(ev) {
				changed = true
			}
		default:
			if changed {
				r.publish()
			}
			return
		}
	}
}

func (r *Reconciler) settleCreate() bool {
	if r.pending == 0 {
		return false
	}
	r.pending--
	return true
}

func (r *Reconciler) snapshot() Update {
	return Update{Items: r.view.Items(), Pending: r.pending}
}

func (r *Reconciler) publish() {
	u := r.snapshot()
	select {
	case r.updates <- u:
		return
	default:
	}
	// Replace the stale update the observer has not read yet.
	select {
	case <-r.updates:
	default:
	}
	select {
	case r.updates <- u:
	default:
	}
}
