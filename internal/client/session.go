package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
	"github.com/dtroode/smartmarks-server/internal/reconcile"
)

// ErrSessionStarted is returned by a second Start.
var ErrSessionStarted = errors.New("session already started")

// BookmarkAPI is the part of the server API a Session mutates through.
type BookmarkAPI interface {
	List(ctx context.Context) ([]model.Bookmark, error)
	Create(ctx context.Context, rawURL, title string) (model.Bookmark, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ChangeStream delivers realtime changes until ctx is done.
type ChangeStream interface {
	Run(ctx context.Context, out chan<- FeedEvent) error
}

// Session keeps a reconciled view of the signed-in user's bookmarks. The
// realtime subscription lives from Start until Close or until the feed fails
// for good.
type Session struct {
	api    BookmarkAPI
	stream ChangeStream
	rec    *reconcile.Reconciler
	logger *logger.Logger

	mu        sync.Mutex
	started   bool
	cancel    context.CancelFunc
	group     *errgroup.Group
	closeOnce sync.Once
	closeErr  error
}

func NewSession(api BookmarkAPI, stream ChangeStream, logger *logger.Logger) *Session {
	return &Session{
		api:    api,
		stream: stream,
		rec:    reconcile.New(64, logger),
		logger: logger,
	}
}

// Start loads the snapshot and only then subscribes to the realtime feed, so
// no change committed after the snapshot is missed. On error nothing is left
// running.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrSessionStarted
	}
	s.started = true
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	group, groupCtx := errgroup.WithContext(runCtx)
	s.cancel = cancel
	s.group = group
	s.mu.Unlock()

	group.Go(func() error {
		return s.rec.Run(groupCtx)
	})

	if err := s.rec.Submit(ctx, reconcile.ResyncStarted()); err != nil {
		_ = s.Close()
		return err
	}
	snapshot, err := s.api.List(ctx)
	if err != nil {
		_ = s.Close()
		return fmt.Errorf("failed to load bookmarks: %w", err)
	}
	if err := s.rec.Submit(ctx, reconcile.Snapshot(snapshot)); err != nil {
		_ = s.Close()
		return err
	}

	events := make(chan FeedEvent, 16)
	group.Go(func() error {
		return s.stream.Run(groupCtx, events)
	})
	group.Go(func() error {
		return s.pump(groupCtx, events)
	})

	return nil
}

func (s *Session) pump(ctx context.Context, events <-chan FeedEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if ev.Resumed {
				s.resync(ctx)
				continue
			}
			next, ok := reconcile.FromChange(ev.Change)
			if !ok {
				continue
			}
			if err := s.rec.Submit(ctx, next); err != nil {
				return err
			}
		}
	}
}

// resync replaces the view after a reconnect. Local outcomes confirmed while
// the snapshot is in flight survive the replacement.
func (s *Session) resync(ctx context.Context) {
	if err := s.rec.Submit(ctx, reconcile.ResyncStarted()); err != nil {
		s.logger.Debug("Session: resync dropped", "error", err.Error())
		return
	}
	snapshot, err := s.api.List(ctx)
	if err != nil {
		s.logger.Warn("Session: resync after reconnect failed", "error", err.Error())
		s.submitDetached(reconcile.ResyncAborted())
		return
	}
	if err := s.rec.Submit(ctx, reconcile.Snapshot(snapshot)); err != nil {
		s.logger.Debug("Session: resync dropped", "error", err.Error())
	}
}

// Create validates and normalizes input, then merges the stored bookmark
// into the view as soon as the server answers. Invalid input never reaches
// the server.
func (s *Session) Create(ctx context.Context, rawURL, title string) (model.Bookmark, error) {
	rawURL, title, err := PrepareBookmark(rawURL, title)
	if err != nil {
		return model.Bookmark{}, err
	}

	if err := s.rec.Submit(ctx, reconcile.CreateStarted()); err != nil {
		return model.Bookmark{}, err
	}

	created, err := s.api.Create(ctx, rawURL, title)
	if err != nil {
		s.submitDetached(reconcile.CreateFailed())
		return model.Bookmark{}, err
	}

	s.submitDetached(reconcile.LocalInsert(created))
	return created, nil
}

// Delete shows the entry as deleting while the request runs. On failure the
// entry stays present.
func (s *Session) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.rec.Submit(ctx, reconcile.DeleteStarted(id)); err != nil {
		return err
	}

	if err := s.api.Delete(ctx, id); err != nil {
		s.submitDetached(reconcile.DeleteFailed(id))
		return err
	}

	s.submitDetached(reconcile.LocalDeleteConfirmed(id))
	return nil
}

// submitDetached records the outcome of a request even when the caller's
// context ended while it was in flight.
func (s *Session) submitDetached(ev reconcile.Event) {
	if err := s.rec.Submit(context.Background(), ev); err != nil {
		s.logger.Debug("Session: event dropped", "kind", ev.Kind.String(), "error", err.Error())
	}
}

// Items returns the current view.
func (s *Session) Items(ctx context.Context) ([]reconcile.Entry, error) {
	u, err := s.rec.Current(ctx)
	if err != nil {
		return nil, err
	}
	return u.Items, nil
}

// Updates delivers the view after each change and is closed when the session
// ends.
func (s *Session) Updates() <-chan reconcile.Update {
	return s.rec.Updates()
}

// Done is closed when the session stops for any reason.
func (s *Session) Done() <-chan struct{} {
	return s.rec.Done()
}

// Close releases the realtime subscription and stops the reconciler. It is
// safe to call more than once and returns the error that ended the session,
// if any.
func (s *Session) Close() error {
	s.mu.Lock()
	cancel, group := s.cancel, s.group
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}

	s.closeOnce.Do(func() {
		cancel()
		err := group.Wait()
		if err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = err
		}
	})
	return s.closeErr
}
