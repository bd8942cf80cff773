package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/smartmarks-server/internal/model"
	"github.com/dtroode/smartmarks-server/internal/reconcile"
	"github.com/dtroode/smartmarks-server/internal/testutil"
)

type fakeAPI struct {
	mu        sync.Mutex
	snapshots [][]model.Bookmark
	listErr   error
	lists     int
	created   []string
	createFn  func(rawURL, title string) (model.Bookmark, error)
	deleteErr error
	deleted   []uuid.UUID
	// held, when set, blocks every List after the first until it is closed.
	held      chan struct{}
	listing   chan struct{}
}

func (f *fakeAPI) List(context.Context) ([]model.Bookmark, error) {
	f.mu.Lock()
	if f.listErr != nil {
		f.mu.Unlock()
		return nil, f.listErr
	}
	i := min(f.lists, len(f.snapshots)-1)
	f.lists++
	var snapshot []model.Bookmark
	if i >= 0 {
		snapshot = f.snapshots[i]
	}
	held, hold := f.held, f.held != nil && f.lists > 1
	f.mu.Unlock()

	if hold {
		f.listing <- struct{}{}
		<-held
	}
	return snapshot, nil
}

func (f *fakeAPI) Create(_ context.Context, rawURL, title string) (model.Bookmark, error) {
	f.mu.Lock()
	f.created = append(f.created, rawURL+" "+title)
	fn := f.createFn
	f.mu.Unlock()
	return fn(rawURL, title)
}

func (f *fakeAPI) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeAPI) calls() (lists int, created []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists, append([]string(nil), f.created...)
}

type fakeStream struct {
	events    chan FeedEvent
	started   chan struct{}
	stopped   chan struct{}
	err       error
	startOnce sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		events:  make(chan FeedEvent),
		started: make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (s *fakeStream) Run(ctx context.Context, out chan<- FeedEvent) error {
	s.startOnce.Do(func() { close(s.started) })
	defer close(s.stopped)
	if s.err != nil {
		return s.err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.events:
			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (s *fakeStream) send(t *testing.T, ev FeedEvent) {
	t.Helper()
	select {
	case s.events <- ev:
	case <-time.After(2 * time.Second):
		t.Fatal("stream not consuming")
	}
}

func waitFor(t *testing.T, s *Session, cond func([]reconcile.Entry) bool) []reconcile.Entry {
	t.Helper()
	var items []reconcile.Entry
	require.Eventually(t, func() bool {
		var err error
		items, err = s.Items(context.Background())
		return err == nil && cond(items)
	}, 2*time.Second, 5*time.Millisecond)
	return items
}

func bookmark(title string, at time.Time) model.Bookmark {
	return model.Bookmark{ID: uuid.New(), URL: "https://" + title + ".example", Title: title, CreatedAt: at}
}

func TestSession_CreateWithRealtimeEcho(t *testing.T) {
	now := time.Now()
	existing := bookmark("old", now.Add(-time.Hour))
	created := model.Bookmark{ID: uuid.New(), URL: "https://example.com", Title: "Example", CreatedAt: now}

	api := &fakeAPI{
		snapshots: [][]model.Bookmark{{existing}},
		createFn: func(rawURL, title string) (model.Bookmark, error) {
			return created, nil
		},
	}
	stream := newFakeStream()
	s := NewSession(api, stream, testutil.MakeNoopLogger())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.Create(context.Background(), "example.com", "  Example ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	_, calls := api.calls()
	assert.Equal(t, []string{"https://example.com Example"}, calls)

	stream.send(t, FeedEvent{Change: model.NewInsertEvent(created)})

	items := waitFor(t, s, func(items []reconcile.Entry) bool { return len(items) == 2 })
	assert.Equal(t, created.ID, items[0].ID)
	assert.Equal(t, existing.ID, items[1].ID)

	// A later unrelated insert proves the echo above was consumed.
	other := bookmark("other", now.Add(time.Minute))
	stream.send(t, FeedEvent{Change: model.NewInsertEvent(other)})
	items = waitFor(t, s, func(items []reconcile.Entry) bool { return len(items) == 3 })
	assert.Equal(t, []uuid.UUID{other.ID, created.ID, existing.ID}, entryIDs(items))
}

func TestSession_CreateValidationSkipsServer(t *testing.T) {
	api := &fakeAPI{snapshots: [][]model.Bookmark{nil}}
	s := NewSession(api, newFakeStream(), testutil.MakeNoopLogger())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	tests := []struct {
		name      string
		url       string
		title     string
		wantField string
	}{
		{name: "empty url", url: "  ", title: "t", wantField: "url"},
		{name: "empty title", url: "example.com", title: " ", wantField: "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), tt.url, tt.title)
			var v *model.ValidationError
			require.True(t, errors.As(err, &v))
			assert.Equal(t, tt.wantField, v.Field)
		})
	}

	_, calls := api.calls()
	assert.Empty(t, calls)
	items, err := s.Items(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSession_CreateFailureLeavesViewUnchanged(t *testing.T) {
	existing := bookmark("old", time.Now())
	api := &fakeAPI{
		snapshots: [][]model.Bookmark{{existing}},
		createFn: func(string, string) (model.Bookmark, error) {
			return model.Bookmark{}, model.NewStoreError("server", errors.New("db down"))
		},
	}
	s := NewSession(api, newFakeStream(), testutil.MakeNoopLogger())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	_, err := s.Create(context.Background(), "example.com", "Example")
	assert.True(t, model.IsStore(err))

	items, err := s.Items(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{existing.ID}, entryIDs(items))
}

func TestSession_DeleteThenRealtimeEcho(t *testing.T) {
	target := bookmark("target", time.Now())
	api := &fakeAPI{snapshots: [][]model.Bookmark{{target}}}
	stream := newFakeStream()
	s := NewSession(api, stream, testutil.MakeNoopLogger())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Delete(context.Background(), target.ID))
	items, err := s.Items(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)

	stream.send(t, FeedEvent{Change: model.NewDeleteEvent(target.OwnerID, target.ID)})
	items, err = s.Items(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSession_DeleteFailureKeepsEntry(t *testing.T) {
	target := bookmark("target", time.Now())
	api := &fakeAPI{
		snapshots: [][]model.Bookmark{{target}},
		deleteErr: model.NewStoreError("server", errors.New("timeout")),
	}
	s := NewSession(api, newFakeStream(), testutil.MakeNoopLogger())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	require.Error(t, s.Delete(context.Background(), target.ID))

	items, err := s.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, reconcile.StatePresent, items[0].State)
}

func TestSession_ResyncOnResume(t *testing.T) {
	first := bookmark("first", time.Now().Add(-time.Minute))
	missed := bookmark("missed", time.Now())
	api := &fakeAPI{snapshots: [][]model.Bookmark{{first}, {missed, first}}}
	stream := newFakeStream()
	s := NewSession(api, stream, testutil.MakeNoopLogger())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	stream.send(t, FeedEvent{Resumed: true})

	items := waitFor(t, s, func(items []reconcile.Entry) bool { return len(items) == 2 })
	assert.Equal(t, []uuid.UUID{missed.ID, first.ID}, entryIDs(items))
	lists, _ := api.calls()
	assert.Equal(t, 2, lists)
}

func TestSession_ResyncKeepsDeleteConfirmedDuringFetch(t *testing.T) {
	a := bookmark("a", time.Now().Add(-time.Minute))
	y := bookmark("y", time.Now())
	api := &fakeAPI{
		snapshots: [][]model.Bookmark{{y, a}, {y, a}},
		held:      make(chan struct{}),
		listing:   make(chan struct{}, 1),
	}
	stream := newFakeStream()
	s := NewSession(api, stream, testutil.MakeNoopLogger())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	stream.send(t, FeedEvent{Resumed: true})
	select {
	case <-api.listing:
	case <-time.After(2 * time.Second):
		t.Fatal("resync did not request a snapshot")
	}

	require.NoError(t, s.Delete(context.Background(), y.ID))
	waitFor(t, s, func(items []reconcile.Entry) bool { return len(items) == 1 })

	close(api.held)

	// the pump handles this change only after the stale snapshot is applied
	later := bookmark("later", time.Now().Add(time.Minute))
	stream.send(t, FeedEvent{Change: model.NewInsertEvent(later)})

	items := waitFor(t, s, func(items []reconcile.Entry) bool { return len(items) > 0 && items[0].ID == later.ID })
	assert.Equal(t, []uuid.UUID{later.ID, a.ID}, entryIDs(items))
	lists, _ := api.calls()
	assert.Equal(t, 2, lists)
}

func TestSession_SubscribesAfterSnapshot(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("offline")}
	stream := newFakeStream()
	s := NewSession(api, stream, testutil.MakeNoopLogger())

	err := s.Start(context.Background())
	require.Error(t, err)

	select {
	case <-stream.started:
		t.Fatal("feed opened although the snapshot failed")
	default:
	}
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler left running after failed start")
	}
}

func TestSession_CloseReleasesSubscription(t *testing.T) {
	api := &fakeAPI{snapshots: [][]model.Bookmark{nil}}
	stream := newFakeStream()
	s := NewSession(api, stream, testutil.MakeNoopLogger())
	require.NoError(t, s.Start(context.Background()))
	<-stream.started

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	select {
	case <-stream.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not released")
	}
	_, err := s.Items(context.Background())
	assert.ErrorIs(t, err, reconcile.ErrStopped)
	assert.ErrorIs(t, s.Start(context.Background()), ErrSessionStarted)
}

func TestSession_FeedFailureEndsSession(t *testing.T) {
	api := &fakeAPI{snapshots: [][]model.Bookmark{nil}}
	stream := newFakeStream()
	stream.err = model.ErrUnauthorized
	s := NewSession(api, stream, testutil.MakeNoopLogger())
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session kept running without a feed")
	}
	assert.ErrorIs(t, s.Close(), model.ErrUnauthorized)
}

func entryIDs(items []reconcile.Entry) []uuid.UUID {
	out := make([]uuid.UUID, len(items))
	for i, e := range items {
		out[i] = e.ID
	}
	return out
}
