package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/smartmarks-server/internal/model"
	"github.com/dtroode/smartmarks-server/internal/testutil"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func receive(t *testing.T, out <-chan FeedEvent) FeedEvent {
	t.Helper()
	select {
	case ev := <-out:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("no feed event")
		return FeedEvent{}
	}
}

func TestFeed_DeliversAndResumes(t *testing.T) {
	owner := uuid.New()
	first := model.NewInsertEvent(model.Bookmark{ID: uuid.New(), URL: "https://a.example", Title: "A", OwnerID: owner})
	second := model.NewDeleteEvent(owner, uuid.New())

	var connections atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		switch connections.Add(1) {
		case 1:
			_ = conn.WriteJSON(first)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"INSERT"}`))
			// Drop the connection to force a reconnect.
		default:
			_ = conn.WriteJSON(second)
			_, _, _ = conn.ReadMessage()
		}
	}))
	t.Cleanup(srv.Close)

	feed := NewFeed(wsURL(srv), func() string { return "token" }, testutil.MakeNoopLogger())
	feed.minBackoff = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan FeedEvent, 8)
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx, out) }()

	ev := receive(t, out)
	assert.False(t, ev.Resumed)
	assert.Equal(t, first.New.ID, ev.Change.BookmarkID())

	ev = receive(t, out)
	assert.True(t, ev.Resumed, "malformed frames are skipped and a reconnect is announced")

	ev = receive(t, out)
	assert.Equal(t, model.ChangeDelete, ev.Change.Type)
	assert.Equal(t, second.Old.ID, ev.Change.BookmarkID())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("feed did not stop")
	}
}

func TestFeed_UnauthorizedStops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	feed := NewFeed(wsURL(srv), func() string { return "" }, testutil.MakeNoopLogger())

	err := feed.Run(context.Background(), make(chan FeedEvent, 1))
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestFeed_RetriesUntilCancelled(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	feed := NewFeed(wsURL(srv), func() string { return "token" }, testutil.MakeNoopLogger())
	feed.minBackoff = time.Millisecond
	feed.maxBackoff = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx, make(chan FeedEvent, 1)) }()

	require.Eventually(t, func() bool { return attempts.Load() >= 3 }, 3*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
