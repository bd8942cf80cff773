package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
)

const (
	feedMinBackoff = 500 * time.Millisecond
	feedMaxBackoff = 30 * time.Second
)

// FeedEvent is either a change or, with Resumed set, a marker that the feed
// reconnected and changes during the gap may have been missed.
type FeedEvent struct {
	Change  model.ChangeEvent
	Resumed bool
}

// Feed follows the realtime websocket, reconnecting with capped backoff.
type Feed struct {
	url        string
	token      func() string
	dialer     *websocket.Dialer
	logger     *logger.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewFeed creates a feed for wsURL. token is read before every dial so a
// refreshed access token is picked up on reconnect.
func NewFeed(wsURL string, token func() string, logger *logger.Logger) *Feed {
	return &Feed{
		url:        wsURL,
		token:      token,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:     logger,
		minBackoff: feedMinBackoff,
		maxBackoff: feedMaxBackoff,
	}
}

// Run delivers events to out until ctx is done. A rejected token ends the
// feed with model.ErrUnauthorized; every other failure is retried.
func (f *Feed) Run(ctx context.Context, out chan<- FeedEvent) error {
	backoff := f.minBackoff
	connectedBefore := false

	for {
		conn, err := f.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, model.ErrUnauthorized) {
				return err
			}
			f.logger.Warn("Feed: connect failed", "error", err.Error(), "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, f.maxBackoff)
			continue
		}

		if connectedBefore {
			select {
			case out <- FeedEvent{Resumed: true}:
			case <-ctx.Done():
				conn.Close()
				return ctx.Err()
			}
		}
		connectedBefore = true
		backoff = f.minBackoff

		err = f.read(ctx, conn, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Info("Feed: connection lost", "error", err.Error())
	}
}

func (f *Feed) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if token := f.token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := f.dialer.DialContext(ctx, f.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: realtime feed rejected the access token", model.ErrUnauthorized)
		}
		return nil, err
	}
	return conn, nil
}

// read forwards frames until the connection fails or ctx is done.
func (f *Feed) read(ctx context.Context, conn *websocket.Conn, out chan<- FeedEvent) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		change, err := model.ParseChangeEvent(data)
		if err != nil {
			f.logger.Warn("Feed: dropping malformed event", "error", err.Error())
			continue
		}

		select {
		case out <- FeedEvent{Change: change}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
