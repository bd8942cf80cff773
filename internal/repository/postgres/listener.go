package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
)

// ChangeChannel is the notification channel written by the bookmarks trigger.
const ChangeChannel = "bookmark_changes"

var _ model.ChangeSource = (*ChangeListener)(nil)

// ChangeListener turns bookmark trigger notifications into change events.
type ChangeListener struct {
	db         *Connection
	logger     *logger.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewChangeListener(db *Connection, logger *logger.Logger) *ChangeListener {
	return &ChangeListener{
		db:         db,
		logger:     logger,
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

// Run listens until ctx is done, reconnecting with capped exponential backoff
// whenever the dedicated connection fails. Notifications sent while no
// connection listens are lost, so every LISTEN is followed by a reset event.
func (l *ChangeListener) Run(ctx context.Context, out chan<- model.ChangeEvent) error {
	wait := l.minBackoff
	attempt := 0

	for {
		attempt++
		connected, err := l.listen(ctx, out)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			attempt = 1
			wait = l.minBackoff
		}

		l.logger.Warn("ChangeListener: connection lost, retrying",
			"attempt", attempt, "next_retry_in", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		wait *= 2
		if wait > l.maxBackoff {
			wait = l.maxBackoff
		}
	}
}

// listen holds one connection for LISTEN and reports whether it got that far.
func (l *ChangeListener) listen(ctx context.Context, out chan<- model.ChangeEvent) (bool, error) {
	conn, err := l.db.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ChangeChannel}.Sanitize()); err != nil {
		return false, fmt.Errorf("failed to listen: %w", err)
	}
	l.logger.Info("ChangeListener: listening", "channel", ChangeChannel)

	if !send(ctx, out, model.NewResetEvent()) {
		return true, ctx.Err()
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return true, fmt.Errorf("failed to wait for notification: %w", err)
		}

		event, err := model.ParseChangeEvent([]byte(n.Payload))
		if err != nil {
			l.logger.Error("ChangeListener: dropping malformed payload", "error", err)
			continue
		}

		if event.Type == model.ChangeInsert {
			found, err := l.loadInserted(ctx, conn.Conn(), event.New)
			if err != nil {
				return true, err
			}
			if !found {
				// deleted before it could be read; its DELETE follows
				continue
			}
		}

		if !send(ctx, out, event) {
			return true, ctx.Err()
		}
	}
}

// loadInserted fills url and title of an announced row. It reports false when
// the row no longer exists.
func (l *ChangeListener) loadInserted(ctx context.Context, conn *pgx.Conn, b *model.Bookmark) (bool, error) {
	query := `SELECT url, title, created_at FROM bookmarks WHERE id = $1 AND user_id = $2`

	err := conn.QueryRow(ctx, query, b.ID, b.OwnerID).Scan(&b.URL, &b.Title, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load inserted bookmark: %w", err)
	}
	return true, nil
}

func send(ctx context.Context, out chan<- model.ChangeEvent, event model.ChangeEvent) bool {
	select {
	case out <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
