package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
)

const (
	realtimeWriteTimeout = 10 * time.Second
	realtimeReadLimit    = 512
)

// Realtime streams the caller's bookmark changes over a websocket.
type Realtime struct {
	feed           model.ChangeFeed
	contextManager model.ContextManager
	logger         *logger.Logger
	pingInterval   time.Duration
	upgrader       websocket.Upgrader
}

func NewRealtime(feed model.ChangeFeed, contextManager model.ContextManager, pingInterval time.Duration, logger *logger.Logger) *Realtime {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Realtime{
		feed:           feed,
		contextManager: contextManager,
		logger:         logger,
		pingInterval:   pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Stream upgrades the request and forwards change events as JSON text frames
// until the client goes away or the feed stops. The subscription is released
// on every exit path.
func (h *Realtime) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Realtime handler: upgrade failed", "user_id", userID, "error", err.Error())
		return
	}
	defer conn.Close()

	sub := h.feed.Subscribe(userID)
	defer sub.Close()

	h.logger.Info("Realtime handler: subscribed", "user_id", userID)
	defer h.logger.Info("Realtime handler: unsubscribed", "user_id", userID)

	pongWait := 2 * h.pingInterval
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(realtimeReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed stopped"),
					time.Now().Add(realtimeWriteTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(realtimeWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("Realtime handler: write failed", "user_id", userID, "error", err.Error())
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(realtimeWriteTimeout)); err != nil {
				return
			}
		}
	}
}
