package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-tutor/internal/attempt"
)

const (
	liveBuffer       = 16
	liveWriteTimeout = 5 * time.Second
)

// Hub fans engine events out to websocket subscribers of the same user.
// It is an attempt.EventLogger, so it can sit next to the durable loggers.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[chan attempt.Event]struct{}
	done   chan struct{}
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan attempt.Event]struct{}),
		done: make(chan struct{}),
	}
}

// LogEvent delivers event to every live subscriber of event.UserID.
// A subscriber whose buffer is full misses the event.
func (h *Hub) LogEvent(_ context.Context, event attempt.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[event.UserID] {
		select {
		case ch <- event:
		default:
			slog.Warn("live subscriber is slow, dropping event",
				"user_id", event.UserID,
				"type", event.EventType,
			)
		}
	}
	return nil
}

// Subscribers returns the number of open streams for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

// Close ends every open stream. Later subscriptions are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.done)
	}
}

func (h *Hub) subscribe(userID string) (chan attempt.Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	ch := make(chan attempt.Event, liveBuffer)
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan attempt.Event]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	return ch, true
}

func (h *Hub) unsubscribe(userID string, ch chan attempt.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[userID], ch)
	if len(h.subs[userID]) == 0 {
		delete(h.subs, userID)
	}
}

// Serve upgrades the request and streams userID's events as JSON messages
// until the client goes away or the hub is closed.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	ch, ok := h.subscribe(userID)
	if !ok {
		http.Error(w, "live feed is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.unsubscribe(userID, ch)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "user_id", userID, "error", err)
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead handles their control frames.
	ctx := conn.CloseRead(r.Context())
	slog.Info("live feed opened", "user_id", userID)

	for {
		select {
		case <-ctx.Done():
			slog.Info("live feed closed", "user_id", userID)
			return
		case <-h.done:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case event := <-ch:
			if err := writeEvent(ctx, conn, event); err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.Warn("live feed write failed", "user_id", userID, "error", err)
				}
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, event attempt.Event) error {
	ctx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, event)
}
