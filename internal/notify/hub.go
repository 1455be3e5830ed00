package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many frames may queue for one connection before
	// new events for it are dropped.
	sendBuffer = 16
)

type conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// subscriber is one websocket connection with its own writer goroutine.
// gorilla connections allow one concurrent writer, and only writeLoop writes.
type subscriber struct {
	userID uint64
	c      conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() {
		close(s.done)
		//nolint:errcheck
		s.c.Close()
	})
}

// Hub pushes events to the websocket connections of the event's user.
// Notify only enqueues, so a slow socket never holds up the caller.
type Hub struct {
	mu       sync.Mutex
	subs     map[uint64]map[conn]*subscriber
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[uint64]map[conn]*subscriber),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Serve upgrades the request and blocks until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uint64) {
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "user_id", userID, "err", err)
		return
	}

	sub := h.subscribe(userID, c)
	defer h.disconnect(sub)

	// clients only listen; reading is how a closed socket is noticed
	for {
		_, _, err := c.ReadMessage()
		if err != nil {
			return
		}
	}
}

func (h *Hub) subscribe(userID uint64, c conn) *subscriber {
	sub := &subscriber{
		userID: userID,
		c:      c,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[conn]*subscriber)
		h.subs[userID] = set
	}
	set[c] = sub
	h.mu.Unlock()

	go h.writeLoop(sub)

	return sub
}

func (h *Hub) disconnect(sub *subscriber) {
	h.mu.Lock()
	set := h.subs[sub.userID]
	if set[sub.c] == sub {
		delete(set, sub.c)
	}
	if len(set) == 0 {
		delete(h.subs, sub.userID)
	}
	h.mu.Unlock()

	sub.stop()
}

func (h *Hub) writeLoop(sub *subscriber) {
	for {
		select {
		case <-sub.done:
			return
		case data := <-sub.send:
			//nolint:errcheck
			sub.c.SetWriteDeadline(time.Now().Add(writeWait))

			err := sub.c.WriteMessage(websocket.TextMessage, data)
			if err != nil {
				slog.Debug("drop websocket subscriber", "user_id", sub.userID, "err", err)
				h.disconnect(sub)

				return
			}
		}
	}
}

// Subscribers returns the number of open connections for userID.
func (h *Hub) Subscribers(userID uint64) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subs[userID])
}

func (h *Hub) Notify(ctx context.Context, ev Event) {
	h.mu.Lock()
	targets := make([]*subscriber, 0, len(h.subs[ev.UserID]))
	for _, sub := range h.subs[ev.UserID] {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		slog.ErrorContext(ctx, "marshal event", "type", ev.Type, "err", err)
		return
	}

	for _, sub := range targets {
		select {
		case sub.send <- data:
		default:
			slog.WarnContext(ctx, "websocket send buffer full, event dropped", "user_id", ev.UserID, "type", ev.Type)
		}
	}
}
