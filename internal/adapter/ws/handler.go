// Package ws implements the WebSocket adapter that streams session state and
// storefront events to the browser.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/session"
)

const writeTimeout = 5 * time.Second

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SessionStates is the source of per-session state transitions.
type SessionStates interface {
	Subscribe(ctx context.Context, sessionID string) (<-chan session.Transition, func())
	Release(sessionID string)
}

// conn wraps a single WebSocket connection.
type conn struct {
	ws        *websocket.Conn
	sessionID string
	cancel    context.CancelFunc
	writeMu   sync.Mutex
}

func (c *conn) write(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

// Hub manages all active WebSocket connections. Each connection follows the
// state of its own session; Broadcast reaches every connection.
type Hub struct {
	origins   []string
	sessions  SessionStates
	sessionID func(*http.Request) string

	mu    sync.RWMutex
	conns map[*conn]struct{}
}

// NewHub creates a hub. origins are the accepted Origin host patterns;
// sessionID extracts the browser session from the upgrade request.
func NewHub(origins []string, sessions SessionStates, sessionID func(*http.Request) string) *Hub {
	return &Hub{
		origins:   origins,
		sessions:  sessions,
		sessionID: sessionID,
		conns:     make(map[*conn]struct{}),
	}
}

// HandleSession upgrades the request and streams the caller's session
// transitions until either side goes away.
func (h *Hub) HandleSession(w http.ResponseWriter, r *http.Request) {
	id := h.sessionID(r)
	if id == "" {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	// The request context dies with the handler; the stream outlives neither.
	ctx, cancel := context.WithCancel(r.Context())
	ctx = ws.CloseRead(ctx)
	c := &conn{ws: ws, sessionID: id, cancel: cancel}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	slog.Debug("websocket connected", "remote", r.RemoteAddr)

	transitions, unsubscribe := h.sessions.Subscribe(ctx, id)
	defer func() {
		unsubscribe()
		h.remove(c)
		h.sessions.Release(id)
		_ = ws.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-transitions:
			if !ok {
				return
			}
			data, err := encode(EventSessionState, t)
			if err != nil {
				slog.Error("marshal session transition", "error", err)
				continue
			}
			if err := c.write(ctx, data); err != nil {
				slog.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(ctx, data); err != nil {
			slog.Debug("websocket write failed", "error", err)
			c.cancel()
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Debug("websocket disconnected")
	}
}
