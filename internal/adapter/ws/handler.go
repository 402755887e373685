// Package ws streams alignment events to WebSocket clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// conn wraps a single WebSocket connection. An empty repository receives
// every event.
type conn struct {
	ws         *websocket.Conn
	cancel     context.CancelFunc
	repository string
}

func (c *conn) wants(repository string) bool {
	return c.repository == "" || repository == "" || strings.EqualFold(c.repository, repository)
}

// Hub manages all active WebSocket connections and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	conns   map[*conn]struct{}
	origins []string
}

// NewHub creates a new WebSocket hub. originPatterns restricts the
// cross-origin clients allowed to connect; none allows any origin.
func NewHub(originPatterns ...string) *Hub {
	return &Hub{
		conns:   make(map[*conn]struct{}),
		origins: originPatterns,
	}
}

// HandleWS upgrades the connection and holds it open until the client
// disconnects or the hub is closed. The optional "repository" query
// parameter limits the stream to one repository.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.origins,
		InsecureSkipVerify: len(h.origins) == 0,
	})
	if err != nil {
		slog.WarnContext(r.Context(), "websocket accept failed", "error", err)
		return
	}

	// The request context ends with the handler's timeout; the stream
	// lives until the client or the hub closes it.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	c := &conn{
		ws:         ws,
		cancel:     cancel,
		repository: strings.Trim(r.URL.Query().Get("repository"), "/"),
	}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	slog.InfoContext(ctx, "websocket connected", "remote", r.RemoteAddr, "repository", c.repository)

	// CloseRead discards client frames and cancels ctx on disconnect.
	ctx = ws.CloseRead(ctx)
	<-ctx.Done()

	h.remove(c)
	_ = ws.Close(websocket.StatusNormalClosure, "")
}

// Broadcast sends a message to all connected clients subscribed to
// repository.
func (h *Hub) Broadcast(ctx context.Context, repository string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.ErrorContext(ctx, "websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		if c.wants(repository) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		err := c.ws.Write(wctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			slog.DebugContext(ctx, "websocket write failed", "error", err)
			h.remove(c)
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[*conn]struct{})
	h.mu.Unlock()

	for c := range conns {
		if c.ws != nil {
			_ = c.ws.Close(websocket.StatusGoingAway, "server shutting down")
		}
		c.cancel()
	}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("websocket disconnected")
	}
}
