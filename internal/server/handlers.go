// Package server exposes HTTP handlers, including the WebSocket upgrade for
// game connections and the health check.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Handlers serves the HTTP side of a Hub.
type Handlers struct {
	hub      *Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandlers creates the HTTP handlers for hub.
func NewHandlers(hub *Hub) *Handlers {
	origins := newOriginPolicy(hub.cfg.AllowedOrigins, hub.logger)

	return &Handlers{
		hub:    hub,
		logger: hub.logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.check,
		},
	}
}

// WebSocket upgrades a game connection and hands it to the hub, which
// serves it until either side closes.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "Bad request. This endpoint only accepts WebSocket upgrades.", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr)
	if err := h.hub.Serve(client); err != nil {
		h.logger.Warn("rejecting connection", "addr", r.RemoteAddr, "error", err)
		_ = conn.Close()
	}
}

// Health reports that the server is up along with its connection counts.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	stats := h.hub.Stats()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "Memory server is running! connections=%d players=%d\n", stats.Connections, stats.Players)
}
