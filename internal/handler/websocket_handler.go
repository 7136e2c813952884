package handler

import (
	"context"
	"net/http"

	"parlor-chat/internal/middleware"
	"parlor-chat/internal/observability"
	"parlor-chat/internal/service"
	ws "parlor-chat/internal/websocket"

	"github.com/gorilla/websocket"
)

// WebSocketHandler upgrades connections for the realtime adapter.
type WebSocketHandler struct {
	chat     *service.ChatService
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler. allowedOrigins is
// the comma-separated origin list from configuration.
func NewWebSocketHandler(chat *service.ChatService, allowedOrigins string) *WebSocketHandler {
	origins := middleware.ParseOrigins(allowedOrigins)

	return &WebSocketHandler{
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					// Non-browser clients send no Origin header.
					return true
				}
				for _, o := range origins {
					if o == origin || o == "*" {
						return true
					}
				}
				return false
			},
		},
	}
}

// HandleConnection upgrades the request and starts the session pumps.
// The connection has no registry effect until it sends a joinRoom event.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		observability.FromContext(r.Context()).Warn("websocket upgrade failed", "error", err.Error())
		return
	}

	// The request context ends when this handler returns; the session
	// outlives it and is torn down by its own pumps.
	client := ws.NewClient(context.Background(), conn, h.chat)

	go client.WritePump()
	go client.ReadPump()
}
