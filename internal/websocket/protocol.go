package websocket

import "parlor-chat/internal/domain"

// Inbound event names.
const (
	EventJoinRoom    = "joinRoom"
	EventLeaveRoom   = "leaveRoom"
	EventSendMessage = "sendMessage"
)

// Outbound event names.
const (
	EventMessage   = "message"
	EventUserJoin  = "userJoined"
	EventUserLeave = "userLeft"
	EventRoomUsers = "roomUsers"
	EventError     = "error"
)

// ClientEvent is the inbound envelope sent by a connected client.
type ClientEvent struct {
	Event       string `json:"event"`
	RoomID      string `json:"roomId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Content     string `json:"content,omitempty"`
}

// ServerEvent is the outbound envelope pushed to a connected client.
// Which payload fields are set depends on Event.
type ServerEvent struct {
	Event   string          `json:"event"`
	RoomID  string          `json:"roomId,omitempty"`
	Message *domain.Message `json:"message,omitempty"`
	User    *domain.User    `json:"user,omitempty"`
	Users   []domain.User   `json:"users,omitempty"`
	Error   string          `json:"error,omitempty"`
}
