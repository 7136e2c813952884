package domain

import "time"

// EventKind enumerates the closed set of domain event variants.
type EventKind string

const (
	EventMessagePosted EventKind = "message_posted"
	EventUserJoined    EventKind = "user_joined"
	EventUserLeft      EventKind = "user_left"
)

// Event is an ephemeral notification of a room state change. Events drive
// live subscribers only; the durable record is the room history.
//
// Exactly one payload field is populated for a given kind: Message for
// EventMessagePosted, User for EventUserJoined and EventUserLeft.
type Event struct {
	Kind      EventKind `json:"kind"`
	RoomID    string    `json:"room_id"`
	CreatedAt time.Time `json:"created_at"`
	Message   *Message  `json:"message,omitempty"`
	User      *User     `json:"user,omitempty"`
}

// NewMessagePosted builds the event published when a member posts text.
func NewMessagePosted(msg Message) Event {
	return Event{
		Kind:      EventMessagePosted,
		RoomID:    msg.RoomID,
		CreatedAt: msg.CreatedAt,
		Message:   &msg,
	}
}

// NewUserJoined builds the event published when a user joins a room.
func NewUserJoined(roomID string, u User, at time.Time) Event {
	return Event{
		Kind:      EventUserJoined,
		RoomID:    roomID,
		CreatedAt: at,
		User:      &u,
	}
}

// NewUserLeft builds the event published when a member leaves a room.
func NewUserLeft(roomID string, u User, at time.Time) Event {
	return Event{
		Kind:      EventUserLeft,
		RoomID:    roomID,
		CreatedAt: at,
		User:      &u,
	}
}
