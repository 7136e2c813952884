package domain

import "time"

// MessageKind distinguishes user text from system announcements.
type MessageKind string

const (
	KindText        MessageKind = "text"
	KindSystemJoin  MessageKind = "system_join"
	KindSystemLeave MessageKind = "system_leave"
)

// Message is one entry in a room's history. Messages are immutable after
// creation; the registry stores content verbatim and never rewrites it.
type Message struct {
	ID         string      `json:"id"`
	RoomID     string      `json:"room_id"`
	AuthorID   string      `json:"author_id,omitempty"`
	AuthorName string      `json:"author_name,omitempty"`
	Content    string      `json:"content"`
	Kind       MessageKind `json:"kind"`
	CreatedAt  time.Time   `json:"created_at"`
}

// IsSystem reports whether the message was generated by the registry
// rather than authored by a member.
func (m Message) IsSystem() bool {
	return m.Kind == KindSystemJoin || m.Kind == KindSystemLeave
}
