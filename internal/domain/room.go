package domain

import "time"

// Room is the public descriptor of a chat room. Membership and history
// are owned by the registry and exposed through its read operations,
// never carried on this value.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
