package domain

import (
	"time"

	"github.com/google/uuid"
)

// User identifies a chat participant for the lifetime of a session.
// It is a value object: immutable once created, assigned by the adapter
// layer at join time and treated as opaque by the core.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

// NewUser creates a user with a fresh unique id.
func NewUser(displayName string) User {
	return User{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		JoinedAt:    time.Now(),
	}
}
