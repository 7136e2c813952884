package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"parlor-chat/internal/domain"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

// nextID generates a unique ID for test fixtures
func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// NewTestUser creates a user fixture with a unique id.
func NewTestUser(displayName string) domain.User {
	if displayName == "" {
		displayName = fmt.Sprintf("user%d", idCounter.Load()+1)
	}
	return domain.User{
		ID:          nextID("user"),
		DisplayName: displayName,
		JoinedAt:    time.Now(),
	}
}

// NewTestMessage creates a text message fixture authored by author.
func NewTestMessage(roomID string, author domain.User, content string) domain.Message {
	return domain.Message{
		ID:         nextID("msg"),
		RoomID:     roomID,
		AuthorID:   author.ID,
		AuthorName: author.DisplayName,
		Content:    content,
		Kind:       domain.KindText,
		CreatedAt:  time.Now(),
	}
}

// NewTestRoom creates a room descriptor fixture.
func NewTestRoom(name string) domain.Room {
	return domain.Room{
		ID:        nextID("room"),
		Name:      name,
		CreatedAt: time.Now(),
	}
}
