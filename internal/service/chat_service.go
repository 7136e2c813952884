package service

import (
	"strings"

	"parlor-chat/internal/domain"
	"parlor-chat/internal/pipeline"
	"parlor-chat/internal/registry"
)

const (
	maxRoomNameLen = 100
	maxMessageLen  = 1000
)

// ChatService is the single API surface both adapters call. It composes
// the registry with the activity tracker; the registry remains the owner
// of all room state.
type ChatService struct {
	registry *registry.Registry
	activity *pipeline.ActivityTracker
}

// NewChatService creates the service.
func NewChatService(reg *registry.Registry, activity *pipeline.ActivityTracker) *ChatService {
	return &ChatService{
		registry: reg,
		activity: activity,
	}
}

// CreateRoom creates a room whose id is derived from the name, so two
// rooms with names that slug identically collide with ErrDuplicateRoom.
func (s *ChatService) CreateRoom(name string) (domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxRoomNameLen {
		return domain.Room{}, domain.ErrInvalidInput
	}

	id := slugify(name)
	if id == "" {
		return domain.Room{}, domain.ErrInvalidInput
	}

	return s.registry.CreateRoom(id, name)
}

// GetRoom returns the room descriptor, reporting absence via ok.
func (s *ChatService) GetRoom(roomID string) (domain.Room, bool) {
	return s.registry.GetRoom(roomID)
}

// ListRooms returns all rooms in creation order.
func (s *ChatService) ListRooms() []domain.Room {
	return s.registry.ListRooms()
}

// RoomHistory returns the most recent limit messages, or the full history
// when limit is not positive. Absent rooms yield an empty slice.
func (s *ChatService) RoomHistory(roomID string, limit int) []domain.Message {
	return s.registry.RoomHistory(roomID, limit)
}

// RoomMembers returns the room's current members.
func (s *ChatService) RoomMembers(roomID string) []domain.User {
	return s.registry.RoomMembers(roomID)
}

// JoinResult is everything a session needs after a successful join: the
// synthesized identity, the one-time snapshot, and the live streams that
// continue from it without gap or duplicate.
type JoinResult struct {
	User     domain.User
	Snapshot *registry.Snapshot
}

// Join synthesizes a fresh user for displayName and joins it to the room,
// returning the snapshot-plus-streams composition. Reports false when the
// room is absent.
func (s *ChatService) Join(roomID, displayName string) (*JoinResult, bool) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, false
	}

	user := domain.NewUser(displayName)
	snap, ok := s.registry.JoinAndSubscribe(roomID, user)
	if !ok {
		return nil, false
	}

	s.activity.Track(user.ID, "join")
	return &JoinResult{User: user, Snapshot: snap}, true
}

// Leave removes the user from the room. Reports false when the room is
// absent or the user was never a member.
func (s *ChatService) Leave(roomID, userID string) bool {
	if !s.registry.LeaveRoom(roomID, userID) {
		return false
	}
	s.activity.Track(userID, "leave")
	return true
}

// Send posts content to the room as userID. Sending is only possible as
// an established member; a failed send is an expected condition the
// caller surfaces to the user without dropping the session.
func (s *ChatService) Send(roomID, userID, content string) (domain.Message, bool) {
	if content == "" || len(content) > maxMessageLen {
		return domain.Message{}, false
	}

	msg, ok := s.registry.PostMessage(roomID, userID, content)
	if !ok {
		return domain.Message{}, false
	}

	s.activity.Track(userID, "message")
	return msg, true
}

// ActiveUsers returns the count of users active within the inactivity
// window, pruning idle entries first.
func (s *ChatService) ActiveUsers() int {
	return s.activity.ActiveUsers()
}

// slugify derives a room id from its display name: lowercase, runs of
// non-alphanumerics collapsed to single hyphens.
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
