package registry

import (
	"sort"
	"sync"
	"time"

	"parlor-chat/internal/domain"
	"parlor-chat/internal/eventbus"
	"parlor-chat/internal/observability"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// DefaultRoomID is the room every deployment starts with.
const DefaultRoomID = "general"

// room is the registry's private state for one chat room. All mutations
// to a room happen under its own mutex; rooms never contend with each
// other. The invariant protected here is that membership and the system
// messages announcing it can never be observed out of step.
type room struct {
	mu        sync.RWMutex
	info      domain.Room
	members   map[string]domain.User
	history   []domain.Message
	lastStamp time.Time
}

// nextStamp returns a timestamp that never decreases within this room's
// history, so appends stay ordered even if the wall clock steps back.
// Callers must hold the room lock.
func (r *room) nextStamp() time.Time {
	now := time.Now()
	if now.Before(r.lastStamp) {
		now = r.lastStamp
	}
	r.lastStamp = now
	return now
}

// Registry is the single source of truth for room existence, membership,
// and message history. It lives for the process lifetime; rooms are never
// destroyed and histories only grow.
//
// Expected conditions (absent room, non-member) are reported through
// ok-booleans or sentinel errors, never panics: every operation is total
// over its documented inputs.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
	order []string
	bus   *eventbus.Bus
}

// New creates a registry with the default room already present.
func New(bus *eventbus.Bus, defaultRoomName string) *Registry {
	r := &Registry{
		rooms: make(map[string]*room),
		bus:   bus,
	}
	if defaultRoomName == "" {
		defaultRoomName = DefaultRoomID
	}
	// The default room cannot collide; the registry is empty.
	_, _ = r.CreateRoom(DefaultRoomID, defaultRoomName)
	return r
}

// CreateRoom registers a fresh, empty room. Creating an id that already
// exists fails with ErrDuplicateRoom; an existing room's members and
// history are never silently discarded.
func (r *Registry) CreateRoom(id, name string) (domain.Room, error) {
	if id == "" || name == "" {
		return domain.Room{}, domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[id]; exists {
		return domain.Room{}, domain.ErrDuplicateRoom
	}

	rm := &room{
		info: domain.Room{
			ID:        id,
			Name:      name,
			CreatedAt: time.Now(),
		},
		members: make(map[string]domain.User),
	}
	r.rooms[id] = rm
	r.order = append(r.order, id)

	observability.RoomsActive.Inc()
	return rm.info, nil
}

// GetRoom returns the room descriptor, reporting absence via ok.
func (r *Registry) GetRoom(id string) (domain.Room, bool) {
	rm, ok := r.lookup(id)
	if !ok {
		return domain.Room{}, false
	}
	return rm.info, true
}

// ListRooms returns all rooms in creation order.
func (r *Registry) ListRooms() []domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.order, func(id string, _ int) domain.Room {
		return r.rooms[id].info
	})
}

// JoinRoom adds user to the room, records the system join message, and
// publishes the joined event as one atomic step. Joining an absent room
// reports false. Re-joining with an id already present is a no-op
// success: the member record is refreshed, but no second system message
// or event is produced.
func (r *Registry) JoinRoom(roomID string, user domain.User) bool {
	rm, ok := r.lookup(roomID)
	if !ok {
		return false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.joinLocked(user, r.bus)
	return true
}

// joinLocked applies the join effects under the room lock. Returns false
// for a re-join, which produces no message and no event.
func (rm *room) joinLocked(user domain.User, bus *eventbus.Bus) bool {
	if _, present := rm.members[user.ID]; present {
		rm.members[user.ID] = user
		return false
	}

	rm.members[user.ID] = user
	stamp := rm.nextStamp()
	rm.appendLocked(domain.Message{
		ID:        uuid.NewString(),
		RoomID:    rm.info.ID,
		Content:   user.DisplayName + " joined the room",
		Kind:      domain.KindSystemJoin,
		CreatedAt: stamp,
	})
	bus.Publish(domain.NewUserJoined(rm.info.ID, user, stamp))

	observability.RoomMembersActive.WithLabelValues(rm.info.ID).Inc()
	return true
}

// LeaveRoom removes the member, records the system leave message, and
// publishes the left event atomically. Reports false when the room is
// absent or the user was never a member.
func (r *Registry) LeaveRoom(roomID, userID string) bool {
	rm, ok := r.lookup(roomID)
	if !ok {
		return false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	user, present := rm.members[userID]
	if !present {
		return false
	}

	delete(rm.members, userID)
	stamp := rm.nextStamp()
	rm.appendLocked(domain.Message{
		ID:        uuid.NewString(),
		RoomID:    rm.info.ID,
		Content:   user.DisplayName + " left the room",
		Kind:      domain.KindSystemLeave,
		CreatedAt: stamp,
	})
	r.bus.Publish(domain.NewUserLeft(rm.info.ID, user, stamp))

	observability.RoomMembersActive.WithLabelValues(rm.info.ID).Dec()
	return true
}

// PostMessage appends a text message authored by a current member and
// publishes the posted event. Content is stored verbatim; sanitization is
// a read-side concern of the consuming adapter. Reports false when the
// room is absent or userID is not a member.
func (r *Registry) PostMessage(roomID, userID, content string) (domain.Message, bool) {
	rm, ok := r.lookup(roomID)
	if !ok {
		return domain.Message{}, false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	author, present := rm.members[userID]
	if !present {
		return domain.Message{}, false
	}

	msg := domain.Message{
		ID:         uuid.NewString(),
		RoomID:     rm.info.ID,
		AuthorID:   author.ID,
		AuthorName: author.DisplayName,
		Content:    content,
		Kind:       domain.KindText,
		CreatedAt:  rm.nextStamp(),
	}
	rm.appendLocked(msg)
	r.bus.Publish(domain.NewMessagePosted(msg))

	return msg, true
}

// RoomHistory returns the room's messages in append order. A positive
// limit returns only the most recent limit messages, order preserved.
// An absent room yields an empty slice; reads are deliberately lenient
// where writes are strict.
func (r *Registry) RoomHistory(roomID string, limit int) []domain.Message {
	rm, ok := r.lookup(roomID)
	if !ok {
		return []domain.Message{}
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()

	return rm.historyTailLocked(limit)
}

func (rm *room) historyTailLocked(limit int) []domain.Message {
	start := 0
	if limit > 0 && limit < len(rm.history) {
		start = len(rm.history) - limit
	}

	out := make([]domain.Message, len(rm.history)-start)
	copy(out, rm.history[start:])
	return out
}

// RoomMembers returns the current members, ordered by join time for
// stable output. An absent room yields an empty slice.
func (r *Registry) RoomMembers(roomID string) []domain.User {
	rm, ok := r.lookup(roomID)
	if !ok {
		return []domain.User{}
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()

	return rm.membersLocked()
}

func (rm *room) membersLocked() []domain.User {
	members := lo.Values(rm.members)
	sort.Slice(members, func(i, j int) bool {
		if members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].ID < members[j].ID
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members
}

func (rm *room) appendLocked(msg domain.Message) {
	rm.history = append(rm.history, msg)
	observability.MessagesPostedTotal.WithLabelValues(rm.info.ID, string(msg.Kind)).Inc()
}

func (r *Registry) lookup(id string) (*room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[id]
	return rm, ok
}
