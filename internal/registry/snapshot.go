package registry

import (
	"parlor-chat/internal/domain"
	"parlor-chat/internal/eventbus"
)

// Snapshot is the one-time view handed to a freshly joined session,
// paired with the live streams that continue from exactly where the
// snapshot ends.
type Snapshot struct {
	Room    domain.Room
	Members []domain.User
	History []domain.Message

	// Events carries membership changes for the room; Messages carries
	// posted messages only. Both start strictly after History's last
	// entry: nothing is lost between snapshot and stream, and nothing
	// is delivered twice.
	Events   *eventbus.Subscription
	Messages *eventbus.MessageStream
}

// Close releases both live streams. Idempotent.
func (s *Snapshot) Close() {
	if s.Events != nil {
		s.Events.Close()
	}
	if s.Messages != nil {
		s.Messages.Close()
	}
}

// JoinAndSubscribe joins the room and captures the snapshot plus live
// subscriptions in a single step, all under the room lock. A post racing
// with the join lands either in History or on the live stream, exactly
// once: publishes to this room are serialized by the same lock that
// guards the snapshot.
//
// The joining user's own system join message appears in History; the
// corresponding event precedes the subscriptions and is not re-delivered.
func (r *Registry) JoinAndSubscribe(roomID string, user domain.User) (*Snapshot, bool) {
	rm, ok := r.lookup(roomID)
	if !ok {
		return nil, false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.joinLocked(user, r.bus)

	return &Snapshot{
		Room:     rm.info,
		Members:  rm.membersLocked(),
		History:  rm.historyTailLocked(0),
		Events:   r.bus.SubscribeRoom(roomID),
		Messages: r.bus.SubscribeMessages(roomID),
	}, true
}
