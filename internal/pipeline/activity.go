package pipeline

import (
	"sync"
	"time"

	"parlor-chat/internal/observability"
)

// inactivityWindow is how long a user stays counted as active after their
// last recorded action.
const inactivityWindow = 5 * time.Minute

// ActivityEvent is the enriched record emitted for each tracked action.
type ActivityEvent struct {
	UserID          string    `json:"user_id"`
	Action          string    `json:"action"`
	LastActivity    time.Time `json:"last_activity"`
	ActiveUserCount int       `json:"active_user_count"`
}

// ActivityTracker maintains the last-activity time per user. Pruning of
// idle entries is lazy: it happens only when ActiveUsers is called, never
// on a timer.
type ActivityTracker struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
	now      func() time.Time
}

// NewActivityTracker creates an empty tracker.
func NewActivityTracker() *ActivityTracker {
	return &ActivityTracker{
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Track records an action for userID and returns the enriched event,
// including the tracker size at the moment of the update.
func (t *ActivityTracker) Track(userID, action string) ActivityEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.lastSeen[userID] = now

	count := len(t.lastSeen)
	observability.ActiveUsers.Set(float64(count))

	return ActivityEvent{
		UserID:          userID,
		Action:          action,
		LastActivity:    now,
		ActiveUserCount: count,
	}
}

// ActiveUsers prunes entries idle longer than the inactivity window and
// returns the post-prune count.
func (t *ActivityTracker) ActiveUsers() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-inactivityWindow)
	for userID, last := range t.lastSeen {
		if last.Before(cutoff) {
			delete(t.lastSeen, userID)
		}
	}

	count := len(t.lastSeen)
	observability.ActiveUsers.Set(float64(count))
	return count
}
