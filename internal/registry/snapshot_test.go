package registry

import (
	"fmt"
	"testing"
	"time"

	"parlor-chat/internal/domain"
	"parlor-chat/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinAndSubscribe_SnapshotBeforeLive(t *testing.T) {
	reg, _ := newTestRegistry(t)

	poster := testutil.NewTestUser("poster")
	require.True(t, reg.JoinRoom(DefaultRoomID, poster))
	_, ok := reg.PostMessage(DefaultRoomID, poster.ID, "before join")
	require.True(t, ok)

	snap, ok := reg.JoinAndSubscribe(DefaultRoomID, testutil.NewTestUser("joiner"))
	require.True(t, ok)
	defer snap.Close()

	// Snapshot carries everything up to and including the joiner's own
	// system join message.
	require.Len(t, snap.History, 3)
	assert.Equal(t, "before join", snap.History[1].Content)
	assert.Equal(t, domain.KindSystemJoin, snap.History[2].Kind)
	assert.Len(t, snap.Members, 2)

	// Nothing already recorded is re-delivered live.
	select {
	case ev := <-snap.Events.Events():
		t.Fatalf("unexpected live event for pre-join state: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	// A post after the join arrives on the live streams only.
	_, ok = reg.PostMessage(DefaultRoomID, poster.ID, "after join")
	require.True(t, ok)

	msg := <-snap.Messages.Messages()
	assert.Equal(t, "after join", msg.Content)

	ev := <-snap.Events.Events()
	assert.Equal(t, domain.EventMessagePosted, ev.Kind)
}

func TestJoinAndSubscribe_AbsentRoom(t *testing.T) {
	reg, _ := newTestRegistry(t)

	snap, ok := reg.JoinAndSubscribe("missing", testutil.NewTestUser("joiner"))
	assert.False(t, ok)
	assert.Nil(t, snap)
}

// A join racing concurrent posts must observe every message exactly once:
// either in the snapshot history or on the live stream, never both and
// never neither.
func TestJoinAndSubscribe_RacingPostsSeenExactlyOnce(t *testing.T) {
	reg, _ := newTestRegistry(t)

	poster := testutil.NewTestUser("poster")
	require.True(t, reg.JoinRoom(DefaultRoomID, poster))

	const posts = 100

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < posts; i++ {
			if _, ok := reg.PostMessage(DefaultRoomID, poster.ID, fmt.Sprintf("race-%d", i)); !ok {
				t.Errorf("post %d failed", i)
				return
			}
		}
	}()

	// Join somewhere in the middle of the post storm.
	time.Sleep(time.Millisecond)
	snap, ok := reg.JoinAndSubscribe(DefaultRoomID, testutil.NewTestUser("joiner"))
	require.True(t, ok)
	defer snap.Close()

	<-done

	seen := make(map[string]int)
	for _, msg := range snap.History {
		if msg.Kind == domain.KindText {
			seen[msg.Content]++
		}
	}

	deadline := time.After(2 * time.Second)
	for len(seen) < posts {
		select {
		case msg := <-snap.Messages.Messages():
			seen[msg.Content]++
		case <-deadline:
			t.Fatalf("timed out with %d/%d messages observed", len(seen), posts)
		}
	}

	for i := 0; i < posts; i++ {
		content := fmt.Sprintf("race-%d", i)
		assert.Equal(t, 1, seen[content], "message %q must be observed exactly once", content)
	}
}

func TestSnapshot_CloseIsIdempotent(t *testing.T) {
	reg, _ := newTestRegistry(t)

	snap, ok := reg.JoinAndSubscribe(DefaultRoomID, testutil.NewTestUser("joiner"))
	require.True(t, ok)

	snap.Close()
	snap.Close()
}
