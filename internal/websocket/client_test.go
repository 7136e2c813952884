package websocket_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parlor-chat/internal/eventbus"
	"parlor-chat/internal/handler"
	"parlor-chat/internal/pipeline"
	"parlor-chat/internal/registry"
	"parlor-chat/internal/service"
	ws "parlor-chat/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *service.ChatService) {
	t.Helper()

	bus := eventbus.New()
	chat := service.NewChatService(registry.New(bus, "general"), pipeline.NewActivityTracker())

	r := chi.NewRouter()
	r.Get("/ws/chat", handler.NewWebSocketHandler(chat, "*").HandleConnection)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, chat
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) ws.ServerEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev ws.ServerEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func sendEvent(t *testing.T, conn *websocket.Conn, ev ws.ClientEvent) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ev))
}

func TestSession_JoinDeliversSnapshotThenLive(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	sendEvent(t, conn, ws.ClientEvent{Event: ws.EventJoinRoom, RoomID: "general", DisplayName: "alice"})

	users := readEvent(t, conn)
	require.Equal(t, ws.EventRoomUsers, users.Event)
	require.Len(t, users.Users, 1)
	assert.Equal(t, "alice", users.Users[0].DisplayName)

	joinMsg := readEvent(t, conn)
	require.Equal(t, ws.EventMessage, joinMsg.Event)
	require.NotNil(t, joinMsg.Message)
	assert.Equal(t, "alice joined the room", joinMsg.Message.Content)

	// A message sent after the snapshot arrives live, sanitized for the
	// rendering surface while the stored copy stays raw.
	sendEvent(t, conn, ws.ClientEvent{Event: ws.EventSendMessage, RoomID: "general", Content: "<hi>"})

	live := readEvent(t, conn)
	require.Equal(t, ws.EventMessage, live.Event)
	require.NotNil(t, live.Message)
	assert.Equal(t, "&lt;hi&gt;", live.Message.Content)
	assert.Equal(t, "alice", live.Message.AuthorName)
}

func TestSession_StoredHistoryStaysRaw(t *testing.T) {
	srv, chat := newTestServer(t)
	conn := dial(t, srv)

	sendEvent(t, conn, ws.ClientEvent{Event: ws.EventJoinRoom, RoomID: "general", DisplayName: "alice"})
	readEvent(t, conn) // roomUsers
	readEvent(t, conn) // system join

	sendEvent(t, conn, ws.ClientEvent{Event: ws.EventSendMessage, RoomID: "general", Content: "<raw>"})
	readEvent(t, conn) // live copy

	history := chat.RoomHistory("general", 0)
	require.NotEmpty(t, history)
	assert.Equal(t, "<raw>", history[len(history)-1].Content)
}

func TestSession_MembershipEventsReachOtherSessions(t *testing.T) {
	srv, _ := newTestServer(t)

	alice := dial(t, srv)
	sendEvent(t, alice, ws.ClientEvent{Event: ws.EventJoinRoom, RoomID: "general", DisplayName: "alice"})
	readEvent(t, alice) // roomUsers
	readEvent(t, alice) // own system join

	bob := dial(t, srv)
	sendEvent(t, bob, ws.ClientEvent{Event: ws.EventJoinRoom, RoomID: "general", DisplayName: "bob"})

	joined := readEvent(t, alice)
	require.Equal(t, ws.EventUserJoin, joined.Event)
	require.NotNil(t, joined.User)
	assert.Equal(t, "bob", joined.User.DisplayName)

	updated := readEvent(t, alice)
	require.Equal(t, ws.EventRoomUsers, updated.Event)
	assert.Len(t, updated.Users, 2)

	// Bob's snapshot includes alice's history, exactly once.
	bobUsers := readEvent(t, bob)
	require.Equal(t, ws.EventRoomUsers, bobUsers.Event)
	assert.Len(t, bobUsers.Users, 2)
	first := readEvent(t, bob)
	require.Equal(t, ws.EventMessage, first.Event)
	assert.Equal(t, "alice joined the room", first.Message.Content)
	second := readEvent(t, bob)
	require.Equal(t, ws.EventMessage, second.Event)
	assert.Equal(t, "bob joined the room", second.Message.Content)

	// Leaving announces to the remaining session.
	sendEvent(t, bob, ws.ClientEvent{Event: ws.EventLeaveRoom, RoomID: "general"})

	left := readEvent(t, alice)
	require.Equal(t, ws.EventUserLeave, left.Event)
	require.NotNil(t, left.User)
	assert.Equal(t, "bob", left.User.DisplayName)
}

func TestSession_SendWithoutJoinIsNonFatal(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	sendEvent(t, conn, ws.ClientEvent{Event: ws.EventSendMessage, RoomID: "general", Content: "hi"})

	errEvent := readEvent(t, conn)
	require.Equal(t, ws.EventError, errEvent.Event)
	assert.NotEmpty(t, errEvent.Error)

	// The session survives the error and can still join.
	sendEvent(t, conn, ws.ClientEvent{Event: ws.EventJoinRoom, RoomID: "general", DisplayName: "alice"})
	users := readEvent(t, conn)
	assert.Equal(t, ws.EventRoomUsers, users.Event)
}

func TestSession_UnknownEventReportsError(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	sendEvent(t, conn, ws.ClientEvent{Event: "teleport"})

	errEvent := readEvent(t, conn)
	require.Equal(t, ws.EventError, errEvent.Event)
	assert.Contains(t, errEvent.Error, "teleport")
}

func TestSession_DisconnectLeavesRoom(t *testing.T) {
	srv, chat := newTestServer(t)

	conn := dial(t, srv)
	sendEvent(t, conn, ws.ClientEvent{Event: ws.EventJoinRoom, RoomID: "general", DisplayName: "alice"})
	readEvent(t, conn) // roomUsers

	require.Eventually(t, func() bool {
		return len(chat.RoomMembers("general")) == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return len(chat.RoomMembers("general")) == 0
	}, 2*time.Second, 10*time.Millisecond)

	history := chat.RoomHistory("general", 0)
	require.NotEmpty(t, history)
	assert.Equal(t, "alice left the room", history[len(history)-1].Content)
}
