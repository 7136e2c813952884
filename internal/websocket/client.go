package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"parlor-chat/internal/domain"
	"parlor-chat/internal/observability"
	"parlor-chat/internal/pipeline"
	"parlor-chat/internal/registry"
	"parlor-chat/internal/service"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // Must be less than pongWait
	maxMessageSize = 4096
)

// Client is the per-connection session adapter. It tracks the session's
// current identity and room, relays inbound named events into the chat
// service, and pipes the service's snapshot and live streams back out.
type Client struct {
	conn *websocket.Conn
	chat *service.ChatService
	send chan []byte

	writeMu sync.Mutex
	closed  atomic.Bool

	ctx       context.Context
	ctxCancel context.CancelFunc

	// Session state, guarded by mu. A connection has no registry effect
	// until its first explicit join.
	mu            sync.Mutex
	user          domain.User
	roomID        string
	snap          *registry.Snapshot
	forwardCancel context.CancelFunc
}

// NewClient wraps an upgraded connection.
func NewClient(ctx context.Context, conn *websocket.Conn, chat *service.ChatService) *Client {
	clientCtx, cancel := context.WithCancel(ctx)

	return &Client{
		conn:      conn,
		chat:      chat,
		send:      make(chan []byte, 256),
		ctx:       clientCtx,
		ctxCancel: cancel,
	}
}

// ReadPump reads inbound events until the connection drops, then leaves
// the current room (if any) and releases the subscriptions.
func (c *Client) ReadPump() {
	defer func() {
		c.leaveCurrent()
		c.ctxCancel()
		c.closeConnection()
		observability.WebSocketConnectionsActive.Dec()
	}()

	observability.WebSocketConnectionsActive.Inc()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Warn("failed to set read deadline", slog.String("error", err.Error()))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket error", slog.String("error", err.Error()))
			}
			return
		}

		var ev ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			slog.Warn("invalid event format", slog.String("error", err.Error()))
			c.sendError("invalid event format")
			continue
		}

		c.dispatch(ev)
	}
}

func (c *Client) dispatch(ev ClientEvent) {
	switch ev.Event {
	case EventJoinRoom:
		c.handleJoin(ev.RoomID, ev.DisplayName)
	case EventLeaveRoom:
		c.handleLeave(ev.RoomID)
	case EventSendMessage:
		c.handleSend(ev.RoomID, ev.Content)
	default:
		slog.Warn("unknown event", slog.String("event", ev.Event))
		c.sendError("unknown event: " + ev.Event)
	}
}

// handleJoin joins the room and delivers the member list and history
// snapshot before any live event, so the client sees a gapless,
// duplicate-free stream.
func (c *Client) handleJoin(roomID, displayName string) {
	c.leaveCurrent()

	res, ok := c.chat.Join(roomID, displayName)
	if !ok {
		c.sendError("cannot join room: " + roomID)
		return
	}

	forwardCtx, cancel := context.WithCancel(c.ctx)

	c.mu.Lock()
	c.user = res.User
	c.roomID = roomID
	c.snap = res.Snapshot
	c.forwardCancel = cancel
	c.mu.Unlock()

	c.sendEvent(ServerEvent{
		Event:  EventRoomUsers,
		RoomID: roomID,
		Users:  res.Snapshot.Members,
	})
	for _, msg := range res.Snapshot.History {
		sanitized := pipeline.SanitizeMessage(msg)
		c.sendEvent(ServerEvent{
			Event:   EventMessage,
			RoomID:  roomID,
			Message: &sanitized,
		})
	}

	go c.forward(forwardCtx, res.Snapshot)

	slog.Info("session joined room",
		slog.String("user", res.User.DisplayName),
		slog.String("room_id", roomID))
}

func (c *Client) handleLeave(roomID string) {
	c.mu.Lock()
	current := c.roomID
	c.mu.Unlock()

	if current == "" || current != roomID {
		c.sendError("not joined to room: " + roomID)
		return
	}
	c.leaveCurrent()
}

// handleSend posts to the room. A failed send is reported to this client
// only; the session stays usable.
func (c *Client) handleSend(roomID, content string) {
	c.mu.Lock()
	userID := c.user.ID
	current := c.roomID
	c.mu.Unlock()

	if current == "" || current != roomID {
		c.sendError("join the room before sending messages")
		return
	}

	if _, ok := c.chat.Send(roomID, userID, content); !ok {
		c.sendError("message rejected")
	}
	// Delivery back to this client arrives through the live stream like
	// any other subscriber.
}

// forward pipes the live streams to the connection. Posted messages come
// from the sanitized message stream; the event subscription contributes
// membership changes plus a refreshed member list.
func (c *Client) forward(ctx context.Context, snap *registry.Snapshot) {
	msgs := pipeline.Sanitized(snap.Messages.Messages())

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-snap.Events.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case domain.EventUserJoined:
				c.sendEvent(ServerEvent{Event: EventUserJoin, RoomID: ev.RoomID, User: ev.User})
				c.sendRoomUsers(ev.RoomID)
			case domain.EventUserLeft:
				c.sendEvent(ServerEvent{Event: EventUserLeave, RoomID: ev.RoomID, User: ev.User})
				c.sendRoomUsers(ev.RoomID)
			}
			// Message events are forwarded from the message stream.

		case msg, ok := <-msgs:
			if !ok {
				return
			}
			c.sendEvent(ServerEvent{Event: EventMessage, RoomID: msg.RoomID, Message: &msg})
		}
	}
}

// leaveCurrent tears down the session's room association: stop the
// forwarder, close the subscriptions, then leave. Safe to call when not
// joined, and calling it twice is a no-op.
func (c *Client) leaveCurrent() {
	c.mu.Lock()
	user := c.user
	roomID := c.roomID
	snap := c.snap
	cancel := c.forwardCancel
	c.user = domain.User{}
	c.roomID = ""
	c.snap = nil
	c.forwardCancel = nil
	c.mu.Unlock()

	if roomID == "" {
		return
	}

	if cancel != nil {
		cancel()
	}
	snap.Close()
	c.chat.Leave(roomID, user.ID)

	slog.Info("session left room",
		slog.String("user", user.DisplayName),
		slog.String("room_id", roomID))
}

func (c *Client) sendRoomUsers(roomID string) {
	c.sendEvent(ServerEvent{
		Event:  EventRoomUsers,
		RoomID: roomID,
		Users:  c.chat.RoomMembers(roomID),
	})
}

func (c *Client) sendError(msg string) {
	c.sendEvent(ServerEvent{Event: EventError, Error: msg})
}

// sendEvent queues an outbound event without blocking. A connection that
// cannot drain its send buffer loses the event rather than stalling the
// forwarder.
func (c *Client) sendEvent(ev ServerEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("failed to marshal server event",
			slog.String("error", err.Error()),
			slog.String("event", ev.Event))
		return
	}

	select {
	case c.send <- data:
		observability.WebSocketMessagesSent.WithLabelValues(ev.Event).Inc()
	default:
		slog.Warn("send buffer full, dropping event", slog.String("event", ev.Event))
	}
}

// WritePump pumps queued events to the connection and keeps it alive
// with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.writeMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			if err := c.writeMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.writeMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeMessage writes to the connection in a thread-safe manner.
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return websocket.ErrCloseSent
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// closeConnection safely closes the underlying connection once.
func (c *Client) closeConnection() {
	if c.closed.CompareAndSwap(false, true) {
		c.writeMu.Lock()
		c.conn.Close()
		c.writeMu.Unlock()
	}
}
