package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Registry metrics
	RoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_rooms_active",
			Help: "Number of rooms in the registry",
		},
	)

	RoomMembersActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_room_members_active",
			Help: "Number of current members per room",
		},
		[]string{"room_id"},
	)

	MessagesPostedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_posted_total",
			Help: "Total number of messages appended to room histories",
		},
		[]string{"room_id", "kind"},
	)

	// Event bus metrics
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_published_total",
			Help: "Total number of domain events published on the bus",
		},
		[]string{"kind"},
	)

	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_dropped_total",
			Help: "Events dropped because a subscriber queue was full",
		},
		[]string{"kind"},
	)

	SubscribersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_subscribers_active",
			Help: "Number of live event bus subscriptions",
		},
	)

	// WebSocket metrics
	WebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WebSocketMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of outbound events written to WebSocket clients",
		},
		[]string{"event"},
	)

	// Activity metrics
	ActiveUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_active_users",
			Help: "Users active within the inactivity window",
		},
	)
)
