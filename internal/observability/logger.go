package observability

import (
	"context"
	"log/slog"
	"os"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const roomIDKey contextKey = "room_id"

var logger *slog.Logger

// InitLogger initializes the global structured logger
func InitLogger(level, format string) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: level == "debug",
	}

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// FromContext returns a logger annotated with the chi request ID (when the
// request passed through the RequestID middleware) and the room ID when one
// was attached via WithRoomID.
func FromContext(ctx context.Context) *slog.Logger {
	l := logger
	if l == nil {
		l = slog.Default()
	}

	if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
		l = l.With(slog.String("request_id", reqID))
	}

	if roomID, ok := ctx.Value(roomIDKey).(string); ok && roomID != "" {
		l = l.With(slog.String("room_id", roomID))
	}

	return l
}

// WithRoomID attaches a room ID to the context for logging
func WithRoomID(ctx context.Context, roomID string) context.Context {
	return context.WithValue(ctx, roomIDKey, roomID)
}

// parseLevel converts string level to slog.Level
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
