package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"parlor-chat/internal/domain"
	"parlor-chat/internal/observability"
	"parlor-chat/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// RoomHandler handles the room REST endpoints. It is a thin adapter:
// every route maps 1:1 onto a chat service operation.
type RoomHandler struct {
	chat     *service.ChatService
	validate *validator.Validate
}

// NewRoomHandler creates a new room handler.
func NewRoomHandler(chat *service.ChatService) *RoomHandler {
	return &RoomHandler{
		chat:     chat,
		validate: validator.New(),
	}
}

// CreateRoomRequest represents a room creation request.
type CreateRoomRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// RoomResponse serializes a room with its membership exposed as a count.
type RoomResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Users     int       `json:"users"`
}

func (h *RoomHandler) roomResponse(room domain.Room) RoomResponse {
	return RoomResponse{
		ID:        room.ID,
		Name:      room.Name,
		CreatedAt: room.CreatedAt,
		Users:     len(h.chat.RoomMembers(room.ID)),
	}
}

// List returns all rooms in creation order.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms := lo.Map(h.chat.ListRooms(), func(room domain.Room, _ int) RoomResponse {
		return h.roomResponse(room)
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"rooms": rooms,
	})
}

// Create creates a new room.
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, `{"error":"Room name is required and must be at most 100 characters"}`, http.StatusBadRequest)
		return
	}

	room, err := h.chat.CreateRoom(req.Name)
	switch {
	case errors.Is(err, domain.ErrDuplicateRoom):
		http.Error(w, `{"error":"Room already exists"}`, http.StatusConflict)
		return
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, `{"error":"Invalid room name"}`, http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, `{"error":"Failed to create room"}`, http.StatusInternalServerError)
		return
	}

	ctx := observability.WithRoomID(r.Context(), room.ID)
	observability.FromContext(ctx).Info("room created", "name", room.Name)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(h.roomResponse(room))
}

// Get returns a single room.
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	room, ok := h.chat.GetRoom(roomID)
	if !ok {
		http.Error(w, `{"error":"Room not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.roomResponse(room))
}

// GetMessages returns the room's history, optionally limited to the most
// recent messages. An unknown room yields an empty list, mirroring the
// registry's lenient-read policy.
func (h *RoomHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			http.Error(w, `{"error":"Invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	messages := h.chat.RoomHistory(roomID, limit)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"messages": messages,
	})
}

// Activity returns the count of recently active users.
func (h *RoomHandler) Activity(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"active_users": h.chat.ActiveUsers(),
	})
}
