package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/corpsdraft/go/internal/draft/room"
	"github.com/rs/zerolog/log"
)

// RoomProvider is the registry surface the HTTP handlers need.
type RoomProvider interface {
	SessionProvider
	Get(ctx context.Context, roomID string) (*room.Session, error)
	Remove(ctx context.Context, roomID string) (bool, error)
	Rooms(ctx context.Context) ([]string, error)
}

// RoomSummary is one entry of GET /api/rooms
type RoomSummary struct {
	RoomID      string `json:"roomId"`
	State       string `json:"state"`
	Players     int    `json:"players"`
	Connections int    `json:"connections"`
}

// StateHandler handles HTTP requests for room state
type StateHandler struct {
	rooms RoomProvider
}

// NewStateHandler creates a new state handler
func NewStateHandler(rooms RoomProvider) *StateHandler {
	return &StateHandler{rooms: rooms}
}

// HandleProvisionRoom handles POST /api/rooms/{roomID}
func (h *StateHandler) HandleProvisionRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	s, err := h.rooms.GetOrCreate(r.Context(), roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to provision room")
		http.Error(w, "failed to provision room", http.StatusServiceUnavailable)
		return
	}

	snap, err := s.Snapshot(r.Context())
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to read provisioned room")
		http.Error(w, "failed to provision room", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// HandleListRooms handles GET /api/rooms
func (h *StateHandler) HandleListRooms(w http.ResponseWriter, r *http.Request) {
	ids, err := h.rooms.Rooms(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list rooms")
		http.Error(w, "failed to list rooms", http.StatusServiceUnavailable)
		return
	}

	summaries := make([]RoomSummary, 0, len(ids))
	for _, id := range ids {
		s, err := h.rooms.Get(r.Context(), id)
		if err != nil || s == nil {
			continue
		}
		snap, err := s.Snapshot(r.Context())
		if err != nil {
			// stopped between list and snapshot
			continue
		}
		summaries = append(summaries, RoomSummary{
			RoomID:      snap.RoomID,
			State:       snap.State,
			Players:     len(snap.Players),
			Connections: snap.Connections,
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

// HandleGetRoomState handles GET /api/rooms/{roomID}/state
func (h *StateHandler) HandleGetRoomState(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	s, err := h.rooms.Get(r.Context(), roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to get room")
		http.Error(w, "failed to get room state", http.StatusServiceUnavailable)
		return
	}
	if s == nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	snap, err := s.Snapshot(r.Context())
	if errors.Is(err, room.ErrSessionClosed) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to get room state")
		http.Error(w, "failed to get room state", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleDeleteRoom handles DELETE /api/rooms/{roomID}
func (h *StateHandler) HandleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	removed, err := h.rooms.Remove(r.Context(), roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to remove room")
		http.Error(w, "failed to remove room", http.StatusServiceUnavailable)
		return
	}
	if !removed {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterStateRoutes registers room HTTP routes
func (h *StateHandler) RegisterStateRoutes(r chi.Router) {
	r.Route("/api/rooms", func(r chi.Router) {
		r.Get("/", h.HandleListRooms)
		r.Post("/{roomID}", h.HandleProvisionRoom)
		r.Get("/{roomID}/state", h.HandleGetRoomState)
		r.Delete("/{roomID}", h.HandleDeleteRoom)
	})
}
