package http

import (
	"encoding/json"
	"net/http"

	"github.com/retroplay/netplay-service/internal/coordinator"
	"github.com/retroplay/netplay-service/internal/domain"
)

type Handler struct {
	coord *coordinator.Coordinator
}

func NewHandler(coord *coordinator.Coordinator) *Handler {
	return &Handler{coord: coord}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// RoomListItem is the per-room entry of the discovery response, keyed by
// session id.
type RoomListItem struct {
	RoomName    string `json:"room_name"`
	Current     int    `json:"current"`
	Max         int    `json:"max"`
	OwnerName   string `json:"player_name"`
	HasPassword bool   `json:"hasPassword"`
}

// GET /list?game_id=
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game_id")
	if gameID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing game_id"})
		return
	}

	resp := make(map[string]RoomListItem)
	for _, s := range h.coord.ListOpen(gameID) {
		resp[s.SessionID] = toListItem(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coord.Stats())
}

func toListItem(s domain.RoomSummary) RoomListItem {
	return RoomListItem{
		RoomName:    s.RoomName,
		Current:     s.Current,
		Max:         s.Max,
		OwnerName:   s.OwnerName,
		HasPassword: s.HasPassword,
	}
}
