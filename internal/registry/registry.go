// Package registry holds the in-memory table of active rooms. The registry
// mutex guards only the map itself; each room serializes its own mutations,
// so traffic on one room never blocks another.
package registry

import (
	"sync"

	"github.com/retroplay/netplay-service/internal/domain"
)

type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room
}

func New() *Registry {
	return &Registry{rooms: make(map[string]*domain.Room)}
}

// Create inserts the room under its session id. Never overwrites: a live
// session id is reported as domain.ErrRoomExists.
func (g *Registry) Create(room *domain.Room) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.rooms[room.SessionID]; ok {
		return domain.ErrRoomExists
	}
	g.rooms[room.SessionID] = room
	return nil
}

func (g *Registry) Get(sessionID string) (*domain.Room, error) {
	g.mu.RLock()
	room, ok := g.rooms[sessionID]
	g.mu.RUnlock()

	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// Remove deletes the room and marks it closed. Removing an absent id is a
// no-op, so the immediate-delete path and the reaper can race safely.
func (g *Registry) Remove(sessionID string) {
	g.mu.Lock()
	room, ok := g.rooms[sessionID]
	if ok {
		delete(g.rooms, sessionID)
	}
	g.mu.Unlock()

	if ok {
		room.MarkClosed()
	}
}

// ListOpen returns the discovery view of every joinable room for the game:
// matching game id and below capacity. Passwords never leave the room, only
// the has-password flag does.
func (g *Registry) ListOpen(gameID string) []domain.RoomSummary {
	g.mu.RLock()
	matched := make([]*domain.Room, 0)
	for _, room := range g.rooms {
		if room.GameID == gameID {
			matched = append(matched, room)
		}
	}
	g.mu.RUnlock()

	out := make([]domain.RoomSummary, 0, len(matched))
	for _, room := range matched {
		if s, open := room.Summary(); open {
			out = append(out, s)
		}
	}
	return out
}

// SweepEmpty deletes every room with no players left and returns how many it
// removed. The emptiness check happens under the room lock via CloseIfEmpty,
// so a join landing between observation and deletion keeps its room.
func (g *Registry) SweepEmpty() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for id, room := range g.rooms {
		if room.CloseIfEmpty() {
			delete(g.rooms, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of registered rooms.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}
