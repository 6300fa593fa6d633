package domain

import (
	"sync"
	"time"
)

// PeerLink records one live signaling pair so it can be pruned when either
// side disconnects. It is not authoritative for anything else.
type PeerLink struct {
	Source string
	Target string
}

// RoomSummary is the discovery-listing view of a room. It carries a
// has-password flag, never the password itself.
type RoomSummary struct {
	SessionID   string `json:"session_id"`
	RoomName    string `json:"room_name"`
	Current     int    `json:"current"`
	Max         int    `json:"max"`
	OwnerName   string `json:"player_name"`
	HasPassword bool   `json:"hasPassword"`
}

// Room is one ephemeral multiplayer session. The identity fields are set at
// creation and never change; everything behind the mutex is mutated by
// concurrent connection events and must only be touched through the methods
// below. A closed room has been removed from the registry — mutations on it
// report ErrRoomNotFound so a racing join cannot resurrect it.
type Room struct {
	SessionID  string
	RoomName   string
	GameID     string
	Domain     string
	Password   string
	MaxPlayers int
	CreatedAt  time.Time

	mu        sync.Mutex
	ownerConn string
	players   map[string]*Player
	peers     []PeerLink
	closed    bool
}

func NewRoom(sessionID, roomName, gameID, netDomain, password string, maxPlayers int) *Room {
	return &Room{
		SessionID:  sessionID,
		RoomName:   roomName,
		GameID:     gameID,
		Domain:     netDomain,
		Password:   password,
		MaxPlayers: maxPlayers,
		CreatedAt:  time.Now(),
		players:    make(map[string]*Player),
	}
}

// CheckPassword reports whether the supplied password opens this room.
// An open room (no password) accepts anything.
func (r *Room) CheckPassword(supplied string) bool {
	return r.Password == "" || r.Password == supplied
}

// Join inserts or overwrites the player entry. A re-join with the same
// player id replaces the prior connection binding (last writer wins) and is
// exempt from the capacity check: the overwrite rule is deliberately applied
// ahead of the fullness test, since a replacement never grows the room.
// prevConn reports the replaced connection id so the caller can unsubscribe
// it. The first player becomes owner.
func (r *Room) Join(playerID string, p *Player) (prevConn string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", ErrRoomNotFound
	}
	if old, ok := r.players[playerID]; ok {
		prevConn = old.ConnID
	} else if len(r.players) >= r.MaxPlayers {
		return "", ErrRoomFull
	}

	r.players[playerID] = p
	if len(r.players) == 1 || (prevConn != "" && r.ownerConn == prevConn) {
		r.ownerConn = p.ConnID
	}
	return prevConn, nil
}

// Drop removes the player entry and prunes every peer link touching the
// connection. The entry is only removed while it still binds to connID, so a
// stale disconnect arriving after a re-join leaves the fresh binding alone.
// When the departing connection owned the room, ownership moves to the
// remaining player with the earliest join time (ties by smallest player id).
// A Drop that empties the room also closes it, so a join racing the caller's
// registry removal observes ErrRoomNotFound instead of entering a room that
// is about to be deleted.
func (r *Room) Drop(playerID, connID string) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.players[playerID]; ok && p.ConnID == connID {
		delete(r.players, playerID)
	}

	kept := r.peers[:0]
	for _, l := range r.peers {
		if l.Source != connID && l.Target != connID {
			kept = append(kept, l)
		}
	}
	r.peers = kept

	if len(r.players) == 0 {
		r.closed = true
		return true
	}
	if r.ownerConn == connID {
		r.ownerConn = r.electOwnerLocked()
	}
	return false
}

func (r *Room) electOwnerLocked() string {
	var bestID string
	var best *Player
	for id, p := range r.players {
		if best == nil || p.JoinedAt.Before(best.JoinedAt) ||
			(p.JoinedAt.Equal(best.JoinedAt) && id < bestID) {
			bestID, best = id, p
		}
	}
	return best.ConnID
}

// AddPeerLink records a live signaling pair; repeated signals between the
// same pair do not grow the list.
func (r *Room) AddPeerLink(source, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	for _, l := range r.peers {
		if l.Source == source && l.Target == target {
			return
		}
	}
	r.peers = append(r.peers, PeerLink{Source: source, Target: target})
}

// Snapshot copies the current players mapping for a users-updated broadcast.
func (r *Room) Snapshot() map[string]Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Player, len(r.players))
	for id, p := range r.players {
		out[id] = *p
	}
	return out
}

// Summary renders the discovery view; open reports whether the room should
// appear in listings (still registered and below capacity).
func (r *Room) Summary() (s RoomSummary, open bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ownerName string
	for _, p := range r.players {
		if p.ConnID == r.ownerConn {
			ownerName = p.Name
			break
		}
	}
	s = RoomSummary{
		SessionID:   r.SessionID,
		RoomName:    r.RoomName,
		Current:     len(r.players),
		Max:         r.MaxPlayers,
		OwnerName:   ownerName,
		HasPassword: r.Password != "",
	}
	return s, !r.closed && len(r.players) < r.MaxPlayers
}

// CloseIfEmpty marks an empty room closed; used by the sweep so the
// emptiness check and the removal are atomic with respect to joins.
func (r *Room) CloseIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return true
	}
	if len(r.players) > 0 {
		return false
	}
	r.closed = true
	return true
}

// MarkClosed is the unconditional variant, used when the room is removed
// after its last player left.
func (r *Room) MarkClosed() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *Room) OwnerConn() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ownerConn
}

func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Room) PeerLinks() []PeerLink {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PeerLink(nil), r.peers...)
}
