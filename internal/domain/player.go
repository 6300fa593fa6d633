package domain

import "time"

// Player is one participant of a room. Meta is caller-supplied and opaque;
// it is broadcast back to the room verbatim in users-updated snapshots.
type Player struct {
	ConnID   string         `json:"connection_id"`
	Name     string         `json:"player_name"`
	Meta     map[string]any `json:"extra,omitempty"`
	JoinedAt time.Time      `json:"joined_at"`
}
