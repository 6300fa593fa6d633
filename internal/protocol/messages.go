// Package protocol defines the message envelope and payload shapes exchanged
// over a coordinator connection. Gameplay payloads are opaque to the server:
// they are relayed as raw JSON and never inspected.
package protocol

import (
	"encoding/json"
	"errors"

	"github.com/retroplay/netplay-service/internal/domain"
)

// Inbound event types.
const (
	TypeOpenRoom  = "open-room"
	TypeJoinRoom  = "join-room"
	TypeLeaveRoom = "leave-room"
	TypeSignal    = "webrtc-signal"
	TypeData      = "data-message"
	TypeSnapshot  = "snapshot"
	TypeInput     = "input"
)

// Outbound event types. TypeSignal and the gameplay types are reused as-is
// on the way out.
const (
	TypeUsersUpdated = "users-updated"
	TypeAck          = "ack"
	TypeError        = "error"
)

// Machine-readable error codes carried in ErrorPayload.
const (
	CodeInvalidRequest    = "invalid_request"
	CodeRoomExists        = "room_exists"
	CodeRoomNotFound      = "room_not_found"
	CodeIncorrectPassword = "incorrect_password"
	CodeRoomFull          = "room_full"
)

// Message is the wire envelope. Payload stays raw so relays forward it
// untouched.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage marshals payload into an envelope.
func NewMessage(msgType string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}

// Decode unmarshals the envelope payload into dst.
func (m Message) Decode(dst any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(m.Payload, dst)
}

type OpenRoomPayload struct {
	SessionID  string         `json:"session_id"`
	PlayerID   string         `json:"player_id"`
	PlayerName string         `json:"player_name,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
	RoomName   string         `json:"room_name,omitempty"`
	GameID     string         `json:"game_id,omitempty"`
	Domain     string         `json:"domain,omitempty"`
	Password   string         `json:"password,omitempty"`
	MaxPlayers int            `json:"max_players,omitempty"`
}

type JoinRoomPayload struct {
	SessionID  string         `json:"session_id"`
	PlayerID   string         `json:"player_id"`
	PlayerName string         `json:"player_name,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
	Password   string         `json:"password,omitempty"`
}

// SignalPayload carries WebRTC negotiation metadata between two connections.
// The SDP and candidate fields are passed through as raw JSON; the server
// only reads Target and injects Sender.
type SignalPayload struct {
	Target             string          `json:"target,omitempty"`
	Sender             string          `json:"sender,omitempty"`
	Candidate          json.RawMessage `json:"candidate,omitempty"`
	Offer              json.RawMessage `json:"offer,omitempty"`
	Answer             json.RawMessage `json:"answer,omitempty"`
	RequestRenegotiate bool            `json:"request_renegotiate,omitempty"`
}

// UsersUpdatedPayload is the full-membership snapshot broadcast on every
// change. Snapshots are idempotent: a stale-then-fresh delivery self-corrects.
type UsersUpdatedPayload struct {
	SessionID string                   `json:"session_id"`
	Players   map[string]domain.Player `json:"players"`
}

// AckPayload answers a successful open-room or join-room. ConnID tells the
// client its own connection id for addressing signals.
type AckPayload struct {
	Op        string                   `json:"op"`
	SessionID string                   `json:"session_id,omitempty"`
	ConnID    string                   `json:"connection_id"`
	Players   map[string]domain.Player `json:"players,omitempty"`
}

type ErrorPayload struct {
	Op   string `json:"op"`
	Code string `json:"code"`
}

// CodeForError maps the domain error taxonomy onto wire codes.
func CodeForError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrRoomExists):
		return CodeRoomExists
	case errors.Is(err, domain.ErrRoomNotFound):
		return CodeRoomNotFound
	case errors.Is(err, domain.ErrIncorrectPassword):
		return CodeIncorrectPassword
	case errors.Is(err, domain.ErrRoomFull):
		return CodeRoomFull
	default:
		return CodeInvalidRequest
	}
}
