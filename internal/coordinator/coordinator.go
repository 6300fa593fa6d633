// Package coordinator translates connection events into registry operations
// and broadcast-group changes: room lifecycle, policy enforcement, and the
// opaque relay of signaling and gameplay messages.
package coordinator

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/retroplay/netplay-service/internal/domain"
	"github.com/retroplay/netplay-service/internal/protocol"
	"github.com/retroplay/netplay-service/internal/registry"
)

const DefaultMaxPlayers = 4

// attachment is the Attached half of the per-connection state machine: a
// connection belongs to at most one room at a time.
type attachment struct {
	sessionID string
	playerID  string
}

type Coordinator struct {
	reg *registry.Registry
	hub *Hub

	defaultMax int

	mu       sync.Mutex
	attached map[string]attachment // connID -> attachment
}

func New(reg *registry.Registry, hub *Hub, defaultMax int) *Coordinator {
	if defaultMax <= 0 {
		defaultMax = DefaultMaxPlayers
	}
	return &Coordinator{
		reg:        reg,
		hub:        hub,
		defaultMax: defaultMax,
		attached:   make(map[string]attachment),
	}
}

// OpenRoom creates a room with the caller as owner and sole player. The
// returned snapshot backs the synchronous ack; the same snapshot is also
// broadcast as users-updated to the room's group (here, just the creator).
func (c *Coordinator) OpenRoom(conn Conn, p protocol.OpenRoomPayload) (map[string]domain.Player, error) {
	if strings.TrimSpace(p.SessionID) == "" || strings.TrimSpace(p.PlayerID) == "" {
		return nil, domain.ErrInvalidRequest
	}

	name := p.RoomName
	if name == "" {
		name = "game-" + uuid.New().String()[:8]
	}
	max := p.MaxPlayers
	if max <= 0 {
		max = c.defaultMax
	}

	// The creator is seated before the room is registered, so a concurrent
	// sweep never observes a transiently empty room.
	room := domain.NewRoom(p.SessionID, name, p.GameID, p.Domain, p.Password, max)
	if _, err := room.Join(p.PlayerID, &domain.Player{
		ConnID:   conn.ID(),
		Name:     p.PlayerName,
		Meta:     p.Extra,
		JoinedAt: time.Now(),
	}); err != nil {
		return nil, err
	}
	if err := c.reg.Create(room); err != nil {
		// duplicate session id: nothing changed, the caller keeps whatever
		// attachment it had
		return nil, err
	}

	// opening is an implicit departure from any current room, never a second
	// attachment
	c.Leave(conn)

	c.attach(conn.ID(), p.SessionID, p.PlayerID)
	c.hub.Subscribe(p.SessionID, conn)

	snap := room.Snapshot()
	c.broadcastUsers(p.SessionID, snap)
	slog.Info("room opened", "session", p.SessionID, "player", p.PlayerID, "max", max)
	return snap, nil
}

// JoinRoom admits the caller subject to password and capacity policy. A
// re-join with the same player id replaces the prior connection binding.
func (c *Coordinator) JoinRoom(conn Conn, p protocol.JoinRoomPayload) (map[string]domain.Player, error) {
	if strings.TrimSpace(p.SessionID) == "" || strings.TrimSpace(p.PlayerID) == "" {
		return nil, domain.ErrInvalidRequest
	}

	room, err := c.reg.Get(p.SessionID)
	if err != nil {
		return nil, err
	}
	if !room.CheckPassword(p.Password) {
		return nil, domain.ErrIncorrectPassword
	}

	// Switching rooms (or player ids) is an implicit departure first. A
	// repeat join for the same room and player falls through to the
	// overwrite in Room.Join.
	if att, ok := c.attachmentOf(conn.ID()); ok && (att.sessionID != p.SessionID || att.playerID != p.PlayerID) {
		c.Leave(conn)
	}

	prevConn, err := room.Join(p.PlayerID, &domain.Player{
		ConnID:   conn.ID(),
		Name:     p.PlayerName,
		Meta:     p.Extra,
		JoinedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if prevConn != "" && prevConn != conn.ID() {
		// Last writer wins: the superseded connection no longer represents
		// any player in this room.
		c.hub.Unsubscribe(p.SessionID, prevConn)
		c.detachIf(prevConn, p.SessionID, p.PlayerID)
	}

	c.attach(conn.ID(), p.SessionID, p.PlayerID)
	c.hub.Subscribe(p.SessionID, conn)

	snap := room.Snapshot()
	c.broadcastUsers(p.SessionID, snap)
	slog.Info("player joined", "session", p.SessionID, "player", p.PlayerID)
	return snap, nil
}

// Leave handles both an explicit leave-room and the transport disconnect; it
// is a no-op for unattached connections and idempotent when the transport
// reports the same disconnect twice.
func (c *Coordinator) Leave(conn Conn) {
	connID := conn.ID()

	c.mu.Lock()
	att, ok := c.attached[connID]
	if ok {
		delete(c.attached, connID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	c.hub.Unsubscribe(att.sessionID, connID)

	room, err := c.reg.Get(att.sessionID)
	if err != nil {
		return
	}
	if room.Drop(att.playerID, connID) {
		// Last player out deletes the room right away; Drop closed it, so a
		// join landing before Remove fails rather than being stranded. The
		// reaper is only a backstop for missed events.
		c.reg.Remove(att.sessionID)
		slog.Info("room closed", "session", att.sessionID)
		return
	}
	c.broadcastUsers(att.sessionID, room.Snapshot())
	slog.Debug("player left", "session", att.sessionID, "player", att.playerID)
}

// Signal relays WebRTC negotiation metadata point-to-point. The payload is
// not validated beyond the presence of a target; a gone target is a silent
// drop — peers renegotiate via request_renegotiate when a signal is lost.
func (c *Coordinator) Signal(conn Conn, p protocol.SignalPayload) {
	if p.Target == "" {
		return
	}

	out := protocol.SignalPayload{Sender: conn.ID()}
	if p.RequestRenegotiate {
		out.RequestRenegotiate = true
	} else {
		out.Candidate = p.Candidate
		out.Offer = p.Offer
		out.Answer = p.Answer
	}
	msg, err := protocol.NewMessage(protocol.TypeSignal, out)
	if err != nil {
		return
	}
	c.hub.SendTo(p.Target, msg)

	// Record the live pair so disconnect can prune it; a renegotiate request
	// re-triggers an existing negotiation and establishes no new pair. Only
	// the peers list is touched; signaling never reads room state.
	if p.RequestRenegotiate {
		return
	}
	if att, ok := c.attachmentOf(conn.ID()); ok {
		if room, err := c.reg.Get(att.sessionID); err == nil {
			room.AddPeerLink(conn.ID(), p.Target)
		}
	}
}

// Relay fans an opaque gameplay message (data-message, snapshot, input) out
// to every other subscriber of the sender's room. Unattached senders are
// ignored.
func (c *Coordinator) Relay(conn Conn, msg protocol.Message) {
	att, ok := c.attachmentOf(conn.ID())
	if !ok {
		return
	}
	c.hub.BroadcastExcept(att.sessionID, conn.ID(), msg)
}

// ListOpen is the discovery query: joinable rooms for one game id.
func (c *Coordinator) ListOpen(gameID string) []domain.RoomSummary {
	return c.reg.ListOpen(gameID)
}

// Stats reports live counters for the operational endpoint.
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

func (c *Coordinator) Stats() Stats {
	return Stats{Rooms: c.reg.Len(), Connections: c.hub.ConnCount()}
}

func (c *Coordinator) broadcastUsers(sessionID string, players map[string]domain.Player) {
	msg, err := protocol.NewMessage(protocol.TypeUsersUpdated, protocol.UsersUpdatedPayload{
		SessionID: sessionID,
		Players:   players,
	})
	if err != nil {
		return
	}
	c.hub.Broadcast(sessionID, msg)
}

func (c *Coordinator) attach(connID, sessionID, playerID string) {
	c.mu.Lock()
	c.attached[connID] = attachment{sessionID: sessionID, playerID: playerID}
	c.mu.Unlock()
}

// detachIf clears an attachment only while it still points at the given
// room and player, so a superseded connection's later disconnect stays a
// no-op.
func (c *Coordinator) detachIf(connID, sessionID, playerID string) {
	c.mu.Lock()
	if att, ok := c.attached[connID]; ok && att.sessionID == sessionID && att.playerID == playerID {
		delete(c.attached, connID)
	}
	c.mu.Unlock()
}

func (c *Coordinator) attachmentOf(connID string) (attachment, bool) {
	c.mu.Lock()
	att, ok := c.attached[connID]
	c.mu.Unlock()
	return att, ok
}
