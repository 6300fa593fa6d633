package coordinator

import (
	"sync"

	"github.com/retroplay/netplay-service/internal/protocol"
)

// Conn is one live client connection. Send must never block the caller:
// implementations queue the message and drop it if the receiver is slow or
// gone. All delivery is best-effort, at most once.
type Conn interface {
	ID() string
	Send(msg protocol.Message) error
	Close() error
}

// Hub tracks broadcast groups (session id -> subscribed connections) and a
// flat connection index for point-to-point signal relay.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[string]Conn // sessionID -> connID -> conn
	conns  map[string]Conn
}

func NewHub() *Hub {
	return &Hub{
		groups: make(map[string]map[string]Conn),
		conns:  make(map[string]Conn),
	}
}

// Register adds the connection to the flat index; it becomes addressable as
// a signal target before it joins any room.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	h.conns[c.ID()] = c
	h.mu.Unlock()
}

func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	delete(h.conns, connID)
	h.mu.Unlock()
}

func (h *Hub) Subscribe(sessionID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	g, ok := h.groups[sessionID]
	if !ok {
		g = make(map[string]Conn)
		h.groups[sessionID] = g
	}
	g[c.ID()] = c
}

func (h *Hub) Unsubscribe(sessionID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if g, ok := h.groups[sessionID]; ok {
		delete(g, connID)
		if len(g) == 0 {
			delete(h.groups, sessionID)
		}
	}
}

// SendTo delivers directly to one connection; a missing target is a silent
// drop, not an error.
func (h *Hub) SendTo(connID string, msg protocol.Message) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()

	if ok {
		_ = c.Send(msg) // best-effort
	}
}

func (h *Hub) Broadcast(sessionID string, msg protocol.Message) {
	h.broadcast(sessionID, "", msg)
}

// BroadcastExcept fans out to every group subscriber but the sender.
func (h *Hub) BroadcastExcept(sessionID, exceptConnID string, msg protocol.Message) {
	h.broadcast(sessionID, exceptConnID, msg)
}

func (h *Hub) broadcast(sessionID, exceptConnID string, msg protocol.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, c := range h.groups[sessionID] {
		if id == exceptConnID {
			continue
		}
		_ = c.Send(msg) // best-effort
	}
}

// ConnCount reports the number of registered connections.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
