package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/retroplay/netplay-service/internal/coordinator"
	"github.com/retroplay/netplay-service/internal/domain"
	"github.com/retroplay/netplay-service/internal/protocol"
)

const maxMessageSize = 1 << 20

type Server struct {
	upgrader websocket.Upgrader
	coord    *coordinator.Coordinator
	hub      *coordinator.Hub

	pingEvery  time.Duration
	sendBuffer int
}

func NewServer(coord *coordinator.Coordinator, hub *coordinator.Hub, pingEvery time.Duration, sendBuffer int) *Server {
	if pingEvery <= 0 {
		pingEvery = 15 * time.Second
	}
	return &Server{
		coord: coord,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery:  pingEvery,
		sendBuffer: sendBuffer,
	}
}

// WS endpoint: GET /ws
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWSConn(uuid.New().String(), sock, s.sendBuffer)
	s.hub.Register(c)
	slog.Debug("connection opened", "conn", c.ID())

	go c.writeLoop(s.pingEvery)
	s.readLoop(c)

	// The read loop exiting is the disconnect signal; it triggers the same
	// cleanup as an explicit leave.
	s.coord.Leave(c)
	s.hub.Unregister(c.ID())
	_ = c.Close()
	slog.Debug("connection closed", "conn", c.ID())
}

func (s *Server) readLoop(c *wsConn) {
	c.sock.SetReadLimit(maxMessageSize)
	_ = c.sock.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	})

	for {
		_, data, err := c.sock.ReadMessage()
		if err != nil {
			return
		}
		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.dispatch(c, msg)
	}
}

func (s *Server) dispatch(c *wsConn, msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeOpenRoom:
		var p protocol.OpenRoomPayload
		if err := msg.Decode(&p); err != nil {
			s.sendError(c, msg.Type, protocol.CodeInvalidRequest)
			return
		}
		players, err := s.coord.OpenRoom(c, p)
		if err != nil {
			s.sendError(c, msg.Type, protocol.CodeForError(err))
			return
		}
		s.sendAck(c, msg.Type, p.SessionID, players)

	case protocol.TypeJoinRoom:
		var p protocol.JoinRoomPayload
		if err := msg.Decode(&p); err != nil {
			s.sendError(c, msg.Type, protocol.CodeInvalidRequest)
			return
		}
		players, err := s.coord.JoinRoom(c, p)
		if err != nil {
			s.sendError(c, msg.Type, protocol.CodeForError(err))
			return
		}
		s.sendAck(c, msg.Type, p.SessionID, players)

	case protocol.TypeLeaveRoom:
		s.coord.Leave(c)
		s.sendAck(c, msg.Type, "", nil)

	case protocol.TypeSignal:
		var p protocol.SignalPayload
		if err := msg.Decode(&p); err != nil {
			return
		}
		s.coord.Signal(c, p)

	case protocol.TypeData, protocol.TypeSnapshot, protocol.TypeInput:
		s.coord.Relay(c, msg)

	default:
		// unknown types are ignored
	}
}

func (s *Server) sendAck(c *wsConn, op, sessionID string, players map[string]domain.Player) {
	msg, err := protocol.NewMessage(protocol.TypeAck, protocol.AckPayload{
		Op:        op,
		SessionID: sessionID,
		ConnID:    c.ID(),
		Players:   players,
	})
	if err != nil {
		return
	}
	_ = c.Send(msg)
}

func (s *Server) sendError(c *wsConn, op, code string) {
	msg, err := protocol.NewMessage(protocol.TypeError, protocol.ErrorPayload{Op: op, Code: code})
	if err != nil {
		return
	}
	_ = c.Send(msg)
}
