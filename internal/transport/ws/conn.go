package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/retroplay/netplay-service/internal/protocol"
)

// wsConn wraps a gorilla connection behind a buffered outbound queue drained
// by a single writer goroutine. Send never blocks: when the queue is full
// the message is dropped, so a slow recipient cannot stall a sender or an
// unrelated room.
type wsConn struct {
	id   string
	sock *websocket.Conn

	out    chan protocol.Message
	closed chan struct{}
	once   sync.Once
}

func newWSConn(id string, sock *websocket.Conn, sendBuffer int) *wsConn {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &wsConn{
		id:     id,
		sock:   sock,
		out:    make(chan protocol.Message, sendBuffer),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(msg protocol.Message) error {
	select {
	case <-c.closed:
		return nil
	default:
	}

	select {
	case c.out <- msg:
	default:
		// queue full: at-most-once, best-effort
	}
	return nil
}

func (c *wsConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return c.sock.Close()
}

// writeLoop owns all writes on the socket: queued messages plus keepalive
// pings. It exits when the connection closes.
func (c *wsConn) writeLoop(pingEvery time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.out:
			_ = c.sock.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.sock.WriteJSON(msg); err != nil {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.sock.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-c.closed:
			return
		}
	}
}
