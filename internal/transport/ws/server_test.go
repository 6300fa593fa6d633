package ws_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retroplay/netplay-service/internal/coordinator"
	"github.com/retroplay/netplay-service/internal/protocol"
	"github.com/retroplay/netplay-service/internal/registry"
	"github.com/retroplay/netplay-service/internal/transport/ws"
)

func newTestServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	hub := coordinator.NewHub()
	coord := coordinator.New(reg, hub, 4)
	srv := ws.NewServer(coord, hub, time.Second, 16)

	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	t.Cleanup(ts.Close)
	return ts, reg
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func send(t *testing.T, c *websocket.Conn, msgType string, payload any) {
	t.Helper()
	msg, err := protocol.NewMessage(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, c.WriteJSON(msg))
}

// readUntil drains the connection until a message of the wanted type arrives.
func readUntil(t *testing.T, c *websocket.Conn, msgType string) protocol.Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	require.NoError(t, c.SetReadDeadline(deadline))
	for {
		var msg protocol.Message
		require.NoError(t, c.ReadJSON(&msg), "waiting for %q", msgType)
		if msg.Type == msgType {
			return msg
		}
	}
}

func decodeAck(t *testing.T, msg protocol.Message) protocol.AckPayload {
	t.Helper()
	var ack protocol.AckPayload
	require.NoError(t, msg.Decode(&ack))
	return ack
}

func TestSession_EndToEnd(t *testing.T) {
	ts, reg := newTestServer(t)

	host := dial(t, ts)
	guest := dial(t, ts)

	// host opens the room and learns its connection id from the ack
	send(t, host, protocol.TypeOpenRoom, protocol.OpenRoomPayload{
		SessionID: "S1", PlayerID: "host", PlayerName: "Host", GameID: "zelda",
	})
	hostAck := decodeAck(t, readUntil(t, host, protocol.TypeAck))
	require.Equal(t, protocol.TypeOpenRoom, hostAck.Op)
	require.NotEmpty(t, hostAck.ConnID)
	require.Len(t, hostAck.Players, 1)

	// guest joins; both sides converge on the same two-player snapshot
	send(t, guest, protocol.TypeJoinRoom, protocol.JoinRoomPayload{
		SessionID: "S1", PlayerID: "guest", PlayerName: "Guest",
	})
	guestAck := decodeAck(t, readUntil(t, guest, protocol.TypeAck))
	require.Len(t, guestAck.Players, 2)

	var users protocol.UsersUpdatedPayload
	for {
		msg := readUntil(t, host, protocol.TypeUsersUpdated)
		require.NoError(t, msg.Decode(&users))
		if len(users.Players) == 2 {
			break
		}
	}
	assert.Contains(t, users.Players, "guest")

	// guest signals the host point-to-point
	send(t, guest, protocol.TypeSignal, protocol.SignalPayload{
		Target: hostAck.ConnID,
		Offer:  json.RawMessage(`{"type":"offer","sdp":"v=0"}`),
	})
	var sig protocol.SignalPayload
	require.NoError(t, readUntil(t, host, protocol.TypeSignal).Decode(&sig))
	assert.Equal(t, guestAck.ConnID, sig.Sender)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(sig.Offer))

	// gameplay relay reaches the host untouched
	send(t, guest, protocol.TypeData, map[string]any{"frame": 7})
	data := readUntil(t, host, protocol.TypeData)
	assert.JSONEq(t, `{"frame":7}`, string(data.Payload))

	// a join against an unknown session is answered with a typed error and
	// leaves the guest attached to its room
	send(t, guest, protocol.TypeJoinRoom, protocol.JoinRoomPayload{SessionID: "ghost", PlayerID: "guest"})
	var werr protocol.ErrorPayload
	require.NoError(t, readUntil(t, guest, protocol.TypeError).Decode(&werr))
	assert.Equal(t, protocol.CodeRoomNotFound, werr.Code)

	// guest disconnecting shrinks the room for the host
	require.NoError(t, guest.Close())
	for {
		msg := readUntil(t, host, protocol.TypeUsersUpdated)
		users = protocol.UsersUpdatedPayload{}
		require.NoError(t, msg.Decode(&users))
		if len(users.Players) == 1 {
			break
		}
	}
	assert.Contains(t, users.Players, "host")

	// the host leaving empties and deletes the room without the reaper
	send(t, host, protocol.TypeLeaveRoom, nil)
	readUntil(t, host, protocol.TypeAck)
	assert.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestSession_OpenRoomErrors(t *testing.T) {
	ts, _ := newTestServer(t)

	c1 := dial(t, ts)
	send(t, c1, protocol.TypeOpenRoom, protocol.OpenRoomPayload{SessionID: "S1", PlayerID: "p1"})
	readUntil(t, c1, protocol.TypeAck)

	c2 := dial(t, ts)
	send(t, c2, protocol.TypeOpenRoom, protocol.OpenRoomPayload{SessionID: "S1", PlayerID: "p2"})
	var werr protocol.ErrorPayload
	require.NoError(t, readUntil(t, c2, protocol.TypeError).Decode(&werr))
	assert.Equal(t, protocol.CodeRoomExists, werr.Code)

	send(t, c2, protocol.TypeOpenRoom, protocol.OpenRoomPayload{SessionID: "S2", PlayerID: ""})
	require.NoError(t, readUntil(t, c2, protocol.TypeError).Decode(&werr))
	assert.Equal(t, protocol.CodeInvalidRequest, werr.Code)
}
