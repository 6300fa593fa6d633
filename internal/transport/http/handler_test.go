package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retroplay/netplay-service/internal/coordinator"
	"github.com/retroplay/netplay-service/internal/protocol"
	"github.com/retroplay/netplay-service/internal/registry"
	httpx "github.com/retroplay/netplay-service/internal/transport/http"
	"github.com/retroplay/netplay-service/internal/transport/ws"
)

type nopConn struct {
	id string
}

func (n *nopConn) ID() string                    { return n.id }
func (n *nopConn) Send(_ protocol.Message) error { return nil }
func (n *nopConn) Close() error                  { return nil }

func newRouter(t *testing.T) (http.Handler, *coordinator.Coordinator, *coordinator.Hub) {
	t.Helper()
	reg := registry.New()
	hub := coordinator.NewHub()
	coord := coordinator.New(reg, hub, 4)
	wsServer := ws.NewServer(coord, hub, time.Second, 8)
	return httpx.NewRouter(httpx.NewHandler(coord), wsServer), coord, hub
}

func openRoom(t *testing.T, coord *coordinator.Coordinator, hub *coordinator.Hub, p protocol.OpenRoomPayload) {
	t.Helper()
	c := &nopConn{id: "conn-" + p.SessionID + "-" + p.PlayerID}
	hub.Register(c)
	_, err := coord.OpenRoom(c, p)
	require.NoError(t, err)
}

func joinRoom(t *testing.T, coord *coordinator.Coordinator, hub *coordinator.Hub, p protocol.JoinRoomPayload) {
	t.Helper()
	c := &nopConn{id: "conn-" + p.SessionID + "-" + p.PlayerID}
	hub.Register(c)
	_, err := coord.JoinRoom(c, p)
	require.NoError(t, err)
}

func TestListRooms(t *testing.T) {
	router, coord, hub := newRouter(t)

	openRoom(t, coord, hub, protocol.OpenRoomPayload{
		SessionID: "open", PlayerID: "alice", PlayerName: "Alice", GameID: "zelda", RoomName: "casual",
	})
	openRoom(t, coord, hub, protocol.OpenRoomPayload{
		SessionID: "locked", PlayerID: "bob", GameID: "zelda", Password: "hunter2",
	})
	openRoom(t, coord, hub, protocol.OpenRoomPayload{
		SessionID: "full", PlayerID: "carol", GameID: "zelda", MaxPlayers: 2,
	})
	joinRoom(t, coord, hub, protocol.JoinRoomPayload{SessionID: "full", PlayerID: "dave"})
	openRoom(t, coord, hub, protocol.OpenRoomPayload{
		SessionID: "other", PlayerID: "erin", GameID: "metroid",
	})

	req := httptest.NewRequest(http.MethodGet, "/list?game_id=zelda", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]struct {
		RoomName    string `json:"room_name"`
		Current     int    `json:"current"`
		Max         int    `json:"max"`
		OwnerName   string `json:"player_name"`
		HasPassword bool   `json:"hasPassword"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// full rooms and other games are excluded
	require.Len(t, resp, 2)
	require.Contains(t, resp, "open")
	require.Contains(t, resp, "locked")

	assert.Equal(t, "casual", resp["open"].RoomName)
	assert.Equal(t, 1, resp["open"].Current)
	assert.Equal(t, 4, resp["open"].Max)
	assert.Equal(t, "Alice", resp["open"].OwnerName)
	assert.False(t, resp["open"].HasPassword)

	assert.True(t, resp["locked"].HasPassword)
	assert.NotContains(t, w.Body.String(), "hunter2", "password value must never leak")
}

func TestListRooms_MissingGameID(t *testing.T) {
	router, _, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/list", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsAndHealth(t *testing.T) {
	router, coord, hub := newRouter(t)
	openRoom(t, coord, hub, protocol.OpenRoomPayload{SessionID: "S1", PlayerID: "p1", GameID: "zelda"})

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var stats coordinator.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Rooms)
	assert.Equal(t, 1, stats.Connections)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
