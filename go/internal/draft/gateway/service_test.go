package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/corpsdraft/go/internal/draft/registry"
	"github.com/mcdev12/corpsdraft/go/internal/draft/room"
	"github.com/mcdev12/corpsdraft/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct{}

func (stubStore) FindPlayer(_ context.Context, id string) (*models.Player, error) {
	switch id {
	case "ana", "ben":
		return &models.Player{ID: id, DisplayName: strings.ToUpper(id)}, nil
	}
	return nil, room.ErrPlayerNotFound
}

func (stubStore) FindRoom(_ context.Context, id string) (*models.Tour, error) {
	if id != "tour-1" {
		return nil, room.ErrRoomNotFound
	}
	return &models.Tour{ID: id, Name: "Summer Tour", OwnerID: "ana"}, nil
}

func (stubStore) MarkComplete(context.Context, string) error { return nil }

func (stubStore) RecordLeftovers(context.Context, models.RemainingPicks) error { return nil }

func (stubStore) AllItems(context.Context) ([]models.Caption, error) {
	return []models.Caption{{ID: "c1", Corps: "Blue Devils", Caption: "Brass"}}, nil
}

type wireFrame struct {
	Type   string          `json:"type"`
	RoomID string          `json:"roomId"`
	Data   json.RawMessage `json:"data"`
}

type testServer struct {
	t   *testing.T
	url string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := stubStore{}
	reg := registry.New(context.Background(), room.DefaultConfig(), room.Deps{
		Players:   store,
		Rooms:     store,
		Leftovers: store,
		Catalog:   store,
		Clock:     clockwork.NewFakeClock(),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = reg.Shutdown(ctx)
	})

	router := chi.NewRouter()
	NewService(DefaultConfig(), reg).RegisterRoutes(router)
	srv := httptest.NewServer(CORSMiddleware(DefaultCORSConfig(), router))
	t.Cleanup(srv.Close)

	return &testServer{t: t, url: srv.URL}
}

func (s *testServer) dial(roomID string) *websocket.Conn {
	s.t.Helper()
	wsURL := "ws" + strings.TrimPrefix(s.url, "http") + "/ws/rooms/" + roomID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(s.t, err)
	s.t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func read(t *testing.T, conn *websocket.Conn) wireFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame wireFrame
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func TestIdentifyOverWebSocket(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial("tour-1")

	send(t, conn, `{"type":"identify","data":{"playerId":"ana"}}`)

	first := read(t, conn)
	assert.Equal(t, "draft-state", first.Type)
	assert.Equal(t, "tour-1", first.RoomID)

	second := read(t, conn)
	require.Equal(t, "roster-updated", second.Type)
	var roster room.RosterUpdated
	require.NoError(t, json.Unmarshal(second.Data, &roster))
	require.Len(t, roster.Players, 1)
	assert.Equal(t, "ana", roster.Players[0].ID)
}

func TestUnknownPlayerIsRejected(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial("tour-1")

	send(t, conn, `{"type":"identify","data":{"playerId":"ghost"}}`)

	frame := read(t, conn)
	assert.Equal(t, "player-not-found", frame.Type)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "expected normal close, got %v", err)
}

func TestOwnerStartsCountdown(t *testing.T) {
	srv := newTestServer(t)
	owner := srv.dial("tour-1")
	send(t, owner, `{"type":"identify","data":{"playerId":"ana"}}`)
	read(t, owner)
	read(t, owner)

	send(t, owner, `{"type":"start-draft"}`)

	frame := read(t, owner)
	require.Equal(t, "countdown-begin", frame.Type)
	var begin room.CountdownBegin
	require.NoError(t, json.Unmarshal(frame.Data, &begin))
	assert.Equal(t, float64(5), begin.Seconds)
}

func TestRoomHTTPAPI(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.url+"/api/rooms/tour-1", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	conn := srv.dial("tour-1")
	send(t, conn, `{"type":"identify","data":{"playerId":"ben"}}`)
	read(t, conn)
	read(t, conn)

	resp, err = http.Get(srv.url + "/api/rooms/tour-1/state")
	require.NoError(t, err)
	var snap room.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	resp.Body.Close()
	assert.Equal(t, "lobby", snap.State)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "ben", snap.Players[0].ID)

	resp, err = http.Get(srv.url + "/api/rooms")
	require.NoError(t, err)
	var rooms []RoomSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	resp.Body.Close()
	require.Len(t, rooms, 1)
	assert.Equal(t, RoomSummary{RoomID: "tour-1", State: "lobby", Players: 1, Connections: 1}, rooms[0])

	req, err := http.NewRequest(http.MethodDelete, srv.url+"/api/rooms/tour-1", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, "draft-cancelled", read(t, conn).Type)

	resp, err = http.Get(srv.url + "/api/rooms/unknown/state")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
