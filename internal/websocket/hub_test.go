package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climbing-tracker/internal/ranking"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)

	upgrader := NewUpgrader(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, upgrader, "alice", logger, w, r)
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *gorilla.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gorilla.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestSubscribeAndBroadcast(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypeSubscribe, Window: "weekly"}))
	ack := readMessage(t, conn)
	assert.Equal(t, MessageTypeSubscribed, ack["type"])
	require.Eventually(t, func() bool { return hub.GetSubscriberCount(ranking.WindowWeekly) == 1 }, time.Second, 10*time.Millisecond)

	hub.BroadcastLeaderboard(ranking.WindowMonthly, []ranking.Entry{{Rank: 1, UserID: "bob"}})
	hub.BroadcastLeaderboard(ranking.WindowWeekly, []ranking.Entry{{Rank: 1, UserID: "alice", TotalPoints: 195}})

	update := readMessage(t, conn)
	assert.Equal(t, MessageTypeLeaderboardUpdate, update["type"])
	assert.Equal(t, "weekly", update["window"])
	entries := update["data"].(map[string]any)["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].(map[string]any)["user_id"])
}

func TestLateSubscriberGetsLatestSnapshot(t *testing.T) {
	hub, srv := newTestHub(t)
	hub.BroadcastLeaderboard(ranking.WindowAll, []ranking.Entry{{Rank: 1, UserID: "carol"}})
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, ok := hub.latest[ranking.WindowAll]
		return ok
	}, time.Second, 10*time.Millisecond)

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.GetTotalConnections() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypeSubscribe, Window: "all"}))

	assert.Equal(t, MessageTypeSubscribed, readMessage(t, conn)["type"])
	snapshot := readMessage(t, conn)
	assert.Equal(t, MessageTypeLeaderboardUpdate, snapshot["type"])
	assert.Equal(t, "all", snapshot["window"])
}

func TestInvalidWindowAndPing(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypeSubscribe, Window: "daily"}))
	assert.Equal(t, MessageTypeError, readMessage(t, conn)["type"])

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypePing}))
	assert.Equal(t, MessageTypePong, readMessage(t, conn)["type"])
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypeSubscribe, Window: "all"}))
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.GetSubscriberCount(ranking.WindowAll) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return hub.GetTotalConnections() == 0 && hub.GetSubscriberCount(ranking.WindowAll) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUpgraderOrigins(t *testing.T) {
	up := NewUpgrader([]string{"https://climb.example"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://climb.example")
	assert.True(t, up.CheckOrigin(req))
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, up.CheckOrigin(req))
	assert.True(t, NewUpgrader([]string{"*"}).CheckOrigin(req))
}
