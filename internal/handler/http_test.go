package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climbing-tracker/internal/config"
	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/export"
	"github.com/climbing-tracker/internal/memstore"
	"github.com/climbing-tracker/internal/ranking"
	"github.com/climbing-tracker/internal/scoring"
	"github.com/climbing-tracker/internal/service"
	"github.com/climbing-tracker/internal/websocket"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestHandler(t *testing.T, mutate func(*config.Config)) *Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}

	st := memstore.New()
	leaderboard := service.NewLeaderboardService(st, nil, &cfg.Leaderboard, logger)
	publisher := service.NewLocalPublisher(leaderboard, logger)

	hub := websocket.NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)
	leaderboard.SetHub(hub)

	services := Services{
		Users:       service.NewUserService(st, logger),
		Locations:   service.NewLocationService(st, publisher, logger),
		Routes:      service.NewRouteService(st, publisher, logger),
		Climbs:      service.NewClimbService(st, publisher, logger),
		Friendships: service.NewFriendshipService(st, logger),
		Stats:       service.NewStatsService(st, logger),
		Leaderboard: leaderboard,
		Exports:     export.NewBuilder(st, logger),
	}
	return NewHandler(services, hub, cfg, logger)
}

func call(t *testing.T, h http.Handler, method, path, user string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set(UserIDHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func create[T any](t *testing.T, h http.Handler, path, user string, body interface{}) T {
	t.Helper()
	rec, env := call(t, h, http.MethodPost, path, user, body)
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestHealthAndReady(t *testing.T) {
	h := newTestHandler(t, nil)
	router := h.Router()

	rec, env := call(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, _ = call(t, router, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	h.AddReadinessCheck("postgres", func(context.Context) error { return errors.New("connection refused") })
	rec, env = call(t, router, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"postgres":"unavailable"}`, string(env.Data))
}

func TestAPIRequiresIdentity(t *testing.T) {
	router := newTestHandler(t, nil).Router()

	rec, env := call(t, router, http.MethodGet, "/api/v1/locations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, domain.ErrUnauthenticated.Error(), env.Error)

	rec, _ = call(t, router, http.MethodGet, "/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClimbFlow(t *testing.T) {
	router := newTestHandler(t, nil).Router()

	loc := create[domain.Location](t, router, "/api/v1/locations", "alice", domain.CreateLocationRequest{
		Name: "Boulderhalle", Type: domain.LocationTypeGym,
	})
	route := create[domain.Route](t, router, "/api/v1/routes", "alice", map[string]interface{}{
		"location_id": loc.ID, "name": "Crimpfest", "difficulty_french": "7a",
	})
	assert.Equal(t, "VIII+", route.DifficultyUIAA)

	climb := create[domain.Climb](t, router, "/api/v1/climbs", "alice", map[string]interface{}{
		"route_id": route.ID, "date": "2024-05-14", "climb_type": "FLASH",
	})
	assert.Equal(t, 693, climb.Points)

	rec, env := call(t, router, http.MethodGet, "/api/v1/climbs?type=FLASH,RP", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var climbs []domain.Climb
	require.NoError(t, json.Unmarshal(env.Data, &climbs))
	assert.Len(t, climbs, 1)

	rec, env = call(t, router, http.MethodGet, "/api/v1/leaderboard/all", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page service.LeaderboardPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "alice", page.Entries[0].UserID)
	assert.Equal(t, 693, page.Entries[0].TotalPoints)

	rec, env = call(t, router, http.MethodGet, "/api/v1/leaderboard/users/alice", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ranks ranking.Ranks
	require.NoError(t, json.Unmarshal(env.Data, &ranks))
	assert.Equal(t, 1, ranks.Global)

	rec, _ = call(t, router, http.MethodDelete, "/api/v1/climbs/"+climb.ID, "alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	router := newTestHandler(t, nil).Router()
	loc := create[domain.Location](t, router, "/api/v1/locations", "alice", domain.CreateLocationRequest{
		Name: "Secret crag", Type: domain.LocationTypeCrag,
	})

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   interface{}
		status int
	}{
		{"private location", http.MethodGet, "/api/v1/locations/" + loc.ID, "bob", nil, http.StatusForbidden},
		{"missing location", http.MethodGet, "/api/v1/locations/nope", "alice", nil, http.StatusNotFound},
		{"route on foreign location", http.MethodPost, "/api/v1/routes", "bob",
			map[string]string{"location_id": loc.ID, "name": "x", "difficulty_french": "6a"}, http.StatusForbidden},
		{"unknown grade", http.MethodPost, "/api/v1/routes", "alice",
			map[string]string{"location_id": loc.ID, "name": "x", "difficulty_french": "6d"}, http.StatusBadRequest},
		{"unknown ascent type", http.MethodPost, "/api/v1/climbs", "alice",
			map[string]string{"route_id": "r", "date": "2024-05-01", "climb_type": "SOLO"}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/v1/locations", "alice", "not an object", http.StatusBadRequest},
		{"unknown window", http.MethodGet, "/api/v1/leaderboard/daily", "alice", nil, http.StatusBadRequest},
		{"negative offset", http.MethodGet, "/api/v1/leaderboard/all?offset=-1", "alice", nil, http.StatusBadRequest},
		{"stranger stats", http.MethodGet, "/api/v1/stats/overview?user_id=alice", "bob", nil, http.StatusForbidden},
		{"bad period", http.MethodGet, "/api/v1/stats/timeline?period=decade", "alice", nil, http.StatusBadRequest},
		{"self friend request", http.MethodPost, "/api/v1/friends/requests", "alice",
			domain.SendFriendRequest{AddresseeID: "alice"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := call(t, router, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.status, rec.Code, env.Error)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestFriendEndpoints(t *testing.T) {
	router := newTestHandler(t, nil).Router()
	// users are recorded on their first request
	rec, _ := call(t, router, http.MethodGet, "/api/v1/friends", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	f := create[domain.Friendship](t, router, "/api/v1/friends/requests", "alice", domain.SendFriendRequest{AddresseeID: "bob"})
	assert.Equal(t, domain.FriendshipPending, f.Status)

	rec, env := call(t, router, http.MethodPost, "/api/v1/friends/requests/"+f.ID, "bob",
		domain.RespondFriendRequest{Action: domain.FriendRequestAccept})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	rec, env = call(t, router, http.MethodGet, "/api/v1/friends", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var friends []domain.Friend
	require.NoError(t, json.Unmarshal(env.Data, &friends))
	require.Len(t, friends, 1)
	assert.Equal(t, "bob", friends[0].ID)

	rec, _ = call(t, router, http.MethodGet, "/api/v1/stats/overview?user_id=alice", "bob", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = call(t, router, http.MethodDelete, "/api/v1/friends/"+f.ID, "bob", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReferenceEndpoints(t *testing.T) {
	router := newTestHandler(t, nil).Router()

	rec, env := call(t, router, http.MethodGet, "/api/v1/grades", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var table []scoring.GradeInfo
	require.NoError(t, json.Unmarshal(env.Data, &table))
	assert.Len(t, table, len(scoring.Table()))

	rec, env = call(t, router, http.MethodGet, "/api/v1/points?grade=6a&type=os", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var quote PointsQuote
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	assert.Equal(t, 130, quote.BasePoints)
	assert.Equal(t, 2.0, quote.Multiplier)
	assert.Equal(t, 260, quote.Points)

	rec, _ = call(t, router, http.MethodGet, "/api/v1/points?grade=9z&type=OS", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport(t *testing.T) {
	router := newTestHandler(t, func(c *config.Config) {
		c.RateLimit.ExportPerMinute = 1
	}).Router()
	create[domain.Location](t, router, "/api/v1/locations", "alice", domain.CreateLocationRequest{
		Name: "Home wall", Type: domain.LocationTypeGym,
	})

	rec, _ := call(t, router, http.MethodGet, "/api/v1/export", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	var doc export.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, export.FormatVersion, doc.Version)
	assert.Equal(t, "alice", doc.User.ID)
	assert.Len(t, doc.Locations, 1)

	rec, env := call(t, router, http.MethodGet, "/api/v1/export", "alice", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, domain.ErrRateLimited.Error(), env.Error)

	// buckets are per user
	rec, _ = call(t, router, http.MethodPost, "/api/v1/export/archive", "bob", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORS(t *testing.T) {
	router := newTestHandler(t, func(c *config.Config) {
		c.Server.AllowedOrigins = []string{"https://climb.example"}
	}).Router()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/locations", nil)
	req.Header.Set("Origin", "https://climb.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://climb.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/locations", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
