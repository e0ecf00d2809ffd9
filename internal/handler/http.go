package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gorilla "github.com/gorilla/websocket"

	"github.com/climbing-tracker/internal/config"
	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/export"
	"github.com/climbing-tracker/internal/service"
	"github.com/climbing-tracker/internal/websocket"
)

// Services groups the business services the API exposes
type Services struct {
	Users       *service.UserService
	Locations   *service.LocationService
	Routes      *service.RouteService
	Climbs      *service.ClimbService
	Friendships *service.FriendshipService
	Stats       *service.StatsService
	Leaderboard *service.LeaderboardService
	Exports     *export.Builder
	// Archiver is nil when S3 archiving is disabled
	Archiver *export.Archiver
}

// ReadinessCheck reports whether a dependency can serve requests
type ReadinessCheck func(ctx context.Context) error

// Handler provides HTTP handlers for the climbing API
type Handler struct {
	services  Services
	hub       *websocket.Hub
	upgrader  *gorilla.Upgrader
	cfg       *config.Config
	apiLimit  *limiterSet
	exportLim *limiterSet
	checks    map[string]ReadinessCheck
	logger    *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(services Services, hub *websocket.Hub, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		services:  services,
		hub:       hub,
		upgrader:  websocket.NewUpgrader(cfg.Server.AllowedOrigins),
		cfg:       cfg,
		apiLimit:  newLimiterSet(cfg.RateLimit.APIPerMinute),
		exportLim: newLimiterSet(cfg.RateLimit.ExportPerMinute),
		checks:    map[string]ReadinessCheck{},
		logger:    logger,
	}
}

// AddReadinessCheck registers a dependency for /ready
func (h *Handler) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(h.corsMiddleware)

	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// browsers cannot set headers on the upgrade request, so /ws also accepts ?user_id=
	r.Get("/ws", h.HandleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.identity)
		r.Use(h.rateLimit(h.apiLimit))

		r.Get("/grades", h.ListGrades)
		r.Get("/points", h.ComputePoints)

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", h.ListLocations)
			r.Post("/", h.CreateLocation)
			r.Get("/{locationID}", h.GetLocation)
			r.Patch("/{locationID}", h.UpdateLocation)
			r.Delete("/{locationID}", h.DeleteLocation)
		})

		r.Route("/routes", func(r chi.Router) {
			r.Get("/", h.ListRoutes)
			r.Post("/", h.CreateRoute)
			r.Get("/{routeID}", h.GetRoute)
			r.Patch("/{routeID}", h.UpdateRoute)
			r.Delete("/{routeID}", h.DeleteRoute)
		})

		r.Route("/climbs", func(r chi.Router) {
			r.Get("/", h.ListClimbs)
			r.Post("/", h.CreateClimb)
			r.Get("/{climbID}", h.GetClimb)
			r.Patch("/{climbID}", h.UpdateClimb)
			r.Delete("/{climbID}", h.DeleteClimb)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/overview", h.GetOverview)
			r.Get("/timeline", h.GetTimeline)
			r.Get("/distribution", h.GetDistribution)
			r.Get("/pyramid", h.GetPyramid)
			r.Get("/types", h.GetAscentTypes)
			r.Get("/progression", h.GetProgression)
		})

		r.Route("/leaderboard", func(r chi.Router) {
			r.Get("/users/{userID}", h.GetUserRanks)
			r.Get("/{window}", h.GetLeaderboard)
		})

		r.Route("/friends", func(r chi.Router) {
			r.Get("/", h.ListFriends)
			r.Get("/requests", h.ListFriendRequests)
			r.Post("/requests", h.SendFriendRequest)
			r.Post("/requests/{friendshipID}", h.RespondFriendRequest)
			r.Delete("/{friendshipID}", h.RemoveFriend)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.rateLimit(h.exportLim))
			r.Get("/export", h.Export)
			r.Post("/export/archive", h.ArchiveExport)
		})

		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeCreated writes a 201 JSON response
func (h *Handler) writeCreated(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// publicErrors maps sentinels to statuses. Their text is safe to show to callers.
var publicErrors = []struct {
	err    error
	status int
}{
	{domain.ErrUserNotFound, http.StatusNotFound},
	{domain.ErrLocationNotFound, http.StatusNotFound},
	{domain.ErrRouteNotFound, http.StatusNotFound},
	{domain.ErrClimbNotFound, http.StatusNotFound},
	{domain.ErrFriendshipNotFound, http.StatusNotFound},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrUnauthenticated, http.StatusUnauthorized},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrRateLimited, http.StatusTooManyRequests},
}

// badRequestErrors carry caller-supplied detail, so the full message is returned
var badRequestErrors = []error{
	domain.ErrInvalidRequest,
	domain.ErrInvalidGrade,
	domain.ErrUnknownAscentType,
}

// writeServiceError translates a service error into a status and a message that never
// leaks internal details
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	for _, e := range badRequestErrors {
		if errors.Is(err, e) {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	for _, pe := range publicErrors {
		if errors.Is(err, pe.err) {
			h.writeError(w, pe.status, pe.err)
			return
		}
	}
	h.logger.Error("failed to "+action,
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
	)
	h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
}

// decode reads a JSON body into v
func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, domain.ErrUnknownAscentType) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidRequest, name)
	}
	return n, nil
}

// queryDate parses an optional date query parameter
func queryDate(r *http.Request, name string) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// HealthCheck reports that the process is up
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck runs every registered readiness check
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	ready := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("readiness check failed", "check", name, "error", err)
			status[name] = "unavailable"
			ready = false
			continue
		}
		status[name] = "ok"
	}

	if !ready {
		h.writeJSON(w, http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Data:    status,
			Error:   "not ready",
		})
		return
	}
	h.writeSuccess(w, status)
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(UserIDHeader)
	if userID == "" {
		userID = r.URL.Query().Get("user_id")
	}
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated)
		return
	}
	websocket.ServeWs(h.hub, h.upgrader, userID, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}
