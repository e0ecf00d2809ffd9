package handler

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/climbing-tracker/internal/domain"
)

const (
	// UserIDHeader carries the authenticated caller, set by the gateway in front of the API
	UserIDHeader = "X-User-ID"
	// UsernameHeader optionally carries a display handle for first-seen users
	UsernameHeader = "X-Username"
)

type contextKey struct{}

// UserID returns the caller set by the identity middleware
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// identity rejects requests without a caller and records first-seen users
func (h *Handler) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated)
			return
		}
		if err := h.services.Users.Ensure(r.Context(), userID, r.Header.Get(UsernameHeader)); err != nil {
			h.writeServiceError(w, r, err, "record user")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, userID)))
	})
}

// limiterSet holds one token bucket per user
type limiterSet struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

// newLimiterSet allows perMinute requests per user; zero or less disables the limit
func newLimiterSet(perMinute int) *limiterSet {
	if perMinute <= 0 {
		return &limiterSet{limiters: map[string]*rate.Limiter{}, every: rate.Inf}
	}
	return &limiterSet{
		limiters: map[string]*rate.Limiter{},
		every:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(s.every, s.burst)
		s.limiters[key] = l
	}
	s.mu.Unlock()
	return l.Allow()
}

// rateLimit answers 429 once a user exhausts their bucket
func (h *Handler) rateLimit(limits *limiterSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limits.allow(UserID(r.Context())) {
				w.Header().Set("Retry-After", "60")
				h.writeError(w, http.StatusTooManyRequests, domain.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware adds CORS headers for the configured origins
func (h *Handler) corsMiddleware(next http.Handler) http.Handler {
	origins := h.cfg.Server.AllowedOrigins
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case slices.Contains(origins, "*"):
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(origins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Request-ID, X-User-ID, X-Username")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
