package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/climbing-tracker/internal/config"
	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/ranking"
	"github.com/climbing-tracker/internal/store"
)

// LeaderboardPage is one page of a leaderboard window
type LeaderboardPage struct {
	Window  ranking.Window  `json:"window"`
	Entries []ranking.Entry `json:"entries"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// LeaderboardService ranks every climber. Windows are computed from the record store and
// materialised in the cache when one is configured.
type LeaderboardService struct {
	store  store.Store
	cache  LeaderboardCache
	hub    Broadcaster
	config *config.LeaderboardConfig
	now    func() time.Time
	mu     sync.Mutex
	logger *slog.Logger
}

// NewLeaderboardService creates a new leaderboard service. cache may be nil.
func NewLeaderboardService(
	st store.Store,
	cache LeaderboardCache,
	cfg *config.LeaderboardConfig,
	logger *slog.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		store:  st,
		cache:  cache,
		config: cfg,
		now:    time.Now,
		logger: logger,
	}
}

// SetHub sets the broadcaster used after each refresh
func (s *LeaderboardService) SetHub(hub Broadcaster) {
	s.hub = hub
}

// SetClock overrides the evaluation time
func (s *LeaderboardService) SetClock(now func() time.Time) {
	s.now = now
}

// participants groups every climb under its user
func (s *LeaderboardService) participants(ctx context.Context) ([]ranking.Participant, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	climbs, err := s.store.ListAllClimbs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing climbs: %w", err)
	}

	byUser := make(map[string][]domain.Climb)
	for _, c := range climbs {
		byUser[c.UserID] = append(byUser[c.UserID], c)
	}

	out := make([]ranking.Participant, 0, len(users))
	for _, u := range users {
		out = append(out, ranking.Participant{UserID: u.ID, Username: u.Username, Climbs: byUser[u.ID]})
		delete(byUser, u.ID)
	}
	// climbs whose user row is missing still count
	for id, cs := range byUser {
		out = append(out, ranking.Participant{UserID: id, Username: id, Climbs: cs})
	}
	return out, nil
}

// compute ranks one window from the store and materialises it
func (s *LeaderboardService) compute(ctx context.Context, w ranking.Window) ([]ranking.Entry, error) {
	participants, err := s.participants(ctx)
	if err != nil {
		return nil, err
	}
	entries := ranking.RankWindow(participants, w, s.now())
	if s.cache != nil {
		if err := s.cache.StoreWindow(ctx, w, entries); err != nil {
			s.logger.Warn("failed to cache leaderboard window", "window", w, "error", err)
		}
	}
	return entries, nil
}

func (s *LeaderboardService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.config.DefaultLimit
	}
	if limit > s.config.MaxLimit {
		return s.config.MaxLimit
	}
	return limit
}

// GetLeaderboard returns one page of a window
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, w ranking.Window, limit, offset int) (*LeaderboardPage, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "LeaderboardService/GetLeaderboard")
	defer span.End()

	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", domain.ErrInvalidRequest)
	}
	limit = s.clampLimit(limit)
	page := &LeaderboardPage{Window: w, Limit: limit, Offset: offset}

	if s.cache != nil {
		entries, total, found, err := s.cache.GetRange(ctx, w, offset, limit)
		if err != nil {
			s.logger.Warn("leaderboard cache read failed", "window", w, "error", err)
		} else if found {
			page.Entries, page.Total = entries, total
			return page, nil
		}
	}

	entries, err := s.compute(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("computing leaderboard: %w", err)
	}
	page.Total = len(entries)
	page.Entries = paginate(entries, offset, limit)
	return page, nil
}

func paginate(entries []ranking.Entry, offset, limit int) []ranking.Entry {
	if offset >= len(entries) {
		return []ranking.Entry{}
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end]
}

// GetUserRanks returns userID's rank in each window
func (s *LeaderboardService) GetUserRanks(ctx context.Context, userID string) (*ranking.Ranks, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "LeaderboardService/GetUserRanks")
	defer span.End()

	var ranks ranking.Ranks
	for _, w := range ranking.Windows {
		if s.cache != nil {
			rank, found, err := s.cache.GetUserRank(ctx, w, userID)
			if err != nil {
				s.logger.Warn("leaderboard cache read failed", "window", w, "error", err)
			} else if found {
				ranks.Set(w, rank)
				continue
			}
		}
		entries, err := s.compute(ctx, w)
		if err != nil {
			return nil, fmt.Errorf("computing leaderboard: %w", err)
		}
		ranks.Set(w, ranking.FindRank(entries, userID))
	}
	return &ranks, nil
}

// Refresh recomputes every window, stores it and broadcasts the top entries
func (s *LeaderboardService) Refresh(ctx context.Context) error {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "LeaderboardService/Refresh")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	participants, err := s.participants(ctx)
	if err != nil {
		return fmt.Errorf("refreshing leaderboards: %w", err)
	}
	now := s.now()
	for _, w := range ranking.Windows {
		entries := ranking.RankWindow(participants, w, now)
		if s.cache != nil {
			if err := s.cache.StoreWindow(ctx, w, entries); err != nil {
				return fmt.Errorf("storing %s leaderboard: %w", w, err)
			}
		}
		if s.hub != nil {
			s.hub.BroadcastLeaderboard(w, paginate(entries, 0, s.config.BroadcastTop))
		}
	}
	return nil
}

// HandleClimbEvents refreshes once per batch of climb events
func (s *LeaderboardService) HandleClimbEvents(ctx context.Context, events []domain.ClimbEvent) error {
	if len(events) == 0 {
		return nil
	}
	s.logger.Debug("handling climb events", "count", len(events))
	return s.Refresh(ctx)
}
