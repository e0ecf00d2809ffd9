package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/climbing-tracker/internal/access"
	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/stats"
	"github.com/climbing-tracker/internal/store"
)

// Overview is the stats summary plus what the climber has contributed
type Overview struct {
	stats.Summary
	RoutesCreated    int `json:"routes_created"`
	LocationsCreated int `json:"locations_created"`
}

// StatsService serves a climber's aggregates to themselves and to their friends
type StatsService struct {
	store  store.Store
	now    func() time.Time
	logger *slog.Logger
}

// NewStatsService creates a new stats service
func NewStatsService(st store.Store, logger *slog.Logger) *StatsService {
	return &StatsService{store: st, now: time.Now, logger: logger}
}

// SetClock overrides the evaluation time
func (s *StatsService) SetClock(now func() time.Time) {
	s.now = now
}

// history loads targetID's climbs after checking that viewerID may see them. An empty
// targetID means the viewer.
func (s *StatsService) history(ctx context.Context, viewerID, targetID string) ([]domain.Climb, error) {
	if targetID == "" {
		targetID = viewerID
	}
	if targetID != viewerID {
		friends, err := access.LoadFriendSet(ctx, s.store, viewerID)
		if err != nil {
			return nil, fmt.Errorf("loading friends: %w", err)
		}
		if !access.CanViewUser(viewerID, friends, targetID) {
			return nil, domain.ErrForbidden
		}
	}
	climbs, err := s.store.ListClimbs(ctx, targetID, domain.ClimbFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading climb history: %w", err)
	}
	return climbs, nil
}

// Overview returns the headline summary for targetID
func (s *StatsService) Overview(ctx context.Context, viewerID, targetID string) (*Overview, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "StatsService/Overview")
	defer span.End()

	climbs, err := s.history(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	if targetID == "" {
		targetID = viewerID
	}
	routes, err := s.store.ListRoutesByUser(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("counting routes: %w", err)
	}
	locs, err := s.store.ListLocationsByUser(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("counting locations: %w", err)
	}

	return &Overview{
		Summary:          stats.Overview(climbs, s.now()),
		RoutesCreated:    len(routes),
		LocationsCreated: len(locs),
	}, nil
}

// Timeline buckets targetID's climbs over period
func (s *StatsService) Timeline(ctx context.Context, viewerID, targetID string, period stats.Period, groupBy stats.GroupBy) ([]stats.Bucket, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "StatsService/Timeline")
	defer span.End()

	climbs, err := s.history(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	return stats.Timeline(climbs, period, groupBy, s.now()), nil
}

// Distribution counts completed climbs per grade
func (s *StatsService) Distribution(ctx context.Context, viewerID, targetID string) ([]stats.GradeCount, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "StatsService/Distribution")
	defer span.End()

	climbs, err := s.history(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	return stats.Distribution(climbs), nil
}

// Pyramid returns the distribution hardest grade first
func (s *StatsService) Pyramid(ctx context.Context, viewerID, targetID string) ([]stats.GradeCount, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "StatsService/Pyramid")
	defer span.End()

	climbs, err := s.history(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	return stats.Pyramid(climbs), nil
}

// AscentTypes returns the share of each ascent type
func (s *StatsService) AscentTypes(ctx context.Context, viewerID, targetID string) ([]stats.TypeShare, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "StatsService/AscentTypes")
	defer span.End()

	climbs, err := s.history(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	return stats.AscentTypes(climbs), nil
}

// Progression returns the running hardest grade per climbing day
func (s *StatsService) Progression(ctx context.Context, viewerID, targetID string) ([]stats.ProgressPoint, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "StatsService/Progression")
	defer span.End()

	climbs, err := s.history(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	return stats.Progression(climbs), nil
}
