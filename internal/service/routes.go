package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/climbing-tracker/internal/access"
	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/store"
)

// RouteService manages routes inside locations
type RouteService struct {
	store     store.Store
	publisher EventPublisher
	logger    *slog.Logger
}

// NewRouteService creates a new route service
func NewRouteService(st store.Store, publisher EventPublisher, logger *slog.Logger) *RouteService {
	return &RouteService{store: st, publisher: publisher, logger: logger}
}

// Create adds a route to a location owned by userID or by one of their friends
func (s *RouteService) Create(ctx context.Context, userID string, req domain.CreateRouteRequest) (*domain.Route, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "RouteService/Create")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	loc, err := s.store.GetLocation(ctx, req.LocationID)
	if err != nil {
		return nil, err
	}
	friends, err := access.LoadFriendSet(ctx, s.store, userID)
	if err != nil {
		return nil, fmt.Errorf("loading friends: %w", err)
	}
	if !access.CanAddRoute(userID, friends, *loc) {
		return nil, domain.ErrForbidden
	}

	route := &domain.Route{
		ID:               uuid.NewString(),
		UserID:           userID,
		LocationID:       loc.ID,
		Name:             req.Name,
		DifficultyFrench: req.DifficultyFrench,
		DifficultyUIAA:   req.DifficultyUIAA,
		Setter:           req.Setter,
		Description:      req.Description,
		IsPublic:         req.IsPublic,
		IsActive:         true,
	}
	if err := s.store.CreateRoute(ctx, route); err != nil {
		return nil, fmt.Errorf("creating route: %w", err)
	}

	s.logger.Info("route created", "route_id", route.ID, "location_id", loc.ID, "grade", route.DifficultyFrench)
	return route, nil
}

// Get returns a route visible to viewerID
func (s *RouteService) Get(ctx context.Context, viewerID, routeID string) (*domain.Route, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "RouteService/Get")
	defer span.End()

	return visibleRoute(ctx, s.store, viewerID, routeID)
}

// Update edits a route. Allowed for the route owner, the location owner and the location
// owner's friends.
func (s *RouteService) Update(ctx context.Context, userID, routeID string, req domain.UpdateRouteRequest) (*domain.Route, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "RouteService/Update")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.Route
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		route, loc, friends, err := s.load(ctx, tx, userID, routeID)
		if err != nil {
			return err
		}
		if !access.CanEditRoute(userID, friends, *route, *loc) {
			return domain.ErrForbidden
		}
		req.Apply(route)
		if err := tx.UpdateRoute(ctx, route); err != nil {
			return err
		}
		updated = route
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating route: %w", err)
	}
	return updated, nil
}

// Delete removes a route and its climbs. Allowed for the route owner and the location owner.
// The cascade can drop other users' climbs, so a deletion event triggers a refresh.
func (s *RouteService) Delete(ctx context.Context, userID, routeID string) error {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "RouteService/Delete")
	defer span.End()

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		route, loc, _, err := s.load(ctx, tx, userID, routeID)
		if err != nil {
			return err
		}
		if !access.CanDeleteRoute(userID, *route, *loc) {
			return domain.ErrForbidden
		}
		return tx.DeleteRoute(ctx, routeID)
	})
	if err != nil {
		return fmt.Errorf("deleting route: %w", err)
	}

	publish(ctx, s.publisher, s.logger, domain.ClimbEvent{
		Type:       domain.ClimbEventDeleted,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

func (s *RouteService) load(ctx context.Context, tx store.Store, userID, routeID string) (*domain.Route, *domain.Location, access.FriendSet, error) {
	route, err := tx.GetRoute(ctx, routeID)
	if err != nil {
		return nil, nil, nil, err
	}
	loc, err := tx.GetLocation(ctx, route.LocationID)
	if err != nil {
		return nil, nil, nil, err
	}
	friends, err := access.LoadFriendSet(ctx, tx, userID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading friends: %w", err)
	}
	return route, loc, friends, nil
}

// List returns the routes viewerID may see, narrowed by filter
func (s *RouteService) List(ctx context.Context, viewerID string, filter domain.RouteFilter) ([]domain.Route, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "RouteService/List")
	defer span.End()

	if err := filter.Validate(); err != nil {
		return nil, err
	}
	friends, err := s.store.FriendIDsOf(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("loading friends: %w", err)
	}
	routes, err := s.store.ListVisibleRoutes(ctx, viewerID, friends, filter)
	if err != nil {
		return nil, fmt.Errorf("listing routes: %w", err)
	}

	out := routes[:0]
	for _, r := range routes {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}
