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

// LocationService manages gyms and crags
type LocationService struct {
	store     store.Store
	publisher EventPublisher
	logger    *slog.Logger
}

// NewLocationService creates a new location service
func NewLocationService(st store.Store, publisher EventPublisher, logger *slog.Logger) *LocationService {
	return &LocationService{store: st, publisher: publisher, logger: logger}
}

// Create adds a location owned by userID
func (s *LocationService) Create(ctx context.Context, userID string, req domain.CreateLocationRequest) (*domain.Location, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "LocationService/Create")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	loc := &domain.Location{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        req.Name,
		Type:        req.Type,
		Address:     req.Address,
		Country:     req.Country,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}
	if err := s.store.CreateLocation(ctx, loc); err != nil {
		return nil, fmt.Errorf("creating location: %w", err)
	}
	return loc, nil
}

// Get returns a location visible to viewerID
func (s *LocationService) Get(ctx context.Context, viewerID, locationID string) (*domain.Location, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "LocationService/Get")
	defer span.End()

	loc, err := s.store.GetLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	friends, err := access.LoadFriendSet(ctx, s.store, viewerID)
	if err != nil {
		return nil, fmt.Errorf("loading friends: %w", err)
	}
	if !access.CanView(viewerID, friends, loc) {
		return nil, domain.ErrForbidden
	}
	return loc, nil
}

// List returns every location viewerID may see, ordered by name
func (s *LocationService) List(ctx context.Context, viewerID string) ([]domain.Location, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "LocationService/List")
	defer span.End()

	friends, err := s.store.FriendIDsOf(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("loading friends: %w", err)
	}
	locs, err := s.store.ListVisibleLocations(ctx, viewerID, friends)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	return locs, nil
}

// Update edits a location owned by userID
func (s *LocationService) Update(ctx context.Context, userID, locationID string, req domain.UpdateLocationRequest) (*domain.Location, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "LocationService/Update")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	var updated *domain.Location
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		loc, err := tx.GetLocation(ctx, locationID)
		if err != nil {
			return err
		}
		if loc.UserID != userID {
			return domain.ErrForbidden
		}
		req.Apply(loc)
		if err := tx.UpdateLocation(ctx, loc); err != nil {
			return err
		}
		updated = loc
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating location: %w", err)
	}
	return updated, nil
}

// Delete removes a location owned by userID together with its routes and climbs. Climbs
// disappear from leaderboards, so a deletion event triggers a refresh.
func (s *LocationService) Delete(ctx context.Context, userID, locationID string) error {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "LocationService/Delete")
	defer span.End()

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		loc, err := tx.GetLocation(ctx, locationID)
		if err != nil {
			return err
		}
		if loc.UserID != userID {
			return domain.ErrForbidden
		}
		return tx.DeleteLocation(ctx, locationID)
	})
	if err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}

	publish(ctx, s.publisher, s.logger, domain.ClimbEvent{
		Type:       domain.ClimbEventDeleted,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}
