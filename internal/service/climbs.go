package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/climbing-tracker/internal/access"
	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/scoring"
	"github.com/climbing-tracker/internal/store"
)

const tracerID = "climbing-service"

// ClimbService logs, edits and removes climbs. Points are computed here, inside the same
// transaction that writes the climb.
type ClimbService struct {
	store     store.Store
	publisher EventPublisher
	logger    *slog.Logger
}

// NewClimbService creates a new climb service
func NewClimbService(st store.Store, publisher EventPublisher, logger *slog.Logger) *ClimbService {
	return &ClimbService{store: st, publisher: publisher, logger: logger}
}

// visibleRoute loads a route and checks that userID may see it
func visibleRoute(ctx context.Context, tx store.Store, userID, routeID string) (*domain.Route, error) {
	route, err := tx.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	friends, err := access.LoadFriendSet(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading friends: %w", err)
	}
	if !access.CanView(userID, friends, route) {
		return nil, domain.ErrForbidden
	}
	return route, nil
}

// Create logs a climb on a route visible to userID
func (s *ClimbService) Create(ctx context.Context, userID string, req domain.CreateClimbRequest) (*domain.Climb, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "ClimbService/Create")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	climb := &domain.Climb{
		ID:             uuid.NewString(),
		UserID:         userID,
		RouteID:        req.RouteID,
		Date:           date,
		AscentType:     req.AscentType,
		AttemptCount:   req.AttemptCount,
		PersonalRating: req.PersonalRating,
		Comments:       req.Comments,
	}
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		route, err := visibleRoute(ctx, tx, userID, req.RouteID)
		if err != nil {
			return err
		}
		points, err := scoring.ComputePoints(route.DifficultyFrench, climb.AscentType)
		if err != nil {
			return err
		}
		climb.Points = points
		climb.RouteGrade = route.DifficultyFrench
		return tx.CreateClimb(ctx, climb)
	})
	if err != nil {
		return nil, fmt.Errorf("creating climb: %w", err)
	}

	publish(ctx, s.publisher, s.logger, domain.NewClimbEvent(domain.ClimbEventCreated, *climb))
	return climb, nil
}

// Get returns a climb if viewerID owns it or is a friend of its owner
func (s *ClimbService) Get(ctx context.Context, viewerID, climbID string) (*domain.Climb, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "ClimbService/Get")
	defer span.End()

	climb, err := s.store.GetClimb(ctx, climbID)
	if err != nil {
		return nil, err
	}
	friends, err := access.LoadFriendSet(ctx, s.store, viewerID)
	if err != nil {
		return nil, fmt.Errorf("loading friends: %w", err)
	}
	if !access.CanView(viewerID, friends, climb) {
		return nil, domain.ErrForbidden
	}
	return climb, nil
}

// Update edits a climb owned by userID. Points are recomputed only when the ascent type or
// the route changes.
func (s *ClimbService) Update(ctx context.Context, userID, climbID string, req domain.UpdateClimbRequest) (*domain.Climb, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "ClimbService/Update")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.Climb
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		climb, err := tx.GetClimb(ctx, climbID)
		if err != nil {
			return err
		}
		if climb.UserID != userID {
			return domain.ErrForbidden
		}

		rescore := req.RescoreNeeded(*climb)
		if req.RouteID != nil && *req.RouteID != climb.RouteID {
			route, err := visibleRoute(ctx, tx, userID, *req.RouteID)
			if err != nil {
				return err
			}
			climb.RouteID = route.ID
			climb.RouteGrade = route.DifficultyFrench
		}
		if req.AscentType != nil {
			climb.AscentType = *req.AscentType
		}
		if req.Date != nil {
			date, err := domain.ParseDate(*req.Date)
			if err != nil {
				return err
			}
			climb.Date = date
		}
		if req.AttemptCount != nil {
			climb.AttemptCount = *req.AttemptCount
		}
		if req.PersonalRating != nil {
			climb.PersonalRating = *req.PersonalRating
		}
		if req.Comments != nil {
			climb.Comments = *req.Comments
		}
		if rescore {
			points, err := scoring.ComputePoints(climb.RouteGrade, climb.AscentType)
			if err != nil {
				return err
			}
			climb.Points = points
		}

		if err := tx.UpdateClimb(ctx, climb); err != nil {
			return err
		}
		updated = climb
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating climb: %w", err)
	}

	publish(ctx, s.publisher, s.logger, domain.NewClimbEvent(domain.ClimbEventUpdated, *updated))
	return updated, nil
}

// Delete removes a climb owned by userID
func (s *ClimbService) Delete(ctx context.Context, userID, climbID string) error {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "ClimbService/Delete")
	defer span.End()

	var deleted domain.Climb
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		climb, err := tx.GetClimb(ctx, climbID)
		if err != nil {
			return err
		}
		if climb.UserID != userID {
			return domain.ErrForbidden
		}
		deleted = *climb
		return tx.DeleteClimb(ctx, climbID)
	})
	if err != nil {
		return fmt.Errorf("deleting climb: %w", err)
	}

	publish(ctx, s.publisher, s.logger, domain.NewClimbEvent(domain.ClimbEventDeleted, deleted))
	return nil
}

// List returns userID's own climbs, newest first
func (s *ClimbService) List(ctx context.Context, userID string, filter domain.ClimbFilter) ([]domain.Climb, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "ClimbService/List")
	defer span.End()

	climbs, err := s.store.ListClimbs(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("listing climbs: %w", err)
	}
	return climbs, nil
}
