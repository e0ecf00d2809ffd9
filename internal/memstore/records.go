package memstore

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"

	"github.com/climbing-tracker/internal/access"
	"github.com/climbing-tracker/internal/domain"
)

// CreateRoute stores a new route.
func (s *Store) CreateRoute(ctx context.Context, route *domain.Route) error {
	defer s.lock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/CreateRoute")
	defer span.End()

	route.CreatedAt, route.UpdatedAt = now(), now()
	s.data.routes[route.ID] = *route
	return nil
}

// GetRoute retrieves a route by id.
func (s *Store) GetRoute(ctx context.Context, id string) (*domain.Route, error) {
	defer s.rlock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/GetRoute")
	defer span.End()

	r, ok := s.data.routes[id]
	if !ok {
		return nil, domain.ErrRouteNotFound
	}
	return &r, nil
}

// UpdateRoute replaces a stored route.
func (s *Store) UpdateRoute(ctx context.Context, route *domain.Route) error {
	defer s.lock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/UpdateRoute")
	defer span.End()

	if _, ok := s.data.routes[route.ID]; !ok {
		return domain.ErrRouteNotFound
	}
	route.UpdatedAt = now()
	s.data.routes[route.ID] = *route
	return nil
}

// DeleteRoute removes a route and its climbs.
func (s *Store) DeleteRoute(ctx context.Context, id string) error {
	defer s.lock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/DeleteRoute")
	defer span.End()

	if _, ok := s.data.routes[id]; !ok {
		return domain.ErrRouteNotFound
	}
	delete(s.data.routes, id)
	for cid, c := range s.data.climbs {
		if c.RouteID == id {
			delete(s.data.climbs, cid)
		}
	}
	return nil
}

// ListVisibleRoutes returns visible routes matching the location and active filters.
func (s *Store) ListVisibleRoutes(ctx context.Context, viewerID string, friendIDs []string, filter domain.RouteFilter) ([]domain.Route, error) {
	defer s.rlock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/ListVisibleRoutes")
	defer span.End()

	friends := access.NewFriendSet(friendIDs...)
	var out []domain.Route
	for _, r := range s.data.routes {
		if !access.CanView(viewerID, friends, r) {
			continue
		}
		if filter.LocationID != "" && r.LocationID != filter.LocationID {
			continue
		}
		if !filter.IncludeInactive && !r.IsActive {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListRoutesByUser returns the routes a user created.
func (s *Store) ListRoutesByUser(ctx context.Context, userID string) ([]domain.Route, error) {
	defer s.rlock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/ListRoutesByUser")
	defer span.End()

	var out []domain.Route
	for _, r := range s.data.routes {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// withGrade fills the joined route grade.
func (s *Store) withGrade(c domain.Climb) domain.Climb {
	c.RouteGrade = s.data.routes[c.RouteID].DifficultyFrench
	return c
}

// CreateClimb stores a new climb.
func (s *Store) CreateClimb(ctx context.Context, climb *domain.Climb) error {
	defer s.lock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/CreateClimb")
	defer span.End()

	if _, ok := s.data.routes[climb.RouteID]; !ok {
		return domain.ErrRouteNotFound
	}
	climb.CreatedAt, climb.UpdatedAt = now(), now()
	stored := *climb
	stored.RouteGrade = ""
	s.data.climbs[climb.ID] = stored
	return nil
}

// GetClimb retrieves a climb with its route grade.
func (s *Store) GetClimb(ctx context.Context, id string) (*domain.Climb, error) {
	defer s.rlock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/GetClimb")
	defer span.End()

	c, ok := s.data.climbs[id]
	if !ok {
		return nil, domain.ErrClimbNotFound
	}
	c = s.withGrade(c)
	return &c, nil
}

// UpdateClimb replaces a stored climb.
func (s *Store) UpdateClimb(ctx context.Context, climb *domain.Climb) error {
	defer s.lock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/UpdateClimb")
	defer span.End()

	if _, ok := s.data.climbs[climb.ID]; !ok {
		return domain.ErrClimbNotFound
	}
	if _, ok := s.data.routes[climb.RouteID]; !ok {
		return domain.ErrRouteNotFound
	}
	climb.UpdatedAt = now()
	stored := *climb
	stored.RouteGrade = ""
	s.data.climbs[climb.ID] = stored
	return nil
}

// DeleteClimb removes a climb.
func (s *Store) DeleteClimb(ctx context.Context, id string) error {
	defer s.lock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/DeleteClimb")
	defer span.End()

	if _, ok := s.data.climbs[id]; !ok {
		return domain.ErrClimbNotFound
	}
	delete(s.data.climbs, id)
	return nil
}

// ListClimbs returns a user's climbs, newest first.
func (s *Store) ListClimbs(ctx context.Context, userID string, filter domain.ClimbFilter) ([]domain.Climb, error) {
	defer s.rlock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/ListClimbs")
	defer span.End()

	var out []domain.Climb
	for _, c := range s.data.climbs {
		if c.UserID != userID || !s.matches(c, filter) {
			continue
		}
		out = append(out, s.withGrade(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) matches(c domain.Climb, f domain.ClimbFilter) bool {
	if f.RouteID != "" && c.RouteID != f.RouteID {
		return false
	}
	if f.LocationID != "" && s.data.routes[c.RouteID].LocationID != f.LocationID {
		return false
	}
	if len(f.AscentTypes) > 0 {
		found := false
		for _, t := range f.AscentTypes {
			if t == c.AscentType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && c.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && c.Date.After(*f.To) {
		return false
	}
	return true
}

// ListAllClimbs returns every climb ordered by user then date.
func (s *Store) ListAllClimbs(ctx context.Context) ([]domain.Climb, error) {
	defer s.rlock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/ListAllClimbs")
	defer span.End()

	out := make([]domain.Climb, 0, len(s.data.climbs))
	for _, c := range s.data.climbs {
		out = append(out, s.withGrade(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}
