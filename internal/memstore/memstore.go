// Package memstore is an in-memory record store for development and tests.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/climbing-tracker/internal/access"
	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/store"
)

const tracerID = "climbing-store-memory"

type data struct {
	users       map[string]domain.User
	locations   map[string]domain.Location
	routes      map[string]domain.Route
	climbs      map[string]domain.Climb
	friendships map[string]domain.Friendship
}

func (d *data) clone() *data {
	return &data{
		users:       maps.Clone(d.users),
		locations:   maps.Clone(d.locations),
		routes:      maps.Clone(d.routes),
		climbs:      maps.Clone(d.climbs),
		friendships: maps.Clone(d.friendships),
	}
}

// Store keeps every record in maps guarded by one RWMutex. A transaction works on a copy
// that replaces the live maps on commit.
type Store struct {
	mu   *sync.RWMutex
	data *data
	inTx bool
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		mu: &sync.RWMutex{},
		data: &data{
			users:       map[string]domain.User{},
			locations:   map[string]domain.Location{},
			routes:      map[string]domain.Route{},
			climbs:      map[string]domain.Climb{},
			friendships: map[string]domain.Friendship{},
		},
	}
}

// the transaction already holds the write lock
func (s *Store) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithTx runs fn against a private copy and publishes it only if fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/WithTx")
	defer span.End()

	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: s.mu, data: s.data.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func now() time.Time { return time.Now().UTC() }

// UpsertUser records a user.
func (s *Store) UpsertUser(ctx context.Context, user domain.User) error {
	defer s.lock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/UpsertUser")
	defer span.End()

	if existing, ok := s.data.users[user.ID]; ok && user.DisplayName == "" {
		user.DisplayName = existing.DisplayName
	}
	s.data.users[user.ID] = user
	return nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	defer s.rlock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/GetUser")
	defer span.End()

	u, ok := s.data.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	defer s.rlock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/ListUsers")
	defer span.End()

	users := slices.Collect(maps.Values(s.data.users))
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// CreateLocation stores a new location.
func (s *Store) CreateLocation(ctx context.Context, loc *domain.Location) error {
	defer s.lock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/CreateLocation")
	defer span.End()

	loc.CreatedAt, loc.UpdatedAt = now(), now()
	s.data.locations[loc.ID] = *loc
	return nil
}

// GetLocation retrieves a location by id.
func (s *Store) GetLocation(ctx context.Context, id string) (*domain.Location, error) {
	defer s.rlock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/GetLocation")
	defer span.End()

	l, ok := s.data.locations[id]
	if !ok {
		return nil, domain.ErrLocationNotFound
	}
	return &l, nil
}

// ListVisibleLocations returns owned, public and friends' locations ordered by name.
func (s *Store) ListVisibleLocations(ctx context.Context, viewerID string, friendIDs []string) ([]domain.Location, error) {
	defer s.rlock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/ListVisibleLocations")
	defer span.End()

	out := access.FilterVisible(viewerID, access.NewFriendSet(friendIDs...), slices.Collect(maps.Values(s.data.locations)))
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListLocationsByUser returns the locations a user owns.
func (s *Store) ListLocationsByUser(ctx context.Context, userID string) ([]domain.Location, error) {
	defer s.rlock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/ListLocationsByUser")
	defer span.End()

	var out []domain.Location
	for _, l := range s.data.locations {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// mirrors the SQL predicate: user_id = $1 OR is_public OR user_id = ANY($2)
// UpdateLocation replaces a stored location.
func (s *Store) UpdateLocation(ctx context.Context, loc *domain.Location) error {
	defer s.lock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/UpdateLocation")
	defer span.End()

	if _, ok := s.data.locations[loc.ID]; !ok {
		return domain.ErrLocationNotFound
	}
	loc.UpdatedAt = now()
	s.data.locations[loc.ID] = *loc
	return nil
}

// DeleteLocation removes a location with its routes and their climbs.
func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	defer s.lock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/DeleteLocation")
	defer span.End()

	if _, ok := s.data.locations[id]; !ok {
		return domain.ErrLocationNotFound
	}
	delete(s.data.locations, id)
	for rid, r := range s.data.routes {
		if r.LocationID != id {
			continue
		}
		delete(s.data.routes, rid)
		for cid, c := range s.data.climbs {
			if c.RouteID == rid {
				delete(s.data.climbs, cid)
			}
		}
	}
	return nil
}
