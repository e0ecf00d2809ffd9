// Package store defines the record store contract shared by the Postgres and in-memory backends.
package store

import (
	"context"

	"github.com/climbing-tracker/internal/access"
	"github.com/climbing-tracker/internal/domain"
)

// Store is the record store behind every service. Implementations return the domain
// not-found sentinels for missing ids.
type Store interface {
	access.FriendshipStore

	// WithTx runs fn against a store bound to one transaction. The transaction commits when
	// fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(Store) error) error

	UpsertUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)

	CreateLocation(ctx context.Context, loc *domain.Location) error
	GetLocation(ctx context.Context, id string) (*domain.Location, error)
	// ListVisibleLocations returns locations owned by viewerID, public, or owned by friendIDs.
	ListVisibleLocations(ctx context.Context, viewerID string, friendIDs []string) ([]domain.Location, error)
	ListLocationsByUser(ctx context.Context, userID string) ([]domain.Location, error)
	UpdateLocation(ctx context.Context, loc *domain.Location) error
	// DeleteLocation removes a location together with its routes and their climbs.
	DeleteLocation(ctx context.Context, id string) error

	CreateRoute(ctx context.Context, route *domain.Route) error
	GetRoute(ctx context.Context, id string) (*domain.Route, error)
	UpdateRoute(ctx context.Context, route *domain.Route) error
	DeleteRoute(ctx context.Context, id string) error
	// ListVisibleRoutes applies the visibility predicate plus the location and active parts of
	// the filter. Grade bounds are applied by the caller.
	ListVisibleRoutes(ctx context.Context, viewerID string, friendIDs []string, filter domain.RouteFilter) ([]domain.Route, error)
	ListRoutesByUser(ctx context.Context, userID string) ([]domain.Route, error)

	CreateClimb(ctx context.Context, climb *domain.Climb) error
	GetClimb(ctx context.Context, id string) (*domain.Climb, error)
	UpdateClimb(ctx context.Context, climb *domain.Climb) error
	DeleteClimb(ctx context.Context, id string) error
	// ListClimbs returns a user's climbs, newest first, with RouteGrade filled in.
	ListClimbs(ctx context.Context, userID string, filter domain.ClimbFilter) ([]domain.Climb, error)
	// ListAllClimbs returns every climb with RouteGrade filled in.
	ListAllClimbs(ctx context.Context) ([]domain.Climb, error)

	CreateFriendship(ctx context.Context, f *domain.Friendship) error
	GetFriendship(ctx context.Context, id string) (*domain.Friendship, error)
	// FindFriendship looks up the edge between two users in either direction.
	FindFriendship(ctx context.Context, a, b string) (*domain.Friendship, error)
	UpdateFriendship(ctx context.Context, f *domain.Friendship) error
	DeleteFriendship(ctx context.Context, id string) error
	ListFriendships(ctx context.Context, userID string) ([]domain.Friendship, error)
}
