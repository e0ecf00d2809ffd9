// Package access decides which records a viewer may see or change.
package access

import (
	"context"

	"github.com/climbing-tracker/internal/domain"
)

// Record is anything owned by a single user that may be shared publicly.
type Record interface {
	OwnerID() string
	Public() bool
}

// FriendshipStore answers friendship questions. Friendship is symmetric regardless of who
// sent the request, and only accepted friendships count.
type FriendshipStore interface {
	FriendIDsOf(ctx context.Context, userID string) ([]string, error)
	AreFriends(ctx context.Context, a, b string) (bool, error)
}

// FriendSet is the set of accepted friends of one viewer, loaded once per request.
type FriendSet map[string]struct{}

// NewFriendSet builds a set from a list of ids.
func NewFriendSet(ids ...string) FriendSet {
	s := make(FriendSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// LoadFriendSet fetches the viewer's accepted friends.
func LoadFriendSet(ctx context.Context, store FriendshipStore, viewerID string) (FriendSet, error) {
	ids, err := store.FriendIDsOf(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return NewFriendSet(ids...), nil
}

// Has reports whether id is in the set.
func (s FriendSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// CanView reports whether viewer may see rec: they own it, it is public, or its owner is a friend.
func CanView(viewerID string, friends FriendSet, rec Record) bool {
	owner := rec.OwnerID()
	return owner == viewerID || rec.Public() || friends.Has(owner)
}

// CanViewUser reports whether viewer may see another user's private history.
func CanViewUser(viewerID string, friends FriendSet, userID string) bool {
	return viewerID == userID || friends.Has(userID)
}

// CanAddRoute reports whether viewer may set routes at loc: its owner or a friend of its owner.
func CanAddRoute(viewerID string, friends FriendSet, loc domain.Location) bool {
	return loc.UserID == viewerID || friends.Has(loc.UserID)
}

// CanEditRoute allows the route owner, the location owner, and friends of the location owner.
func CanEditRoute(viewerID string, friends FriendSet, route domain.Route, loc domain.Location) bool {
	return route.UserID == viewerID || CanAddRoute(viewerID, friends, loc)
}

// CanDeleteRoute is stricter than CanEditRoute: friends of the location owner may not delete
// routes they do not own.
func CanDeleteRoute(viewerID string, route domain.Route, loc domain.Location) bool {
	return route.UserID == viewerID || loc.UserID == viewerID
}

// FilterVisible keeps the records viewer may see, preserving order.
func FilterVisible[T Record](viewerID string, friends FriendSet, records []T) []T {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		if CanView(viewerID, friends, rec) {
			out = append(out, rec)
		}
	}
	return out
}
