package memstore

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"

	"github.com/climbing-tracker/internal/domain"
)

func (s *Store) findPair(a, b string) (domain.Friendship, bool) {
	for _, f := range s.data.friendships {
		if f.Involves(a) && f.Other(a) == b {
			return f, true
		}
	}
	return domain.Friendship{}, false
}

// CreateFriendship stores a request. A second edge between the same pair is a conflict.
func (s *Store) CreateFriendship(ctx context.Context, f *domain.Friendship) error {
	defer s.lock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/CreateFriendship")
	defer span.End()

	if _, ok := s.findPair(f.RequesterID, f.AddresseeID); ok {
		return domain.ErrConflict
	}
	f.CreatedAt, f.UpdatedAt = now(), now()
	s.data.friendships[f.ID] = *f
	return nil
}

// GetFriendship retrieves a friendship by id.
func (s *Store) GetFriendship(ctx context.Context, id string) (*domain.Friendship, error) {
	defer s.rlock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/GetFriendship")
	defer span.End()

	f, ok := s.data.friendships[id]
	if !ok {
		return nil, domain.ErrFriendshipNotFound
	}
	return &f, nil
}

// FindFriendship looks up the edge between a and b in either direction.
func (s *Store) FindFriendship(ctx context.Context, a, b string) (*domain.Friendship, error) {
	defer s.rlock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/FindFriendship")
	defer span.End()

	f, ok := s.findPair(a, b)
	if !ok {
		return nil, domain.ErrFriendshipNotFound
	}
	return &f, nil
}

// UpdateFriendship stores a status change.
func (s *Store) UpdateFriendship(ctx context.Context, f *domain.Friendship) error {
	defer s.lock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/UpdateFriendship")
	defer span.End()

	if _, ok := s.data.friendships[f.ID]; !ok {
		return domain.ErrFriendshipNotFound
	}
	f.UpdatedAt = now()
	s.data.friendships[f.ID] = *f
	return nil
}

// DeleteFriendship removes a request or friendship.
func (s *Store) DeleteFriendship(ctx context.Context, id string) error {
	defer s.lock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/DeleteFriendship")
	defer span.End()

	if _, ok := s.data.friendships[id]; !ok {
		return domain.ErrFriendshipNotFound
	}
	delete(s.data.friendships, id)
	return nil
}

// ListFriendships returns every edge touching userID, newest first.
func (s *Store) ListFriendships(ctx context.Context, userID string) ([]domain.Friendship, error) {
	defer s.rlock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/ListFriendships")
	defer span.End()

	var out []domain.Friendship
	for _, f := range s.data.friendships {
		if f.Involves(userID) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// FriendIDsOf returns accepted friends of userID, sorted.
func (s *Store) FriendIDsOf(ctx context.Context, userID string) ([]string, error) {
	defer s.rlock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/FriendIDsOf")
	defer span.End()

	var ids []string
	for _, f := range s.data.friendships {
		if f.Accepted() && f.Involves(userID) {
			ids = append(ids, f.Other(userID))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// AreFriends reports whether an accepted edge joins a and b.
func (s *Store) AreFriends(ctx context.Context, a, b string) (bool, error) {
	defer s.rlock()()
	_, span := otel.Tracer(tracerID).Start(ctx, "Store/AreFriends")
	defer span.End()

	f, ok := s.findPair(a, b)
	return ok && f.Accepted(), nil
}
