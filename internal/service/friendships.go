package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/store"
)

// FriendRequests groups pending requests by direction
type FriendRequests struct {
	Incoming []domain.Friendship `json:"incoming"`
	Outgoing []domain.Friendship `json:"outgoing"`
}

// FriendshipService manages friend requests and accepted friendships
type FriendshipService struct {
	store  store.Store
	logger *slog.Logger
}

// NewFriendshipService creates a new friendship service
func NewFriendshipService(st store.Store, logger *slog.Logger) *FriendshipService {
	return &FriendshipService{store: st, logger: logger}
}

// Send creates a pending request from userID. Only one edge may exist per pair, whichever
// side sent it.
func (s *FriendshipService) Send(ctx context.Context, userID string, req domain.SendFriendRequest) (*domain.Friendship, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "FriendshipService/Send")
	defer span.End()

	if req.AddresseeID == "" || req.AddresseeID == userID {
		return nil, fmt.Errorf("%w: cannot befriend yourself", domain.ErrInvalidRequest)
	}
	if _, err := s.store.GetUser(ctx, req.AddresseeID); err != nil {
		return nil, err
	}

	f := &domain.Friendship{
		ID:          uuid.NewString(),
		RequesterID: userID,
		AddresseeID: req.AddresseeID,
		Status:      domain.FriendshipPending,
	}
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		existing, err := tx.FindFriendship(ctx, userID, req.AddresseeID)
		if err == nil && existing != nil {
			return domain.ErrConflict
		}
		if err != nil && !domain.IsNotFoundError(err) {
			return err
		}
		return tx.CreateFriendship(ctx, f)
	})
	if err != nil {
		return nil, fmt.Errorf("sending friend request: %w", err)
	}
	return f, nil
}

// Respond accepts or rejects a pending request addressed to userID. A rejected request is
// removed so it can be sent again later.
func (s *FriendshipService) Respond(ctx context.Context, userID, friendshipID string, req domain.RespondFriendRequest) (*domain.Friendship, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "FriendshipService/Respond")
	defer span.End()

	if req.Action != domain.FriendRequestAccept && req.Action != domain.FriendRequestReject {
		return nil, fmt.Errorf("%w: action must be accept or reject", domain.ErrInvalidRequest)
	}

	var result *domain.Friendship
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		f, err := tx.GetFriendship(ctx, friendshipID)
		if err != nil {
			return err
		}
		if f.AddresseeID != userID {
			return domain.ErrForbidden
		}
		if f.Status != domain.FriendshipPending {
			return domain.ErrConflict
		}
		if req.Action == domain.FriendRequestReject {
			result = f
			return tx.DeleteFriendship(ctx, f.ID)
		}
		f.Status = domain.FriendshipAccepted
		if err := tx.UpdateFriendship(ctx, f); err != nil {
			return err
		}
		result = f
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("responding to friend request: %w", err)
	}

	s.logger.Info("friend request answered", "friendship_id", friendshipID, "action", req.Action)
	return result, nil
}

// Remove deletes a friendship or request. Either side may remove it.
func (s *FriendshipService) Remove(ctx context.Context, userID, friendshipID string) error {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "FriendshipService/Remove")
	defer span.End()

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		f, err := tx.GetFriendship(ctx, friendshipID)
		if err != nil {
			return err
		}
		if !f.Involves(userID) {
			return domain.ErrForbidden
		}
		return tx.DeleteFriendship(ctx, friendshipID)
	})
	if err != nil {
		return fmt.Errorf("removing friendship: %w", err)
	}
	return nil
}

// ListFriends returns userID's accepted friends
func (s *FriendshipService) ListFriends(ctx context.Context, userID string) ([]domain.Friend, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "FriendshipService/ListFriends")
	defer span.End()

	all, err := s.store.ListFriendships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing friendships: %w", err)
	}

	friends := make([]domain.Friend, 0, len(all))
	for _, f := range all {
		if !f.Accepted() {
			continue
		}
		otherID := f.Other(userID)
		user, err := s.store.GetUser(ctx, otherID)
		if err != nil {
			s.logger.Warn("friend without user record", "user_id", otherID, "error", err)
			user = &domain.User{ID: otherID, Username: otherID}
		}
		friends = append(friends, domain.Friend{FriendshipID: f.ID, User: *user})
	}
	return friends, nil
}

// ListRequests returns userID's pending requests in both directions
func (s *FriendshipService) ListRequests(ctx context.Context, userID string) (*FriendRequests, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "FriendshipService/ListRequests")
	defer span.End()

	all, err := s.store.ListFriendships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing friendships: %w", err)
	}

	reqs := &FriendRequests{Incoming: []domain.Friendship{}, Outgoing: []domain.Friendship{}}
	for _, f := range all {
		if f.Accepted() {
			continue
		}
		if f.AddresseeID == userID {
			reqs.Incoming = append(reqs.Incoming, f)
		} else {
			reqs.Outgoing = append(reqs.Outgoing, f)
		}
	}
	return reqs, nil
}
