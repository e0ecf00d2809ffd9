package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/store"
)

// UserService keeps the user table in step with the identities seen at the edge
type UserService struct {
	store  store.Store
	seen   sync.Map
	logger *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(st store.Store, logger *slog.Logger) *UserService {
	return &UserService{store: st, logger: logger}
}

// Ensure records userID the first time it is seen by this process
func (s *UserService) Ensure(ctx context.Context, userID, username string) error {
	if _, ok := s.seen.Load(userID); ok {
		return nil
	}
	if username == "" {
		username = userID
	}
	if err := s.store.UpsertUser(ctx, domain.User{ID: userID, Username: username}); err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	s.seen.Store(userID, struct{}{})
	return nil
}

// Get returns a user by id
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.store.GetUser(ctx, userID)
}
