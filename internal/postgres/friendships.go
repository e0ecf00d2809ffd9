package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/climbing-tracker/internal/domain"
)

const friendshipColumns = `id, requester_id, addressee_id, status, created_at, updated_at`

func scanFriendship(row pgx.Row) (domain.Friendship, error) {
	var f domain.Friendship
	var status string
	err := row.Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &status, &f.CreatedAt, &f.UpdatedAt)
	f.Status = domain.FriendshipStatus(status)
	return f, err
}

// CreateFriendship inserts a friend request. A second edge between the same pair is a conflict.
func (r *Repository) CreateFriendship(ctx context.Context, f *domain.Friendship) error {
	query := `
		INSERT INTO friendships (id, requester_id, addressee_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx, query, f.ID, f.RequesterID, f.AddresseeID, string(f.Status), now)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("creating friendship: %w", err)
	}
	f.CreatedAt, f.UpdatedAt = now, now
	return nil
}

// GetFriendship retrieves a friendship by ID
func (r *Repository) GetFriendship(ctx context.Context, id string) (*domain.Friendship, error) {
	f, err := scanFriendship(r.db.QueryRow(ctx, `SELECT `+friendshipColumns+` FROM friendships WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFriendshipNotFound
		}
		return nil, fmt.Errorf("getting friendship: %w", err)
	}
	return &f, nil
}

// FindFriendship looks up the edge between a and b in either direction
func (r *Repository) FindFriendship(ctx context.Context, a, b string) (*domain.Friendship, error) {
	query := `SELECT ` + friendshipColumns + ` FROM friendships
		WHERE (requester_id = $1 AND addressee_id = $2) OR (requester_id = $2 AND addressee_id = $1)`
	f, err := scanFriendship(r.db.QueryRow(ctx, query, a, b))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFriendshipNotFound
		}
		return nil, fmt.Errorf("finding friendship: %w", err)
	}
	return &f, nil
}

// UpdateFriendship stores a status change
func (r *Repository) UpdateFriendship(ctx context.Context, f *domain.Friendship) error {
	now := time.Now().UTC()
	result, err := r.db.Exec(ctx, `UPDATE friendships SET status = $2, updated_at = $3 WHERE id = $1`,
		f.ID, string(f.Status), now)
	if err != nil {
		return fmt.Errorf("updating friendship: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrFriendshipNotFound
	}
	f.UpdatedAt = now
	return nil
}

// DeleteFriendship removes a request or friendship
func (r *Repository) DeleteFriendship(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM friendships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting friendship: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrFriendshipNotFound
	}
	return nil
}

// ListFriendships returns every edge touching userID, pending or accepted
func (r *Repository) ListFriendships(ctx context.Context, userID string) ([]domain.Friendship, error) {
	query := `SELECT ` + friendshipColumns + ` FROM friendships
		WHERE requester_id = $1 OR addressee_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing friendships: %w", err)
	}
	defer rows.Close()

	var out []domain.Friendship
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning friendship: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// FriendIDsOf returns the accepted friends of userID regardless of who sent the request
func (r *Repository) FriendIDsOf(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT CASE WHEN requester_id = $1 THEN addressee_id ELSE requester_id END
		FROM friendships
		WHERE status = 'ACCEPTED' AND (requester_id = $1 OR addressee_id = $1)
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing friend ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning friend id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AreFriends reports whether an accepted edge joins a and b
func (r *Repository) AreFriends(ctx context.Context, a, b string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE status = 'ACCEPTED'
			AND ((requester_id = $1 AND addressee_id = $2) OR (requester_id = $2 AND addressee_id = $1))
		)
	`
	var ok bool
	if err := r.db.QueryRow(ctx, query, a, b).Scan(&ok); err != nil {
		return false, fmt.Errorf("checking friendship: %w", err)
	}
	return ok, nil
}
