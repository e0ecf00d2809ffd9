package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/climbing-tracker/internal/domain"
)

const locationColumns = `id, user_id, name, type, COALESCE(address, ''), COALESCE(country, ''),
	COALESCE(description, ''), is_public, created_at, updated_at`

func scanLocation(row pgx.Row) (domain.Location, error) {
	var l domain.Location
	var typ string
	err := row.Scan(&l.ID, &l.UserID, &l.Name, &typ, &l.Address, &l.Country,
		&l.Description, &l.IsPublic, &l.CreatedAt, &l.UpdatedAt)
	l.Type = domain.LocationType(typ)
	return l, err
}

// CreateLocation inserts a location
func (r *Repository) CreateLocation(ctx context.Context, loc *domain.Location) error {
	query := `
		INSERT INTO locations (id, user_id, name, type, address, country, description, is_public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9, $9)
	`
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx, query,
		loc.ID, loc.UserID, loc.Name, string(loc.Type),
		loc.Address, loc.Country, loc.Description, loc.IsPublic, now,
	)
	if err != nil {
		return fmt.Errorf("creating location: %w", err)
	}
	loc.CreatedAt, loc.UpdatedAt = now, now
	return nil
}

// GetLocation retrieves a location by ID
func (r *Repository) GetLocation(ctx context.Context, id string) (*domain.Location, error) {
	l, err := scanLocation(r.db.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLocationNotFound
		}
		return nil, fmt.Errorf("getting location: %w", err)
	}
	return &l, nil
}

// ListVisibleLocations returns locations the viewer owns, public ones, and friends' ones
func (r *Repository) ListVisibleLocations(ctx context.Context, viewerID string, friendIDs []string) ([]domain.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations
		WHERE user_id = $1 OR is_public OR user_id = ANY($2)
		ORDER BY name`
	return r.queryLocations(ctx, query, viewerID, nonNil(friendIDs))
}

// ListLocationsByUser returns the locations a user owns
func (r *Repository) ListLocationsByUser(ctx context.Context, userID string) ([]domain.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE user_id = $1 ORDER BY name`
	return r.queryLocations(ctx, query, userID)
}

func (r *Repository) queryLocations(ctx context.Context, query string, args ...any) ([]domain.Location, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	var locs []domain.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locs = append(locs, l)
	}
	return locs, rows.Err()
}

// nonNil keeps ANY($n) from receiving a NULL array
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// UpdateLocation overwrites the mutable location fields
func (r *Repository) UpdateLocation(ctx context.Context, loc *domain.Location) error {
	query := `
		UPDATE locations SET name = $2, type = $3, address = NULLIF($4, ''), country = NULLIF($5, ''),
			description = NULLIF($6, ''), is_public = $7, updated_at = $8
		WHERE id = $1
	`
	now := time.Now().UTC()
	result, err := r.db.Exec(ctx, query,
		loc.ID, loc.Name, string(loc.Type), loc.Address, loc.Country, loc.Description, loc.IsPublic, now,
	)
	if err != nil {
		return fmt.Errorf("updating location: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrLocationNotFound
	}
	loc.UpdatedAt = now
	return nil
}

// DeleteLocation removes a location; routes and climbs go with it by cascade
func (r *Repository) DeleteLocation(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrLocationNotFound
	}
	return nil
}
