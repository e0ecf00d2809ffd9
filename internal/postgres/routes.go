package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/grade"
)

const routeColumns = `id, user_id, location_id, name, difficulty_french, difficulty_uiaa,
	COALESCE(setter, ''), COALESCE(description, ''), is_public, is_active, created_at, updated_at`

func scanRoute(row pgx.Row) (domain.Route, error) {
	var rt domain.Route
	var french string
	err := row.Scan(&rt.ID, &rt.UserID, &rt.LocationID, &rt.Name, &french, &rt.DifficultyUIAA,
		&rt.Setter, &rt.Description, &rt.IsPublic, &rt.IsActive, &rt.CreatedAt, &rt.UpdatedAt)
	rt.DifficultyFrench = grade.Grade(french)
	return rt, err
}

// CreateRoute inserts a route
func (r *Repository) CreateRoute(ctx context.Context, route *domain.Route) error {
	query := `
		INSERT INTO routes (id, user_id, location_id, name, difficulty_french, difficulty_uiaa,
			setter, description, is_public, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, $11)
	`
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx, query,
		route.ID, route.UserID, route.LocationID, route.Name,
		string(route.DifficultyFrench), route.DifficultyUIAA,
		route.Setter, route.Description, route.IsPublic, route.IsActive, now,
	)
	if err != nil {
		return fmt.Errorf("creating route: %w", err)
	}
	route.CreatedAt, route.UpdatedAt = now, now
	return nil
}

// GetRoute retrieves a route by ID
func (r *Repository) GetRoute(ctx context.Context, id string) (*domain.Route, error) {
	rt, err := scanRoute(r.db.QueryRow(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRouteNotFound
		}
		return nil, fmt.Errorf("getting route: %w", err)
	}
	return &rt, nil
}

// UpdateRoute overwrites the mutable route fields
func (r *Repository) UpdateRoute(ctx context.Context, route *domain.Route) error {
	query := `
		UPDATE routes SET name = $2, difficulty_french = $3, difficulty_uiaa = $4,
			setter = NULLIF($5, ''), description = NULLIF($6, ''), is_public = $7, is_active = $8,
			updated_at = $9
		WHERE id = $1
	`
	now := time.Now().UTC()
	result, err := r.db.Exec(ctx, query,
		route.ID, route.Name, string(route.DifficultyFrench), route.DifficultyUIAA,
		route.Setter, route.Description, route.IsPublic, route.IsActive, now,
	)
	if err != nil {
		return fmt.Errorf("updating route: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRouteNotFound
	}
	route.UpdatedAt = now
	return nil
}

// DeleteRoute removes a route and, by cascade, its climbs
func (r *Repository) DeleteRoute(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting route: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRouteNotFound
	}
	return nil
}

// ListVisibleRoutes evaluates the visibility predicate in SQL
func (r *Repository) ListVisibleRoutes(ctx context.Context, viewerID string, friendIDs []string, filter domain.RouteFilter) ([]domain.Route, error) {
	where := []string{"(user_id = $1 OR is_public OR user_id = ANY($2))"}
	args := []any{viewerID, nonNil(friendIDs)}
	if filter.LocationID != "" {
		args = append(args, filter.LocationID)
		where = append(where, fmt.Sprintf("location_id = $%d", len(args)))
	}
	if !filter.IncludeInactive {
		where = append(where, "is_active")
	}
	query := `SELECT ` + routeColumns + ` FROM routes WHERE ` + strings.Join(where, " AND ") + ` ORDER BY name`
	return r.queryRoutes(ctx, query, args...)
}

// ListRoutesByUser returns the routes a user created
func (r *Repository) ListRoutesByUser(ctx context.Context, userID string) ([]domain.Route, error) {
	return r.queryRoutes(ctx, `SELECT `+routeColumns+` FROM routes WHERE user_id = $1 ORDER BY name`, userID)
}

func (r *Repository) queryRoutes(ctx context.Context, query string, args ...any) ([]domain.Route, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing routes: %w", err)
	}
	defer rows.Close()

	var routes []domain.Route
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning route: %w", err)
		}
		routes = append(routes, rt)
	}
	return routes, rows.Err()
}
