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

const climbSelect = `
	SELECT c.id, c.user_id, c.route_id, c.date, c.climb_type, c.attempt_count,
		COALESCE(c.personal_rating, 0), COALESCE(c.comments, ''), c.points,
		r.difficulty_french, c.created_at, c.updated_at
	FROM climbs c
	JOIN routes r ON r.id = c.route_id`

func scanClimb(row pgx.Row) (domain.Climb, error) {
	var c domain.Climb
	var ascent, french string
	err := row.Scan(&c.ID, &c.UserID, &c.RouteID, &c.Date, &ascent, &c.AttemptCount,
		&c.PersonalRating, &c.Comments, &c.Points, &french, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	c.AscentType, err = domain.ParseAscentType(ascent)
	if err != nil {
		return c, fmt.Errorf("climb %s: %w", c.ID, err)
	}
	c.Date = domain.CivilDay(c.Date)
	c.RouteGrade = grade.Grade(french)
	return c, nil
}

// CreateClimb inserts a climb with its already computed points
func (r *Repository) CreateClimb(ctx context.Context, climb *domain.Climb) error {
	query := `
		INSERT INTO climbs (id, user_id, route_id, date, climb_type, attempt_count,
			personal_rating, comments, points, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, 0), NULLIF($8, ''), $9, $10, $10)
	`
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx, query,
		climb.ID, climb.UserID, climb.RouteID, climb.Date, climb.AscentType.String(),
		climb.AttemptCount, climb.PersonalRating, climb.Comments, climb.Points, now,
	)
	if err != nil {
		return fmt.Errorf("creating climb: %w", err)
	}
	climb.CreatedAt, climb.UpdatedAt = now, now
	return nil
}

// GetClimb retrieves a climb with its route grade
func (r *Repository) GetClimb(ctx context.Context, id string) (*domain.Climb, error) {
	c, err := scanClimb(r.db.QueryRow(ctx, climbSelect+` WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrClimbNotFound
		}
		return nil, fmt.Errorf("getting climb: %w", err)
	}
	return &c, nil
}

// UpdateClimb overwrites the mutable climb fields including points
func (r *Repository) UpdateClimb(ctx context.Context, climb *domain.Climb) error {
	query := `
		UPDATE climbs SET route_id = $2, date = $3, climb_type = $4, attempt_count = $5,
			personal_rating = NULLIF($6, 0), comments = NULLIF($7, ''), points = $8, updated_at = $9
		WHERE id = $1
	`
	now := time.Now().UTC()
	result, err := r.db.Exec(ctx, query,
		climb.ID, climb.RouteID, climb.Date, climb.AscentType.String(), climb.AttemptCount,
		climb.PersonalRating, climb.Comments, climb.Points, now,
	)
	if err != nil {
		return fmt.Errorf("updating climb: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrClimbNotFound
	}
	climb.UpdatedAt = now
	return nil
}

// DeleteClimb removes a climb
func (r *Repository) DeleteClimb(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM climbs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting climb: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrClimbNotFound
	}
	return nil
}

// ListClimbs returns a user's climbs, newest first
func (r *Repository) ListClimbs(ctx context.Context, userID string, filter domain.ClimbFilter) ([]domain.Climb, error) {
	where := []string{"c.user_id = $1"}
	args := []any{userID}
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.RouteID != "" {
		add("c.route_id = $%d", filter.RouteID)
	}
	if filter.LocationID != "" {
		add("r.location_id = $%d", filter.LocationID)
	}
	if len(filter.AscentTypes) > 0 {
		names := make([]string, 0, len(filter.AscentTypes))
		for _, t := range filter.AscentTypes {
			names = append(names, t.String())
		}
		add("c.climb_type = ANY($%d)", names)
	}
	if filter.From != nil {
		add("c.date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("c.date <= $%d", *filter.To)
	}

	query := climbSelect + ` WHERE ` + strings.Join(where, " AND ") + ` ORDER BY c.date DESC, c.created_at DESC`
	return r.queryClimbs(ctx, query, args...)
}

// ListAllClimbs returns every climb for leaderboard computation
func (r *Repository) ListAllClimbs(ctx context.Context) ([]domain.Climb, error) {
	return r.queryClimbs(ctx, climbSelect+` ORDER BY c.user_id, c.date`)
}

func (r *Repository) queryClimbs(ctx context.Context, query string, args ...any) ([]domain.Climb, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing climbs: %w", err)
	}
	defer rows.Close()

	var climbs []domain.Climb
	for rows.Next() {
		c, err := scanClimb(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning climb: %w", err)
		}
		climbs = append(climbs, c)
	}
	return climbs, rows.Err()
}
