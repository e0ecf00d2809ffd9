package domain

import (
	"fmt"
	"time"

	"github.com/climbing-tracker/internal/grade"
)

// Climb is a single logged ascent or attempt of a route.
type Climb struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	RouteID        string     `json:"route_id"`
	Date           time.Time  `json:"date"`
	AscentType     AscentType `json:"climb_type"`
	AttemptCount   int        `json:"attempt_count"`
	PersonalRating int        `json:"personal_rating,omitempty"`
	Comments       string     `json:"comments,omitempty"`
	Points         int        `json:"points"`
	// RouteGrade is the route's French grade, joined in when the climb is read.
	RouteGrade grade.Grade `json:"route_grade,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// OwnerID returns the user who logged the climb.
func (c Climb) OwnerID() string { return c.UserID }

// Public is always false: climbs are shared with friends, never with everyone.
func (c Climb) Public() bool { return false }

// ClimbFilter narrows a user's climb listing.
type ClimbFilter struct {
	RouteID     string
	LocationID  string
	AscentTypes []AscentType
	From        *time.Time
	To          *time.Time
}

// CreateClimbRequest represents a request to log a climb
type CreateClimbRequest struct {
	RouteID        string     `json:"route_id"`
	Date           string     `json:"date"`
	AscentType     AscentType `json:"climb_type"`
	AttemptCount   int        `json:"attempt_count,omitempty"`
	PersonalRating int        `json:"personal_rating,omitempty"`
	Comments       string     `json:"comments,omitempty"`
}

// Validate checks the request and applies defaults.
func (r *CreateClimbRequest) Validate() error {
	if r.RouteID == "" || r.Date == "" {
		return ErrInvalidRequest
	}
	if !r.AscentType.Valid() {
		return ErrUnknownAscentType
	}
	if r.AttemptCount == 0 {
		r.AttemptCount = 1
	}
	if r.AttemptCount < 0 {
		return fmt.Errorf("%w: attempt_count must be positive", ErrInvalidRequest)
	}
	if r.PersonalRating < 0 || r.PersonalRating > 5 {
		return fmt.Errorf("%w: personal_rating must be between 1 and 5", ErrInvalidRequest)
	}
	if len(r.Comments) > 2000 {
		return fmt.Errorf("%w: comments too long", ErrInvalidRequest)
	}
	return nil
}

// UpdateClimbRequest represents a partial climb update. Nil fields are left unchanged.
type UpdateClimbRequest struct {
	RouteID        *string     `json:"route_id,omitempty"`
	Date           *string     `json:"date,omitempty"`
	AscentType     *AscentType `json:"climb_type,omitempty"`
	AttemptCount   *int        `json:"attempt_count,omitempty"`
	PersonalRating *int        `json:"personal_rating,omitempty"`
	Comments       *string     `json:"comments,omitempty"`
}

// Validate checks the supplied fields.
func (r *UpdateClimbRequest) Validate() error {
	if r.RouteID != nil && *r.RouteID == "" {
		return ErrInvalidRequest
	}
	if r.AscentType != nil && !r.AscentType.Valid() {
		return ErrUnknownAscentType
	}
	if r.AttemptCount != nil && *r.AttemptCount < 1 {
		return fmt.Errorf("%w: attempt_count must be positive", ErrInvalidRequest)
	}
	if r.PersonalRating != nil && (*r.PersonalRating < 0 || *r.PersonalRating > 5) {
		return fmt.Errorf("%w: personal_rating must be between 1 and 5", ErrInvalidRequest)
	}
	if r.Comments != nil && len(*r.Comments) > 2000 {
		return fmt.Errorf("%w: comments too long", ErrInvalidRequest)
	}
	return nil
}

// RescoreNeeded reports whether the update changes an input of the points calculation.
func (r *UpdateClimbRequest) RescoreNeeded(current Climb) bool {
	if r.AscentType != nil && *r.AscentType != current.AscentType {
		return true
	}
	return r.RouteID != nil && *r.RouteID != current.RouteID
}

// CivilDay truncates t to midnight UTC of its calendar date.
func CivilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts "2006-01-02" or an RFC 3339 timestamp and returns the calendar day.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrInvalidRequest, s)
	}
	return CivilDay(t), nil
}
