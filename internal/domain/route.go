package domain

import (
	"strings"
	"time"

	"github.com/climbing-tracker/internal/grade"
)

// LocationType distinguishes indoor gyms from outdoor crags
type LocationType string

const (
	LocationTypeGym  LocationType = "GYM"
	LocationTypeCrag LocationType = "CRAG"
)

// Location is a gym or crag that owns routes
type Location struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Name        string       `json:"name"`
	Type        LocationType `json:"type"`
	Address     string       `json:"address,omitempty"`
	Country     string       `json:"country,omitempty"`
	Description string       `json:"description,omitempty"`
	IsPublic    bool         `json:"is_public"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (l Location) OwnerID() string { return l.UserID }
func (l Location) Public() bool    { return l.IsPublic }

// CreateLocationRequest represents a request to create a location
type CreateLocationRequest struct {
	Name        string       `json:"name"`
	Type        LocationType `json:"type"`
	Address     string       `json:"address,omitempty"`
	Country     string       `json:"country,omitempty"`
	Description string       `json:"description,omitempty"`
	IsPublic    bool         `json:"is_public"`
}

// Validate checks the request
func (r *CreateLocationRequest) Validate() error {
	if r.Name == "" || len(r.Name) > 200 {
		return ErrInvalidRequest
	}
	if r.Type != LocationTypeGym && r.Type != LocationTypeCrag {
		return ErrInvalidRequest
	}
	return nil
}

// UpdateLocationRequest represents a partial location update
type UpdateLocationRequest struct {
	Name        *string       `json:"name,omitempty"`
	Type        *LocationType `json:"type,omitempty"`
	Address     *string       `json:"address,omitempty"`
	Country     *string       `json:"country,omitempty"`
	Description *string       `json:"description,omitempty"`
	IsPublic    *bool         `json:"is_public,omitempty"`
}

// Validate checks the supplied fields
func (r *UpdateLocationRequest) Validate() error {
	if r.Name != nil && (*r.Name == "" || len(*r.Name) > 200) {
		return ErrInvalidRequest
	}
	if r.Type != nil && *r.Type != LocationTypeGym && *r.Type != LocationTypeCrag {
		return ErrInvalidRequest
	}
	return nil
}

// Apply copies the supplied fields onto loc
func (r *UpdateLocationRequest) Apply(loc *Location) {
	if r.Name != nil {
		loc.Name = *r.Name
	}
	if r.Type != nil {
		loc.Type = *r.Type
	}
	if r.Address != nil {
		loc.Address = *r.Address
	}
	if r.Country != nil {
		loc.Country = *r.Country
	}
	if r.Description != nil {
		loc.Description = *r.Description
	}
	if r.IsPublic != nil {
		loc.IsPublic = *r.IsPublic
	}
}

// Route is a single line at a location. Its visibility is independent of the location's.
type Route struct {
	ID               string      `json:"id"`
	UserID           string      `json:"user_id"`
	LocationID       string      `json:"location_id"`
	Name             string      `json:"name"`
	DifficultyFrench grade.Grade `json:"difficulty_french"`
	DifficultyUIAA   string      `json:"difficulty_uiaa"`
	Setter           string      `json:"setter,omitempty"`
	Description      string      `json:"description,omitempty"`
	IsPublic         bool        `json:"is_public"`
	IsActive         bool        `json:"is_active"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

func (r Route) OwnerID() string { return r.UserID }
func (r Route) Public() bool    { return r.IsPublic }

// RouteFilter narrows a route listing. Grade bounds are inclusive and compared by scale position.
type RouteFilter struct {
	LocationID      string
	MinGrade        grade.Grade
	MaxGrade        grade.Grade
	Search          string
	IncludeInactive bool
}

// Validate rejects unknown grade bounds
func (f RouteFilter) Validate() error {
	if f.MinGrade != "" && !grade.IsValid(f.MinGrade) {
		return ErrInvalidGrade
	}
	if f.MaxGrade != "" && !grade.IsValid(f.MaxGrade) {
		return ErrInvalidGrade
	}
	return nil
}

// Matches applies the grade bounds and the case-insensitive search over name and setter.
func (f RouteFilter) Matches(r Route) bool {
	idx := grade.IndexOf(r.DifficultyFrench)
	if f.MinGrade != "" && idx < grade.IndexOf(f.MinGrade) {
		return false
	}
	if f.MaxGrade != "" && idx > grade.IndexOf(f.MaxGrade) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.Name), q) && !strings.Contains(strings.ToLower(r.Setter), q) {
			return false
		}
	}
	return true
}

// CreateRouteRequest represents a request to add a route to a location
type CreateRouteRequest struct {
	LocationID       string      `json:"location_id"`
	Name             string      `json:"name"`
	DifficultyFrench grade.Grade `json:"difficulty_french"`
	DifficultyUIAA   string      `json:"difficulty_uiaa,omitempty"`
	Setter           string      `json:"setter,omitempty"`
	Description      string      `json:"description,omitempty"`
	IsPublic         bool        `json:"is_public"`
}

// Validate checks the request and derives the UIAA grade when it is missing.
func (r *CreateRouteRequest) Validate() error {
	if r.LocationID == "" || r.Name == "" || len(r.Name) > 200 {
		return ErrInvalidRequest
	}
	if !grade.IsValid(r.DifficultyFrench) {
		return ErrInvalidGrade
	}
	if r.DifficultyUIAA == "" {
		r.DifficultyUIAA = grade.ToUIAA(r.DifficultyFrench)
	}
	return nil
}

// UpdateRouteRequest represents a partial route update. Nil fields are left unchanged.
type UpdateRouteRequest struct {
	Name             *string      `json:"name,omitempty"`
	DifficultyFrench *grade.Grade `json:"difficulty_french,omitempty"`
	DifficultyUIAA   *string      `json:"difficulty_uiaa,omitempty"`
	Setter           *string      `json:"setter,omitempty"`
	Description      *string      `json:"description,omitempty"`
	IsPublic         *bool        `json:"is_public,omitempty"`
	IsActive         *bool        `json:"is_active,omitempty"`
}

// Validate checks the supplied fields
func (r *UpdateRouteRequest) Validate() error {
	if r.Name != nil && (*r.Name == "" || len(*r.Name) > 200) {
		return ErrInvalidRequest
	}
	if r.DifficultyFrench != nil && !grade.IsValid(*r.DifficultyFrench) {
		return ErrInvalidGrade
	}
	return nil
}

// Apply copies the supplied fields onto route. A new French grade without an explicit
// UIAA grade re-derives the UIAA grade.
func (r *UpdateRouteRequest) Apply(route *Route) {
	if r.Name != nil {
		route.Name = *r.Name
	}
	if r.DifficultyFrench != nil {
		route.DifficultyFrench = *r.DifficultyFrench
		if r.DifficultyUIAA == nil {
			route.DifficultyUIAA = grade.ToUIAA(*r.DifficultyFrench)
		}
	}
	if r.DifficultyUIAA != nil {
		route.DifficultyUIAA = *r.DifficultyUIAA
	}
	if r.Setter != nil {
		route.Setter = *r.Setter
	}
	if r.Description != nil {
		route.Description = *r.Description
	}
	if r.IsPublic != nil {
		route.IsPublic = *r.IsPublic
	}
	if r.IsActive != nil {
		route.IsActive = *r.IsActive
	}
}
