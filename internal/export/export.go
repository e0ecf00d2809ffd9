// Package export builds a portable document of one climber's records and archives it to S3.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/grade"
	"github.com/climbing-tracker/internal/store"
)

const tracerID = "climbing-export"

// FormatVersion is bumped whenever the document layout changes
const FormatVersion = 1

// Document is everything a climber has created, keyed by names rather than ids so it
// stays readable outside the system.
type Document struct {
	Version    int              `json:"version"`
	User       domain.User      `json:"user"`
	Locations  []LocationRecord `json:"locations"`
	Routes     []RouteRecord    `json:"routes"`
	Climbs     []ClimbRecord    `json:"climbs"`
	ExportedAt time.Time        `json:"exported_at"`
}

// LocationRecord is an exported location
type LocationRecord struct {
	Name        string              `json:"name"`
	Type        domain.LocationType `json:"type"`
	Address     string              `json:"address,omitempty"`
	Country     string              `json:"country,omitempty"`
	Description string              `json:"description,omitempty"`
}

// RouteRecord is an exported route
type RouteRecord struct {
	LocationName     string      `json:"location_name"`
	Name             string      `json:"name"`
	DifficultyFrench grade.Grade `json:"difficulty_french"`
	DifficultyUIAA   string      `json:"difficulty_uiaa"`
	Setter           string      `json:"setter,omitempty"`
	Description      string      `json:"description,omitempty"`
}

// ClimbRecord is an exported climb with its route's name and grade
type ClimbRecord struct {
	RouteName      string            `json:"route_name"`
	LocationName   string            `json:"location_name"`
	RouteGrade     grade.Grade       `json:"route_grade"`
	Date           time.Time         `json:"date"`
	AscentType     domain.AscentType `json:"climb_type"`
	AttemptCount   int               `json:"attempt_count"`
	PersonalRating int               `json:"personal_rating,omitempty"`
	Comments       string            `json:"comments,omitempty"`
	Points         int               `json:"points"`
}

// History converts the exported climbs back into climbs owned by the document's user
func (d *Document) History() []domain.Climb {
	out := make([]domain.Climb, 0, len(d.Climbs))
	for _, c := range d.Climbs {
		out = append(out, domain.Climb{
			UserID:         d.User.ID,
			Date:           c.Date,
			AscentType:     c.AscentType,
			AttemptCount:   c.AttemptCount,
			PersonalRating: c.PersonalRating,
			Comments:       c.Comments,
			Points:         c.Points,
			RouteGrade:     c.RouteGrade,
		})
	}
	return out
}

// Builder assembles documents from the record store
type Builder struct {
	store  store.Store
	now    func() time.Time
	logger *slog.Logger
}

// NewBuilder creates a document builder
func NewBuilder(st store.Store, logger *slog.Logger) *Builder {
	return &Builder{store: st, now: time.Now, logger: logger}
}

// SetClock overrides the export timestamp source
func (b *Builder) SetClock(now func() time.Time) {
	b.now = now
}

// Build exports userID's locations, routes and climbs
func (b *Builder) Build(ctx context.Context, userID string) (*Document, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "Builder/Build")
	defer span.End()

	user, err := b.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	locs, err := b.store.ListLocationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	routes, err := b.store.ListRoutesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing routes: %w", err)
	}
	climbs, err := b.store.ListClimbs(ctx, userID, domain.ClimbFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing climbs: %w", err)
	}

	names := newNameCache(b.store)
	doc := &Document{
		Version:    FormatVersion,
		User:       *user,
		Locations:  make([]LocationRecord, 0, len(locs)),
		Routes:     make([]RouteRecord, 0, len(routes)),
		Climbs:     make([]ClimbRecord, 0, len(climbs)),
		ExportedAt: b.now().UTC(),
	}
	for _, l := range locs {
		names.locations[l.ID] = l.Name
		doc.Locations = append(doc.Locations, LocationRecord{
			Name: l.Name, Type: l.Type, Address: l.Address, Country: l.Country, Description: l.Description,
		})
	}
	for _, r := range routes {
		names.routes[r.ID] = r
		doc.Routes = append(doc.Routes, RouteRecord{
			LocationName:     names.location(ctx, r.LocationID),
			Name:             r.Name,
			DifficultyFrench: r.DifficultyFrench,
			DifficultyUIAA:   r.DifficultyUIAA,
			Setter:           r.Setter,
			Description:      r.Description,
		})
	}
	for _, c := range climbs {
		route := names.route(ctx, c.RouteID)
		doc.Climbs = append(doc.Climbs, ClimbRecord{
			RouteName:      route.Name,
			LocationName:   names.location(ctx, route.LocationID),
			RouteGrade:     c.RouteGrade,
			Date:           c.Date,
			AscentType:     c.AscentType,
			AttemptCount:   c.AttemptCount,
			PersonalRating: c.PersonalRating,
			Comments:       c.Comments,
			Points:         c.Points,
		})
	}

	b.logger.Info("export built",
		"user_id", userID,
		"locations", len(doc.Locations),
		"routes", len(doc.Routes),
		"climbs", len(doc.Climbs),
	)
	return doc, nil
}

// nameCache resolves routes and locations owned by other users that the climber logged on
type nameCache struct {
	store     store.Store
	routes    map[string]domain.Route
	locations map[string]string
}

func newNameCache(st store.Store) *nameCache {
	return &nameCache{store: st, routes: map[string]domain.Route{}, locations: map[string]string{}}
}

func (n *nameCache) route(ctx context.Context, id string) domain.Route {
	if r, ok := n.routes[id]; ok {
		return r
	}
	r, err := n.store.GetRoute(ctx, id)
	if err != nil {
		return domain.Route{ID: id}
	}
	n.routes[id] = *r
	return *r
}

func (n *nameCache) location(ctx context.Context, id string) string {
	if name, ok := n.locations[id]; ok {
		return name
	}
	var name string
	if l, err := n.store.GetLocation(ctx, id); err == nil {
		name = l.Name
	}
	n.locations[id] = name
	return name
}
