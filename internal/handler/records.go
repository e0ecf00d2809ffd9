package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/grade"
)

// ListLocations returns the locations visible to the caller
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.services.Locations.List(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err, "list locations")
		return
	}
	if locs == nil {
		locs = []domain.Location{}
	}
	h.writeSuccess(w, locs)
}

// CreateLocation creates a location owned by the caller
func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLocationRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	loc, err := h.services.Locations.Create(r.Context(), UserID(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err, "create location")
		return
	}
	h.writeCreated(w, loc)
}

// GetLocation returns a visible location
func (h *Handler) GetLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := h.services.Locations.Get(r.Context(), UserID(r.Context()), chi.URLParam(r, "locationID"))
	if err != nil {
		h.writeServiceError(w, r, err, "get location")
		return
	}
	h.writeSuccess(w, loc)
}

// UpdateLocation edits a location owned by the caller
func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateLocationRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	loc, err := h.services.Locations.Update(r.Context(), UserID(r.Context()), chi.URLParam(r, "locationID"), req)
	if err != nil {
		h.writeServiceError(w, r, err, "update location")
		return
	}
	h.writeSuccess(w, loc)
}

// DeleteLocation removes a location owned by the caller
func (h *Handler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Locations.Delete(r.Context(), UserID(r.Context()), chi.URLParam(r, "locationID")); err != nil {
		h.writeServiceError(w, r, err, "delete location")
		return
	}
	h.writeSuccess(w, map[string]string{"status": "deleted"})
}

// ListRoutes returns visible routes, optionally narrowed by location, grade range and search
func (h *Handler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.RouteFilter{
		LocationID:      q.Get("location_id"),
		MinGrade:        grade.Grade(strings.ToLower(q.Get("min_grade"))),
		MaxGrade:        grade.Grade(strings.ToLower(q.Get("max_grade"))),
		Search:          q.Get("search"),
		IncludeInactive: q.Get("include_inactive") == "true",
	}
	routes, err := h.services.Routes.List(r.Context(), UserID(r.Context()), filter)
	if err != nil {
		h.writeServiceError(w, r, err, "list routes")
		return
	}
	if routes == nil {
		routes = []domain.Route{}
	}
	h.writeSuccess(w, routes)
}

// CreateRoute adds a route to a location
func (h *Handler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateRouteRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	route, err := h.services.Routes.Create(r.Context(), UserID(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err, "create route")
		return
	}
	h.writeCreated(w, route)
}

// GetRoute returns a visible route
func (h *Handler) GetRoute(w http.ResponseWriter, r *http.Request) {
	route, err := h.services.Routes.Get(r.Context(), UserID(r.Context()), chi.URLParam(r, "routeID"))
	if err != nil {
		h.writeServiceError(w, r, err, "get route")
		return
	}
	h.writeSuccess(w, route)
}

// UpdateRoute edits a route
func (h *Handler) UpdateRoute(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateRouteRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	route, err := h.services.Routes.Update(r.Context(), UserID(r.Context()), chi.URLParam(r, "routeID"), req)
	if err != nil {
		h.writeServiceError(w, r, err, "update route")
		return
	}
	h.writeSuccess(w, route)
}

// DeleteRoute removes a route and its climbs
func (h *Handler) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Routes.Delete(r.Context(), UserID(r.Context()), chi.URLParam(r, "routeID")); err != nil {
		h.writeServiceError(w, r, err, "delete route")
		return
	}
	h.writeSuccess(w, map[string]string{"status": "deleted"})
}

// ListClimbs returns the caller's climbs, newest first
func (h *Handler) ListClimbs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ClimbFilter{
		RouteID:    q.Get("route_id"),
		LocationID: q.Get("location_id"),
	}
	if types := q.Get("type"); types != "" {
		for _, s := range strings.Split(types, ",") {
			t, err := domain.ParseAscentType(strings.TrimSpace(s))
			if err != nil {
				h.writeError(w, http.StatusBadRequest, err)
				return
			}
			filter.AscentTypes = append(filter.AscentTypes, t)
		}
	}
	var err error
	if filter.From, err = queryDate(r, "from"); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if filter.To, err = queryDate(r, "to"); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	climbs, err := h.services.Climbs.List(r.Context(), UserID(r.Context()), filter)
	if err != nil {
		h.writeServiceError(w, r, err, "list climbs")
		return
	}
	if climbs == nil {
		climbs = []domain.Climb{}
	}
	h.writeSuccess(w, climbs)
}

// CreateClimb logs a climb for the caller
func (h *Handler) CreateClimb(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateClimbRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	climb, err := h.services.Climbs.Create(r.Context(), UserID(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err, "create climb")
		return
	}
	h.writeCreated(w, climb)
}

// GetClimb returns a climb owned by the caller or a friend
func (h *Handler) GetClimb(w http.ResponseWriter, r *http.Request) {
	climb, err := h.services.Climbs.Get(r.Context(), UserID(r.Context()), chi.URLParam(r, "climbID"))
	if err != nil {
		h.writeServiceError(w, r, err, "get climb")
		return
	}
	h.writeSuccess(w, climb)
}

// UpdateClimb edits one of the caller's climbs
func (h *Handler) UpdateClimb(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateClimbRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	climb, err := h.services.Climbs.Update(r.Context(), UserID(r.Context()), chi.URLParam(r, "climbID"), req)
	if err != nil {
		h.writeServiceError(w, r, err, "update climb")
		return
	}
	h.writeSuccess(w, climb)
}

// DeleteClimb removes one of the caller's climbs
func (h *Handler) DeleteClimb(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Climbs.Delete(r.Context(), UserID(r.Context()), chi.URLParam(r, "climbID")); err != nil {
		h.writeServiceError(w, r, err, "delete climb")
		return
	}
	h.writeSuccess(w, map[string]string{"status": "deleted"})
}
