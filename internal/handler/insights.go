package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/grade"
	"github.com/climbing-tracker/internal/ranking"
	"github.com/climbing-tracker/internal/scoring"
	"github.com/climbing-tracker/internal/stats"
)

// ListGrades returns the French scale with UIAA equivalents and base points
func (h *Handler) ListGrades(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, scoring.Table())
}

// PointsQuote is the score a grade and ascent type would earn
type PointsQuote struct {
	Grade      grade.Grade       `json:"grade"`
	AscentType domain.AscentType `json:"climb_type"`
	BasePoints int               `json:"base_points"`
	Multiplier float64           `json:"multiplier"`
	Points     int               `json:"points"`
}

// ComputePoints quotes the points for ?grade=&type=
func (h *Handler) ComputePoints(w http.ResponseWriter, r *http.Request) {
	g, ok := grade.Parse(r.URL.Query().Get("grade"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidGrade)
		return
	}
	t, err := domain.ParseAscentType(strings.ToUpper(r.URL.Query().Get("type")))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	m, err := scoring.Multiplier(t)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	points, err := scoring.ComputePoints(g, t)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	h.writeSuccess(w, PointsQuote{Grade: g, AscentType: t, BasePoints: scoring.BasePoints(g), Multiplier: m, Points: points})
}

// GetOverview returns the stats summary for the caller or ?user_id=
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.services.Stats.Overview(r.Context(), UserID(r.Context()), r.URL.Query().Get("user_id"))
	if err != nil {
		h.writeServiceError(w, r, err, "get overview")
		return
	}
	h.writeSuccess(w, ov)
}

// GetTimeline returns climbs and points per bucket; ?period=week|month|year|all&group_by=day|week|month
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := stats.ParsePeriod(q.Get("period"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	groupBy, err := stats.ParseGroupBy(q.Get("group_by"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	buckets, err := h.services.Stats.Timeline(r.Context(), UserID(r.Context()), q.Get("user_id"), period, groupBy)
	if err != nil {
		h.writeServiceError(w, r, err, "get timeline")
		return
	}
	h.writeSuccess(w, buckets)
}

// GetDistribution returns completed climbs per grade, easiest first
func (h *Handler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	dist, err := h.services.Stats.Distribution(r.Context(), UserID(r.Context()), r.URL.Query().Get("user_id"))
	if err != nil {
		h.writeServiceError(w, r, err, "get distribution")
		return
	}
	h.writeSuccess(w, dist)
}

// GetPyramid returns completed climbs per grade, hardest first
func (h *Handler) GetPyramid(w http.ResponseWriter, r *http.Request) {
	pyramid, err := h.services.Stats.Pyramid(r.Context(), UserID(r.Context()), r.URL.Query().Get("user_id"))
	if err != nil {
		h.writeServiceError(w, r, err, "get pyramid")
		return
	}
	h.writeSuccess(w, pyramid)
}

// GetAscentTypes returns the share of each ascent type
func (h *Handler) GetAscentTypes(w http.ResponseWriter, r *http.Request) {
	shares, err := h.services.Stats.AscentTypes(r.Context(), UserID(r.Context()), r.URL.Query().Get("user_id"))
	if err != nil {
		h.writeServiceError(w, r, err, "get ascent types")
		return
	}
	h.writeSuccess(w, shares)
}

// GetProgression returns the running hardest grade per climbing day
func (h *Handler) GetProgression(w http.ResponseWriter, r *http.Request) {
	points, err := h.services.Stats.Progression(r.Context(), UserID(r.Context()), r.URL.Query().Get("user_id"))
	if err != nil {
		h.writeServiceError(w, r, err, "get progression")
		return
	}
	h.writeSuccess(w, points)
}

// GetLeaderboard returns one page of a window; ?limit=&offset=
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	window, err := ranking.ParseWindow(chi.URLParam(r, "window"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	page, err := h.services.Leaderboard.GetLeaderboard(r.Context(), window, limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err, "get leaderboard")
		return
	}
	h.writeSuccess(w, page)
}

// GetUserRanks returns a user's rank in every window
func (h *Handler) GetUserRanks(w http.ResponseWriter, r *http.Request) {
	ranks, err := h.services.Leaderboard.GetUserRanks(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeServiceError(w, r, err, "get user ranks")
		return
	}
	h.writeSuccess(w, ranks)
}

// ListFriends returns the caller's accepted friends
func (h *Handler) ListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.services.Friendships.ListFriends(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err, "list friends")
		return
	}
	h.writeSuccess(w, friends)
}

// ListFriendRequests returns pending requests in both directions
func (h *Handler) ListFriendRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.services.Friendships.ListRequests(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err, "list friend requests")
		return
	}
	h.writeSuccess(w, reqs)
}

// SendFriendRequest asks another user to become friends
func (h *Handler) SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req domain.SendFriendRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	f, err := h.services.Friendships.Send(r.Context(), UserID(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err, "send friend request")
		return
	}
	h.writeCreated(w, f)
}

// RespondFriendRequest accepts or rejects a pending request
func (h *Handler) RespondFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req domain.RespondFriendRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	f, err := h.services.Friendships.Respond(r.Context(), UserID(r.Context()), chi.URLParam(r, "friendshipID"), req)
	if err != nil {
		h.writeServiceError(w, r, err, "respond to friend request")
		return
	}
	h.writeSuccess(w, f)
}

// RemoveFriend deletes a friendship or withdraws a request
func (h *Handler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Friendships.Remove(r.Context(), UserID(r.Context()), chi.URLParam(r, "friendshipID")); err != nil {
		h.writeServiceError(w, r, err, "remove friend")
		return
	}
	h.writeSuccess(w, map[string]string{"status": "removed"})
}
