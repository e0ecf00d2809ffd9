// Package ranking builds leaderboards from every participant's climb history. Leaderboards are
// global and ignore per-record visibility.
package ranking

import (
	"fmt"
	"sort"
	"time"

	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/grade"
	"github.com/climbing-tracker/internal/stats"
)

// Participant is a user together with their full climb history.
type Participant struct {
	UserID   string
	Username string
	Climbs   []domain.Climb
}

// Entry is one row of a leaderboard.
type Entry struct {
	Rank         int          `json:"rank"`
	UserID       string       `json:"user_id"`
	Username     string       `json:"username,omitempty"`
	TotalPoints  int          `json:"total_points"`
	TotalClimbs  int          `json:"total_climbs"`
	HardestGrade *grade.Grade `json:"hardest_grade"`
}

// Rank totals each participant's climbs dated on or after cutoff (all climbs when cutoff is nil),
// drops participants without climbs, and orders by points descending then user id ascending.
// Ranks are 1-based positions, so tied totals still get distinct ranks.
func Rank(participants []Participant, cutoff *time.Time) []Entry {
	entries := make([]Entry, 0, len(participants))
	for _, p := range participants {
		var window []domain.Climb
		for _, c := range p.Climbs {
			if cutoff != nil && domain.CivilDay(c.Date).Before(*cutoff) {
				continue
			}
			window = append(window, c)
		}
		if len(window) == 0 {
			continue
		}

		e := Entry{UserID: p.UserID, Username: p.Username, TotalClimbs: len(window)}
		for _, c := range window {
			e.TotalPoints += c.Points
		}
		if g, ok := stats.HardestGrade(window); ok {
			e.HardestGrade = &g
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Window selects the date range a leaderboard covers.
type Window string

const (
	WindowAll     Window = "all"
	WindowMonthly Window = "monthly"
	WindowWeekly  Window = "weekly"
)

// Windows lists every leaderboard window.
var Windows = []Window{WindowAll, WindowMonthly, WindowWeekly}

// ParseWindow validates a window name.
func ParseWindow(s string) (Window, error) {
	for _, w := range Windows {
		if string(w) == s {
			return w, nil
		}
	}
	return "", fmt.Errorf("%w: unknown leaderboard window %q", domain.ErrInvalidRequest, s)
}

// Cutoff returns the first day of the window containing now: the first of the month for
// monthly, Monday of the ISO week for weekly, and nil for all-time.
func (w Window) Cutoff(now time.Time) *time.Time {
	today := domain.CivilDay(now)
	var c time.Time
	switch w {
	case WindowMonthly:
		c = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	case WindowWeekly:
		offset := (int(today.Weekday()) + 6) % 7
		c = today.AddDate(0, 0, -offset)
	default:
		return nil
	}
	return &c
}

// RankWindow ranks participants for one window as of now.
func RankWindow(participants []Participant, w Window, now time.Time) []Entry {
	return Rank(participants, w.Cutoff(now))
}

// Ranks is a user's position in each window; 0 means absent.
type Ranks struct {
	Global  int `json:"global"`
	Monthly int `json:"monthly"`
	Weekly  int `json:"weekly"`
}

// Set records the rank for a window.
func (r *Ranks) Set(w Window, rank int) {
	switch w {
	case WindowAll:
		r.Global = rank
	case WindowMonthly:
		r.Monthly = rank
	case WindowWeekly:
		r.Weekly = rank
	}
}

// UserRanks recomputes all three windows and looks up userID in each.
func UserRanks(participants []Participant, userID string, now time.Time) Ranks {
	var r Ranks
	for _, w := range Windows {
		r.Set(w, FindRank(RankWindow(participants, w, now), userID))
	}
	return r
}

// FindRank returns the rank of userID in entries, or 0.
func FindRank(entries []Entry, userID string) int {
	for _, e := range entries {
		if e.UserID == userID {
			return e.Rank
		}
	}
	return 0
}
