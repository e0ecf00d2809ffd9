// Package stats aggregates a climber's history into summaries, timelines and distributions.
// Every function is pure and takes the evaluation time explicitly.
package stats

import (
	"sort"
	"time"

	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/grade"
)

// Summary is the headline view of a climber's history.
type Summary struct {
	TotalClimbs     int          `json:"total_climbs"`
	TotalPoints     int          `json:"total_points"`
	HardestGrade    *grade.Grade `json:"hardest_grade"`
	CurrentStreak   int          `json:"current_streak"`
	BestStreak      int          `json:"best_streak"`
	ThisMonthClimbs int          `json:"this_month_climbs"`
	ThisMonthPoints int          `json:"this_month_points"`
}

// StreakResult holds consecutive-day streak counters.
type StreakResult struct {
	Current int `json:"current"`
	Best    int `json:"best"`
}

// Overview summarises climbs as of now.
func Overview(climbs []domain.Climb, now time.Time) Summary {
	var s Summary
	today := domain.CivilDay(now)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	for _, c := range climbs {
		s.TotalClimbs++
		s.TotalPoints += c.Points
		if !domain.CivilDay(c.Date).Before(monthStart) {
			s.ThisMonthClimbs++
			s.ThisMonthPoints += c.Points
		}
	}
	if g, ok := HardestGrade(climbs); ok {
		s.HardestGrade = &g
	}

	streaks := Streaks(climbs, now)
	s.CurrentStreak = streaks.Current
	s.BestStreak = streaks.Best
	return s
}

// HardestGrade returns the hardest known grade among completed climbs.
func HardestGrade(climbs []domain.Climb) (grade.Grade, bool) {
	var hardest grade.Grade
	found := false
	for _, c := range climbs {
		if !c.AscentType.Completed() || !grade.IsValid(c.RouteGrade) {
			continue
		}
		if !found || grade.Harder(c.RouteGrade, hardest) {
			hardest = c.RouteGrade
			found = true
		}
	}
	return hardest, found
}

// Streaks counts runs of consecutive calendar days with at least one climb. The current streak
// only counts when the latest climbing day is today or yesterday.
func Streaks(climbs []domain.Climb, now time.Time) StreakResult {
	days := distinctDaysDesc(climbs)
	if len(days) == 0 {
		return StreakResult{}
	}

	var res StreakResult
	run := 1
	for i := 1; i <= len(days); i++ {
		if i < len(days) && days[i].Equal(days[i-1].AddDate(0, 0, -1)) {
			run++
			continue
		}
		// run ends at days[i-1]
		if run > res.Best {
			res.Best = run
		}
		if i-run == 0 {
			today := domain.CivilDay(now)
			if days[0].Equal(today) || days[0].Equal(today.AddDate(0, 0, -1)) {
				res.Current = run
			}
		}
		run = 1
	}
	return res
}

func distinctDaysDesc(climbs []domain.Climb) []time.Time {
	seen := make(map[time.Time]struct{}, len(climbs))
	days := make([]time.Time, 0, len(climbs))
	for _, c := range climbs {
		d := domain.CivilDay(c.Date)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days
}
