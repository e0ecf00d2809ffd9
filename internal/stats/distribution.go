package stats

import (
	"sort"
	"time"

	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/grade"
)

// GradeCount aggregates completed climbs at one grade.
type GradeCount struct {
	Grade  grade.Grade `json:"grade"`
	Climbs int         `json:"climbs"`
	Points int         `json:"points"`
}

// Distribution groups completed climbs by route grade, easiest first. Attempts and unknown
// grades are left out.
func Distribution(climbs []domain.Climb) []GradeCount {
	scale := grade.Scale()
	counts := make([]GradeCount, len(scale))
	for _, c := range climbs {
		if !c.AscentType.Completed() {
			continue
		}
		i := grade.IndexOf(c.RouteGrade)
		if i < 0 {
			continue
		}
		counts[i].Climbs++
		counts[i].Points += c.Points
	}

	out := make([]GradeCount, 0, len(scale))
	for i, gc := range counts {
		if gc.Climbs == 0 {
			continue
		}
		gc.Grade = scale[i]
		out = append(out, gc)
	}
	return out
}

// Pyramid is Distribution ordered hardest first.
func Pyramid(climbs []domain.Climb) []GradeCount {
	out := Distribution(climbs)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// TypeShare is the number and rounded share of climbs in one ascent style.
type TypeShare struct {
	AscentType domain.AscentType `json:"climb_type"`
	Count      int               `json:"count"`
	Percentage int               `json:"percentage"`
}

// AscentTypes groups every climb, attempts included, by style in declaration order.
func AscentTypes(climbs []domain.Climb) []TypeShare {
	if len(climbs) == 0 {
		return []TypeShare{}
	}
	counts := make(map[domain.AscentType]int, len(domain.AscentTypes))
	for _, c := range climbs {
		counts[c.AscentType]++
	}

	total := len(climbs)
	out := make([]TypeShare, 0, len(counts))
	for _, t := range domain.AscentTypes {
		n := counts[t]
		if n == 0 {
			continue
		}
		out = append(out, TypeShare{
			AscentType: t,
			Count:      n,
			Percentage: (n*200 + total) / (2 * total),
		})
	}
	return out
}

// ProgressPoint is the hardest grade climbed up to and including Date.
type ProgressPoint struct {
	Date    time.Time   `json:"date"`
	Hardest grade.Grade `json:"hardest_grade"`
}

// Progression walks completed climbs oldest first and emits the running hardest grade once per
// climbing day.
func Progression(climbs []domain.Climb) []ProgressPoint {
	completed := make([]domain.Climb, 0, len(climbs))
	for _, c := range climbs {
		if c.AscentType.Completed() && grade.IsValid(c.RouteGrade) {
			completed = append(completed, c)
		}
	}
	sort.SliceStable(completed, func(i, j int) bool {
		return domain.CivilDay(completed[i].Date).Before(domain.CivilDay(completed[j].Date))
	})

	out := make([]ProgressPoint, 0)
	var hardest grade.Grade
	for i, c := range completed {
		if i == 0 || grade.Harder(c.RouteGrade, hardest) {
			hardest = c.RouteGrade
		}
		day := domain.CivilDay(c.Date)
		if n := len(out); n > 0 && out[n-1].Date.Equal(day) {
			out[n-1].Hardest = hardest
			continue
		}
		out = append(out, ProgressPoint{Date: day, Hardest: hardest})
	}
	return out
}
