// Package scoring turns a route grade and an ascent style into points.
package scoring

import (
	"fmt"

	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/grade"
)

// basePoints must never change: stored climb points were computed from it.
var basePoints = map[grade.Grade]int{
	"4": 10, "4+": 15,
	"5a": 25, "5a+": 35, "5b": 50, "5b+": 65, "5c": 85, "5c+": 105,
	"6a": 130, "6a+": 160, "6b": 195, "6b+": 235, "6c": 280, "6c+": 330,
	"7a": 385, "7a+": 445, "7b": 510, "7b+": 580, "7c": 655, "7c+": 735,
	"8a": 820, "8a+": 910, "8b": 1005, "8b+": 1105, "8c": 1210, "8c+": 1320,
	"9a": 1435, "9a+": 1555, "9b": 1680, "9b+": 1810, "9c": 2075,
}

// BasePoints returns the points for topping a grade before the style multiplier.
// Unknown grades are worth nothing.
func BasePoints(g grade.Grade) int {
	return basePoints[g]
}

// multiplierTenths returns the style multiplier in tenths so that scoring stays in integers.
func multiplierTenths(t domain.AscentType) (int, error) {
	switch t {
	case domain.OnSight:
		return 20, nil
	case domain.Flash:
		return 18, nil
	case domain.Redpoint:
		return 15, nil
	case domain.Pinkpoint:
		return 13, nil
	case domain.TopRope:
		return 10, nil
	case domain.AutoBelay:
		return 8, nil
	case domain.Attempt:
		return 3, nil
	default:
		return 0, fmt.Errorf("%w: %d", domain.ErrUnknownAscentType, int(t))
	}
}

// Multiplier returns the style multiplier for t.
func Multiplier(t domain.AscentType) (float64, error) {
	m, err := multiplierTenths(t)
	if err != nil {
		return 0, err
	}
	return float64(m) / 10, nil
}

// ComputePoints returns round-half-up(BasePoints(g) * Multiplier(t)).
func ComputePoints(g grade.Grade, t domain.AscentType) (int, error) {
	m, err := multiplierTenths(t)
	if err != nil {
		return 0, err
	}
	return (BasePoints(g)*m + 5) / 10, nil
}

// MaxPoints returns the most any single climb of type t can earn, which is the hardest grade
// on the scale climbed in that style.
func MaxPoints(t domain.AscentType) (int, error) {
	scale := grade.Scale()
	return ComputePoints(scale[len(scale)-1], t)
}

// GradeInfo describes one step of the scale for reference listings.
type GradeInfo struct {
	French     grade.Grade `json:"french"`
	UIAA       string      `json:"uiaa"`
	BasePoints int         `json:"base_points"`
}

// Table returns the whole scale, easiest first, with UIAA equivalents and base points.
func Table() []GradeInfo {
	scale := grade.Scale()
	out := make([]GradeInfo, 0, len(scale))
	for _, g := range scale {
		out = append(out, GradeInfo{French: g, UIAA: grade.ToUIAA(g), BasePoints: basePoints[g]})
	}
	return out
}
