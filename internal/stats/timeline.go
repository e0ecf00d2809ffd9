package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/climbing-tracker/internal/domain"
)

// Period is the lookback window of a timeline.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// GroupBy is the bucket size of a timeline.
type GroupBy string

const (
	GroupByDay   GroupBy = "day"
	GroupByWeek  GroupBy = "week"
	GroupByMonth GroupBy = "month"
)

// ParsePeriod validates a period name. Empty means year.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return PeriodYear, nil
	case PeriodWeek, PeriodMonth, PeriodYear, PeriodAll:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown period %q", domain.ErrInvalidRequest, s)
	}
}

// ParseGroupBy validates a grouping name. Empty means month.
func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(s); g {
	case "":
		return GroupByMonth, nil
	case GroupByDay, GroupByWeek, GroupByMonth:
		return g, nil
	default:
		return "", fmt.Errorf("%w: unknown grouping %q", domain.ErrInvalidRequest, s)
	}
}

// Since returns the first day inside the period, or the zero time for PeriodAll. The day
// exactly one week, month or year before today is outside the period.
func (p Period) Since(now time.Time) time.Time {
	today := domain.CivilDay(now)
	switch p {
	case PeriodWeek:
		return today.AddDate(0, 0, -6)
	case PeriodMonth:
		return today.AddDate(0, -1, 1)
	case PeriodYear:
		return today.AddDate(-1, 0, 1)
	default:
		return time.Time{}
	}
}

// Bucket is one non-empty slot of a timeline.
type Bucket struct {
	Key    string `json:"key"`
	Climbs int    `json:"climbs"`
	Points int    `json:"points"`
}

// BucketKey formats the bucket a day falls into: 2006-01-02, ISO 2006-W01 or 2006-01.
func (g GroupBy) BucketKey(day time.Time) string {
	switch g {
	case GroupByWeek:
		y, w := day.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case GroupByMonth:
		return day.Format("2006-01")
	default:
		return day.Format(time.DateOnly)
	}
}

// Timeline sums climbs and points per bucket within the period. Empty buckets are omitted and
// keys sort ascending.
func Timeline(climbs []domain.Climb, period Period, groupBy GroupBy, now time.Time) []Bucket {
	since := period.Since(now)
	byKey := make(map[string]*Bucket)
	for _, c := range climbs {
		day := domain.CivilDay(c.Date)
		if day.Before(since) {
			continue
		}
		key := groupBy.BucketKey(day)
		b, ok := byKey[key]
		if !ok {
			b = &Bucket{Key: key}
			byKey[key] = b
		}
		b.Climbs++
		b.Points += c.Points
	}

	out := make([]Bucket, 0, len(byKey))
	for _, b := range byKey {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
