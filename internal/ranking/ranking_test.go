package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/grade"
)

// Wednesday
var now = time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

func climbOn(date time.Time, points int) domain.Climb {
	return domain.Climb{Date: date, Points: points, AscentType: domain.Redpoint, RouteGrade: "6a"}
}

func TestRankTiesGetDistinctPositions(t *testing.T) {
	participants := []Participant{
		{UserID: "carol", Climbs: []domain.Climb{climbOn(now, 100)}},
		{UserID: "bob", Climbs: []domain.Climb{climbOn(now, 300)}},
		{UserID: "alice", Climbs: []domain.Climb{climbOn(now, 200), climbOn(now, 100)}},
	}

	entries := Rank(participants, nil)
	require.Len(t, entries, 3)

	ranks := []int{entries[0].Rank, entries[1].Rank, entries[2].Rank}
	users := []string{entries[0].UserID, entries[1].UserID, entries[2].UserID}
	assert.Equal(t, []int{1, 2, 3}, ranks)
	assert.Equal(t, []string{"alice", "bob", "carol"}, users)
	assert.Equal(t, 2, entries[0].TotalClimbs)
}

func TestRankDropsParticipantsWithoutClimbs(t *testing.T) {
	cutoff := WindowWeekly.Cutoff(now)
	participants := []Participant{
		{UserID: "idle"},
		{UserID: "old", Climbs: []domain.Climb{climbOn(now.AddDate(0, 0, -10), 500)}},
		{UserID: "fresh", Climbs: []domain.Climb{climbOn(now, 10)}},
	}

	entries := Rank(participants, cutoff)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].UserID)
	assert.Len(t, Rank(participants, nil), 2)
	assert.Empty(t, Rank(nil, nil))
}

func TestRankHardestGradeSkipsAttempts(t *testing.T) {
	participants := []Participant{{UserID: "a", Climbs: []domain.Climb{
		{Date: now, AscentType: domain.Attempt, RouteGrade: "8a", Points: 246},
		{Date: now, AscentType: domain.Flash, RouteGrade: "6b", Points: 351},
	}}}
	entries := Rank(participants, nil)
	require.NotNil(t, entries[0].HardestGrade)
	assert.Equal(t, grade.Grade("6b"), *entries[0].HardestGrade)
}

func TestWindowCutoff(t *testing.T) {
	tests := []struct {
		name string
		w    Window
		now  time.Time
		want *time.Time
	}{
		{"all", WindowAll, now, nil},
		{"monthly", WindowMonthly, now, ptr(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))},
		{"weekly midweek", WindowWeekly, now, ptr(time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC))},
		{"weekly on sunday", WindowWeekly, time.Date(2024, 5, 19, 23, 0, 0, 0, time.UTC), ptr(time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC))},
		{"weekly on monday", WindowWeekly, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), ptr(time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.w.Cutoff(tt.now))
		})
	}
}

func TestUserRanks(t *testing.T) {
	participants := []Participant{
		{UserID: "a", Climbs: []domain.Climb{climbOn(now.AddDate(0, -2, 0), 1000)}},
		{UserID: "b", Climbs: []domain.Climb{climbOn(now.AddDate(0, 0, -5), 200)}},
		{UserID: "c", Climbs: []domain.Climb{climbOn(now, 100)}},
	}

	assert.Equal(t, Ranks{Global: 1}, UserRanks(participants, "a", now))
	assert.Equal(t, Ranks{Global: 2, Monthly: 1}, UserRanks(participants, "b", now))
	assert.Equal(t, Ranks{Global: 3, Monthly: 2, Weekly: 1}, UserRanks(participants, "c", now))
	assert.Equal(t, Ranks{}, UserRanks(participants, "nobody", now))
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("monthly")
	require.NoError(t, err)
	assert.Equal(t, WindowMonthly, w)

	_, err = ParseWindow("daily")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func ptr(t time.Time) *time.Time { return &t }
