package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/export"
	"github.com/climbing-tracker/internal/grade"
)

func day(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

func writeDoc(t *testing.T, dir, userID string, climbs ...export.ClimbRecord) string {
	t.Helper()
	doc := export.Document{
		Version:    export.FormatVersion,
		User:       domain.User{ID: userID, Username: userID},
		Climbs:     climbs,
		ExportedAt: day("2024-05-15"),
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, userID+".json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func climb(g grade.Grade, date string, at domain.AscentType, points int) export.ClimbRecord {
	return export.ClimbRecord{RouteName: "route " + string(g), RouteGrade: g, Date: day(date), AscentType: at, AttemptCount: 1, Points: points}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPointsCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"french grade", []string{"points", "7a", "FLASH"}, "693 points"},
		{"lower case type", []string{"points", "6a", "os"}, "260 points"},
		{"uiaa grade", []string{"points", "VIII+", "flash"}, "7a FLASH: 693 points"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}

	_, err := run(t, "points", "6d", "OS")
	assert.ErrorIs(t, err, domain.ErrInvalidGrade)

	_, err = run(t, "points", "6a", "SOLO")
	assert.ErrorIs(t, err, domain.ErrUnknownAscentType)
}

func TestGradesCommand(t *testing.T) {
	out, err := run(t, "grades")
	require.NoError(t, err)
	assert.Contains(t, out, "FRENCH")
	assert.Regexp(t, `(?m)^6a\s+VI\+\s+130$`, out)
	assert.Regexp(t, `(?m)^7a\s+VIII\+\s+385$`, out)
}

func TestStatsOverview(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "alice",
		climb("6a", "2024-05-14", domain.Redpoint, 195),
		climb("7a", "2024-05-15", domain.Flash, 693),
	)

	out, err := run(t, "stats", "overview", path, "--now", "2024-05-15")
	require.NoError(t, err)
	assert.Contains(t, out, "Overview for alice")
	assert.Regexp(t, `Points\s+888`, out)
	assert.Regexp(t, `Hardest\s+7a \(VIII\+\)`, out)
	assert.Regexp(t, `Current streak\s+2 days`, out)
}

func TestStatsKeepLoggedPointsAfterRegrade(t *testing.T) {
	dir := t.TempDir()
	// logged as a 6a redpoint, the route was regraded to 7a before the export
	path := writeDoc(t, dir, "alice", climb("7a", "2024-05-15", domain.Redpoint, 195))

	out, err := run(t, "stats", "overview", path, "--now", "2024-05-15")
	require.NoError(t, err)
	assert.Regexp(t, `Points\s+195\n`, out)

	out, err = run(t, "leaderboard", path, "--now", "2024-05-15")
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^1\s+alice\s+195\s`, out)
}

func TestLoadDocumentRejectsImpossiblePoints(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "alice", climb("6a", "2024-05-15", domain.Attempt, 624))

	_, err := loadDocument(path)
	assert.ErrorContains(t, err, "624 points out of range for TRY")

	path = writeDoc(t, dir, "bob", climb("9c", "2024-05-15", domain.OnSight, 4150))
	doc, err := loadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, 4150, doc.Climbs[0].Points)
}

func TestStatsReports(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "alice",
		climb("6a", "2024-04-02", domain.Redpoint, 0),
		climb("6a", "2024-05-14", domain.OnSight, 0),
		climb("7a", "2024-05-15", domain.Attempt, 0),
	)

	out, err := run(t, "stats", "timeline", path, "--period", "all", "--group-by", "month", "--now", "2024-05-15")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-04")
	assert.Contains(t, out, "2024-05")

	out, err = run(t, "stats", "pyramid", path)
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^6a\s+\S+\s+2\s`, out)
	assert.NotContains(t, out, "7a", "attempts stay out of the pyramid")

	out, err = run(t, "stats", "types", path)
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^RP\s+1\s+33%`, out)
	assert.Regexp(t, `(?m)^TRY\s+1\s+33%`, out)

	out, err = run(t, "stats", "progression", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2024-04-02")

	_, err = run(t, "stats", "timeline", path, "--period", "decade")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestLeaderboardCommand(t *testing.T) {
	dir := t.TempDir()
	alice := writeDoc(t, dir, "alice",
		climb("6a", "2024-05-14", domain.Redpoint, 195),
		climb("7a", "2024-05-15", domain.Flash, 693),
	)
	bob := writeDoc(t, dir, "bob", climb("7c", "2024-04-01", domain.OnSight, 1310))

	out, err := run(t, "leaderboard", alice, bob, "--now", "2024-05-15")
	require.NoError(t, err)
	assert.Contains(t, out, "Leaderboard (all)")
	assert.Regexp(t, `(?m)^1\s+bob\s`, out)
	assert.Regexp(t, `(?m)^2\s+alice\s+888\s+2\s+7a$`, out)

	t.Setenv("CLIMBCTL_WINDOW", "weekly")
	out, err = run(t, "leaderboard", alice, bob, "--now", "2024-05-15")
	require.NoError(t, err)
	assert.Contains(t, out, "Leaderboard (weekly)")
	assert.Regexp(t, `(?m)^1\s+alice\s`, out)
	assert.NotContains(t, out, "bob")

	_, err = run(t, "leaderboard", alice, alice)
	assert.ErrorContains(t, err, "both export user alice")
}

func TestLoadDocumentRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":99,"user":{"id":"alice"}}`), 0o600))

	_, err := loadDocument(path)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported export version 99"))
}
