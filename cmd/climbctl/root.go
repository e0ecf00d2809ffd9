package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/export"
	"github.com/climbing-tracker/internal/scoring"
)

// newRootCmd builds the command tree with its own viper instance so flags and
// CLIMBCTL_* variables never leak between invocations.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CLIMBCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "climbctl",
		Short: "Climbing tracker reports",
		Long: `climbctl reads the JSON documents produced by GET /api/v1/export and prints
statistics, leaderboards and grade references offline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("now", "", "Evaluation date (YYYY-MM-DD), defaults to today")
	_ = v.BindPFlag("now", root.PersistentFlags().Lookup("now"))

	root.AddCommand(
		newStatsCmd(v),
		newLeaderboardCmd(v),
		newGradesCmd(),
		newPointsCmd(),
	)
	return root
}

// evaluationTime returns --now or CLIMBCTL_NOW, falling back to the current time
func evaluationTime(v *viper.Viper) (time.Time, error) {
	s := v.GetString("now")
	if s == "" {
		return time.Now().UTC(), nil
	}
	t, err := domain.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now: %w", err)
	}
	return t, nil
}

// loadDocument reads an export document. Climbs keep the points frozen when they were logged,
// since the exported route grade may have changed since. Points no climb of that ascent type
// could earn are rejected.
func loadDocument(path string) (*export.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc export.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if doc.Version != export.FormatVersion {
		return nil, fmt.Errorf("%s: unsupported export version %d", path, doc.Version)
	}
	if doc.User.ID == "" {
		return nil, fmt.Errorf("%s: export has no user", path)
	}
	for i, c := range doc.Climbs {
		limit, err := scoring.MaxPoints(c.AscentType)
		if err != nil {
			return nil, fmt.Errorf("%s: climb %d: %w", path, i+1, err)
		}
		if c.Points < 0 || c.Points > limit {
			return nil, fmt.Errorf("%s: climb %d: %d points out of range for %s", path, i+1, c.Points, c.AscentType)
		}
	}
	return &doc, nil
}
