package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/climbing-tracker/internal/ranking"
)

func newLeaderboardCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard <export.json>...",
		Short: "Rank the climbers of several export documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := ranking.ParseWindow(v.GetString("window"))
			if err != nil {
				return err
			}
			now, err := evaluationTime(v)
			if err != nil {
				return err
			}

			seen := make(map[string]string, len(args))
			participants := make([]ranking.Participant, 0, len(args))
			for _, path := range args {
				doc, err := loadDocument(path)
				if err != nil {
					return err
				}
				if prev, ok := seen[doc.User.ID]; ok {
					return fmt.Errorf("%s and %s both export user %s", prev, path, doc.User.ID)
				}
				seen[doc.User.ID] = path
				participants = append(participants, ranking.Participant{
					UserID:   doc.User.ID,
					Username: doc.User.Username,
					Climbs:   doc.History(),
				})
			}

			entries := ranking.RankWindow(participants, window, now)
			if limit := v.GetInt("limit"); limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			st := newStyles()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, st.header.Render(fmt.Sprintf("Leaderboard (%s)", window)))
			if len(entries) == 0 {
				fmt.Fprintln(out, st.dim.Render("no climbs in this window"))
				return nil
			}
			t := &table{headers: []string{"RANK", "CLIMBER", "POINTS", "CLIMBS", "HARDEST"}}
			for _, e := range entries {
				hardest := "-"
				if e.HardestGrade != nil {
					hardest = string(*e.HardestGrade)
				}
				t.add(strconv.Itoa(e.Rank), displayName(e.Username, e.UserID),
					strconv.Itoa(e.TotalPoints), strconv.Itoa(e.TotalClimbs), hardest)
			}
			t.render(out, st)
			return nil
		},
	}
	cmd.Flags().String("window", string(ranking.WindowAll), "Window to rank (all|monthly|weekly)")
	cmd.Flags().Int("limit", 0, "Show only the top N entries")
	_ = v.BindPFlag("window", cmd.Flags().Lookup("window"))
	_ = v.BindPFlag("limit", cmd.Flags().Lookup("limit"))
	return cmd
}
