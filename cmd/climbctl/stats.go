package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/climbing-tracker/internal/grade"
	"github.com/climbing-tracker/internal/stats"
)

const barWidth = 20

func newStatsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Statistics for one export document",
	}
	cmd.AddCommand(
		newOverviewCmd(v),
		newTimelineCmd(v),
		newPyramidCmd(),
		newTypesCmd(),
		newProgressionCmd(),
	)
	return cmd
}

func newOverviewCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "overview <export.json>",
		Short: "Totals, hardest grade and streaks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}
			now, err := evaluationTime(v)
			if err != nil {
				return err
			}

			s := stats.Overview(doc.History(), now)
			st := newStyles()
			hardest := "-"
			if s.HardestGrade != nil {
				hardest = fmt.Sprintf("%s (%s)", *s.HardestGrade, grade.ToUIAA(*s.HardestGrade))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, st.header.Render("Overview for "+displayName(doc.User.Username, doc.User.ID)))
			t := &table{headers: []string{"METRIC", "VALUE"}}
			t.add("Climbs", strconv.Itoa(s.TotalClimbs))
			t.add("Points", strconv.Itoa(s.TotalPoints))
			t.add("Hardest", hardest)
			t.add("Current streak", fmt.Sprintf("%d days", s.CurrentStreak))
			t.add("Best streak", fmt.Sprintf("%d days", s.BestStreak))
			t.add("This month", fmt.Sprintf("%d climbs, %d points", s.ThisMonthClimbs, s.ThisMonthPoints))
			t.render(out, st)
			return nil
		},
	}
}

func newTimelineCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timeline <export.json>",
		Short: "Climbs and points per day, week or month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := stats.ParsePeriod(v.GetString("period"))
			if err != nil {
				return err
			}
			groupBy, err := stats.ParseGroupBy(v.GetString("group-by"))
			if err != nil {
				return err
			}
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}
			now, err := evaluationTime(v)
			if err != nil {
				return err
			}

			buckets := stats.Timeline(doc.History(), period, groupBy, now)
			st := newStyles()
			out := cmd.OutOrStdout()
			if len(buckets) == 0 {
				fmt.Fprintln(out, st.dim.Render("no climbs in this period"))
				return nil
			}

			most := 0
			for _, b := range buckets {
				most = max(most, b.Points)
			}
			t := &table{headers: []string{string(groupBy), "CLIMBS", "POINTS", ""}}
			for _, b := range buckets {
				t.add(b.Key, strconv.Itoa(b.Climbs), strconv.Itoa(b.Points), bar(b.Points, most, barWidth, st))
			}
			t.render(out, st)
			return nil
		},
	}
	cmd.Flags().String("period", "year", "Period to cover (week|month|year|all)")
	cmd.Flags().String("group-by", "month", "Bucket size (day|week|month)")
	_ = v.BindPFlag("period", cmd.Flags().Lookup("period"))
	_ = v.BindPFlag("group-by", cmd.Flags().Lookup("group-by"))
	return cmd
}

func newPyramidCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pyramid <export.json>",
		Short: "Completed climbs per grade, hardest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}

			pyramid := stats.Pyramid(doc.History())
			st := newStyles()
			out := cmd.OutOrStdout()
			if len(pyramid) == 0 {
				fmt.Fprintln(out, st.dim.Render("no completed climbs"))
				return nil
			}

			most := 0
			for _, g := range pyramid {
				most = max(most, g.Climbs)
			}
			t := &table{headers: []string{"GRADE", "UIAA", "CLIMBS", ""}}
			for _, g := range pyramid {
				t.add(string(g.Grade), grade.ToUIAA(g.Grade), strconv.Itoa(g.Climbs), bar(g.Climbs, most, barWidth, st))
			}
			t.render(out, st)
			return nil
		},
	}
}

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types <export.json>",
		Short: "Share of each ascent type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}

			st := newStyles()
			t := &table{headers: []string{"TYPE", "COUNT", "SHARE", ""}}
			for _, s := range stats.AscentTypes(doc.History()) {
				t.add(s.AscentType.String(), strconv.Itoa(s.Count), fmt.Sprintf("%d%%", s.Percentage),
					bar(s.Percentage, 100, barWidth, st))
			}
			t.render(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func newProgressionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progression <export.json>",
		Short: "Running hardest grade per climbing day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}

			st := newStyles()
			t := &table{headers: []string{"DATE", "HARDEST", "UIAA"}}
			for _, p := range stats.Progression(doc.History()) {
				t.add(p.Date.Format("2006-01-02"), string(p.Hardest), grade.ToUIAA(p.Hardest))
			}
			t.render(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func displayName(username, id string) string {
	if username != "" {
		return username
	}
	return id
}
