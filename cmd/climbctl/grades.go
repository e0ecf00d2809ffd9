package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/grade"
	"github.com/climbing-tracker/internal/scoring"
)

func newGradesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grades",
		Short: "French grades with UIAA equivalents and base points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := newStyles()
			t := &table{headers: []string{"FRENCH", "UIAA", "BASE POINTS"}}
			for _, g := range scoring.Table() {
				t.add(string(g.French), g.UIAA, strconv.Itoa(g.BasePoints))
			}
			t.render(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func newPointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "points <grade> <type>",
		Short:   "Points for an ascent of a grade",
		Example: "  climbctl points 7a RP\n  climbctl points VIII+ flash",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, ok := grade.Parse(args[0])
			if !ok {
				// accept UIAA input too
				g = grade.ToFrench(strings.ToUpper(strings.TrimSpace(args[0])))
				if !grade.IsValid(g) {
					return fmt.Errorf("%w: %q", domain.ErrInvalidGrade, args[0])
				}
			}
			t, err := domain.ParseAscentType(strings.ToUpper(args[1]))
			if err != nil {
				return err
			}
			points, err := scoring.ComputePoints(g, t)
			if err != nil {
				return err
			}
			m, _ := scoring.Multiplier(t)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d points (%d base x %.1f)\n",
				g, t, points, scoring.BasePoints(g), m)
			return nil
		},
	}
}
