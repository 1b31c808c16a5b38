package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"skillforge/catalog"
	"skillforge/engine"
	"skillforge/format"
)

func newLevelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "Print the level ladder and level-up rewards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "LEVEL\tTITLE\tXP RANGE\tCOINS\tCLUB COINS")
			for _, l := range catalog.Levels() {
				upper := humanize.Comma(l.MaxXP)
				if l.Top() {
					upper = "∞"
				}
				fmt.Fprintf(w, "%d\t%s\t%s - %s\t%d\t%d\n",
					l.Level, l.Title, humanize.Comma(l.MinXP), upper,
					l.Rewards.PersonalCurrency, l.Rewards.ClubCurrency)
			}
			return w.Flush()
		},
	}
}

func newAchievementsCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:     "achievements",
		Aliases: []string{"ach"},
		Short:   "List achievement definitions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tREQUIRES\tXP\tBADGE")
			for _, a := range catalog.Achievements() {
				if kind != "" && string(a.Type) != kind {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s x%d\t%d\t%s\n",
					a.ID, a.Name, a.Type, a.Criteria.Action, a.Criteria.Count, a.Rewards.XP, a.Rewards.Badge)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&kind, "type", "", "only show achievements of this type")
	return cmd
}

func newActionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List recordable actions with XP, daily caps and currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ACTION\tXP\tDAILY CAP\tCOINS\tCLUB COINS")
			for _, a := range catalog.Actions() {
				limit := "-"
				if a.Capped() {
					limit = strconv.FormatInt(a.MaxPerDay, 10)
				}
				reward, _ := catalog.LookupCurrency(string(a.Action))
				fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\n", a.Action, a.BaseXP, limit, reward.Personal, reward.Club)
			}
			return w.Flush()
		},
	}
}

func newProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress <xp>",
		Short: "Show the level and progress for an XP total",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			xp, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || xp < 0 {
				return fmt.Errorf("xp must be a non-negative integer, got %q", args[0])
			}
			p := engine.ProgressOf("", xp)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: level %d, %s\n", format.XP(p.XP), p.Level, p.Title)
			if p.MaxLevel {
				fmt.Fprintln(out, "max level reached")
				return nil
			}
			fmt.Fprintf(out, "%s of the way to level %d, %s to go\n", format.Percent(p.Percent), p.Level+1, format.XP(p.XPToNextLevel))
			return nil
		},
	}
}
