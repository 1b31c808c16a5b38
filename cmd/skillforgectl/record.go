package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"skillforge/core"
	"skillforge/engine"
	"skillforge/format"
)

func newRecordCmd(flags *rootFlags) *cobra.Command {
	var times int
	cmd := &cobra.Command{
		Use:   "record <user> <action>",
		Short: "Record an action for a user against the configured store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if times < 1 {
				return fmt.Errorf("--times must be at least 1")
			}
			svc, closeFn, err := flags.openService(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer closeFn()

			for i := 0; i < times; i++ {
				out, err := svc.RecordAction(cmd.Context(), core.UserID(args[0]), args[1])
				if err != nil {
					return err
				}
				if !out.Known {
					return fmt.Errorf("unknown action %q", args[1])
				}
				printOutcome(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&times, "times", "n", 1, "record the action this many times")
	return cmd
}

func newLoginCmd(flags *rootFlags) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "login <user>",
		Short: "Record a daily login for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when := time.Now()
			if at != "" {
				parsed, err := time.Parse(time.DateOnly, at)
				if err != nil {
					return fmt.Errorf("--at must be YYYY-MM-DD: %w", err)
				}
				when = parsed
			}
			svc, closeFn, err := flags.openService(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer closeFn()

			out, err := svc.RecordDailyLogin(cmd.Context(), core.UserID(args[0]), when)
			if err != nil {
				return err
			}
			if out.Duplicate {
				fmt.Fprintln(cmd.OutOrStdout(), "already logged in on or after that day")
				return nil
			}
			printOutcome(cmd.OutOrStdout(), out)
			fmt.Fprintf(cmd.OutOrStdout(), "streak: %d days (longest %d)\n", out.Record.Counters.StreakDays, out.Record.Counters.LongestStreak)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "login date (YYYY-MM-DD, UTC); defaults to today")
	return cmd
}

func newShowCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user>",
		Short: "Show a user's progress, balances and achievements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := flags.openService(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer closeFn()

			rec, err := svc.State(cmd.Context(), core.UserID(args[0]))
			if err != nil {
				return err
			}
			c := rec.Counters
			p := engine.ProgressOf(rec.UserID, c.ExperiencePoints)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: level %d %s, %s (%s to next)\n", rec.UserID, p.Level, p.Title, format.XP(p.XP), format.XP(p.XPToNextLevel))
			fmt.Fprintf(out, "balance: %s, %s\n", format.Currency(c.TotalPersonalCurrency, "coins"), format.Currency(c.TotalClubCurrency, "club coins"))
			fmt.Fprintf(out, "achievements: %d, badges: %d, streak: %d\n", len(rec.Achievements), len(rec.Badges), c.StreakDays)
			return nil
		},
	}
}

func printOutcome(w io.Writer, out engine.Outcome) {
	fmt.Fprintf(w, "+%d xp", out.XP)
	if out.CappedXP > 0 {
		fmt.Fprintf(w, " (%d over daily cap)", out.CappedXP)
	}
	fmt.Fprintf(w, ", +%d coins, +%d club coins\n", out.PersonalCurrency, out.ClubCurrency)
	for _, l := range out.LevelUps {
		fmt.Fprintf(w, "level up: %d %s\n", l.Level, l.Title)
	}
	for _, a := range out.Achievements {
		fmt.Fprintf(w, "achievement unlocked: %s (%s)\n", a.Name, a.ID)
	}
}
