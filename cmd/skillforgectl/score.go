package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"skillforge/leaderboard"
)

func newScoreCmd(flags *rootFlags) *cobra.Command {
	var (
		board string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Run one leaderboard scoring pass and print a board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			period, category, ok := strings.Cut(board, ":")
			if !ok {
				return fmt.Errorf("--board must be period:category, got %q", board)
			}
			key, err := leaderboard.ParseKey(period, category)
			if err != nil {
				return err
			}

			svc, closeFn, err := flags.openService(cmd.Context(), cmd, true)
			if err != nil {
				return err
			}
			defer closeFn()

			published, err := svc.RecomputeLeaderboards(cmd.Context())
			if err != nil {
				return fmt.Errorf("scoring pass: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "published %d boards\n", len(published))

			snap, err := svc.Leaderboard(cmd.Context(), key)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "RANK\tUSER\tSCORE\n")
			for _, r := range snap.Top(limit) {
				fmt.Fprintf(w, "%d\t%s\t%.1f\n", r.Rank, r.UserID, r.Score)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&board, "board", "all_time:overall", "board to print as period:category")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "rows to print (0 for all)")
	return cmd
}
