package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"skillforge/config"
	"skillforge/engine"
	"skillforge/gamify"
	"skillforge/leaderboard"
)

type rootFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "skillforgectl",
		Short:         "Inspect catalogs and operate on Skillforge progression data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "configuration file (.json or .toml); defaults to SKILLFORGE_CONFIG and environment")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log engine activity to stderr")

	cmd.AddCommand(
		newLevelsCmd(),
		newAchievementsCmd(),
		newActionsCmd(),
		newProgressCmd(),
		newRecordCmd(flags),
		newLoginCmd(flags),
		newShowCmd(flags),
		newScoreCmd(flags),
	)
	return cmd
}

func (f *rootFlags) loadConfig() (*config.Config, error) {
	if f.configPath != "" {
		return config.LoadFromFile(f.configPath)
	}
	return config.Load()
}

func (f *rootFlags) logger(cmd *cobra.Command) *slog.Logger {
	if !f.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// openService builds a synchronous service over the configured store. The
// returned func releases it.
func (f *rootFlags) openService(ctx context.Context, cmd *cobra.Command, withBoards bool) (*engine.GamifyService, func(), error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	storage, err := gamify.OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	opts := []gamify.Option{
		gamify.WithStorage(storage),
		gamify.WithDispatchMode(engine.DispatchSync),
		gamify.WithLogger(f.logger(cmd)),
	}
	if withBoards {
		keys, err := cfg.Leaderboard.Keys()
		if err != nil {
			closeStorage(storage)
			return nil, nil, err
		}
		opts = append(opts, gamify.WithLeaderboards(leaderboard.WithKeys(keys...)))
	}
	svc := gamify.New(opts...)
	return svc, func() {
		svc.Close()
		closeStorage(storage)
	}, nil
}

func closeStorage(s engine.Storage) {
	if c, ok := s.(io.Closer); ok {
		_ = c.Close()
	}
}
