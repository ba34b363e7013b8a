package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gitlab.com/slon/memcached/lrucache/lruserver"
	"gitlab.com/slon/memcached/lrucache/lrusync"
	"gitlab.com/slon/memcached/lrucache/scenario"
)

func newRootCmd() *cobra.Command {
	var (
		configPath string
		cfg        Config
		logger     *zap.Logger
	)

	root := &cobra.Command{
		Use:           "lrucache",
		Short:         "Bounded LRU cache tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = loadConfig(configPath); err != nil {
				return err
			}
			if err = cfg.applyFlags(cmd.Flags()); err != nil {
				return err
			}
			if err = cfg.validate(); err != nil {
				return err
			}
			logger, err = cfg.newLogger()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	defaults := defaultConfig()
	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "path to YAML config file")
	pf.Int("capacity", defaults.Capacity, "cache capacity")
	pf.String("log-level", defaults.LogLevel, "log level (debug, info, warn, error)")
	pf.Bool("dev", false, "human readable development logging")

	replay := &cobra.Command{
		Use:   "replay FILE...",
		Short: "Replay scenario files and check their expectations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, logger, args)
		},
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve a shared cache over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), logger, cfg)
		},
	}
	serve.Flags().String("addr", defaults.Addr, "listen address")

	root.AddCommand(replay, serve)
	return root
}

func runReplay(cmd *cobra.Command, logger *zap.Logger, paths []string) error {
	for _, path := range paths {
		s, err := scenario.LoadFile(path)
		if err != nil {
			return err
		}

		report, err := scenario.Run(s, logger.With(zap.String("scenario", s.Name)))
		if err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}

		logger.Info("scenario passed",
			zap.String("scenario", s.Name),
			zap.Int("steps", report.Steps),
			zap.Uint64("evictions", report.Stats.Evictions))
		fmt.Fprintf(cmd.OutOrStdout(), "ok\t%s\t%d steps\n", s.Name, report.Steps)
	}
	return nil
}

func runServe(ctx context.Context, logger *zap.Logger, cfg Config) error {
	cache, err := lrusync.New[string, []byte](cfg.Capacity)
	if err != nil {
		return err
	}
	return lruserver.New(cache, logger).Run(ctx, cfg.Addr)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "lrucache: %v\n", err)
		stop()
		os.Exit(1)
	}
}
