package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sockerless/forkgate/core"
)

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the deployment API and the reclamation loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config and PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, cfg core.Config) error {
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())
	logger.Info().Str("version", version).Str("commit", commit).Msg("starting")

	shutdown, err := core.InitTracer("forkgate", version)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init tracer")
	}
	defer func() { _ = shutdown(context.Background()) }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := core.NewService(cfg, logger)
	logger.Info().
		Str("addr", cfg.ListenAddr).
		Str("upstream", cfg.GitHub.Upstream).
		Str("region", cfg.Platform.Region).
		Bool("compensate_on_failure", cfg.Platform.CompensateOnFailure).
		Bool("reclaim", cfg.Reclaim.Enabled).
		Dur("reclaim_interval", cfg.Reclaim.Interval).
		Dur("max_age", cfg.Reclaim.MaxAge).
		Float64("rate_limit_per_minute", cfg.RateLimit.PerMinute).
		Str("static_dir", cfg.StaticDir).
		Msg("deployment service configured")

	var wg sync.WaitGroup
	if cfg.Reclaim.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Reclaimer.Run(ctx)
		}()
	} else {
		logger.Warn().Msg("reclamation disabled, instances will not expire")
	}

	err = svc.Server.ListenAndServe(ctx)
	stop()
	wg.Wait()
	return err
}
