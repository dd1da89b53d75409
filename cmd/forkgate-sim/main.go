package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/sockerless/forkgate/simulator"
)

const (
	upstreamOwner = "tkttech"
	repoName      = "TKT-CYBER-XMD-V3"
	markerFile    = "package.json"
)

func main() {
	cfg := simulator.ConfigFromEnv()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Str("service", "forkgate-sim").Logger().
		Level(level)

	srv := simulator.NewServer(cfg, logger)
	srv.GitHub.AddRepo(simulator.GitHubRepo{Owner: upstreamOwner, Name: repoName, Files: map[string]string{markerFile: "{}"}})

	// SIM_SEED_FORKS=alice,bob pre-creates valid forks for those accounts.
	for _, handle := range strings.Split(os.Getenv("SIM_SEED_FORKS"), ",") {
		if handle = strings.TrimSpace(handle); handle != "" {
			srv.GitHub.AddFork(handle, repoName, upstreamOwner+"/"+repoName, markerFile)
			logger.Info().Str("handle", handle).Msg("seeded fork")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Fatal().Err(err).Msg("simulator exited")
	}
}
