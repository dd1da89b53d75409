package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sockerless/forkgate/core"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "forkgate",
		Short: "Fork-gated self-service deployment of TKT-CYBER-XMD-V3 bot instances",
		Long: `forkgate creates a Heroku app for every GitHub account that has forked the
official repository, and deletes those apps again after 24 hours.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (.toml, .yaml or .yml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (console|json)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newReclaimCommand(opts))
	cmd.AddCommand(newCheckSessionCommand(opts))
	cmd.AddCommand(newVerifyForkCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// load reads the configuration and applies flag overrides.
func (o *rootOptions) load() (core.Config, error) {
	cfg, err := core.LoadConfig(o.ConfigPath)
	if err != nil {
		return core.Config{}, err
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	if cfg.Log.Format != "console" && cfg.Log.Format != "json" {
		return core.Config{}, fmt.Errorf("invalid log format %q: must be console or json", cfg.Log.Format)
	}
	return cfg, nil
}

func newLogger(cfg core.LogConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out}
	}
	return zerolog.New(out).
		With().Timestamp().Str("service", "forkgate").Logger().
		Level(level)
}
