package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sockerless/forkgate/core"
	"github.com/sockerless/forkgate/heroku"
)

func newReclaimCommand(rootOpts *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reclaim",
		Short: "Run one reclamation cycle and exit",
		Long: `Lists the platform's apps and deletes every forkgate-owned app that is at
least reclaim.max_age old. With --dry-run the expired apps are only listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg.Log, cmd.ErrOrStderr())
			platform := heroku.NewClient(cfg.Platform.APIURL, cfg.Platform.APIKey, cfg.Platform.Timeout)

			r := core.NewReclaimer(platform, core.Ownership{Prefix: cfg.Platform.AppPrefix}, core.ReclaimerConfig{
				MaxAge:      cfg.Reclaim.MaxAge,
				Concurrency: cfg.Reclaim.Concurrency,
				DryRun:      dryRun,
			}, nil, logger)

			report, err := r.Cycle(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, inst := range report.Expired {
				fmt.Fprintf(out, "%s\t%s\n", inst.Name, inst.Age.Round(time.Minute))
			}
			fmt.Fprintf(out, "owned=%d expired=%d deleted=%d failed=%d\n",
				report.Owned, len(report.Expired), len(report.Deleted), len(report.Errors))

			if len(report.Errors) > 0 {
				errs := make([]error, len(report.Errors))
				for i, e := range report.Errors {
					errs[i] = e
				}
				return errors.Join(errs...)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list expired apps without deleting them")
	return cmd
}
