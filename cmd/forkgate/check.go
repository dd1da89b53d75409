package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sockerless/forkgate/core"
	"github.com/sockerless/forkgate/github"
)

func newCheckSessionCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-session <session-id>",
		Short: "Check the shape of a session credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.load()
			if err != nil {
				return err
			}
			format := core.SessionFormat{Marker: cfg.Session.Marker}
			if !format.Valid(args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), "invalid")
				return fmt.Errorf("session must look like %s", format.RequiredFormat())
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
}

type forkReport struct {
	Handle   string `json:"handle"`
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitempty"`
}

func newVerifyForkCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-fork <github-username>",
		Short: "Check whether an account holds a usable fork",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.load()
			if err != nil {
				return err
			}
			handle := args[0]
			if !core.ValidHandle(handle) {
				return fmt.Errorf("invalid GitHub username %q", handle)
			}

			logger := newLogger(cfg.Log, cmd.ErrOrStderr())
			client := github.NewClient(cfg.GitHub.APIURL, cfg.GitHub.Token, cfg.GitHub.UserAgent, cfg.GitHub.Timeout)
			verifier := github.NewVerifier(client, github.VerifierConfig{
				Upstream:   cfg.GitHub.Upstream,
				RepoName:   cfg.GitHub.RepoName,
				MarkerPath: cfg.GitHub.MarkerPath,
			}, logger)

			v := verifier.VerifyFork(cmd.Context(), handle)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(forkReport{Handle: handle, Verified: v.Verified, Reason: string(v.Reason)}); err != nil {
				return err
			}
			if !v.Verified {
				return errors.New("fork not verified")
			}
			return nil
		},
	}
}
