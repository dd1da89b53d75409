package github

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

// Reason explains why a fork was not verified.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonRepoUnavailable   Reason = "repo_unavailable"
	ReasonNotFork           Reason = "not_a_fork"
	ReasonWrongUpstream     Reason = "wrong_upstream"
	ReasonMarkerMissing     Reason = "marker_missing"
	ReasonMarkerUnavailable Reason = "marker_unavailable"
)

// Verification is the outcome of VerifyFork. Verified implies the repository
// was a fork of exactly the upstream and contained the marker file when
// checked; nothing re-checks it later.
type Verification struct {
	Verified bool
	Reason   Reason
}

// VerifierConfig names the upstream project a fork must descend from.
type VerifierConfig struct {
	Upstream   string // "owner/name" of the official repository
	RepoName   string // name the fork is expected to carry
	MarkerPath string // file that must exist in the fork
}

// Verifier checks fork ownership with two sequential REST calls.
type Verifier struct {
	client *Client
	cfg    VerifierConfig
	logger zerolog.Logger
}

// NewVerifier returns a Verifier backed by client.
func NewVerifier(client *Client, cfg VerifierConfig, logger zerolog.Logger) *Verifier {
	return &Verifier{client: client, cfg: cfg, logger: logger}
}

// VerifyFork reports whether handle owns a fork of the upstream repository
// that still carries the marker file. Remote failures of any kind count as
// "not verified"; the reason is for logs and diagnostics only.
func (v *Verifier) VerifyFork(ctx context.Context, handle string) Verification {
	repo, err := v.client.GetRepo(ctx, handle, v.cfg.RepoName)
	if err != nil {
		v.logger.Debug().Err(err).Str("handle", handle).Msg("fork metadata unavailable")
		return Verification{Reason: ReasonRepoUnavailable}
	}
	if !repo.Fork {
		return Verification{Reason: ReasonNotFork}
	}
	if repo.Parent == nil || repo.Parent.FullName != v.cfg.Upstream {
		return Verification{Reason: ReasonWrongUpstream}
	}

	status, err := v.client.ContentStatus(ctx, handle, v.cfg.RepoName, v.cfg.MarkerPath)
	switch {
	case err != nil:
		v.logger.Debug().Err(err).Str("handle", handle).Msg("marker check failed")
		return Verification{Reason: ReasonMarkerUnavailable}
	case status == http.StatusOK:
		return Verification{Verified: true}
	case status == http.StatusNotFound:
		return Verification{Reason: ReasonMarkerMissing}
	default:
		v.logger.Debug().Int("status", status).Str("handle", handle).Msg("marker check failed")
		return Verification{Reason: ReasonMarkerUnavailable}
	}
}
