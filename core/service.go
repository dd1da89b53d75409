package core

import (
	"github.com/rs/zerolog"

	"github.com/sockerless/forkgate/github"
	"github.com/sockerless/forkgate/heroku"
)

// Service bundles the components built from one Config.
type Service struct {
	Config    Config
	Metrics   *Metrics
	GitHub    *github.Client
	Platform  *heroku.Client
	Verifier  *github.Verifier
	Pipeline  *Pipeline
	Reclaimer *Reclaimer
	Server    *Server
}

// NewService wires the clients, pipeline, reclaimer and HTTP server. cfg is
// expected to have passed Validate.
func NewService(cfg Config, logger zerolog.Logger) *Service {
	metrics := NewMetrics()
	owner := Ownership{Prefix: cfg.Platform.AppPrefix}

	gh := github.NewClient(cfg.GitHub.APIURL, cfg.GitHub.Token, cfg.GitHub.UserAgent, cfg.GitHub.Timeout)
	verifier := github.NewVerifier(gh, github.VerifierConfig{
		Upstream:   cfg.GitHub.Upstream,
		RepoName:   cfg.GitHub.RepoName,
		MarkerPath: cfg.GitHub.MarkerPath,
	}, logger.With().Str("component", "verifier").Logger())

	platform := heroku.NewClient(cfg.Platform.APIURL, cfg.Platform.APIKey, cfg.Platform.Timeout)
	provisioner := NewProvisioner(platform, owner, ProvisionerConfig{
		Region:              cfg.Platform.Region,
		AppDomain:           cfg.Platform.AppDomain,
		RepoName:            cfg.GitHub.RepoName,
		Branch:              cfg.Platform.Branch,
		CompensateOnFailure: cfg.Platform.CompensateOnFailure,
	}, logger.With().Str("component", "provisioner").Logger())

	pipeline := NewPipeline(verifier, SessionFormat{Marker: cfg.Session.Marker}, provisioner, metrics, logger)
	reclaimer := NewReclaimer(platform, owner, ReclaimerConfig{
		Interval:    cfg.Reclaim.Interval,
		MaxAge:      cfg.Reclaim.MaxAge,
		Concurrency: cfg.Reclaim.Concurrency,
		RunOnStart:  cfg.Reclaim.RunOnStart,
	}, metrics, logger)

	return &Service{
		Config:    cfg,
		Metrics:   metrics,
		GitHub:    gh,
		Platform:  platform,
		Verifier:  verifier,
		Pipeline:  pipeline,
		Reclaimer: reclaimer,
		Server:    NewServer(cfg, pipeline, metrics, logger),
	}
}
