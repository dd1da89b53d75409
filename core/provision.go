package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sockerless/forkgate/api"
	"github.com/sockerless/forkgate/heroku"
)

// Provisioning steps, as reported in ProvisioningError.Step.
const (
	StepCreate    = "create"
	StepConfigure = "configure"
	StepBuild     = "build"
)

// Platform is the subset of the platform API used to create and reclaim
// instances. *heroku.Client implements it.
type Platform interface {
	CreateApp(ctx context.Context, opts heroku.AppCreateOpts) (*heroku.App, error)
	UpdateConfigVars(ctx context.Context, app string, vars map[string]string) error
	CreateBuild(ctx context.Context, app string, opts heroku.BuildCreateOpts) (*heroku.Build, error)
	ListApps(ctx context.Context) ([]heroku.App, error)
	DeleteApp(ctx context.Context, app string) error
}

// ProvisionerConfig controls where and how instances are created.
type ProvisionerConfig struct {
	Region              string
	AppDomain           string
	RepoName            string
	Branch              string
	CompensateOnFailure bool

	// Now and Suffix are injectable for deterministic names.
	Now    func() time.Time
	Suffix func() int
}

// Provisioner creates one platform app per deployment: create, configure,
// then build from the account's fork.
type Provisioner struct {
	platform Platform
	owner    Ownership
	cfg      ProvisionerConfig
	logger   zerolog.Logger
}

// NewProvisioner returns a Provisioner stamping names with owner.
func NewProvisioner(platform Platform, owner Ownership, cfg ProvisionerConfig, logger zerolog.Logger) *Provisioner {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Suffix == nil {
		cfg.Suffix = RandomSuffix
	}
	return &Provisioner{platform: platform, owner: owner, cfg: cfg, logger: logger}
}

// SourceURL is the tarball the platform builds from.
func (p *Provisioner) SourceURL(handle string) string {
	return fmt.Sprintf("https://github.com/%s/%s/tarball/%s", handle, p.cfg.RepoName, p.cfg.Branch)
}

// InstanceURL is the public URL of an app.
func (p *Provisioner) InstanceURL(name string) string {
	return fmt.Sprintf("https://%s.%s", name, p.cfg.AppDomain)
}

// Provision runs the three platform calls in order with no retries. When
// configure or build fails after the app exists, the app is deleted if
// CompensateOnFailure is set; otherwise, or if that delete fails, it is left
// for the reclaimer.
func (p *Provisioner) Provision(ctx context.Context, handle, token string) (api.Instance, error) {
	now := p.cfg.Now()
	name := p.owner.NewName(now, p.cfg.Suffix())
	if !p.owner.Owns(name) {
		return api.Instance{}, &api.ProvisioningError{Step: StepCreate, Err: fmt.Errorf("generated name %q lacks ownership prefix", name)}
	}

	app, err := p.platform.CreateApp(ctx, heroku.AppCreateOpts{Name: name, Region: p.cfg.Region})
	if err != nil {
		return api.Instance{}, &api.ProvisioningError{Step: StepCreate, Err: err}
	}
	if app != nil && app.Name != "" {
		name = app.Name
	}

	vars := map[string]string{
		"SESSION_ID":      token,
		"GITHUB_USERNAME": handle,
	}
	if err := p.platform.UpdateConfigVars(ctx, name, vars); err != nil {
		p.compensate(ctx, name, StepConfigure)
		return api.Instance{}, &api.ProvisioningError{Step: StepConfigure, App: name, Err: err}
	}

	build := heroku.BuildCreateOpts{SourceBlob: heroku.SourceBlob{URL: p.SourceURL(handle)}}
	if _, err := p.platform.CreateBuild(ctx, name, build); err != nil {
		p.compensate(ctx, name, StepBuild)
		return api.Instance{}, &api.ProvisioningError{Step: StepBuild, App: name, Err: err}
	}

	createdAt := now
	if app != nil && !app.CreatedAt.IsZero() {
		createdAt = app.CreatedAt
	}
	return api.Instance{
		Name:          name,
		URL:           p.InstanceURL(name),
		CreatedAt:     createdAt,
		SourceAccount: handle,
	}, nil
}

// compensate deletes a half-provisioned app. It runs detached from the
// request's cancellation so a client disconnect does not strand the app.
func (p *Provisioner) compensate(ctx context.Context, name, failedStep string) {
	if !p.cfg.CompensateOnFailure {
		p.logger.Warn().Str("app", name).Str("step", failedStep).Msg("provisioning failed, app left for reclamation")
		return
	}
	if err := p.platform.DeleteApp(context.WithoutCancel(ctx), name); err != nil {
		p.logger.Error().Err(err).Str("app", name).Str("step", failedStep).Msg("compensating delete failed, app left for reclamation")
		return
	}
	p.logger.Info().Str("app", name).Str("step", failedStep).Msg("compensating delete succeeded")
}
