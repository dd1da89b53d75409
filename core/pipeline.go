package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sockerless/forkgate/api"
	"github.com/sockerless/forkgate/github"
)

// State is a step of the deployment state machine.
type State string

const (
	StateStart        State = "start"
	StateFormatCheck  State = "format_check"
	StateForkCheck    State = "fork_check"
	StateSessionCheck State = "session_check"
	StateProvision    State = "provision"
	StateDone         State = "done"
)

// ForkVerifier decides whether an account holds a usable fork.
// *github.Verifier implements it.
type ForkVerifier interface {
	VerifyFork(ctx context.Context, handle string) github.Verification
}

// InstanceProvisioner creates an instance for a verified account.
// *Provisioner implements it.
type InstanceProvisioner interface {
	Provision(ctx context.Context, handle, token string) (api.Instance, error)
}

// Outcome reports where a deployment stopped and, at StateDone, what it
// created.
type Outcome struct {
	State       State
	Instance    api.Instance
	CompletedAt time.Time
}

// deployment is the state threaded through the stages of one request.
type deployment struct {
	req      api.DeployRequest
	instance api.Instance
}

type stage struct {
	state State
	run   func(ctx context.Context, d *deployment) error
}

// Pipeline runs FORMAT_CHECK, FORK_CHECK, SESSION_CHECK and PROVISION in
// order, stopping at the first typed failure.
type Pipeline struct {
	verifier    ForkVerifier
	session     SessionFormat
	provisioner InstanceProvisioner
	metrics     *Metrics
	logger      zerolog.Logger
	now         func() time.Time
	stages      []stage
}

// NewPipeline wires the stages. metrics may be nil.
func NewPipeline(verifier ForkVerifier, session SessionFormat, provisioner InstanceProvisioner, metrics *Metrics, logger zerolog.Logger) *Pipeline {
	p := &Pipeline{
		verifier:    verifier,
		session:     session,
		provisioner: provisioner,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
	p.stages = []stage{
		{StateFormatCheck, p.checkFormat},
		{StateForkCheck, p.checkFork},
		{StateSessionCheck, p.checkSession},
		{StateProvision, p.provision},
	}
	return p
}

// Deploy runs one request through the pipeline. On failure the Outcome names
// the state that failed and the error is one of the api error types.
func (p *Pipeline) Deploy(ctx context.Context, req api.DeployRequest) (Outcome, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "deploy", trace.WithAttributes(
		attribute.String("forkgate.github_username", req.GitHubUsername),
	))
	defer span.End()

	d := &deployment{req: req}
	for _, st := range p.stages {
		if err := p.runStage(ctx, tracer, st, d); err != nil {
			span.SetStatus(codes.Error, string(st.state))
			p.record(st.state)
			return Outcome{State: st.state}, err
		}
	}

	out := Outcome{State: StateDone, Instance: d.instance, CompletedAt: p.now().UTC()}
	p.record(StateDone)
	span.SetAttributes(attribute.String("forkgate.app", d.instance.Name))
	p.logger.Info().
		Str("github_username", req.GitHubUsername).
		Str("app", d.instance.Name).
		Str("url", d.instance.URL).
		Msg("deployment created")
	return out, nil
}

func (p *Pipeline) runStage(ctx context.Context, tracer trace.Tracer, st stage, d *deployment) error {
	ctx, span := tracer.Start(ctx, string(st.state))
	defer span.End()

	start := time.Now()
	err := st.run(ctx, d)
	if p.metrics != nil {
		p.metrics.StageLatencyMS.WithLabelValues(string(st.state)).Observe(float64(time.Since(start).Milliseconds()))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (p *Pipeline) record(state State) {
	if p.metrics != nil {
		p.metrics.DeployTotal.WithLabelValues(string(state)).Inc()
	}
}

func (p *Pipeline) checkFormat(_ context.Context, d *deployment) error {
	if !ValidHandle(d.req.GitHubUsername) {
		return &api.InputFormatError{Field: "github_username", Message: "must be 1-39 letters, digits, hyphens or underscores"}
	}
	return nil
}

func (p *Pipeline) checkFork(ctx context.Context, d *deployment) error {
	v := p.verifier.VerifyFork(ctx, d.req.GitHubUsername)
	if !v.Verified {
		return &api.ForkNotVerifiedError{Handle: d.req.GitHubUsername, Reason: string(v.Reason)}
	}
	return nil
}

func (p *Pipeline) checkSession(_ context.Context, d *deployment) error {
	if !p.session.Valid(d.req.SessionID) {
		return &api.InvalidSessionError{}
	}
	return nil
}

func (p *Pipeline) provision(ctx context.Context, d *deployment) error {
	inst, err := p.provisioner.Provision(ctx, d.req.GitHubUsername, d.req.SessionID)
	if err != nil {
		return err
	}
	d.instance = inst
	return nil
}
