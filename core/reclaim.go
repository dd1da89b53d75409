package core

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sockerless/forkgate/api"
	"github.com/sockerless/forkgate/heroku"
)

// ReclaimerConfig controls the reclamation loop.
type ReclaimerConfig struct {
	Interval    time.Duration
	MaxAge      time.Duration
	Concurrency int
	RunOnStart  bool
	DryRun      bool

	// Now is the clock ages are measured against. Defaults to time.Now.
	Now func() time.Time
	// Ticks replaces the Interval ticker when set.
	Ticks <-chan time.Time
}

// ExpiredInstance is an owned instance at or past the maximum age.
type ExpiredInstance struct {
	Name string
	Age  time.Duration
}

// CycleReport summarizes one reclamation cycle.
type CycleReport struct {
	Owned   int
	Expired []ExpiredInstance
	Deleted []string
	Errors  []*api.InstanceDeletionError
}

// Reclaimer periodically deletes owned instances older than MaxAge.
type Reclaimer struct {
	platform Platform
	owner    Ownership
	cfg      ReclaimerConfig
	metrics  *Metrics
	logger   zerolog.Logger
}

// NewReclaimer creates a periodic sweeper. metrics may be nil.
func NewReclaimer(platform Platform, owner Ownership, cfg ReclaimerConfig, metrics *Metrics, logger zerolog.Logger) *Reclaimer {
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reclaimer{
		platform: platform,
		owner:    owner,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.With().Str("component", "reclaimer").Logger(),
	}
}

// Run sweeps every Interval until ctx is cancelled. Cycle errors are logged
// and never stop the ticker.
func (r *Reclaimer) Run(ctx context.Context) {
	ticks := r.cfg.Ticks
	if ticks == nil {
		t := time.NewTicker(r.cfg.Interval)
		defer t.Stop()
		ticks = t.C
	}

	if r.cfg.RunOnStart {
		r.sweep(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			r.sweep(ctx)
		}
	}
}

func (r *Reclaimer) sweep(ctx context.Context) {
	start := time.Now()
	report, err := r.Cycle(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("reclamation cycle aborted")
		return
	}
	event := r.logger.Debug()
	if len(report.Expired) > 0 || len(report.Errors) > 0 {
		event = r.logger.Info()
	}
	event.
		Int("owned", report.Owned).
		Int("expired", len(report.Expired)).
		Int("deleted", len(report.Deleted)).
		Int("failed", len(report.Errors)).
		Dur("duration", time.Since(start)).
		Msg("reclamation cycle finished")
}

// Cycle lists the platform's apps, then deletes every owned app whose age
// is at least MaxAge. Deletions run concurrently and the cycle waits for
// all of them; one failing does not stop the others. An app that is already
// gone counts as deleted. A listing failure
// returns a *api.ReclamationCycleError and deletes nothing.
func (r *Reclaimer) Cycle(ctx context.Context) (CycleReport, error) {
	var report CycleReport

	apps, err := r.platform.ListApps(ctx)
	if err != nil {
		r.countCycle("list_failed")
		return report, &api.ReclamationCycleError{Err: err}
	}

	now := r.cfg.Now()
	for _, app := range apps {
		if !r.owner.Owns(app.Name) {
			continue
		}
		report.Owned++
		if age := now.Sub(app.CreatedAt); age >= r.cfg.MaxAge {
			report.Expired = append(report.Expired, ExpiredInstance{Name: app.Name, Age: age})
		}
	}
	if r.metrics != nil {
		r.metrics.OwnedInstances.Set(float64(report.Owned))
		r.metrics.ExpiredObserved.Set(float64(len(report.Expired)))
	}

	if r.cfg.DryRun || len(report.Expired) == 0 {
		r.countCycle("ok")
		return report, nil
	}

	results := make([]error, len(report.Expired))
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i, inst := range report.Expired {
		g.Go(func() error {
			if err := r.platform.DeleteApp(ctx, inst.Name); err != nil && !heroku.IsNotFound(err) {
				results[i] = err
				return nil
			}
			r.logger.Info().
				Str("app", inst.Name).
				Str("age", inst.Age.Round(6*time.Minute).String()).
				Msg("reclaimed instance")
			return nil
		})
	}
	_ = g.Wait()

	for i, inst := range report.Expired {
		if results[i] != nil {
			delErr := &api.InstanceDeletionError{App: inst.Name, Err: results[i]}
			report.Errors = append(report.Errors, delErr)
			r.logger.Warn().Err(results[i]).Str("app", inst.Name).Msg("reclaim delete failed")
			continue
		}
		report.Deleted = append(report.Deleted, inst.Name)
	}
	sort.Strings(report.Deleted)

	if r.metrics != nil {
		r.metrics.ReclaimedTotal.Add(float64(len(report.Deleted)))
		r.metrics.DeleteErrors.Add(float64(len(report.Errors)))
	}
	if len(report.Errors) > 0 {
		r.countCycle("partial")
	} else {
		r.countCycle("ok")
	}
	return report, nil
}

func (r *Reclaimer) countCycle(result string) {
	if r.metrics != nil {
		r.metrics.ReclaimCycles.WithLabelValues(result).Inc()
	}
}
