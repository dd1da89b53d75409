package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sockerless/forkgate/api"
	"github.com/sockerless/forkgate/heroku"
)

var reclaimNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestReclaimer(p Platform, m *Metrics, dryRun bool) *Reclaimer {
	return NewReclaimer(p, Ownership{Prefix: DefaultAppPrefix}, ReclaimerConfig{
		Interval:    time.Hour,
		MaxAge:      24 * time.Hour,
		Concurrency: 2,
		DryRun:      dryRun,
		Now:         func() time.Time { return reclaimNow },
	}, m, testLogger())
}

func hoursAgo(h float64) time.Time {
	return reclaimNow.Add(-time.Duration(h * float64(time.Hour)))
}

func TestCycleDeletesOnlyExpiredOwnedApps(t *testing.T) {
	fp := newFakePlatform()
	fp.add("tkt-cyber-xmd-v3old-1", hoursAgo(24.1))
	fp.add("tkt-cyber-xmd-v3edge-2", hoursAgo(24))
	fp.add("tkt-cyber-xmd-v3young-3", hoursAgo(23.9))
	fp.add("someone-elses-app", hoursAgo(100))
	m := NewMetrics()

	report, err := newTestReclaimer(fp, m, false).Cycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Owned)
	assert.Len(t, report.Expired, 2)
	assert.Equal(t, []string{"tkt-cyber-xmd-v3edge-2", "tkt-cyber-xmd-v3old-1"}, report.Deleted)
	assert.Empty(t, report.Errors)
	assert.Equal(t, []string{"someone-elses-app", "tkt-cyber-xmd-v3young-3"}, fp.names())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReclaimedTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.OwnedInstances))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReclaimCycles.WithLabelValues("ok")))
}

func TestCycleContinuesAfterDeleteFailure(t *testing.T) {
	fp := newFakePlatform()
	fp.add("tkt-cyber-xmd-v3a-1", hoursAgo(30))
	fp.add("tkt-cyber-xmd-v3b-2", hoursAgo(30))
	fp.add("tkt-cyber-xmd-v3c-3", hoursAgo(30))
	fp.errs["delete:tkt-cyber-xmd-v3b-2"] = errors.New("platform unavailable")
	m := NewMetrics()

	report, err := newTestReclaimer(fp, m, false).Cycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"tkt-cyber-xmd-v3a-1", "tkt-cyber-xmd-v3c-3"}, report.Deleted)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "tkt-cyber-xmd-v3b-2", report.Errors[0].App)
	assert.Equal(t, api.CodeReclaimDelete, report.Errors[0].Code())
	assert.Equal(t, []string{"tkt-cyber-xmd-v3b-2"}, fp.names(), "retried next cycle")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReclaimCycles.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeleteErrors))
}

func TestCycleListFailureDeletesNothing(t *testing.T) {
	fp := newFakePlatform()
	fp.add("tkt-cyber-xmd-v3a-1", hoursAgo(30))
	fp.listErr = errors.New("unauthorized")
	m := NewMetrics()

	_, err := newTestReclaimer(fp, m, false).Cycle(context.Background())
	var cycleErr *api.ReclamationCycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"list:"}, fp.callLog())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReclaimCycles.WithLabelValues("list_failed")))
}

func TestCycleDryRun(t *testing.T) {
	fp := newFakePlatform()
	fp.add("tkt-cyber-xmd-v3a-1", hoursAgo(30))

	report, err := newTestReclaimer(fp, nil, true).Cycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Expired, 1)
	assert.Equal(t, "tkt-cyber-xmd-v3a-1", report.Expired[0].Name)
	assert.Equal(t, 30*time.Hour, report.Expired[0].Age)
	assert.Empty(t, report.Deleted)
	assert.Equal(t, []string{"tkt-cyber-xmd-v3a-1"}, fp.names())
}

func TestCycleAlreadyDeletedAppIsReported(t *testing.T) {
	fp := newFakePlatform()
	fp.add("tkt-cyber-xmd-v3a-1", hoursAgo(30))
	fp.errs["delete"] = errors.New("gone")

	report, err := newTestReclaimer(fp, nil, false).Cycle(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Errors, 1)
}

func TestCycleTreatsMissingAppAsDeleted(t *testing.T) {
	fp := newFakePlatform()
	fp.add("tkt-cyber-xmd-v3a-1", hoursAgo(30))
	fp.errs["delete"] = &heroku.APIError{Status: 404, Message: "Couldn't find that app."}

	report, err := newTestReclaimer(fp, nil, false).Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"tkt-cyber-xmd-v3a-1"}, report.Deleted)
	assert.Empty(t, report.Errors)
}

func TestRunStopsOnCancel(t *testing.T) {
	fp := newFakePlatform()
	fp.add("tkt-cyber-xmd-v3a-1", hoursAgo(30))

	r := NewReclaimer(fp, Ownership{Prefix: DefaultAppPrefix}, ReclaimerConfig{
		Interval:   time.Hour,
		RunOnStart: true,
		Now:        func() time.Time { return reclaimNow },
	}, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(fp.names()) == 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunSweepsOnEachTick(t *testing.T) {
	fp := newFakePlatform()
	fp.add("tkt-cyber-xmd-v3a-1", hoursAgo(30))
	ticks := make(chan time.Time)
	r := NewReclaimer(fp, Ownership{Prefix: DefaultAppPrefix}, ReclaimerConfig{
		Ticks: ticks,
		Now:   func() time.Time { return reclaimNow },
	}, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	// Run handles ticks one at a time, so each send returns only after the
	// previous sweep has finished.
	ticks <- reclaimNow
	ticks <- reclaimNow
	ticks <- reclaimNow
	assert.Equal(t, []string{"list:", "delete:tkt-cyber-xmd-v3a-1", "list:"}, fp.callLog()[:3])

	cancel()
	<-done
}
