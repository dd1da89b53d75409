package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for deployments and reclamation.
// Each Metrics owns its registry so several servers can coexist in tests.
type Metrics struct {
	Registry *prometheus.Registry

	DeployTotal    *prometheus.CounterVec   // state=done|format_check|fork_check|session_check|provision
	StageLatencyMS *prometheus.HistogramVec // stage
	RateLimited    prometheus.Counter

	ReclaimCycles   *prometheus.CounterVec // result=ok|list_failed|partial
	ReclaimedTotal  prometheus.Counter
	DeleteErrors    prometheus.Counter
	OwnedInstances  prometheus.Gauge
	ExpiredObserved prometheus.Gauge
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		DeployTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forkgate_deploy_total",
				Help: "Deployment requests by the state the pipeline stopped in",
			},
			[]string{"state"},
		),
		StageLatencyMS: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forkgate_stage_latency_ms",
				Help:    "Latency of pipeline stages (ms)",
				Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1ms .. ~8s
			},
			[]string{"stage"},
		),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forkgate_deploy_rate_limited_total",
			Help: "Deployment requests rejected by the rate limiter",
		}),
		ReclaimCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forkgate_reclaim_cycles_total",
				Help: "Reclamation cycles by result",
			},
			[]string{"result"},
		),
		ReclaimedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forkgate_reclaimed_instances_total",
			Help: "Instances deleted for exceeding the maximum age",
		}),
		DeleteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forkgate_reclaim_delete_errors_total",
			Help: "Failed instance deletions during reclamation",
		}),
		OwnedInstances: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forkgate_owned_instances",
			Help: "Owned instances seen by the last successful listing",
		}),
		ExpiredObserved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forkgate_expired_instances",
			Help: "Owned instances past the maximum age in the last cycle",
		}),
	}

	m.Registry.MustRegister(
		m.DeployTotal,
		m.StageLatencyMS,
		m.RateLimited,
		m.ReclaimCycles,
		m.ReclaimedTotal,
		m.DeleteErrors,
		m.OwnedInstances,
		m.ExpiredObserved,
	)
	return m
}
