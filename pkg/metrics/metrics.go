package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Snapshot metrics
	SnapshotsBuilt = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flowkeep_snapshots_built_total",
			Help: "Total number of snapshots built successfully",
		},
	)

	SnapshotsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flowkeep_snapshots_failed_total",
			Help: "Total number of snapshot builds that failed",
		},
	)

	SnapshotBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowkeep_snapshot_build_duration_seconds",
			Help:    "Time taken to build a snapshot in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	SnapshotBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flowkeep_snapshot_last_size_bytes",
			Help: "Total size in bytes of the most recently built snapshot",
		},
	)

	VerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowkeep_verifications_total",
			Help: "Total number of snapshot verifications by outcome",
		},
		[]string{"outcome"},
	)

	// Restore metrics
	RestoreRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowkeep_restore_runs_total",
			Help: "Total number of restore runs by final phase",
		},
		[]string{"phase"},
	)

	RestorePhaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowkeep_restore_phase_duration_seconds",
			Help:    "Time spent in each restore phase in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
		[]string{"phase"},
	)

	// Sweep metrics
	SweepDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flowkeep_sweep_deleted_total",
			Help: "Total number of snapshot directories deleted by the sweeper",
		},
	)

	SweepErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flowkeep_sweep_errors_total",
			Help: "Total number of per-directory sweep failures (skipped, not fatal)",
		},
	)

	// Probe metrics
	ProbeAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowkeep_probe_attempts_total",
			Help: "Total number of readiness probe attempts by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(SnapshotsBuilt)
	prometheus.MustRegister(SnapshotsFailed)
	prometheus.MustRegister(SnapshotBuildDuration)
	prometheus.MustRegister(SnapshotBytes)
	prometheus.MustRegister(VerificationsTotal)
	prometheus.MustRegister(RestoreRunsTotal)
	prometheus.MustRegister(RestorePhaseDuration)
	prometheus.MustRegister(SweepDeletedTotal)
	prometheus.MustRegister(SweepErrorsTotal)
	prometheus.MustRegister(ProbeAttemptsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a metrics listener on addr in the background. Long
// invocations (backup, restore) call this when metrics_addr is set; the
// listener dies with the process, which is fine for one-shot runs
// scraped by a local agent.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
