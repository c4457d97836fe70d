package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_actions_total",
			Help: "Player actions by type and outcome",
		},
		[]string{"action", "outcome"},
	)
	StoreConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_store_conflicts_total",
			Help: "Optimistic write conflicts that triggered a retry",
		},
	)
	OfflineAccrued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_offline_accrued_total",
			Help: "Currency credited by offline reconciliation",
		},
	)
	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "progress_sweep_duration_seconds",
			Help:    "Duration of a full offline accrual sweep",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)
	SweepUsers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_sweep_users_total",
			Help: "Users processed by the sweep, by result",
		},
		[]string{"result"},
	)
	SweepSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_sweep_skipped_total",
			Help: "Sweep ticks skipped because the previous sweep was still running",
		},
	)
	GlobalEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_global_events_total",
			Help: "Global events started",
		},
	)
)

func init() {
	prometheus.MustRegister(Actions, StoreConflicts, OfflineAccrued, SweepDuration, SweepUsers, SweepSkipped, GlobalEvents)
}
