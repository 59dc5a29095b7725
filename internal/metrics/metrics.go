// Package metrics exposes Prometheus instrumentation for tabulation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache kinds.
const (
	KindTally       = "tally"
	KindLeaderboard = "leaderboard"
)

var (
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tabulation_stage_duration_seconds",
			Help:    "Time spent in each tabulation stage.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabulation_cache_lookups_total",
			Help: "Tally and leaderboard cache lookups by result.",
		},
		[]string{"kind", "result"},
	)
	codesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabulation_answer_codes_written_total",
			Help: "Answer code rows written by reconciliation.",
		},
		[]string{"op"},
	)
	snapshotTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabulation_snapshot_tasks_total",
			Help: "Rank/score snapshot task outcomes.",
		},
		[]string{"status"},
	)
)

// ObserveStage records how long a stage took since start.
func ObserveStage(stage string, start time.Time) {
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func CacheHit(kind string) {
	cacheLookups.WithLabelValues(kind, "hit").Inc()
}

func CacheMiss(kind string) {
	cacheLookups.WithLabelValues(kind, "miss").Inc()
}

func CodesWritten(inserted, updated int) {
	codesWritten.WithLabelValues("insert").Add(float64(inserted))
	codesWritten.WithLabelValues("update").Add(float64(updated))
}

func SnapshotTask(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	snapshotTasks.WithLabelValues(status).Inc()
}
