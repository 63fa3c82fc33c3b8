// Package observability registers Prometheus metrics for the insights
// service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	loadDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "insights_service",
		Subsystem: "loads",
		Name:      "duration_seconds",
		Help:      "Duration of insight load operations by kind.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})
	scoresComputed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "insights_service",
		Subsystem: "scoring",
		Name:      "scores_computed_total",
		Help:      "Number of health area scores computed.",
	})
	selectionToggleGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "insights_service",
		Subsystem: "recommendations",
		Name:      "last_selection_toggle_timestamp_seconds",
		Help:      "Unix timestamp of the most recent recommendation selection write.",
	})
)

func init() {
	prometheus.MustRegister(loadDuration, scoresComputed, selectionToggleGauge)
}

// ObserveLoadDuration records one completed load of the given kind.
func ObserveLoadDuration(kind string, d time.Duration) {
	loadDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordScoresComputed counts scores produced during a load.
func RecordScoresComputed(n int) {
	if n <= 0 {
		return
	}
	scoresComputed.Add(float64(n))
}

// RecordSelectionToggled updates the selection write watermark gauge.
func RecordSelectionToggled(ts time.Time) {
	if ts.IsZero() {
		return
	}
	selectionToggleGauge.Set(float64(ts.Unix()))
}
