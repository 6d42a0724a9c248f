package leaderboard

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes aggregation counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	videos      prometheus.Gauge
	cacheLookup *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leaderboard",
			Name:      "aggregations_total",
			Help:      "Aggregation runs by source and outcome.",
		}, []string{"source", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leaderboard",
			Name:      "aggregation_duration_seconds",
			Help:      "Wall time of aggregation runs.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 90},
		}, []string{"source"}),
		videos: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leaderboard",
			Name:      "videos",
			Help:      "Videos in the last successful aggregation.",
		}),
		cacheLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leaderboard",
			Name:      "cache_lookups_total",
			Help:      "Snapshot cache lookups by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(m.runs, m.runDuration, m.videos, m.cacheLookup)
	}

	return m
}

func (m *Metrics) observeRun(source string, elapsed time.Duration, videos int, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else {
		m.videos.Set(float64(videos))
	}
	m.runs.WithLabelValues(source, outcome).Inc()
	m.runDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (m *Metrics) observeCache(result string) {
	if m == nil {
		return
	}
	m.cacheLookup.WithLabelValues(result).Inc()
}
