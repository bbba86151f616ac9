// Package metrics exposes Prometheus collectors for the film crawler.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for detail attempts.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Sink labels for persisted records.
const (
	SinkTable = "table"
	SinkFile  = "file"
)

var (
	filmsListedTotal         prometheus.Counter
	detailAttemptsTotal      *prometheus.CounterVec
	enrichmentFallbacksTotal *prometheus.CounterVec
	overridesAppliedTotal    prometheus.Counter
	filmsPersistedTotal      *prometheus.CounterVec
	fetchDurationSeconds     *prometheus.HistogramVec
	lastRunDurationSeconds   prometheus.Gauge
	rateLimitDelaySeconds    *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		filmsListedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "films_listed_total",
				Help: "Total number of films extracted from the listing page.",
			},
		)

		detailAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "films_detail_attempts_total",
				Help: "Detail page fetch+parse attempts, labeled by field and outcome.",
			},
			[]string{"field", "outcome"},
		)

		enrichmentFallbacksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "films_enrichment_fallbacks_total",
				Help: "Fields set to the NONE sentinel after the retry budget ran out, labeled by field.",
			},
			[]string{"field"},
		)

		overridesAppliedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "films_overrides_applied_total",
				Help: "Records corrected by a curated override.",
			},
		)

		filmsPersistedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "films_persisted_total",
				Help: "Records written, labeled by sink.",
			},
			[]string{"sink"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "films_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by page kind.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"page"},
		)

		lastRunDurationSeconds = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "films_last_run_duration_seconds",
				Help: "Wall time of the most recent run.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "films_rate_limit_delay_seconds",
				Help:    "Time fetches spent waiting on the per-host rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"host"},
		)
	})
}

// ObserveListed adds n films to the listing counter.
func ObserveListed(n int) {
	Init()
	filmsListedTotal.Add(float64(n))
}

// ObserveDetailAttempt counts one detail attempt for field.
func ObserveDetailAttempt(field string, err error) {
	Init()
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	detailAttemptsTotal.WithLabelValues(field, outcome).Inc()
}

// ObserveFallback counts a field that fell back to the sentinel.
func ObserveFallback(field string) {
	Init()
	enrichmentFallbacksTotal.WithLabelValues(field).Inc()
}

// ObserveOverrides adds n applied overrides.
func ObserveOverrides(n int) {
	Init()
	overridesAppliedTotal.Add(float64(n))
}

// ObservePersisted adds n records written to sink.
func ObservePersisted(sink string, n int) {
	Init()
	filmsPersistedTotal.WithLabelValues(sink).Add(float64(n))
}

// ObserveFetch records the latency of one page fetch.
func ObserveFetch(page string, duration time.Duration) {
	Init()
	fetchDurationSeconds.WithLabelValues(page).Observe(duration.Seconds())
}

// ObserveRun records the wall time of a finished run.
func ObserveRun(duration time.Duration) {
	Init()
	lastRunDurationSeconds.Set(duration.Seconds())
}

// ObserveRateLimitDelay records how long a fetch to host was held back.
func ObserveRateLimitDelay(host string, delay time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(host).Observe(delay.Seconds())
}

// WriteTextfile dumps every registered metric to path in the text exposition format,
// for pickup by a node_exporter textfile collector.
func WriteTextfile(path string) error {
	Init()
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
