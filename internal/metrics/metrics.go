// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus collectors for the harvesting pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesFetchedTotal     *prometheus.CounterVec
	papersHarvestedTotal  *prometheus.CounterVec
	batchesCommittedTotal *prometheus.CounterVec
	entryErrorsTotal      *prometheus.CounterVec
	entryWarningsTotal    *prometheus.CounterVec
	pdfFetchesTotal       *prometheus.CounterVec
	rateLimitWaitSeconds  prometheus.Histogram
	checkpointCursor      *prometheus.GaugeVec

	once sync.Once
)

// Init registers the collectors. It is safe to call more than once; every
// Observe function calls it.
func Init() {
	once.Do(func() {
		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papertrail_pages_fetched_total",
				Help: "Feed pages fetched, labeled by category.",
			},
			[]string{"category"},
		)

		papersHarvestedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papertrail_papers_harvested_total",
				Help: "Paper records committed to the store, labeled by category.",
			},
			[]string{"category"},
		)

		batchesCommittedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papertrail_batches_committed_total",
				Help: "Batches committed together with their cursor, labeled by category.",
			},
			[]string{"category"},
		)

		entryErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papertrail_entry_errors_total",
				Help: "Feed entries dropped because they failed to parse, labeled by kind.",
			},
			[]string{"kind"},
		)

		entryWarningsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papertrail_entry_warnings_total",
				Help: "Feed entries kept without references, labeled by kind.",
			},
			[]string{"kind"},
		)

		pdfFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papertrail_pdf_fetches_total",
				Help: "PDF fetch attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		rateLimitWaitSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "papertrail_rate_limit_wait_seconds",
				Help:    "Time spent waiting for the outbound rate limiter.",
				Buckets: []float64{0.01, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		)

		checkpointCursor = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "papertrail_checkpoint_cursor",
				Help: "Last committed feed cursor, labeled by category.",
			},
			[]string{"category"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts one fetched feed page.
func ObservePage(category string) {
	Init()
	pagesFetchedTotal.WithLabelValues(category).Inc()
}

// ObserveCommit records a committed batch and its cursor.
func ObserveCommit(category string, records int, cursor int64) {
	Init()
	batchesCommittedTotal.WithLabelValues(category).Inc()
	papersHarvestedTotal.WithLabelValues(category).Add(float64(records))
	checkpointCursor.WithLabelValues(category).Set(float64(cursor))
}

// ObserveEntryError counts an entry dropped under the skip policy.
func ObserveEntryError(kind string) {
	Init()
	entryErrorsTotal.WithLabelValues(kind).Inc()
}

// ObserveEntryWarning counts an entry kept without references.
func ObserveEntryWarning(kind string) {
	Init()
	entryWarningsTotal.WithLabelValues(kind).Inc()
}

// ObservePDFFetch counts a PDF fetch by outcome ("ok", "not_pdf", "invalid", "failed").
func ObservePDFFetch(outcome string) {
	Init()
	pdfFetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveRateLimitWait records the duration of a rate limit wait.
func ObserveRateLimitWait(d time.Duration) {
	Init()
	rateLimitWaitSeconds.Observe(d.Seconds())
}
