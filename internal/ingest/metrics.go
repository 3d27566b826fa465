package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_submissions_total",
		Help: "Collect submissions by terminal outcome",
	}, []string{"outcome"})
	rowsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_rows_enqueued_total",
		Help: "Normalized rows handed to the store sink",
	})
	eventsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_events_skipped_total",
		Help: "Events dropped because their URL could not be parsed",
	})
	livePublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_live_published_total",
		Help: "Live-stream pageview notifications published",
	})
	insertErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_insert_errors_total",
		Help: "ClickHouse insert failures (rows lost)",
	})
	insertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_insert_duration_seconds",
		Help:    "Duration of ClickHouse insert operations",
		Buckets: prometheus.DefBuckets,
	})
	batchSizeHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_batch_size",
		Help:    "Histogram of ClickHouse batch sizes",
		Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 2000},
	})
)
