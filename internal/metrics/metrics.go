package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DatasetFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "covidash_dataset_fetches_total",
			Help: "Total dataset download attempts",
		},
		[]string{"status"},
	)

	DatasetFetchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "covidash_dataset_fetch_latency_seconds",
			Help:    "Dataset download latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	RowsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "covidash_rows_loaded",
			Help: "Observation rows in the currently served table",
		},
	)

	RowsSkipped = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "covidash_rows_skipped",
			Help: "Unparseable rows skipped during the last load",
		},
	)

	ProjectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "covidash_projections_total",
			Help: "Trend projection requests by outcome",
		},
		[]string{"outcome"},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "covidash_exports_total",
			Help: "Dataset export requests by format",
		},
		[]string{"format"},
	)

	InsightsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "covidash_insights_total",
			Help: "Narrative insight generations by status",
		},
		[]string{"status"},
	)
)
