package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ScrapeRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dining_scrape_runs_total",
		Help: "Scrape cycles by kind and outcome",
	}, []string{"kind", "outcome"})

	ScrapeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dining_scrape_duration_seconds",
		Help:    "Duration of completed scrape cycles",
		Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"kind"})

	SourceFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dining_source_fetch_total",
		Help: "Source fetch and extract attempts by status",
	}, []string{"source", "status"})

	SkippedElementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dining_skipped_elements_total",
		Help: "Page elements the extractors could not use",
	}, []string{"source"})

	ReconcileWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dining_reconcile_writes_total",
		Help: "Reconciliation writes by collection and status",
	}, []string{"collection", "status"})

	FreshnessChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dining_freshness_checks_total",
		Help: "Freshness gate results",
	}, []string{"result"})
)

func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		ScrapeRunsTotal,
		ScrapeDuration,
		SourceFetchTotal,
		SkippedElementsTotal,
		ReconcileWritesTotal,
		FreshnessChecksTotal,
	)
}

func ObserveScrape(kind, outcome string, start time.Time) {
	ScrapeRunsTotal.WithLabelValues(kind, outcome).Inc()
	if outcome != "already_running" {
		ScrapeDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

func ObserveSource(source string, skipped int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	SourceFetchTotal.WithLabelValues(source, status).Inc()
	if skipped > 0 {
		SkippedElementsTotal.WithLabelValues(source).Add(float64(skipped))
	}
}

func ObserveWrite(collection string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ReconcileWritesTotal.WithLabelValues(collection, status).Inc()
}

func ObserveFreshness(current bool) {
	result := "stale"
	if current {
		result = "current"
	}
	FreshnessChecksTotal.WithLabelValues(result).Inc()
}
