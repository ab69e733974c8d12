package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RefreshRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "covid_dashboard_refresh_runs_total", Help: "Ingestion runs by outcome.",
	}, []string{"result"})
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "covid_dashboard_refresh_duration_seconds",
		Help:    "Duration of ingestion runs.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
	SourceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "covid_dashboard_source_fetches_total", Help: "Source loads by source and outcome.",
	}, []string{"source", "result"})

	UnresolvedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "covid_dashboard_unresolved_rows_total", Help: "Source rows dropped because the country name did not resolve.",
	}, []string{"source"})

	SnapshotGeneration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "covid_dashboard_snapshot_generation", Help: "Generation of the published snapshot.",
	})
	SnapshotCountries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "covid_dashboard_snapshot_countries", Help: "Countries in the published snapshot.",
	})
	SnapshotPublishedAt = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "covid_dashboard_snapshot_published_timestamp_seconds", Help: "Unix time of the last snapshot publish.",
	})

	AggregateCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "covid_dashboard_aggregate_cache_total", Help: "Aggregate cache lookups by result.",
	}, []string{"result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "covid_dashboard_http_requests_total", Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})

	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "covid_dashboard_websocket_clients", Help: "Connected websocket clients.",
	})
)

// ObserveSnapshot records a published snapshot
func ObserveSnapshot(generation uint64, countries int, publishedAt time.Time) {
	SnapshotGeneration.Set(float64(generation))
	SnapshotCountries.Set(float64(countries))
	SnapshotPublishedAt.Set(float64(publishedAt.Unix()))
}
