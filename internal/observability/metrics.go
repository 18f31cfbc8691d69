package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// warehouse pipeline.
type Metrics struct {
	RowsIngested  *prometheus.CounterVec // labels: table={weather,demand}
	RowsDropped   *prometheus.CounterVec // labels: table={weather,demand}, reason
	RefreshRuns   *prometheus.CounterVec // labels: stage, outcome={success,error}
	RefreshActive prometheus.Gauge

	RefreshDuration *prometheus.HistogramVec // labels: stage
	StageRowCount   *prometheus.GaugeVec     // labels: stage
	StageStaleness  *prometheus.GaugeVec     // labels: stage; seconds since last success

	// Source API metrics.
	FetchRequests    *prometheus.CounterVec   // labels: source, outcome={success,error}
	FetchAPIDuration *prometheus.HistogramVec // labels: source

	SinkPublished prometheus.Counter
	SinkErrors    prometheus.Counter
	SinkEnabled   prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsIngested,
		m.RowsDropped,
		m.RefreshRuns,
		m.RefreshActive,
		m.RefreshDuration,
		m.StageRowCount,
		m.StageStaleness,
		m.FetchRequests,
		m.FetchAPIDuration,
		m.SinkPublished,
		m.SinkErrors,
		m.SinkEnabled,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_energy",
			Name:      "rows_ingested_total",
			Help:      "Raw rows landed in the bronze layer by table.",
		}, []string{"table"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_energy",
			Name:      "rows_dropped_total",
			Help:      "Rows excluded by silver validation, by table and reason.",
		}, []string{"table", "reason"}),
		RefreshRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_energy",
			Name:      "refresh_runs_total",
			Help:      "Stage refresh attempts by outcome.",
		}, []string{"stage", "outcome"}),
		RefreshActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_energy",
			Name:      "refresh_active",
			Help:      "1 while a refresh is executing, 0 otherwise.",
		}),
		RefreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weather_energy",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of one stage recompute-and-replace.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		StageRowCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "weather_energy",
			Name:      "stage_row_count",
			Help:      "Row count written by the last successful refresh of each stage.",
		}, []string{"stage"}),
		StageStaleness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "weather_energy",
			Name:      "stage_staleness_seconds",
			Help:      "Seconds since each stage last refreshed successfully.",
		}, []string{"stage"}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_energy",
			Name:      "fetch_requests_total",
			Help:      "Upstream API requests by source and outcome.",
		}, []string{"source", "outcome"}),
		FetchAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weather_energy",
			Name:      "fetch_api_duration_seconds",
			Help:      "Upstream API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		SinkPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_energy",
			Name:      "sink_published_total",
			Help:      "Correlation rows published to the Kafka sink topic.",
		}),
		SinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_energy",
			Name:      "sink_errors_total",
			Help:      "Failed publishes to the Kafka sink topic.",
		}),
		SinkEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_energy",
			Name:      "sink_enabled",
			Help:      "1 when the Kafka sink is enabled, 0 otherwise.",
		}),
	}
}
