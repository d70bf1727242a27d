package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the dashboard's Prometheus collectors on a private registry.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	recomputations    prometheus.Counter
	recomputeDuration prometheus.Histogram
	viewRecords       prometheus.Histogram
	chartFailures     *prometheus.CounterVec
	datasetRecords    prometheus.Gauge
	httpRequests      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recomputations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shipdash",
			Name:      "recomputations_total",
			Help:      "Dashboard recomputations triggered by a selection.",
		}),
		recomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shipdash",
			Name:      "recompute_duration_seconds",
			Help:      "Time to recompute the filtered view and every chart.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		viewRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shipdash",
			Name:      "filtered_view_records",
			Help:      "Records in the filtered view per recomputation.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		chartFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shipdash",
			Name:      "chart_failures_total",
			Help:      "Charts rendered in an error state.",
		}, []string{"chart"}),
		datasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shipdash",
			Name:      "dataset_records",
			Help:      "Records in the loaded dataset.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shipdash",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status.",
		}, []string{"method", "status"}),
	}

	m.registry.MustRegister(
		m.recomputations,
		m.recomputeDuration,
		m.viewRecords,
		m.chartFailures,
		m.datasetRecords,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveRecompute(d time.Duration, records int) {
	if m == nil {
		return
	}
	m.recomputations.Inc()
	m.recomputeDuration.Observe(d.Seconds())
	m.viewRecords.Observe(float64(records))
}

func (m *Metrics) ChartFailed(chartID string) {
	if m == nil {
		return
	}
	m.chartFailures.WithLabelValues(chartID).Inc()
}

func (m *Metrics) SetDatasetRecords(n int) {
	if m == nil {
		return
	}
	m.datasetRecords.Set(float64(n))
}

func (m *Metrics) ObserveRequest(method string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
