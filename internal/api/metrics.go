package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/identity-trust/internal/model"
)

// Metrics holds the API's prometheus collectors. Each Metrics owns its
// registry so servers built in tests never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	RequestDuration *prometheus.HistogramVec
	Assessments     *prometheus.CounterVec
	Scores          *prometheus.HistogramVec
	RateLimited     prometheus.Counter
	StoreErrors     *prometheus.CounterVec
}

// NewMetrics creates and registers the API metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trust_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route, method and status",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route", "method", "status"}),

		Assessments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trust_assessments_total",
			Help: "Total records assessed by entry point",
		}, []string{"endpoint"}),

		Scores: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trust_score",
			Help:    "Distribution of produced scores by kind",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}, []string{"kind"}), // kind: ts_raw, cs, dis_option1, dis_option2

		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "trust_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		}),

		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trust_store_errors_total",
			Help: "Store operations that failed after retries",
		}, []string{"operation"}),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveAssessment records one assessment's scores.
func (m *Metrics) ObserveAssessment(endpoint string, a model.Assessment) {
	if m == nil {
		return
	}
	m.Assessments.WithLabelValues(endpoint).Inc()
	m.Scores.WithLabelValues("ts_raw").Observe(a.TSRaw)
	m.Scores.WithLabelValues("cs").Observe(a.CS)
	m.Scores.WithLabelValues("dis_option1").Observe(a.DISOption1)
	m.Scores.WithLabelValues("dis_option2").Observe(a.DISOption2)
}

// ObserveRequest records the duration of one HTTP request.
func (m *Metrics) ObserveRequest(route, method, status string, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(route, method, status).Observe(d.Seconds())
	}
}

// IncStoreError counts a store failure.
func (m *Metrics) IncStoreError(operation string) {
	if m != nil {
		m.StoreErrors.WithLabelValues(operation).Inc()
	}
}

// IncRateLimited counts a rejected request.
func (m *Metrics) IncRateLimited() {
	if m != nil {
		m.RateLimited.Inc()
	}
}
