// Package api exposes the scoring pipeline over HTTP: direct assessment,
// the agent tool path, the assessment audit trail and summary stats.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/identity-trust/internal/config"
	"github.com/sells-group/identity-trust/internal/monitoring"
	"github.com/sells-group/identity-trust/internal/resilience"
	"github.com/sells-group/identity-trust/internal/scorer"
	"github.com/sells-group/identity-trust/internal/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	pipeline  *scorer.Pipeline
	store     store.Store
	records   RecordSource
	collector *monitoring.Collector
	metrics   *Metrics
	retry     resilience.RetryConfig

	cfg           config.ServerConfig
	concurrency   int
	lookbackHours int
}

// Option configures a Server.
type Option func(*Server)

// WithStore enables saving assessments and the audit trail endpoints. It
// also resolves queries against the people table and backs /v1/stats,
// unless WithRecordSource or WithCollector override them.
func WithStore(st store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithRecordSource sets how query-only requests are resolved to records.
func WithRecordSource(rs RecordSource) Option {
	return func(s *Server) { s.records = rs }
}

// WithCollector sets the snapshot collector behind /v1/stats.
func WithCollector(c *monitoring.Collector) Option {
	return func(s *Server) { s.collector = c }
}

// WithMetrics replaces the server's metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithRetry sets the retry policy for store writes.
func WithRetry(rc resilience.RetryConfig) Option {
	return func(s *Server) { s.retry = rc }
}

// NewServer creates a Server that scores with p.
func NewServer(p *scorer.Pipeline, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		pipeline:      p,
		cfg:           cfg.Server,
		concurrency:   cfg.Batch.MaxConcurrentRecords,
		lookbackHours: cfg.Monitoring.LookbackWindowHours,
		retry:         resilience.FromStoreConfig(cfg.Store.RetryMaxAttempts, cfg.Store.RetryBackoffMs),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.store != nil {
		if s.records == nil {
			s.records = NewStoreRecords(s.store)
		}
		if s.collector == nil {
			s.collector = monitoring.NewCollector(s.store, cfg.Monitoring)
		}
	}
	if s.retry.OnRetry == nil {
		s.retry.OnRetry = resilience.RetryLogger("api", "save assessments")
	}
	if s.lookbackHours <= 0 {
		s.lookbackHours = 24
	}
	return s
}

// Router builds the chi router with every route and middleware mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(s.instrument)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if s.cfg.RateLimitRPS > 0 {
			r.Use(newIPLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst).middleware(s.metrics))
		}
		r.Post("/assess", s.handleAssess)
		r.Post("/tools/trust-score", s.handleTrustScoreTool)
		r.Get("/assessments", s.handleListAssessments)
		r.Get("/assessments/{id}", s.handleGetAssessment)
		r.Get("/stats", s.handleStats)
	})

	return r
}

func (s *Server) corsOrigins() []string {
	if len(s.cfg.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.CORSOrigins
}

// instrument records request latency by matched route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.ObserveRequest(route, r.Method, strconv.Itoa(status), elapsed)

		zap.L().Debug("api: request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
