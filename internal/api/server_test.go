package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/identity-trust/internal/config"
	"github.com/sells-group/identity-trust/internal/model"
	"github.com/sells-group/identity-trust/internal/monitoring"
	"github.com/sells-group/identity-trust/internal/resilience"
	"github.com/sells-group/identity-trust/internal/scorer"
	"github.com/sells-group/identity-trust/internal/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Store:  config.StoreConfig{RetryMaxAttempts: 3, RetryBackoffMs: 1},
		Server: config.ServerConfig{Port: 8080, MaxRecords: 5},
		Batch:  config.BatchConfig{MaxConcurrentRecords: 2},
		Monitoring: config.MonitoringConfig{
			LookbackWindowHours: 24,
			LowTrustScore:       40,
			LowConfidenceScore:  60,
		},
	}
}

func testPipeline() *scorer.Pipeline {
	return scorer.New(scorer.DefaultWeights(), scorer.WithClock(func() time.Time { return testNow }))
}

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}

func person(id, email string) model.Record {
	return model.Record{
		"id":       id,
		"name":     "Person " + id,
		"email":    email,
		"phone":    "+1 555 0100",
		"city":     "Austin",
		"is_valid": true,
		"reg_date": "2026-01-01",
	}
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

type stubRecords struct {
	recs []model.Record
	err  error
	got  string
}

func (s *stubRecords) Search(_ context.Context, query string, _ int) ([]model.Record, error) {
	s.got = query
	return s.recs, s.err
}

// flakyStore fails SaveAssessments with a transient error a fixed number of
// times. Only the methods the handlers call are implemented.
type flakyStore struct {
	store.Store
	failures int32
	calls    atomic.Int32
}

func (f *flakyStore) SaveAssessments(context.Context, []model.Assessment) error {
	if f.calls.Add(1) <= f.failures {
		return resilience.NewTransientError(errors.New("database is locked"))
	}
	return nil
}

func TestHealth(t *testing.T) {
	t.Run("no store", func(t *testing.T) {
		h := NewServer(testPipeline(), testConfig()).Router()
		rr := do(t, h, http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
		assert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])
	})

	t.Run("with store", func(t *testing.T) {
		h := NewServer(testPipeline(), testConfig(), WithStore(newSQLiteStore(t))).Router()
		rr := do(t, h, http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "ok", decode[map[string]string](t, rr)["store"])
	})
}

func TestAssess_InlineRecords(t *testing.T) {
	h := NewServer(testPipeline(), testConfig()).Router()
	rr := do(t, h, http.MethodPost, "/v1/assess", AssessRequest{
		Query:   "jane",
		Records: []model.Record{person("p-1", "jane@acme.io"), {"name": "Anon"}},
	})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[AssessResponse](t, rr)
	assert.Equal(t, "jane", resp.Query)
	assert.Equal(t, 2, resp.Count)
	assert.False(t, resp.Saved)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "p-1", resp.Results[0].RecordID)
	assert.Equal(t, "jane", resp.Results[0].Query)
	assert.Equal(t, "Anon", resp.Results[1].Name)
	assert.Greater(t, resp.Results[0].DISOption1, resp.Results[1].DISOption1)
}

func TestAssess_MatchesPipeline(t *testing.T) {
	p := testPipeline()
	h := NewServer(p, testConfig()).Router()
	rec := person("p-1", "jane@acme.io")

	rr := do(t, h, http.MethodPost, "/v1/assess", AssessRequest{Records: []model.Record{rec}})
	require.Equal(t, http.StatusOK, rr.Code)

	want := p.Assess(rec)
	got := decode[AssessResponse](t, rr).Results[0]
	assert.InDelta(t, want.TSRaw, got.TSRaw, 1e-9)
	assert.InDelta(t, want.CS, got.CS, 1e-9)
	assert.InDelta(t, want.DISOption1, got.DISOption1, 1e-9)
	assert.InDelta(t, want.DISOption2, got.DISOption2, 1e-9)
}

func TestAssess_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		status  int
		wantErr string
	}{
		{"invalid json", "{not json", http.StatusBadRequest, "invalid request body"},
		{"empty", AssessRequest{}, http.StatusBadRequest, "query or records is required"},
		{"blank query", AssessRequest{Query: "   "}, http.StatusBadRequest, "query or records is required"},
		{
			"too many records",
			AssessRequest{Records: make([]model.Record, 6)},
			http.StatusBadRequest,
			"at most 5 records per request",
		},
		{"query without lookup", AssessRequest{Query: "jane"}, http.StatusServiceUnavailable, "record lookup is not configured"},
	}

	h := NewServer(testPipeline(), testConfig()).Router()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/v1/assess", tt.body)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.wantErr, decode[map[string]string](t, rr)["error"])
		})
	}
}

func TestAssess_QueryLookup(t *testing.T) {
	tests := []struct {
		name   string
		src    *stubRecords
		status int
	}{
		{"found", &stubRecords{recs: []model.Record{person("p-1", "jane@acme.io")}}, http.StatusOK},
		{"none", &stubRecords{}, http.StatusNotFound},
		{"error", &stubRecords{err: errors.New("db down")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewServer(testPipeline(), testConfig(), WithRecordSource(tt.src)).Router()
			rr := do(t, h, http.MethodPost, "/v1/assess", AssessRequest{Query: " jane "})

			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, "jane", tt.src.got)
		})
	}
}

func TestAssess_SaveAndAuditTrail(t *testing.T) {
	st := newSQLiteStore(t)
	_, err := st.UpsertPeople(context.Background(), []model.Record{
		person("p-1", "jane@acme.io"),
		person("p-2", "john@gmail.com"),
	})
	require.NoError(t, err)

	h := NewServer(testPipeline(), testConfig(), WithStore(st)).Router()
	save := true

	rr := do(t, h, http.MethodPost, "/v1/assess", AssessRequest{Query: "person p-1", Save: &save})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[AssessResponse](t, rr)
	assert.True(t, resp.Saved)
	require.Len(t, resp.Results, 1)
	id := resp.Results[0].ID
	require.NotEmpty(t, id)

	t.Run("get", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/v1/assessments/"+id, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		got := decode[model.Assessment](t, rr)
		assert.Equal(t, "p-1", got.RecordID)
		assert.Equal(t, "person p-1", got.Query)
	})

	t.Run("get missing", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/v1/assessments/nope", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("list", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/v1/assessments?limit=10", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		body := decode[struct {
			Count       int                `json:"count"`
			Assessments []model.Assessment `json:"assessments"`
		}](t, rr)
		assert.Equal(t, 1, body.Count)
		assert.Equal(t, id, body.Assessments[0].ID)
	})

	t.Run("list bad limit", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/v1/assessments?limit=abc", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("stats", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/v1/stats", nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		snap := decode[monitoring.Snapshot](t, rr)
		assert.Equal(t, 1, snap.StoredTotal)
		assert.Equal(t, 24, snap.LookbackHours)
	})

	t.Run("stats bad lookback", func(t *testing.T) {
		rr := do(t, h, http.MethodGet, "/v1/stats?lookback_hours=0", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAssess_NotSavedByDefault(t *testing.T) {
	st := newSQLiteStore(t)
	h := NewServer(testPipeline(), testConfig(), WithStore(st)).Router()

	rr := do(t, h, http.MethodPost, "/v1/assess", AssessRequest{Records: []model.Record{person("p-1", "a@b.io")}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[AssessResponse](t, rr).Saved)

	n, err := st.CountAssessments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAssess_SaveRetriesTransientErrors(t *testing.T) {
	t.Run("recovers", func(t *testing.T) {
		fs := &flakyStore{failures: 2}
		h := NewServer(testPipeline(), testConfig(), WithStore(fs)).Router()

		save := true
		rr := do(t, h, http.MethodPost, "/v1/assess", AssessRequest{Records: []model.Record{person("p-1", "a@b.io")}, Save: &save})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.True(t, decode[AssessResponse](t, rr).Saved)
		assert.Equal(t, int32(3), fs.calls.Load())
	})

	t.Run("gives up", func(t *testing.T) {
		fs := &flakyStore{failures: 10}
		h := NewServer(testPipeline(), testConfig(), WithStore(fs)).Router()

		save := true
		rr := do(t, h, http.MethodPost, "/v1/assess", AssessRequest{Records: []model.Record{person("p-1", "a@b.io")}, Save: &save})
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "save assessments failed", decode[map[string]string](t, rr)["error"])
		assert.Equal(t, int32(3), fs.calls.Load())
	})
}

func TestStoreEndpoints_NoStore(t *testing.T) {
	h := NewServer(testPipeline(), testConfig()).Router()
	for _, path := range []string{"/v1/assessments", "/v1/assessments/x", "/v1/stats"} {
		t.Run(path, func(t *testing.T) {
			rr := do(t, h, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		})
	}
}

func TestTrustScoreTool(t *testing.T) {
	h := NewServer(testPipeline(), testConfig()).Router()
	rr := do(t, h, http.MethodPost, "/v1/tools/trust-score", AssessRequest{
		Query:   "jane",
		Records: []model.Record{person("p-1", "jane@acme.io")},
	})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[ToolResult](t, rr)
	assert.Equal(t, "jane", res.Query)
	require.Len(t, res.Content, 1)

	block := res.Content[0]
	assert.Equal(t, ContentTypeTrustScore, block.Type)
	assert.Equal(t, "p-1", block.RecordID)
	require.Len(t, block.Gauges, 2)
	assert.Equal(t, "Trust Score", block.Gauges[0].Label)
	assert.InDelta(t, block.Assessment.DISOption1, block.Gauges[0].Value, 1e-9)
	assert.Equal(t, "Confidence Score", block.Gauges[1].Label)
	assert.InDelta(t, block.Assessment.CS, block.Gauges[1].Value, 1e-9)
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewServer(testPipeline(), testConfig()).Router()
	do(t, h, http.MethodPost, "/v1/assess", AssessRequest{Records: []model.Record{person("p-1", "a@b.io")}})

	rr := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `trust_assessments_total{endpoint="assess"} 1`)
	assert.Contains(t, body, "trust_score_bucket")
	assert.Contains(t, body, `route="/v1/assess"`)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimitRPS = 0.001
	cfg.Server.RateLimitBurst = 1
	h := NewServer(testPipeline(), cfg).Router()

	body := AssessRequest{Records: []model.Record{person("p-1", "a@b.io")}}
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/v1/assess", body).Code)

	rr := do(t, h, http.MethodPost, "/v1/assess", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))

	// Health and metrics sit outside the limiter.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", nil).Code)
}

func TestCORS(t *testing.T) {
	h := NewServer(testPipeline(), testConfig()).Router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
