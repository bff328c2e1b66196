package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/identity-trust/internal/model"
	"github.com/sells-group/identity-trust/internal/resilience"
	"github.com/sells-group/identity-trust/internal/store"
)

// AssessRequest is the body of /v1/assess and /v1/tools/trust-score.
// Inline Records are scored directly; otherwise Query is resolved through
// the server's RecordSource.
type AssessRequest struct {
	Query   string         `json:"query"`
	Records []model.Record `json:"records,omitempty"`
	Save    *bool          `json:"save,omitempty"`
}

// AssessResponse is the body returned by /v1/assess.
type AssessResponse struct {
	Query   string             `json:"query,omitempty"`
	Count   int                `json:"count"`
	Saved   bool               `json:"saved"`
	Results []model.Assessment `json:"results"`
}

// httpError carries a status code and client-facing message.
type httpError struct {
	status int
	msg    string
	err    error
}

func (e *httpError) Error() string { return e.msg }

func badRequest(msg string) *httpError {
	return &httpError{status: http.StatusBadRequest, msg: msg}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			zap.L().Warn("api: store ping failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": "unreachable"})
			return
		}
		status["store"] = "ok"
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	req, herr := decodeAssessRequest(w, r)
	if herr != nil {
		s.fail(w, r, herr)
		return
	}

	results, saved, herr := s.assess(r.Context(), "assess", req)
	if herr != nil {
		s.fail(w, r, herr)
		return
	}

	writeJSON(w, http.StatusOK, AssessResponse{
		Query:   req.Query,
		Count:   len(results),
		Saved:   saved,
		Results: results,
	})
}

func (s *Server) handleTrustScoreTool(w http.ResponseWriter, r *http.Request) {
	req, herr := decodeAssessRequest(w, r)
	if herr != nil {
		s.fail(w, r, herr)
		return
	}

	results, _, herr := s.assess(r.Context(), "tool", req)
	if herr != nil {
		s.fail(w, r, herr)
		return
	}

	maxCS := s.pipeline.Weights().MaxCS
	blocks := make([]ContentBlock, len(results))
	for i, a := range results {
		blocks[i] = NewContentBlock(a, maxCS)
	}
	writeJSON(w, http.StatusOK, ToolResult{Query: req.Query, Content: blocks})
}

func decodeAssessRequest(w http.ResponseWriter, r *http.Request) (AssessRequest, *httpError) {
	var req AssessRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return req, badRequest("invalid request body")
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" && len(req.Records) == 0 {
		return req, badRequest("query or records is required")
	}
	return req, nil
}

// assess resolves, scores and optionally saves the records of req.
func (s *Server) assess(ctx context.Context, endpoint string, req AssessRequest) ([]model.Assessment, bool, *httpError) {
	recs := req.Records
	limit := s.cfg.MaxRecords

	if len(recs) == 0 {
		if s.records == nil {
			return nil, false, &httpError{status: http.StatusServiceUnavailable, msg: "record lookup is not configured"}
		}
		found, err := s.records.Search(ctx, req.Query, limit)
		if err != nil {
			s.metrics.IncStoreError("search_people")
			return nil, false, &httpError{status: http.StatusInternalServerError, msg: "record lookup failed", err: err}
		}
		if len(found) == 0 {
			return nil, false, &httpError{status: http.StatusNotFound, msg: "no records match query"}
		}
		recs = found
	} else if limit > 0 && len(recs) > limit {
		return nil, false, badRequest(fmt.Sprintf("at most %d records per request", limit))
	}

	results, err := s.pipeline.AssessBatch(ctx, recs, s.concurrency)
	if err != nil {
		return nil, false, &httpError{status: http.StatusInternalServerError, msg: "assessment failed", err: err}
	}
	for i := range results {
		results[i].Query = req.Query
		s.metrics.ObserveAssessment(endpoint, results[i])
	}

	save := s.cfg.SaveByDefault
	if req.Save != nil {
		save = *req.Save
	}
	if !save || s.store == nil {
		return results, false, nil
	}

	err = resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		return s.store.SaveAssessments(ctx, results)
	})
	if err != nil {
		s.metrics.IncStoreError("save_assessments")
		return nil, false, &httpError{status: http.StatusInternalServerError, msg: "save assessments failed", err: err}
	}
	return results, true, nil
}

func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.fail(w, r, &httpError{status: http.StatusServiceUnavailable, msg: "store is not configured"})
		return
	}

	id := chi.URLParam(r, "id")
	a, err := s.store.GetAssessment(r.Context(), id)
	if eris.Is(err, store.ErrNotFound) {
		s.fail(w, r, &httpError{status: http.StatusNotFound, msg: "assessment not found"})
		return
	}
	if err != nil {
		s.metrics.IncStoreError("get_assessment")
		s.fail(w, r, &httpError{status: http.StatusInternalServerError, msg: "get assessment failed", err: err})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.fail(w, r, &httpError{status: http.StatusServiceUnavailable, msg: "store is not configured"})
		return
	}

	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"), 50)
	if err != nil || limit < 1 {
		s.fail(w, r, badRequest("limit must be a positive integer"))
		return
	}
	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		s.fail(w, r, badRequest("offset must be a non-negative integer"))
		return
	}

	as, err := s.store.ListAssessments(r.Context(), store.AssessmentFilter{
		Query:    q.Get("query"),
		RecordID: q.Get("record_id"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.metrics.IncStoreError("list_assessments")
		s.fail(w, r, &httpError{status: http.StatusInternalServerError, msg: "list assessments failed", err: err})
		return
	}
	if as == nil {
		as = []model.Assessment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(as), "assessments": as})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		s.fail(w, r, &httpError{status: http.StatusServiceUnavailable, msg: "store is not configured"})
		return
	}

	hours, err := queryInt(r.URL.Query().Get("lookback_hours"), s.lookbackHours)
	if err != nil || hours < 1 {
		s.fail(w, r, badRequest("lookback_hours must be a positive integer"))
		return
	}

	snap, err := s.collector.Collect(r.Context(), hours)
	if err != nil {
		s.metrics.IncStoreError("collect_stats")
		s.fail(w, r, &httpError{status: http.StatusInternalServerError, msg: "collect stats failed", err: err})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// fail logs server-side failures and writes the JSON error body.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, e *httpError) {
	if e.status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.String("error", e.msg),
			zap.Error(e.err),
		)
	}
	writeError(w, e.status, e.msg)
}

func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
