package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seekrai/jobsearch/internal/orchestrator"
	"github.com/seekrai/jobsearch/internal/search"
)

type stubStarter struct {
	out orchestrator.Outcome
	err error

	lastReq search.Request
}

func (s *stubStarter) StartSearch(_ context.Context, req search.Request) (orchestrator.Outcome, error) {
	s.lastReq = req
	return s.out, s.err
}

type stubStore struct {
	recs map[string]search.ProgressRecord
}

func (s *stubStore) Put(_ context.Context, jobID string, rec search.ProgressRecord) {
	if s.recs == nil {
		s.recs = make(map[string]search.ProgressRecord)
	}
	s.recs[jobID] = rec
}

func (s *stubStore) Get(_ context.Context, jobID string) (search.ProgressRecord, bool) {
	rec, ok := s.recs[jobID]
	return rec, ok
}

func (s *stubStore) Delete(_ context.Context, jobID string) {
	delete(s.recs, jobID)
}

func newTestServer(starter SearchStarter, store search.ProgressStore) *Server {
	return NewServer(starter, store, zap.NewNop())
}

func TestSearchJobsBackgroundResponse(t *testing.T) {
	t.Parallel()

	starter := &stubStarter{out: orchestrator.Outcome{
		Background: true,
		JobID:      "job-42",
		Message:    "Job search started. Use the job_id to track progress.",
	}}
	srv := newTestServer(starter, &stubStore{})

	body := `{"search_terms":{"primary_search_terms":["golang"]},"desired_position":"Backend Engineer","results_wanted":50}`
	req := httptest.NewRequest(http.MethodPost, "/api/search_jobs", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 50, starter.lastReq.ResultsWanted)
	require.Equal(t, "Backend Engineer", starter.lastReq.DesiredPosition)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, true, resp["success"])
	require.Equal(t, "job-42", resp["job_id"])
	require.NotEmpty(t, resp["message"])
}

func TestSearchJobsSynchronousResponse(t *testing.T) {
	t.Parallel()

	results := &search.Results{
		Success: true,
		Jobs:    []search.Job{{Title: "Go Dev", Company: "Acme"}},
		Count:   1,
		SearchParams: search.Params{
			SearchTerm:    "go",
			Location:      "Remote",
			ResultsWanted: 5,
		},
		OutputFile: "jobs_test.csv",
	}
	srv := newTestServer(&stubStarter{out: orchestrator.Outcome{Results: results}}, &stubStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/search_jobs", bytes.NewBufferString(`{"results_wanted":5}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp search.Results
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, 1, resp.Count)
	require.False(t, resp.AnalysisEnabled)
	require.Equal(t, "jobs_test.csv", resp.OutputFile)
}

func TestSearchJobsInvalidJSON(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubStarter{}, &stubStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/search_jobs", bytes.NewBufferString(`{not json`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, false, resp["success"])
}

func TestSearchJobsStarterError(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubStarter{err: errors.New("all boards down")}, &stubStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/search_jobs", bytes.NewBufferString(`{"results_wanted":5}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, false, resp["success"])
	require.Contains(t, resp["error"], "all boards down")
}

func TestJobProgressFound(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := &stubStore{}
	store.Put(context.Background(), "job-7", search.ProgressRecord{
		Phase:     search.PhaseFetching,
		Percent:   40,
		Details:   "Found 12 jobs, processing...",
		Timestamp: &now,
	})
	srv := newTestServer(&stubStarter{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/job_progress/job-7", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp search.ProgressRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, search.PhaseFetching, resp.Phase)
	require.Equal(t, 40.0, resp.Percent)
	require.NotNil(t, resp.Timestamp)
}

func TestJobProgressNotFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubStarter{}, &stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/job_progress/unknown", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Job not found or completed", resp["error"])
}

func TestJobProgressHandlerDirect(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	store.Put(context.Background(), "job-9", search.ProgressRecord{Phase: search.PhaseComplete, Percent: 100})
	srv := newTestServer(&stubStarter{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/job_progress/job-9", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("job_id", "job-9")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rec := httptest.NewRecorder()
	srv.jobProgress(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubStarter{}, &stubStore{})

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRequestIDHeaderSet(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubStarter{}, &stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
