package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/seekrai/jobsearch/internal/search"
)

// searchJobs handles POST /api/search_jobs. Small analysis-free searches run
// inline and return the full payload; everything else returns a job_id for
// polling.
func (s *Server) searchJobs(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	out, err := s.starter.StartSearch(r.Context(), req)
	if err != nil {
		s.logger.Error("start search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if out.Background {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"job_id":  out.JobID,
			"message": out.Message,
		})
		return
	}
	writeJSON(w, http.StatusOK, out.Results)
}

// jobProgress handles GET /api/job_progress/{job_id}. The stored record is
// returned verbatim; unknown or cleaned-up identifiers yield 404.
func (s *Server) jobProgress(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job_id is required")
		return
	}

	rec, ok := s.store.Get(r.Context(), jobID)
	if !ok {
		s.logger.Warn("no progress found", zap.String("job_id", jobID))
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Job not found or completed"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
