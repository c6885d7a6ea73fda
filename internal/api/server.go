// Package api exposes the HTTP interface for the search service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vidstream-labs/searchcore/internal/config"
	"github.com/vidstream-labs/searchcore/internal/metrics"
	"github.com/vidstream-labs/searchcore/internal/scheduler"
	"github.com/vidstream-labs/searchcore/internal/search"
)

// PendingCounter reports the number of queued jobs for the health endpoint.
type PendingCounter interface {
	Len() int
}

// Server wires HTTP handlers to the scheduler.
type Server struct {
	router    chi.Router
	scheduler *scheduler.Scheduler
	pending   PendingCounter
	cfg       config.Config
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	sched *scheduler.Scheduler,
	pending PendingCounter,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		scheduler: sched,
		pending:   pending,
		cfg:       cfg,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(cfg.ServerTimeout()))
	r.Use(metricsMiddleware)
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(logger, cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Post("/", s.submitSearch)
		r.Get("/jobs", s.listJobs)
		r.Get("/{job_id}", s.getSearchJob)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	pending := 0
	if s.pending != nil {
		pending = s.pending.Len()
	}
	metrics.SetPendingJobs(pending)
	writeJSON(s.logger, w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"service":      "search-service",
		"jobs_pending": pending,
	})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

type searchRequest struct {
	Query  string  `json:"query"`
	UserID string  `json:"user_id"`
	Scope  []int64 `json:"video_ids"`
}

func (s *Server) submitSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid JSON")
		return
	}
	jobID, err := s.scheduler.Submit(r.Context(), req.Query, req.UserID, req.Scope)
	if err != nil {
		if errors.Is(err, search.ErrQueryRequired) {
			writeError(s.logger, w, http.StatusBadRequest, "query required")
			return
		}
		writeError(s.logger, w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(search.JobStatusPending),
	})
}

func (s *Server) getSearchJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.scheduler.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(s.logger, w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, jobView(job))
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("user_id")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(s.logger, w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	jobs, total, err := s.scheduler.ListJobs(r.Context(), owner, limit)
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	views := make([]map[string]any, len(jobs))
	for i, job := range jobs {
		views[i] = jobView(job)
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{
		"jobs":  views,
		"total": total,
	})
}

// jobView builds the poll payload: results only on completed, error only on
// failed.
func jobView(job search.Job) map[string]any {
	view := map[string]any{
		"job_id":     job.ID,
		"query":      job.Query,
		"status":     string(job.Status),
		"created_at": job.Submitted.Format(time.RFC3339Nano),
	}
	if job.Owner != "" {
		view["user_id"] = job.Owner
	}
	if job.Started != nil {
		view["started_at"] = job.Started.Format(time.RFC3339Nano)
	}
	if job.Completed != nil {
		view["completed_at"] = job.Completed.Format(time.RFC3339Nano)
	}
	switch job.Status {
	case search.JobStatusCompleted:
		results := job.Results
		if results == nil {
			results = []search.Result{}
		}
		view["results"] = results
	case search.JobStatusFailed:
		view["error"] = job.ErrorText
	}
	return view
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(logger *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(logger, w, status, map[string]string{"error": msg})
}
