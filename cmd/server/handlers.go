package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/marcosal/setdecoder/pkg/logger"
	"github.com/marcosal/setdecoder/pkg/setdecoder"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service setdecoder.Service
	jobs    *Registry
	config  *ServerConfig
	log     setdecoder.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	TempDir        string
	Interval       time.Duration
	Workers        int
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service setdecoder.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		jobs:    NewRegistry(),
		config:  config,
		log:     logger.GetLogger(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "SetDecoder API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":    "GET /health",
			"identify":  "POST /api/identify",
			"status":    "GET /api/status/{id}",
			"listJobs":  "GET /api/jobs/",
			"jobStatus": "GET /api/jobs/{id}",
			"cancelJob": "DELETE /api/jobs/{id}",
			"exportJob": "GET /api/jobs/{id}/export",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleIdentify handles POST /api/identify
func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req IdentifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	interval := req.Interval()
	if interval == 0 {
		interval = s.config.Interval
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := newJob(req.URL, interval, cancel)
	s.jobs.Add(job)

	go func() {
		defer cancel()
		result, err := s.service.Run(ctx, job.SourceURL, job.Interval, job)
		if err != nil {
			s.log.Warnf("Job %s ended with error: %v", job.ID, err)
		}
		job.Finish(result, err)
	}()

	s.log.Infof("Started identification job %s for %s (interval %s)", job.ID, req.URL, interval)
	s.respondJSON(w, http.StatusAccepted, IdentifyResponse{
		JobID:   job.ID,
		State:   JobStateRunning,
		Message: "Identification started",
	})
}

// handleStatus handles GET /api/status/{id}, a read-only alias of the job
// status endpoint
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/status/"), "/")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "Job ID is required")
		return
	}
	job, ok := s.jobs.Get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Job not found: %s", id))
		return
	}
	s.respondJSON(w, http.StatusOK, job.Status())
}

// handleJob dispatches /api/jobs/{id} and /api/jobs/{id}/export
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		if r.Method == http.MethodGet {
			s.handleListJobs(w)
			return
		}
		s.respondError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, ok := s.jobs.Get(parts[0])
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Job not found: %s", parts[0]))
		return
	}

	if len(parts) == 2 && parts[1] == "export" {
		if r.Method != http.MethodGet {
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		s.handleExport(w, job)
		return
	}
	if len(parts) != 1 {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.respondJSON(w, http.StatusOK, job.Status())
	case http.MethodDelete:
		job.Cancel()
		s.log.Infof("Cancellation requested for job %s", job.ID)
		s.respondJSON(w, http.StatusOK, CancelResponse{
			JobID:   job.ID,
			Message: "Cancellation requested",
		})
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleListJobs handles GET /api/jobs/
func (s *Server) handleListJobs(w http.ResponseWriter) {
	jobs := s.jobs.List()
	statuses := make([]JobStatusResponse, 0, len(jobs))
	for _, job := range jobs {
		statuses = append(statuses, job.Status())
	}
	s.respondJSON(w, http.StatusOK, ListJobsResponse{
		Jobs:  statuses,
		Count: len(statuses),
	})
}

// handleExport streams the finished tracklist as a JSON document
func (s *Server) handleExport(w http.ResponseWriter, job *Job) {
	result := job.Result()
	if result == nil {
		s.respondError(w, http.StatusConflict, "Job is still running")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "tracklist-"+job.ID+".json"))
	if err := setdecoder.ExportTracklist(w, result); err != nil {
		s.log.Errorf("Failed to export tracklist for job %s: %v", job.ID, err)
	}
}
