package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/SpeechGate/internal/config"
	"github.com/himanishpuri/SpeechGate/internal/report"
	"github.com/himanishpuri/SpeechGate/pkg/logger"
	"github.com/himanishpuri/SpeechGate/pkg/models"
	"github.com/himanishpuri/SpeechGate/pkg/speechgate"
	"github.com/himanishpuri/SpeechGate/pkg/utils"
)

const (
	runTimeout     = 2 * time.Hour
	checkTimeout   = 5 * time.Minute
	maxUploadBytes = 100 << 20
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service speechgate.Service
	metrics *speechgate.MetricsRecorder
	config  *ServerConfig
	log     speechgate.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	Workers        int
	Filter         config.FilterConfig
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service speechgate.Service, rec *speechgate.MetricsRecorder, cfg *ServerConfig) *Server {
	if rec == nil {
		rec = speechgate.NewMetricsRecorder()
	}
	return &Server{
		service: service,
		metrics: rec,
		config:  cfg,
		log:     logger.GetLogger(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
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

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, speechgate.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, speechgate.ErrNoStorage):
		return http.StatusServiceUnavailable
	case errors.Is(err, speechgate.ErrNoInputFiles):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "SpeechGate API",
		"version": "0.1.0",
		"endpoints": map[string]string{
			"health":     "GET /health",
			"metrics":    "GET /metrics",
			"status":     "GET /api/status",
			"listRuns":   "GET /api/runs",
			"createRun":  "POST /api/runs",
			"getRun":     "GET /api/runs/{id}",
			"deleteRun":  "DELETE /api/runs/{id}",
			"runResults": "GET /api/runs/{id}/results",
			"runCompare": "GET /api/runs/{id}/compare",
			"checkFile":  "POST /api/check",
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

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		Workers:      s.config.Workers,
		Filter:       s.config.Filter,
	}

	runs, err := s.service.ListRuns(0)
	switch {
	case err == nil:
		resp.RunCount = len(runs)
	case errors.Is(err, speechgate.ErrNoStorage):
		resp.DatabasePath = ""
	default:
		s.log.Errorf("Failed to count runs: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve status")
		return
	}

	s.respondJSON(w, http.StatusOK, resp)
}

// handleListRuns handles GET /api/runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := s.service.ListRuns(limit)
	if err != nil {
		s.log.Errorf("Failed to list runs: %v", err)
		s.respondError(w, statusFor(err), "Failed to retrieve runs")
		return
	}
	if runs == nil {
		runs = []models.Run{}
	}

	s.respondJSON(w, http.StatusOK, ListRunsResponse{Runs: runs, Count: len(runs)})
}

// handleCreateRun handles POST /api/runs
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), runTimeout)
	defer cancel()

	var (
		rep *speechgate.RunReport
		err error
	)
	if req.DatasetDir != "" {
		s.log.Infof("Filtering dataset directory %s", req.DatasetDir)
		rep, err = s.service.FilterDirectory(ctx, req.DatasetDir)
	} else {
		s.log.Infof("Filtering %d files", len(req.Paths))
		rep, err = s.service.FilterFiles(ctx, req.Paths)
	}
	if rep == nil {
		s.log.Errorf("Run failed: %v", err)
		s.respondError(w, statusFor(err), fmt.Sprintf("Run failed: %v", err))
		return
	}

	s.respondJSON(w, http.StatusCreated, s.runResponse(rep, err))
}

// runResponse carries a finished batch; a persistence error becomes a warning.
func (s *Server) runResponse(rep *speechgate.RunReport, err error) RunResponse {
	resp := RunResponse{
		RunID:   rep.RunID,
		Summary: rep.Summary,
		Results: report.JSONRecords(rep.Results),
		Count:   len(rep.Results),
	}
	if err != nil {
		s.log.Errorf("Run not stored: %v", err)
		resp.Warning = err.Error()
	}
	return resp
}

// handleGetRun handles GET /api/runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := s.service.GetRun(runID)
	if err != nil {
		s.respondError(w, statusFor(err), fmt.Sprintf("Run %s: %v", runID, err))
		return
	}

	results, err := s.service.RunResults(runID, models.ResultFilter{})
	if err != nil {
		s.log.Errorf("Failed to load results for run %s: %v", runID, err)
		s.respondError(w, statusFor(err), "Failed to retrieve results")
		return
	}

	s.respondJSON(w, http.StatusOK, RunDetailResponse{Run: run, Summary: report.Summarize(results)})
}

// handleRunResults handles GET /api/runs/{id}/results
func (s *Server) handleRunResults(w http.ResponseWriter, r *http.Request, runID string) {
	var rf models.ResultFilter
	if v := r.URL.Query().Get("accepted"); v != "" {
		accepted, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "accepted must be true or false")
			return
		}
		rf.Accepted = &accepted
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rf.Limit = limit

	results, err := s.service.RunResults(runID, rf)
	if err != nil {
		s.respondError(w, statusFor(err), fmt.Sprintf("Run %s: %v", runID, err))
		return
	}

	s.respondJSON(w, http.StatusOK, ResultsResponse{
		RunID:   runID,
		Results: report.JSONRecords(results),
		Count:   len(results),
	})
}

// handleDeleteRun handles DELETE /api/runs/{id}
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request, runID string) {
	if err := s.service.DeleteRun(runID); err != nil {
		s.log.Warnf("Failed to delete run %s: %v", runID, err)
		s.respondError(w, statusFor(err), fmt.Sprintf("Run %s: %v", runID, err))
		return
	}

	s.log.Infof("Deleted run %s", runID)
	s.respondJSON(w, http.StatusOK, DeleteRunResponse{
		Message: "Run deleted successfully",
		ID:      runID,
	})
}

// handleCheck handles POST /api/check (multipart upload of a single file)
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !utils.IsAudioFile(name) {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unsupported audio format: %s", name))
		return
	}

	// Keep the client's file name so the stored result is recognisable.
	uploadDir, err := os.MkdirTemp(s.config.TempDir, "upload-*")
	if err != nil {
		s.log.Errorf("Failed to create upload dir: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	defer os.RemoveAll(uploadDir)

	tempFile := filepath.Join(uploadDir, name)
	out, err := os.Create(tempFile)
	if err != nil {
		s.log.Errorf("Failed to create temp file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		s.log.Errorf("Failed to save file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}
	out.Close()

	rep, err := s.service.FilterFiles(ctx, []string{tempFile})
	if rep == nil {
		s.log.Errorf("Check failed: %v", err)
		s.respondError(w, statusFor(err), fmt.Sprintf("Check failed: %v", err))
		return
	}

	s.respondJSON(w, http.StatusOK, s.runResponse(rep, err))
}

// handleRuns routes requests to /api/runs
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListRuns(w, r)
	case http.MethodPost:
		s.handleCreateRun(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleRun routes requests to /api/runs/{id} and /api/runs/{id}/results
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/runs/"), "/")
	if rest == "" {
		s.respondError(w, http.StatusBadRequest, "Run ID required")
		return
	}

	runID, sub, _ := strings.Cut(rest, "/")
	switch {
	case sub == "" && r.Method == http.MethodGet:
		s.handleGetRun(w, r, runID)
	case sub == "" && r.Method == http.MethodDelete:
		s.handleDeleteRun(w, r, runID)
	case sub == "results" && r.Method == http.MethodGet:
		s.handleRunResults(w, r, runID)
	case sub == "compare" && r.Method == http.MethodGet:
		s.handleCompareRun(w, r, runID)
	case sub == "" || sub == "results" || sub == "compare":
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		http.NotFound(w, r)
	}
}

// handleCheckRoute routes requests to /api/check
func (s *Server) handleCheckRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleCheck(w, r)
}

// handleCompareRun handles GET /api/runs/{id}/compare. min_snr and
// max_silence add a custom preset; an omitted one keeps the Default value.
func (s *Server) handleCompareRun(w http.ResponseWriter, r *http.Request, runID string) {
	var extra []speechgate.PresetLimits
	q := r.URL.Query()
	if q.Has("min_snr") || q.Has("max_silence") {
		custom := report.StandardLimits[0]
		custom.Name = "Custom"
		var err error
		if q.Has("min_snr") {
			if custom.MinSNRDB, err = queryFloat(r, "min_snr"); err != nil {
				s.respondError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		if q.Has("max_silence") {
			custom.MaxSilenceRatio, err = queryFloat(r, "max_silence")
			if err == nil && (custom.MaxSilenceRatio < 0 || custom.MaxSilenceRatio > 1) {
				err = fmt.Errorf("max_silence must be within [0,1]")
			}
			if err != nil {
				s.respondError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		extra = append(extra, custom)
	}

	rows, err := s.service.CompareRun(runID, extra...)
	if err != nil {
		s.respondError(w, statusFor(err), fmt.Sprintf("Run %s: %v", runID, err))
		return
	}
	s.respondJSON(w, http.StatusOK, CompareResponse{RunID: runID, Comparisons: rows})
}

func queryFloat(r *http.Request, key string) (float64, error) {
	v, err := strconv.ParseFloat(r.URL.Query().Get(key), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a finite number", key)
	}
	return v, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}
