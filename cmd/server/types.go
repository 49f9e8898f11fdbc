package main

import (
	"errors"
	"fmt"

	"github.com/himanishpuri/SpeechGate/internal/config"
	"github.com/himanishpuri/SpeechGate/pkg/models"
	"github.com/himanishpuri/SpeechGate/pkg/speechgate"
)

// MaxPathsPerRequest bounds the file list accepted by POST /api/runs.
const MaxPathsPerRequest = 100000

// FilterRequest is the request body for POST /api/runs. Exactly one of
// Paths and DatasetDir must be set; paths are resolved on the server.
type FilterRequest struct {
	Paths      []string `json:"paths,omitempty"`
	DatasetDir string   `json:"dataset_dir,omitempty"`
}

// Validate checks if the request is valid
func (r *FilterRequest) Validate() error {
	if len(r.Paths) == 0 && r.DatasetDir == "" {
		return errors.New("one of paths or dataset_dir is required")
	}
	if len(r.Paths) > 0 && r.DatasetDir != "" {
		return errors.New("paths and dataset_dir are mutually exclusive")
	}
	if len(r.Paths) > MaxPathsPerRequest {
		return fmt.Errorf("too many paths: %d (maximum: %d)", len(r.Paths), MaxPathsPerRequest)
	}
	for i, p := range r.Paths {
		if p == "" {
			return fmt.Errorf("paths[%d] is empty", i)
		}
	}
	return nil
}

// RunResponse is the response for a completed batch
type RunResponse struct {
	RunID   string             `json:"run_id,omitempty"`
	Warning string             `json:"warning,omitempty"`
	Summary speechgate.Summary `json:"summary"`
	Results []any              `json:"results"`
	Count   int                `json:"count"`
}

// ListRunsResponse is the response for GET /api/runs
type ListRunsResponse struct {
	Runs  []models.Run `json:"runs"`
	Count int          `json:"count"`
}

// RunDetailResponse is the response for GET /api/runs/{id}
type RunDetailResponse struct {
	Run     models.Run         `json:"run"`
	Summary speechgate.Summary `json:"summary"`
}

// CompareResponse is the response for GET /api/runs/{id}/compare
type CompareResponse struct {
	RunID       string                  `json:"run_id"`
	Comparisons []speechgate.Comparison `json:"comparisons"`
}

// ResultsResponse is the response for GET /api/runs/{id}/results
type ResultsResponse struct {
	RunID   string `json:"run_id"`
	Results []any  `json:"results"`
	Count   int    `json:"count"`
}

// DeleteRunResponse is the response for DELETE /api/runs/{id}
type DeleteRunResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// StatusResponse reports the active configuration
type StatusResponse struct {
	Status       string              `json:"status"`
	DatabasePath string              `json:"database_path"`
	Workers      int                 `json:"workers"`
	RunCount     int                 `json:"run_count"`
	Filter       config.FilterConfig `json:"filter"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
