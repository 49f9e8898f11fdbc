package models

import (
	"encoding/json"
	"time"
)

// Run describes one persisted batch execution.
type Run struct {
	ID         string          `json:"id"`          // UUID of the run
	StartedAt  time.Time       `json:"started_at"`  // when the batch was submitted
	FinishedAt *time.Time      `json:"finished_at"` // nil while the run is in progress
	SampleRate int             `json:"sample_rate"`
	Config     json.RawMessage `json:"config,omitempty"`
	Total      int             `json:"total"`
	Accepted   int             `json:"accepted"`
	Rejected   int             `json:"rejected"`
}

// ResultFilter narrows ListResults. A nil Accepted returns every record; a
// Limit of zero means no limit.
type ResultFilter struct {
	Accepted *bool
	Limit    int
}
