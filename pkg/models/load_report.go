package models

import (
	"time"

	"github.com/google/uuid"
)

// Load run statuses recorded in the run history.
const (
	LoadRunSucceeded = "succeeded"
	LoadRunFailed    = "failed"
)

// LoadReport describes the outcome of one pipeline run.
type LoadReport struct {
	RunID      uuid.UUID     `json:"run_id" yaml:"run_id"`
	SourcePath string        `json:"source_path,omitempty" yaml:"source_path,omitempty"`
	Status     string        `json:"status" yaml:"status"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	Duration   time.Duration `json:"duration" yaml:"duration"`

	RowsRead           int `json:"rows_read" yaml:"rows_read"`
	CandidateFacts     int `json:"candidate_facts" yaml:"candidate_facts"`
	RejectedMissingID  int `json:"rejected_missing_identifier" yaml:"rejected_missing_identifier"`
	RejectedBadDate    int `json:"rejected_invalid_date" yaml:"rejected_invalid_date"`
	RejectedUnresolved int `json:"rejected_unresolved_reference" yaml:"rejected_unresolved_reference"`
	DuplicatesDropped  int `json:"duplicates_dropped" yaml:"duplicates_dropped"`

	// RejectionSamples holds the first few rejection messages for auditing.
	RejectionSamples []string `json:"rejection_samples,omitempty" yaml:"rejection_samples,omitempty"`

	Loaded LoadStats `json:"loaded" yaml:"loaded"`

	CacheInvalidated bool `json:"cache_invalidated" yaml:"cache_invalidated"`
	GraphProjected   bool `json:"graph_projected" yaml:"graph_projected"`
}
