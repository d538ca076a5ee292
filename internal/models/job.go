package models

import (
	"time"
)

// JobStatus represents the status of a reconciliation run
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Reconciliation resources
const (
	ResourceReactions = "reactions"
	ResourceRatings   = "ratings"
	ResourceComments  = "comments"
	ResourceAll       = "all"
)

// ValidResources defines what a reconciliation run can target
var ValidResources = map[string]bool{
	ResourceReactions: true,
	ResourceRatings:   true,
	ResourceComments:  true,
	ResourceAll:       true,
}

// Job is a reconciliation run stored at jobs/{id}
type Job struct {
	ID             string     `json:"job_id"`
	Resource       string     `json:"resource"`
	Status         JobStatus  `json:"status"`
	Trigger        string     `json:"trigger"` // "schedule" or "api"
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
	ScannedCount   int        `json:"scanned"`
	CorrectedCount int        `json:"corrected"`
	FailedCount    int        `json:"failed"`
	DurationMs     int64      `json:"duration_ms,omitempty"`
	Error          string     `json:"error,omitempty"`
	Corrections    []Drift    `json:"corrections,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Drift records one repaired record
type Drift struct {
	Path  string `json:"path"`
	Field string `json:"field"`
	Was   any    `json:"was"`
	Now   any    `json:"now"`
}

// MaxRecordedDrifts caps the corrections kept on a job document
const MaxRecordedDrifts = 100

// ReconcileRequest is the body of POST /v1/reconciliations
type ReconcileRequest struct {
	Resource string `json:"resource"`
}
