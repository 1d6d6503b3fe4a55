package models

import "time"

// Snapshot kinds.
const (
	SnapshotRaw         = "raw"
	SnapshotProcessed   = "processed"
	SnapshotPredictions = "predictions"
	SnapshotActuals     = "actuals"
)

// Snapshot is one immutable object written to the blob store.
type Snapshot struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Kind      string    `json:"kind"`
	Location  string    `json:"location"`
	Rows      int       `json:"rows"`
	FromDate  string    `json:"from_date,omitempty"`
	ToDate    string    `json:"to_date,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Training run statuses.
const (
	RunSubmitted = "submitted"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// TrainingRun records a submission and, for in-process families, its outcome.
type TrainingRun struct {
	ID        string    `json:"id"`
	Family    string    `json:"family"`
	Mode      string    `json:"mode"`
	Dataset   string    `json:"dataset"`
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Metrics   *Metrics  `json:"metrics,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
