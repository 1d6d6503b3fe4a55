package models

import "time"

// JobTrainInProcess is the queue message type of in-process training jobs.
const JobTrainInProcess = "train.inprocess"

// DatasetProcessed announces a new processed snapshot; consumers dispatch
// training for it.
type DatasetProcessed struct {
	Symbol   string    `json:"symbol" validate:"required"`
	Location string    `json:"location" validate:"required"`
	Rows     int       `json:"rows"`
	Families []string  `json:"families,omitempty"`
	At       time.Time `json:"at"`
}

// TrainingJobSpec is everything a submitter needs to start one training job.
type TrainingJobSpec struct {
	Name       string            `json:"name" validate:"required,max=127"`
	Family     string            `json:"family" validate:"required"`
	Mode       string            `json:"mode"`
	Dataset    string            `json:"dataset" validate:"required"`
	Image      string            `json:"image,omitempty"`
	OutputPath string            `json:"output_path,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
	RunID      string            `json:"run_id"`

	// SubmittedAt is the creation time of the run record.
	SubmittedAt time.Time `json:"submitted_at"`
}

// Submission is the dispatcher's per-family answer.
type Submission struct {
	Family string `json:"family"`
	Mode   string `json:"mode"`
	JobID  string `json:"job_id"`
	Name   string `json:"name"`
	RunID  string `json:"run_id"`
	Error  string `json:"error,omitempty"`
}
