package models

type IngestResult struct {
	Symbol            string       `json:"symbol"`
	Bars              int          `json:"bars"`
	Rows              int          `json:"rows"`
	Windows           int          `json:"windows"`
	Insufficient      bool         `json:"insufficient"`
	RawLocation       string       `json:"raw_location"`
	RawURL            string       `json:"raw_url,omitempty"`
	ProcessedLocation string       `json:"processed_location,omitempty"`
	ProcessedURL      string       `json:"processed_url,omitempty"`
	Submissions       []Submission `json:"submissions,omitempty"`
}

type PredictResult struct {
	Family              string    `json:"family"`
	Version             string    `json:"version"`
	Predictions         []float64 `json:"predictions"`
	Dates               []string  `json:"dates,omitempty"`
	Actuals             []float64 `json:"actuals,omitempty"`
	Metrics             *Metrics  `json:"metrics,omitempty"`
	PredictionsLocation string    `json:"predictions_location,omitempty"`
	ActualsLocation     string    `json:"actuals_location,omitempty"`
}
