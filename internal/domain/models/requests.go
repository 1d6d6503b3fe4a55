package models

// Requests for the pipeline HTTP endpoints.

type IngestRequest struct {
	Symbol     string `json:"symbol" default:"AAPL" validate:"required,max=16"`
	From       string `json:"from" default:"2024-08-01" validate:"required,datetime=2006-01-02"`
	To         string `json:"to" default:"2024-08-31" validate:"required,datetime=2006-01-02"`
	Multiplier int    `json:"multiplier" default:"1" validate:"gte=1,lte=1000"`
	Timespan   string `json:"timespan" default:"day" validate:"oneof=minute hour day week month quarter year"`

	// Train dispatches the default families once the snapshot is stored.
	Train bool `json:"train"`
}

type DispatchRequest struct {
	Dataset  string   `json:"dataset" validate:"required"`
	Families []string `json:"families" validate:"omitempty,dive,required"`
}

type PredictRequest struct {
	Family  string      `json:"family" default:"linear_regression" validate:"required"`
	Version string      `json:"version"`
	Dataset string      `json:"dataset"`
	Columns []string    `json:"columns" validate:"required_without=Dataset"`
	Rows    [][]float64 `json:"rows" validate:"required_without=Dataset"`
	Dates   []string    `json:"dates"`
	Actuals []float64   `json:"actuals"`

	// Persist writes predictions and actuals snapshots in evaluation mode.
	Persist bool `json:"persist"`
}

type EvaluateRequest struct {
	PredictionsLocation string    `json:"predictions_location" validate:"required_without=Predictions"`
	ActualsLocation     string    `json:"actuals_location" validate:"required_with=PredictionsLocation"`
	Predictions         []float64 `json:"predictions"`
	Actuals             []float64 `json:"actuals"`
}

type ListSnapshotsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Kind   string `query:"kind" json:"kind" validate:"omitempty,oneof=raw processed predictions actuals"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type ListRunsRequest struct {
	Family string `query:"family" json:"family"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}
