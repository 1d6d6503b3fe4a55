package models

import (
	"encoding/json"
	"time"
)

// Model families.
const (
	FamilyLinearRegression = "linear_regression"
	FamilyDecisionTree     = "decision_tree"
	FamilyRandomForest     = "random_forest"
	FamilyLSTM             = "lstm"
	FamilyGRU              = "gru"
)

// Metrics is a regression quality report over aligned sequences.
type Metrics struct {
	MSE float64 `json:"mse"`
	MAE float64 `json:"mae"`
	R2  float64 `json:"r2"`
	N   int     `json:"n"`
}

// ModelArtifact is a serialized fitted model. The feature column order is
// part of the artifact; predicting with any other order is rejected.
type ModelArtifact struct {
	Family    string          `json:"family"`
	Version   string          `json:"version"`
	Model     string          `json:"model"`
	Features  []string        `json:"features"`
	TrainRows int             `json:"train_rows"`
	TestRows  int             `json:"test_rows"`
	Metrics   *Metrics        `json:"metrics,omitempty"`
	Dataset   string          `json:"dataset"`
	TrainedAt time.Time       `json:"trained_at"`
	Params    json.RawMessage `json:"params"`
}
