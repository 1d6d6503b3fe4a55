package service

import "encoding/json"

// Regressor is a fitted-in-process model family.
type Regressor interface {
	// Name is the model kind stored on artifacts ("ols", "cart").
	Name() string
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
	Params() (json.RawMessage, error)
}
