// Package regression holds the in-process model families and their
// artifact encoding.
package regression

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"StockCast/internal/domain/errs"
	"StockCast/internal/domain/models"
	"StockCast/internal/domain/service"
)

// Model kinds recorded on artifacts.
const (
	ModelOLS  = "ols"
	ModelCART = "cart"
)

// Options tunes the in-process families.
type Options struct {
	MaxDepth int
	Seed     uint64
}

// New returns an untrained regressor for an in-process family.
func New(family string, opts Options) (service.Regressor, error) {
	switch family {
	case models.FamilyLinearRegression:
		return NewLinear(), nil
	case models.FamilyDecisionTree:
		return NewTree(opts.MaxDepth, opts.Seed), nil
	default:
		return nil, fmt.Errorf("family %q cannot be trained in process", family)
	}
}

// InProcess reports whether family has an in-process implementation.
func InProcess(family string) bool {
	return family == models.FamilyLinearRegression || family == models.FamilyDecisionTree
}

// NewArtifact captures a fitted regressor.
func NewArtifact(family, version, dataset string, columns []string, m service.Regressor) (*models.ModelArtifact, error) {
	params, err := m.Params()
	if err != nil {
		return nil, fmt.Errorf("encode %s params: %w", family, err)
	}
	return &models.ModelArtifact{
		Family:    family,
		Version:   version,
		Model:     m.Name(),
		Features:  slices.Clone(columns),
		Dataset:   dataset,
		TrainedAt: time.Now().UTC(),
		Params:    params,
	}, nil
}

// DecodeArtifact parses artifact bytes. Any failure is an ArtifactLoad error.
func DecodeArtifact(data []byte) (*models.ModelArtifact, error) {
	var a models.ModelArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, errs.Wrap(errs.ArtifactLoad, err, "decode artifact")
	}
	if a.Family == "" || a.Model == "" || len(a.Features) == 0 || len(a.Params) == 0 {
		return nil, errs.New(errs.ArtifactLoad, "artifact is incomplete")
	}
	return &a, nil
}

// Restore rebuilds the regressor stored in an artifact.
func Restore(a *models.ModelArtifact) (service.Regressor, error) {
	var m service.Regressor
	switch a.Model {
	case ModelOLS:
		m = &Linear{}
	case ModelCART:
		m = &Tree{}
	default:
		return nil, errs.New(errs.ArtifactLoad, "unknown model kind %q", a.Model)
	}
	if err := json.Unmarshal(a.Params, m); err != nil {
		return nil, errs.Wrap(errs.ArtifactLoad, err, "decode %s params", a.Model)
	}
	return m, nil
}

// CheckShape verifies that columns equal the artifact's feature order
// exactly and that every row carries that many values.
func CheckShape(a *models.ModelArtifact, columns []string, rows [][]float64) error {
	if !slices.Equal(a.Features, columns) {
		return errs.New(errs.PredictionShape, "columns %v do not match artifact features %v", columns, a.Features)
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return errs.New(errs.PredictionShape, "row %d has %d values, want %d", i, len(r), len(columns))
		}
	}
	return nil
}

// Split shuffles row indices with a seeded generator and holds out
// ceil(n*testFraction) rows for evaluation.
func Split(n int, testFraction float64, seed uint64) (train, test []int) {
	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest > n {
		nTest = n
	}
	return perm[nTest:], perm[:nTest]
}

// Take selects rows of X and y by index.
func Take(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for k, i := range idx {
		xs[k] = X[i]
		ys[k] = y[i]
	}
	return xs, ys
}

func shape(X [][]float64, y []float64) (int, int, error) {
	if len(X) == 0 {
		return 0, 0, errs.New(errs.DatasetInsufficient, "no training rows")
	}
	if len(X) != len(y) {
		return 0, 0, errs.New(errs.AlignmentMismatch, "%d feature rows for %d targets", len(X), len(y))
	}
	p := len(X[0])
	for i, row := range X {
		if len(row) != p {
			return 0, 0, errs.New(errs.PredictionShape, "row %d has %d features, want %d", i, len(row), p)
		}
	}
	return len(X), p, nil
}
