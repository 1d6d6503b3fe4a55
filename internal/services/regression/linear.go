package regression

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// rankTolerance is the relative singular-value cutoff used to drop
// collinear directions, matching a minimum-norm least-squares solution.
const rankTolerance = 1e-10

// Linear is ordinary least squares with an intercept.
type Linear struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

func NewLinear() *Linear { return &Linear{} }

func (m *Linear) Name() string { return ModelOLS }

// Fit centers X and y, solves the least-squares problem through an SVD and
// recovers the intercept from the column means.
func (m *Linear) Fit(X [][]float64, y []float64) error {
	n, p, err := shape(X, y)
	if err != nil {
		return err
	}

	xMean := make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			col[i] = X[i][j]
		}
		xMean[j] = stat.Mean(col, nil)
	}
	yMean := stat.Mean(y, nil)

	a := mat.NewDense(n, p, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			a.Set(i, j, X[i][j]-xMean[j])
		}
		b.SetVec(i, y[i]-yMean)
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return fmt.Errorf("ols: svd factorization failed")
	}
	rank := svd.Rank(rankTolerance)
	coef := make([]float64, p)
	if rank > 0 {
		var beta mat.VecDense
		svd.SolveVecTo(&beta, b, rank)
		for j := 0; j < p; j++ {
			coef[j] = beta.AtVec(j)
		}
	}

	intercept := yMean
	for j := 0; j < p; j++ {
		intercept -= coef[j] * xMean[j]
	}

	m.Coef = coef
	m.Intercept = intercept
	return nil
}

func (m *Linear) Predict(X [][]float64) ([]float64, error) {
	if m.Coef == nil {
		return nil, fmt.Errorf("ols: model is not fitted")
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != len(m.Coef) {
			return nil, fmt.Errorf("ols: row %d has %d features, want %d", i, len(row), len(m.Coef))
		}
		v := m.Intercept
		for j, x := range row {
			v += m.Coef[j] * x
		}
		out[i] = v
	}
	return out, nil
}

func (m *Linear) Params() (json.RawMessage, error) {
	return json.Marshal(m)
}
