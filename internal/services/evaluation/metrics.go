// Package evaluation scores predictions against actuals.
package evaluation

import (
	"fmt"
	"math"
	"strings"

	"StockCast/internal/domain/errs"
	"StockCast/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// Evaluate computes MSE, MAE and R² over positionally aligned sequences.
// R² follows the convention that a constant actual series scores 1 when
// predicted exactly and 0 otherwise.
func Evaluate(predictions, actuals []float64) (*models.Metrics, error) {
	if len(predictions) != len(actuals) {
		return nil, errs.New(errs.AlignmentMismatch, "%d predictions for %d actuals", len(predictions), len(actuals))
	}
	if len(actuals) == 0 {
		return nil, errs.New(errs.DatasetInsufficient, "nothing to evaluate")
	}

	n := float64(len(actuals))
	mean := stat.Mean(actuals, nil)

	var ssRes, absSum, ssTot float64
	for i, a := range actuals {
		d := a - predictions[i]
		ssRes += d * d
		absSum += math.Abs(d)
		ssTot += (a - mean) * (a - mean)
	}

	var r2 float64
	switch {
	case ssTot != 0:
		r2 = 1 - ssRes/ssTot
	case ssRes == 0:
		r2 = 1
	default:
		r2 = 0
	}

	return &models.Metrics{
		MSE: ssRes / n,
		MAE: absSum / n,
		R2:  r2,
		N:   len(actuals),
	}, nil
}

// Report renders metrics with four decimals followed by an aligned listing
// of every row.
func Report(m *models.Metrics, dates []string, actuals, predictions []float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mean Squared Error (MSE): %.4f\n", m.MSE)
	fmt.Fprintf(&b, "Mean Absolute Error (MAE): %.4f\n", m.MAE)
	fmt.Fprintf(&b, "R-squared (R²): %.4f\n", m.R2)
	if len(dates) != len(actuals) || len(actuals) != len(predictions) {
		return b.String()
	}
	fmt.Fprintf(&b, "\n%-12s %12s %12s %12s\n", "date", "actual", "predicted", "error")
	for i := range dates {
		fmt.Fprintf(&b, "%-12s %12.4f %12.4f %12.4f\n", dates[i], actuals[i], predictions[i], actuals[i]-predictions[i])
	}
	return b.String()
}
