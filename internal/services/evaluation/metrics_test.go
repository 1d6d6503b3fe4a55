package evaluation

import (
	"math"
	"strings"
	"testing"

	"StockCast/internal/domain/errs"
	"StockCast/internal/domain/models"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s: got %.10f, want %.10f", label, got, want)
	}
}

func TestEvaluateKnownValues(t *testing.T) {
	actual := []float64{3, -0.5, 2, 7}
	pred := []float64{2.5, 0.0, 2, 8}
	m, err := Evaluate(pred, actual)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, "mse", m.MSE, 0.375, 1e-12)
	assertClose(t, "mae", m.MAE, 0.5, 1e-12)
	assertClose(t, "r2", m.R2, 0.9486081370449679, 1e-12)
	if m.N != 4 {
		t.Fatalf("n = %d", m.N)
	}
}

func TestEvaluatePerfectAndConstant(t *testing.T) {
	m, err := Evaluate([]float64{1, 2, 3}, []float64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if m.MSE != 0 || m.MAE != 0 || m.R2 != 1 {
		t.Fatalf("perfect fit scored %+v", m)
	}

	m, _ = Evaluate([]float64{5, 5}, []float64{5, 5})
	if m.R2 != 1 {
		t.Fatalf("constant exact r2 = %v", m.R2)
	}
	m, _ = Evaluate([]float64{4, 6}, []float64{5, 5})
	if m.R2 != 0 {
		t.Fatalf("constant inexact r2 = %v", m.R2)
	}
}

func TestEvaluateLengthMismatch(t *testing.T) {
	_, err := Evaluate([]float64{1, 2}, []float64{1, 2, 3})
	if kind, _ := errs.KindOf(err); kind != errs.AlignmentMismatch {
		t.Fatalf("err = %v, want alignment mismatch", err)
	}
}

func TestEvaluateDependsOnAlignment(t *testing.T) {
	actual := []float64{1, 5, 2, 8}
	aligned, _ := Evaluate([]float64{1, 5, 2, 8}, actual)
	shuffled, _ := Evaluate([]float64{8, 2, 5, 1}, actual)
	if aligned.MSE == shuffled.MSE {
		t.Fatal("permuting predictions must change the score")
	}
}

func TestReportFormatting(t *testing.T) {
	out := Report(&models.Metrics{N: 1}, []string{"2024-08-01"}, []float64{1}, []float64{1})
	if !strings.Contains(out, "Mean Squared Error (MSE): 0.0000") || !strings.Contains(out, "2024-08-01") {
		t.Fatalf("unexpected report:\n%s", out)
	}
}
