package regression

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"reflect"
	"sort"
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

func linearData(n int) ([][]float64, []float64) {
	r := rand.New(rand.NewPCG(1, 2))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		a, b := r.Float64()*10, r.Float64()*100
		X[i] = []float64{a, b}
		y[i] = 3 + 2*a - 0.5*b
	}
	return X, y
}

func TestLinearRecoversCoefficients(t *testing.T) {
	X, y := linearData(50)
	m := NewLinear()
	if err := m.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	assertClose(t, "intercept", m.Intercept, 3, 1e-8)
	assertClose(t, "coef[0]", m.Coef[0], 2, 1e-8)
	assertClose(t, "coef[1]", m.Coef[1], -0.5, 1e-8)

	pred, err := m.Predict([][]float64{{1, 10}})
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, "pred", pred[0], 0, 1e-8)
}

func TestLinearToleratesCollinearColumns(t *testing.T) {
	X, y := linearData(40)
	for i := range X {
		X[i] = append(X[i], 2*X[i][0])
	}
	m := NewLinear()
	if err := m.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	pred, err := m.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	for i := range pred {
		assertClose(t, "fitted", pred[i], y[i], 1e-6)
	}
}

func TestLinearRejectsEmptyInput(t *testing.T) {
	err := NewLinear().Fit(nil, nil)
	if kind, _ := errs.KindOf(err); kind != errs.DatasetInsufficient {
		t.Fatalf("err = %v", err)
	}
}

func stepData(n int) ([][]float64, []float64) {
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		x := float64(i)
		X[i] = []float64{x, math.Mod(x*7, 5)}
		if x <= 9 {
			y[i] = 1
		} else {
			y[i] = 10
		}
	}
	return X, y
}

func TestTreeLearnsStep(t *testing.T) {
	X, y := stepData(20)
	tree := NewTree(DefaultMaxDepth, DefaultSeed)
	if err := tree.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if tree.Root.Feature != 0 {
		t.Fatalf("root splits on feature %d, want 0", tree.Root.Feature)
	}
	assertClose(t, "threshold", tree.Root.Threshold, 9.5, 1e-12)

	pred, err := tree.Predict([][]float64{{3, 0}, {15, 0}})
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, "left", pred[0], 1, 0)
	assertClose(t, "right", pred[1], 10, 0)
}

func TestTreeRespectsDepthAndSeed(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 7))
	X := make([][]float64, 200)
	y := make([]float64, 200)
	for i := range X {
		X[i] = []float64{r.Float64(), r.Float64(), r.Float64()}
		y[i] = r.NormFloat64()
	}

	a := NewTree(3, 42)
	b := NewTree(3, 42)
	if err := a.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if d := a.Depth(); d > 3 {
		t.Fatalf("depth = %d, want <= 3", d)
	}
	if !reflect.DeepEqual(a.Root, b.Root) {
		t.Fatal("same seed produced different trees")
	}
}

func TestArtifactRestoresPredictions(t *testing.T) {
	X, y := stepData(20)
	tree := NewTree(DefaultMaxDepth, DefaultSeed)
	if err := tree.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	cols := []string{"a", "b"}
	art, err := NewArtifact(models.FamilyDecisionTree, "v1", "file:///d.csv", cols, tree)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(art)
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := DecodeArtifact(data)
	if err != nil {
		t.Fatal(err)
	}
	m, err := Restore(loaded)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := tree.Predict(X)
	got, err := m.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatal("restored model predicts differently")
	}

	if err := CheckShape(loaded, []string{"b", "a"}, X); !isKind(err, errs.PredictionShape) {
		t.Fatalf("reordered columns: err = %v", err)
	}
	if err := CheckShape(loaded, cols, [][]float64{{1}}); !isKind(err, errs.PredictionShape) {
		t.Fatalf("short row: err = %v", err)
	}
	if err := CheckShape(loaded, cols, X); err != nil {
		t.Fatalf("matching shape rejected: %v", err)
	}
}

func TestDecodeArtifactFailures(t *testing.T) {
	if _, err := DecodeArtifact([]byte("not json")); !isKind(err, errs.ArtifactLoad) {
		t.Fatalf("garbage: err = %v", err)
	}
	if _, err := DecodeArtifact([]byte(`{"family":"x"}`)); !isKind(err, errs.ArtifactLoad) {
		t.Fatalf("incomplete: err = %v", err)
	}
	if _, err := Restore(&models.ModelArtifact{Model: "svm", Params: []byte("{}")}); !isKind(err, errs.ArtifactLoad) {
		t.Fatalf("unknown model: err = %v", err)
	}
}

func TestSplitIsSeededPartition(t *testing.T) {
	train, test := Split(10, 0.2, 42)
	if len(train) != 8 || len(test) != 2 {
		t.Fatalf("sizes = %d/%d", len(train), len(test))
	}
	train2, test2 := Split(10, 0.2, 42)
	if !reflect.DeepEqual(train, train2) || !reflect.DeepEqual(test, test2) {
		t.Fatal("split is not deterministic")
	}

	all := append(append([]int{}, train...), test...)
	sort.Ints(all)
	for i, v := range all {
		if v != i {
			t.Fatalf("split is not a partition: %v", all)
		}
	}

	_, test3 := Split(11, 0.2, 42)
	if len(test3) != 3 {
		t.Fatalf("ceil(11*0.2) = %d, want 3", len(test3))
	}
}

func TestNewRejectsDelegatedFamilies(t *testing.T) {
	if _, err := New(models.FamilyLSTM, Options{}); err == nil {
		t.Fatal("lstm must not be constructible in process")
	}
	if !InProcess(models.FamilyLinearRegression) || InProcess(models.FamilyGRU) {
		t.Fatal("InProcess misclassifies families")
	}
}

func isKind(err error, k errs.Kind) bool {
	got, ok := errs.KindOf(err)
	return ok && got == k
}
