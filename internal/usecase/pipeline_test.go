package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"StockCast/internal/domain/errs"
	"StockCast/internal/domain/models"
	"StockCast/internal/services/dataset"
	"StockCast/pkg/cache"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/metrics"
)

func TestIngestTrainPredictEvaluate(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)

	res, err := p.ingestor(&fakeMarket{bars: synthBars(60)}, nil).Ingest(ctx, ingestRequest(true))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(res.Submissions) != 2 {
		t.Fatalf("submissions = %+v", res.Submissions)
	}
	if want := 60 - (testWindow - 1) - dataset.DefaultWindowLength; res.Windows != want {
		t.Fatalf("windows = %d, want %d", res.Windows, want)
	}
	for _, s := range res.Submissions {
		if s.Error != "" || !strings.HasPrefix(s.JobID, "local-") || s.Mode != "inprocess" {
			t.Fatalf("submission = %+v", s)
		}
	}
	p.local.Wait()

	runs, err := p.catalog.ListRuns(ctx, "", 10)
	if err != nil || len(runs) != 2 {
		t.Fatalf("runs = %d, %v", len(runs), err)
	}
	var version string
	for _, r := range runs {
		if r.Status != models.RunSucceeded || r.Metrics == nil || r.Version == "" {
			t.Fatalf("run = %+v", r)
		}
		if r.Family == models.FamilyLinearRegression {
			version = r.Version
		}
	}

	artifacts := cache.NewMemoryCache()
	t.Cleanup(func() { _ = artifacts.Close() })
	pred := NewPredictor(p.blobs, p.catalog, artifacts, metrics.Nop{}, applogger.Nop(), PredictOptions{Window: testWindow})

	out, err := pred.Predict(ctx, &models.PredictRequest{Family: models.FamilyLinearRegression, Dataset: res.ProcessedLocation})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(out.Predictions) != res.Rows || len(out.Actuals) != res.Rows || len(out.Dates) != res.Rows {
		t.Fatalf("lengths: %d predictions, %d actuals, %d dates", len(out.Predictions), len(out.Actuals), len(out.Dates))
	}
	if out.PredictionsLocation == "" || out.ActualsLocation == "" || out.Metrics == nil {
		t.Fatalf("evaluation mode output = %+v", out)
	}

	eval := NewEvaluator(p.blobs, metrics.Nop{}, applogger.Nop())
	cmp, err := eval.Load(ctx, out.PredictionsLocation, out.ActualsLocation)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cmp.Metrics.N != res.Rows || math.Abs(cmp.Metrics.MSE-out.Metrics.MSE) > 1e-6 {
		t.Fatalf("stored metrics %+v, inline %+v", cmp.Metrics, out.Metrics)
	}
	if cmp.Dates[0] != out.Dates[0] || !strings.Contains(cmp.Report(), "Mean Squared Error") {
		t.Fatalf("comparison out of order")
	}

	// Versioned artifacts are served from the cache after the first load.
	if _, err := pred.Predict(ctx, &models.PredictRequest{Family: models.FamilyLinearRegression, Version: version, Dataset: res.ProcessedLocation}); err != nil {
		t.Fatalf("predict version: %v", err)
	}
	if artifacts.Len() != 1 {
		t.Fatalf("cache entries = %d", artifacts.Len())
	}
}

func TestPredictInlineRows(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)

	res, err := p.ingestor(&fakeMarket{bars: synthBars(40)}, nil).Ingest(ctx, ingestRequest(false))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	spec := &models.TrainingJobSpec{Name: "t", Family: models.FamilyDecisionTree, Dataset: res.ProcessedLocation, RunID: "0123456789"}
	if _, err := p.trainer.Run(ctx, spec); err != nil {
		t.Fatalf("train: %v", err)
	}

	body, _ := p.blobs.Get(ctx, res.ProcessedLocation)
	table, _ := dataset.DecodeSnapshot(body, testWindow)
	ds := dataset.Tabular(table)
	pred := NewPredictor(p.blobs, p.catalog, nil, metrics.Nop{}, applogger.Nop(), PredictOptions{Window: testWindow})

	out, err := pred.Predict(ctx, &models.PredictRequest{Family: models.FamilyDecisionTree, Columns: ds.Columns, Rows: ds.X[:3]})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(out.Predictions) != 3 || out.PredictionsLocation != "" || out.Metrics != nil {
		t.Fatalf("inline output = %+v", out)
	}

	_, err = pred.Predict(ctx, &models.PredictRequest{Family: models.FamilyDecisionTree, Columns: ds.Columns[1:], Rows: ds.X[:3]})
	if !errors.Is(err, errs.ErrPredictionShape) {
		t.Fatalf("shuffled columns: err = %v", err)
	}
	_, err = pred.Predict(ctx, &models.PredictRequest{Family: models.FamilyDecisionTree, Columns: ds.Columns, Rows: ds.X[:3], Actuals: ds.Y[:2]})
	if !errors.Is(err, errs.ErrAlignmentMismatch) {
		t.Fatalf("short actuals: err = %v", err)
	}
	_, err = pred.Predict(ctx, &models.PredictRequest{Family: models.FamilyLinearRegression, Columns: ds.Columns, Rows: ds.X[:3]})
	if !errors.Is(err, errs.ErrArtifactLoad) {
		t.Fatalf("untrained family: err = %v", err)
	}
	_, err = pred.Predict(ctx, &models.PredictRequest{Family: models.FamilyDecisionTree, Columns: ds.Columns})
	if !errors.Is(err, errs.ErrDatasetInsufficient) {
		t.Fatalf("no rows: err = %v", err)
	}
}

func TestDispatchRejectsUnknownFamily(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)

	_, err := p.dispatch.Dispatch(ctx, p.blobs.Location("training/processed/x.csv"), []string{"linear_regression", "prophet"})
	if !errors.Is(err, errs.ErrMalformedInput) {
		t.Fatalf("err = %v", err)
	}
	runs, _ := p.catalog.ListRuns(ctx, "", 10)
	if len(runs) != 0 {
		t.Fatalf("nothing should be recorded, got %d runs", len(runs))
	}
}

func TestDispatchDelegatedNeedsS3Dataset(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)

	subs, err := p.dispatch.Dispatch(ctx, p.blobs.Location("training/processed/x.csv"), []string{models.FamilyRandomForest})
	if err == nil || len(subs) != 1 || subs[0].Error == "" {
		t.Fatalf("subs = %+v, err = %v", subs, err)
	}
	if len(p.delegate.specs) != 0 {
		t.Fatalf("delegated submitter should not be called")
	}
	runs, _ := p.catalog.ListRuns(ctx, models.FamilyRandomForest, 10)
	if len(runs) != 1 || runs[0].Status != models.RunFailed {
		t.Fatalf("runs = %+v", runs)
	}
}

func TestTrainerRejectsShortDataset(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)

	bars := synthBars(testWindow)
	table, _ := dataset.Build("AAPL", bars, testWindow)
	body, _ := dataset.EncodeSnapshot(table)
	loc, err := p.blobs.Put(ctx, "training/processed/short.csv", body, "text/csv")
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	run, err := p.trainer.Run(ctx, &models.TrainingJobSpec{Name: "t", Family: models.FamilyLinearRegression, Dataset: loc, RunID: "run-short"})
	if !errors.Is(err, errs.ErrDatasetInsufficient) || run.Status != models.RunFailed {
		t.Fatalf("run = %+v, err = %v", run, err)
	}
}

func TestDatasetEventHandler(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	h := NewDatasetEventHandler("datasets", p.dispatch, applogger.Nop())

	if err := h.Handle(ctx, []byte(`{"symbol":"AAPL"}`)); !errors.Is(err, errs.ErrMalformedInput) {
		t.Fatalf("missing location: err = %v", err)
	}
	if err := h.Handle(ctx, []byte(`not json`)); !errors.Is(err, errs.ErrMalformedInput) {
		t.Fatalf("bad json: err = %v", err)
	}

	ev := `{"symbol":"AAPL","location":"s3://bucket/training/processed/a.csv","families":["lstm"]}`
	err := h.Handle(ctx, []byte(ev))
	if err == nil {
		t.Fatalf("fs store cannot resolve an s3 location")
	}
}
