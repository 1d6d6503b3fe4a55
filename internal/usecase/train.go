package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StockCast/internal/domain/errs"
	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	"StockCast/internal/services/dataset"
	"StockCast/internal/services/evaluation"
	"StockCast/internal/services/regression"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/queue"
)

// TrainerOptions controls in-process fitting.
type TrainerOptions struct {
	Window       int
	TestFraction float64
	Seed         uint64
	MaxDepth     int
}

// Trainer fits in-process families on a processed snapshot, scores them on a
// seeded holdout and stores the artifact under both its logical and its
// versioned key. It is also the queue job for train.inprocess messages.
type Trainer struct {
	blobs    drepo.BlobStore
	catalog  drepo.Catalog
	notifier drepo.RunNotifier
	metrics  drepo.Metrics
	log      *applogger.Logger
	opts     TrainerOptions
	now      func() time.Time
}

var _ queue.Job = (*Trainer)(nil)

func NewTrainer(blobs drepo.BlobStore, catalog drepo.Catalog, notifier drepo.RunNotifier, metrics drepo.Metrics, lgr *applogger.Logger, opts TrainerOptions) *Trainer {
	return &Trainer{
		blobs:    blobs,
		catalog:  catalog,
		notifier: notifier,
		metrics:  metrics,
		log:      lgr,
		opts:     opts,
		now:      time.Now,
	}
}

func (t *Trainer) Name() string { return "trainer" }

func (t *Trainer) Type() string { return models.JobTrainInProcess }

func (t *Trainer) Handle(ctx context.Context, payload json.RawMessage) error {
	spec, err := queue.Decode[models.TrainingJobSpec](payload)
	if err != nil {
		return errs.Wrap(errs.MalformedInput, err, "training job payload")
	}
	_, err = t.Run(ctx, spec)
	return err
}

// Run trains one family and records the outcome, successful or not.
func (t *Trainer) Run(ctx context.Context, spec *models.TrainingJobSpec) (*models.TrainingRun, error) {
	start := t.now()
	run := runFromSpec(spec, models.RunSucceeded)
	if run.CreatedAt.IsZero() {
		run.CreatedAt = start.UTC()
	}

	artifact, err := t.fit(ctx, spec)
	if err != nil {
		run.Status = models.RunFailed
		run.Error = err.Error()
		t.metrics.RecordError(errKind(err))
		t.log.Error("training failed",
			applogger.String("family", spec.Family),
			applogger.String("dataset", spec.Dataset),
			applogger.Error(err))
	} else {
		run.Version = artifact.Version
		run.Metrics = artifact.Metrics
		t.metrics.RecordTrainingResult(spec.Family, artifact.Metrics)
		t.log.Info("training done",
			applogger.String("family", spec.Family),
			applogger.String("version", artifact.Version),
			applogger.Int("train_rows", artifact.TrainRows),
			applogger.Float64("mse", artifact.Metrics.MSE),
			applogger.Float64("r2", artifact.Metrics.R2),
			applogger.Duration("duration_ms", t.now().Sub(start)))
	}
	t.metrics.RecordLatency("train", t.now().Sub(start).Seconds())

	if rerr := t.catalog.RecordRun(ctx, run); rerr != nil {
		t.log.Warn("record run failed", applogger.String("run_id", run.ID), applogger.Error(rerr))
	}
	if t.notifier != nil {
		t.notifier.NotifyRun(run)
	}
	return run, err
}

func (t *Trainer) fit(ctx context.Context, spec *models.TrainingJobSpec) (*models.ModelArtifact, error) {
	if !regression.InProcess(spec.Family) {
		return nil, errs.New(errs.MalformedInput, "family %s has no in-process trainer", spec.Family)
	}

	data, err := t.blobs.Get(ctx, spec.Dataset)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", spec.Dataset, err)
	}
	table, err := dataset.DecodeSnapshot(data, t.opts.Window)
	if err != nil {
		return nil, err
	}
	ds := dataset.Tabular(table)
	if ds.Len() < 2 {
		return nil, errs.New(errs.DatasetInsufficient, "%d rows, need at least 2 to train and score", ds.Len())
	}

	trainIdx, testIdx := regression.Split(ds.Len(), t.opts.TestFraction, t.opts.Seed)
	if len(trainIdx) == 0 {
		return nil, errs.New(errs.DatasetInsufficient, "no rows left for training after the holdout")
	}
	Xtr, ytr := regression.Take(ds.X, ds.Y, trainIdx)
	Xte, yte := regression.Take(ds.X, ds.Y, testIdx)

	model, err := regression.New(spec.Family, regression.Options{MaxDepth: t.opts.MaxDepth, Seed: t.opts.Seed})
	if err != nil {
		return nil, err
	}
	if err := model.Fit(Xtr, ytr); err != nil {
		return nil, fmt.Errorf("fit %s: %w", spec.Family, err)
	}
	pred, err := model.Predict(Xte)
	if err != nil {
		return nil, fmt.Errorf("score %s: %w", spec.Family, err)
	}
	score, err := evaluation.Evaluate(pred, yte)
	if err != nil {
		return nil, err
	}

	artifact, err := regression.NewArtifact(spec.Family, newVersion(t.now(), spec.RunID), spec.Dataset, ds.Columns, model)
	if err != nil {
		return nil, err
	}
	artifact.TrainRows = len(trainIdx)
	artifact.TestRows = len(testIdx)
	artifact.Metrics = score

	body, err := json.Marshal(artifact)
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	if _, err := t.blobs.Put(ctx, VersionedArtifactKey(spec.Family, artifact.Version), body, "application/json"); err != nil {
		return nil, fmt.Errorf("store versioned artifact: %w", err)
	}
	if _, err := t.blobs.Put(ctx, ArtifactKey(spec.Family), body, "application/json"); err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}
	return artifact, nil
}
