package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockCast/internal/domain/errs"
	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	"StockCast/internal/services/dataset"
	"StockCast/internal/services/evaluation"
	"StockCast/internal/services/regression"
	"StockCast/pkg/cache"
	applogger "StockCast/pkg/logger"

	"github.com/google/uuid"
)

// PredictOptions controls feature decoding and artifact caching.
type PredictOptions struct {
	Window   int
	CacheTTL time.Duration
}

// Predictor loads a family's artifact and predicts one close per feature row.
type Predictor struct {
	blobs   drepo.BlobStore
	catalog drepo.Catalog
	cache   cache.Service
	metrics drepo.Metrics
	log     *applogger.Logger
	opts    PredictOptions
	now     func() time.Time
}

// NewPredictor creates a Predictor. artifacts may be nil to disable caching.
func NewPredictor(blobs drepo.BlobStore, catalog drepo.Catalog, artifacts cache.Service, metrics drepo.Metrics, lgr *applogger.Logger, opts PredictOptions) *Predictor {
	return &Predictor{
		blobs:   blobs,
		catalog: catalog,
		cache:   artifacts,
		metrics: metrics,
		log:     lgr,
		opts:    opts,
		now:     time.Now,
	}
}

// Predict runs the model over the request rows, or over a stored processed
// snapshot when Dataset is set. Predictions keep the input row order. In
// evaluation mode (a dataset, or Persist) predictions and actuals are also
// written as date,close snapshots.
func (p *Predictor) Predict(ctx context.Context, req *models.PredictRequest) (*models.PredictResult, error) {
	start := p.now()
	res, err := p.predict(ctx, req)
	p.metrics.RecordLatency("predict", p.now().Sub(start).Seconds())
	if err != nil {
		p.metrics.RecordError(errKind(err))
		return nil, err
	}
	return res, nil
}

func (p *Predictor) predict(ctx context.Context, req *models.PredictRequest) (*models.PredictResult, error) {
	artifact, err := p.artifact(ctx, req.Family, req.Version)
	if err != nil {
		return nil, err
	}
	model, err := regression.Restore(artifact)
	if err != nil {
		return nil, err
	}

	columns, rows, dates, actuals := req.Columns, req.Rows, req.Dates, req.Actuals
	if req.Dataset != "" {
		data, err := p.blobs.Get(ctx, req.Dataset)
		if err != nil {
			return nil, fmt.Errorf("load dataset %s: %w", req.Dataset, err)
		}
		table, err := dataset.DecodeSnapshot(data, p.opts.Window)
		if err != nil {
			return nil, err
		}
		ds := dataset.Tabular(table)
		columns, rows, dates, actuals = ds.Columns, ds.X, ds.Dates, ds.Y
	}

	if len(rows) == 0 {
		return nil, errs.New(errs.DatasetInsufficient, "no feature rows to predict")
	}
	if err := regression.CheckShape(artifact, columns, rows); err != nil {
		return nil, err
	}
	if len(actuals) > 0 && len(actuals) != len(rows) {
		return nil, errs.New(errs.AlignmentMismatch, "%d actuals for %d rows", len(actuals), len(rows))
	}
	if len(dates) > 0 && len(dates) != len(rows) {
		return nil, errs.New(errs.AlignmentMismatch, "%d dates for %d rows", len(dates), len(rows))
	}

	predictions, err := model.Predict(rows)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", req.Family, err)
	}
	p.metrics.RecordPredictions(req.Family, len(predictions))

	res := &models.PredictResult{
		Family:      artifact.Family,
		Version:     artifact.Version,
		Predictions: predictions,
		Dates:       dates,
		Actuals:     actuals,
	}
	if len(actuals) > 0 {
		if res.Metrics, err = evaluation.Evaluate(predictions, actuals); err != nil {
			return nil, err
		}
		p.metrics.RecordEvaluation(res.Metrics)
	}

	if req.Persist || req.Dataset != "" {
		if len(dates) == 0 {
			dates = make([]string, len(rows))
		}
		if err := p.persist(ctx, res, dates); err != nil {
			return nil, err
		}
	}

	p.log.Info("predicted",
		applogger.String("family", artifact.Family),
		applogger.String("version", artifact.Version),
		applogger.Int("rows", len(predictions)),
		applogger.String("predictions", res.PredictionsLocation))
	return res, nil
}

// artifact loads the logical artifact fresh every time; versioned
// artifacts are immutable and go through the cache.
func (p *Predictor) artifact(ctx context.Context, family, version string) (*models.ModelArtifact, error) {
	if version == "" {
		data, err := p.load(ctx, ArtifactKey(family))
		if err != nil {
			return nil, err
		}
		return regression.DecodeArtifact(data)
	}

	key := cache.GenerateKey("artifact", family+":"+version)
	if p.cache != nil {
		data, err := p.cache.Get(ctx, key)
		if err == nil {
			if a, derr := regression.DecodeArtifact(data); derr == nil {
				return a, nil
			}
			_ = p.cache.Delete(ctx, key)
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			p.log.Warn("artifact cache read failed", applogger.String("key", key), applogger.Error(err))
		}
	}

	data, err := p.load(ctx, VersionedArtifactKey(family, version))
	if err != nil {
		return nil, err
	}
	a, err := regression.DecodeArtifact(data)
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		if err := p.cache.Set(ctx, key, data, p.opts.CacheTTL); err != nil {
			p.log.Warn("artifact cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	return a, nil
}

func (p *Predictor) load(ctx context.Context, key string) ([]byte, error) {
	data, err := p.blobs.Get(ctx, p.blobs.Location(key))
	if err != nil {
		return nil, errs.Wrap(errs.ArtifactLoad, err, "load %s", key)
	}
	return data, nil
}

func (p *Predictor) persist(ctx context.Context, res *models.PredictResult, dates []string) error {
	id := uuid.NewString()

	body, err := dataset.EncodeSeries(dates, res.Predictions)
	if err != nil {
		return err
	}
	if res.PredictionsLocation, err = p.blobs.Put(ctx, predictionsKey(id), body, "text/csv"); err != nil {
		return fmt.Errorf("store predictions: %w", err)
	}
	p.record(ctx, models.SnapshotPredictions, res.PredictionsLocation, len(res.Predictions))

	if len(res.Actuals) == 0 {
		return nil
	}
	if body, err = dataset.EncodeSeries(dates, res.Actuals); err != nil {
		return err
	}
	if res.ActualsLocation, err = p.blobs.Put(ctx, actualsKey(id), body, "text/csv"); err != nil {
		return fmt.Errorf("store actuals: %w", err)
	}
	p.record(ctx, models.SnapshotActuals, res.ActualsLocation, len(res.Actuals))
	return nil
}

func (p *Predictor) record(ctx context.Context, kind, location string, rows int) {
	p.metrics.RecordSnapshot(kind)
	err := p.catalog.RecordSnapshot(ctx, &models.Snapshot{
		ID:        uuid.NewString(),
		Kind:      kind,
		Location:  location,
		Rows:      rows,
		CreatedAt: p.now().UTC(),
	})
	if err != nil {
		p.log.Warn("catalog record failed", applogger.String("location", location), applogger.Error(err))
	}
}
