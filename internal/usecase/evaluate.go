package usecase

import (
	"context"
	"fmt"
	"time"

	"StockCast/internal/domain/errs"
	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	"StockCast/internal/services/dataset"
	"StockCast/internal/services/evaluation"
	applogger "StockCast/pkg/logger"
)

// Comparison is a predictions snapshot aligned with its actuals.
type Comparison struct {
	Dates       []string
	Predictions []float64
	Actuals     []float64
	Metrics     *models.Metrics
}

// Report renders the comparison as printed by the evaluate command.
func (c *Comparison) Report() string {
	return evaluation.Report(c.Metrics, c.Dates, c.Actuals, c.Predictions)
}

// Evaluator scores predictions against actuals, inline or from snapshots.
type Evaluator struct {
	blobs   drepo.BlobStore
	metrics drepo.Metrics
	log     *applogger.Logger
	now     func() time.Time
}

func NewEvaluator(blobs drepo.BlobStore, metrics drepo.Metrics, lgr *applogger.Logger) *Evaluator {
	return &Evaluator{blobs: blobs, metrics: metrics, log: lgr, now: time.Now}
}

// Evaluate scores either the inline sequences or the two stored snapshots.
func (e *Evaluator) Evaluate(ctx context.Context, req *models.EvaluateRequest) (*models.Metrics, error) {
	start := e.now()
	defer func() { e.metrics.RecordLatency("evaluate", e.now().Sub(start).Seconds()) }()

	if req.PredictionsLocation == "" {
		m, err := evaluation.Evaluate(req.Predictions, req.Actuals)
		if err != nil {
			e.metrics.RecordError(errKind(err))
			return nil, err
		}
		e.metrics.RecordEvaluation(m)
		return m, nil
	}

	c, err := e.Load(ctx, req.PredictionsLocation, req.ActualsLocation)
	if err != nil {
		e.metrics.RecordError(errKind(err))
		return nil, err
	}
	return c.Metrics, nil
}

// Load downloads both snapshots, checks they line up and scores them.
func (e *Evaluator) Load(ctx context.Context, predictionsLocation, actualsLocation string) (*Comparison, error) {
	pDates, preds, err := e.series(ctx, predictionsLocation)
	if err != nil {
		return nil, fmt.Errorf("predictions: %w", err)
	}
	_, acts, err := e.series(ctx, actualsLocation)
	if err != nil {
		return nil, fmt.Errorf("actuals: %w", err)
	}
	if len(preds) != len(acts) {
		return nil, errs.New(errs.AlignmentMismatch, "%d predictions for %d actuals", len(preds), len(acts))
	}

	m, err := evaluation.Evaluate(preds, acts)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordEvaluation(m)
	e.log.Info("evaluated",
		applogger.String("predictions", predictionsLocation),
		applogger.String("actuals", actualsLocation),
		applogger.Int("n", m.N),
		applogger.Float64("mse", m.MSE))

	return &Comparison{Dates: pDates, Predictions: preds, Actuals: acts, Metrics: m}, nil
}

func (e *Evaluator) series(ctx context.Context, location string) ([]string, []float64, error) {
	data, err := e.blobs.Get(ctx, location)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", location, err)
	}
	return dataset.DecodeSeries(data)
}
