package metrics

import (
	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	barsFetched   *prometheus.CounterVec
	rowsBuilt     *prometheus.CounterVec
	snapshots     *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	submissions   *prometheus.CounterVec
	trainingScore *prometheus.GaugeVec
	predictions   *prometheus.CounterVec
	evalScore     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

var _ domrepo.Metrics = (*Recorder)(nil)

// New registers the pipeline metrics on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		barsFetched: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_bars_fetched_total",
				Help: "Bars returned by the market-data provider",
			},
			[]string{"symbol"},
		),
		rowsBuilt: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_dataset_rows_total",
				Help: "Fully defined feature rows written to processed snapshots",
			},
			[]string{"symbol"},
		),
		snapshots: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_snapshots_total",
				Help: "Snapshots written to the blob store",
			},
			[]string{"kind"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_errors_total",
				Help: "Pipeline errors by kind",
			},
			[]string{"kind"},
		),
		submissions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_training_submissions_total",
				Help: "Training jobs submitted",
			},
			[]string{"family", "mode"},
		),
		trainingScore: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockcast_training_holdout_score",
				Help: "Holdout metrics of the latest in-process training run",
			},
			[]string{"family", "metric"},
		),
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_predictions_total",
				Help: "Predicted values served",
			},
			[]string{"family"},
		),
		evalScore: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockcast_evaluation_score",
				Help: "Metrics of the latest evaluation",
			},
			[]string{"metric"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockcast_operation_duration_seconds",
				Help:    "Duration of pipeline operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordIngest(symbol string, bars, rows int) {
	r.barsFetched.WithLabelValues(symbol).Add(float64(bars))
	r.rowsBuilt.WithLabelValues(symbol).Add(float64(rows))
}

func (r *Recorder) RecordSnapshot(kind string) {
	r.snapshots.WithLabelValues(kind).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordSubmission(family, mode string) {
	r.submissions.WithLabelValues(family, mode).Inc()
}

func (r *Recorder) RecordTrainingResult(family string, m *models.Metrics) {
	if m == nil {
		return
	}
	r.trainingScore.WithLabelValues(family, "mse").Set(m.MSE)
	r.trainingScore.WithLabelValues(family, "mae").Set(m.MAE)
	r.trainingScore.WithLabelValues(family, "r2").Set(m.R2)
}

func (r *Recorder) RecordPredictions(family string, n int) {
	r.predictions.WithLabelValues(family).Add(float64(n))
}

func (r *Recorder) RecordEvaluation(m *models.Metrics) {
	r.evalScore.WithLabelValues("mse").Set(m.MSE)
	r.evalScore.WithLabelValues("mae").Set(m.MAE)
	r.evalScore.WithLabelValues("r2").Set(m.R2)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordIngest(string, int, int) {}
func (Nop) RecordSnapshot(string) {}
func (Nop) RecordError(string) {}
func (Nop) RecordSubmission(string, string) {}
func (Nop) RecordTrainingResult(string, *models.Metrics) {}
func (Nop) RecordPredictions(string, int) {}
func (Nop) RecordEvaluation(*models.Metrics) {}
func (Nop) RecordLatency(string, float64) {}
