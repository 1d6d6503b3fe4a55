package repository

import (
	"context"
	"time"

	"StockCast/internal/domain/models"
)

// AggregatesQuery selects a range of aggregated bars from the market-data provider.
type AggregatesQuery struct {
	Symbol     string
	Multiplier int
	Timespan   Timespan
	From       string
	To         string
}

// Aggregates is a provider answer: the verbatim body plus the bars that
// carried every required field, in provider order.
type Aggregates struct {
	Raw     []byte
	Bars    []models.Bar
	Skipped int
}

// MarketData fetches historical bars.
type MarketData interface {
	Aggregates(ctx context.Context, q AggregatesQuery) (*Aggregates, error)
}

// BlobStore persists immutable objects. Locations are backend URIs
// (s3://bucket/key or file:///path) and are what callers pass around.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, location string) ([]byte, error)
	PresignGet(ctx context.Context, location string, ttl time.Duration) (string, error)
	// Key returns the object key of a location produced by this store.
	Key(location string) (string, error)
	Location(key string) string
}

// Catalog indexes snapshots and training runs.
type Catalog interface {
	Init(ctx context.Context) error
	RecordSnapshot(ctx context.Context, s *models.Snapshot) error
	ListSnapshots(ctx context.Context, symbol, kind string, limit int) ([]*models.Snapshot, error)
	RecordRun(ctx context.Context, r *models.TrainingRun) error
	ListRuns(ctx context.Context, family string, limit int) ([]*models.TrainingRun, error)
	Health(ctx context.Context) error
	Close() error
}

// EventPublisher announces processed datasets.
type EventPublisher interface {
	PublishDatasetProcessed(ctx context.Context, ev *models.DatasetProcessed) error
	Close() error
}

// JobSubmitter starts a training job and returns its identifier without
// waiting for the job to finish.
type JobSubmitter interface {
	Submit(ctx context.Context, spec *models.TrainingJobSpec) (string, error)
}

// RunNotifier is told about every recorded training run.
type RunNotifier interface {
	NotifyRun(r *models.TrainingRun)
}

type Metrics interface {
	RecordIngest(symbol string, bars, rows int)
	RecordSnapshot(kind string)
	RecordError(kind string)
	RecordSubmission(family, mode string)
	RecordTrainingResult(family string, m *models.Metrics)
	RecordPredictions(family string, n int)
	RecordEvaluation(m *models.Metrics)
	RecordLatency(op string, seconds float64)
}
