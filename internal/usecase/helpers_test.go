package usecase

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	"StockCast/internal/repository"
	"StockCast/pkg/config"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/metrics"
)

const testWindow = 14

type fakeMarket struct {
	bars []models.Bar
	err  error
}

func (m *fakeMarket) Aggregates(_ context.Context, q drepo.AggregatesQuery) (*drepo.Aggregates, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &drepo.Aggregates{Raw: []byte(`{"ticker":"` + q.Symbol + `"}`), Bars: m.bars}, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []*models.DatasetProcessed
}

func (p *capturePublisher) PublishDatasetProcessed(_ context.Context, ev *models.DatasetProcessed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

type captureSubmitter struct {
	mu    sync.Mutex
	specs []*models.TrainingJobSpec
	err   error
}

func (s *captureSubmitter) Submit(_ context.Context, spec *models.TrainingJobSpec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.specs = append(s.specs, spec)
	return "job-" + spec.Family, nil
}

// synthBars builds n daily bars with a noisy upward trend.
func synthBars(n int) []models.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		c := 100 + float64(i) + 3*math.Sin(float64(i)/2)
		bars[i] = models.Bar{
			Date:   start.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1.5,
			Close:  c,
			Volume: 1e6 + float64(i%7)*1e4,
		}
	}
	return bars
}

type pipeline struct {
	blobs    *repository.FSBlobStore
	catalog  *repository.SQLiteCatalog
	trainer  *Trainer
	local    *LocalSubmitter
	delegate *captureSubmitter
	dispatch *Dispatcher
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	lgr := applogger.Nop()

	blobs, err := repository.NewFSBlobStore(t.TempDir(), lgr)
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	catalog, err := repository.NewSQLiteCatalog(":memory:", lgr)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	t.Cleanup(func() { _ = catalog.Close() })
	if err := catalog.Init(context.Background()); err != nil {
		t.Fatalf("catalog init: %v", err)
	}

	trainer := NewTrainer(blobs, catalog, nil, metrics.Nop{}, lgr, TrainerOptions{
		Window:       testWindow,
		TestFraction: 0.2,
		Seed:         42,
		MaxDepth:     10,
	})
	local := NewLocalSubmitter(trainer, 2, lgr)
	t.Cleanup(func() { _ = local.Stop(context.Background()) })

	delegate := &captureSubmitter{}
	dispatch := NewDispatcher(DispatcherDeps{
		Families:  config.DefaultFamilies(),
		Defaults:  []string{models.FamilyDecisionTree, models.FamilyLinearRegression},
		Blobs:     blobs,
		InProcess: local,
		Delegated: delegate,
		Catalog:   catalog,
		Metrics:   metrics.Nop{},
		Log:       lgr,
	})

	return &pipeline{
		blobs:    blobs,
		catalog:  catalog,
		trainer:  trainer,
		local:    local,
		delegate: delegate,
		dispatch: dispatch,
	}
}

func (p *pipeline) ingestor(market drepo.MarketData, events drepo.EventPublisher) *Ingestor {
	return NewIngestor(market, p.blobs, p.catalog, events, p.dispatch, metrics.Nop{}, applogger.Nop(), IngestOptions{
		Window:     testWindow,
		PresignTTL: time.Hour,
	})
}

func ingestRequest(train bool) *models.IngestRequest {
	return &models.IngestRequest{
		Symbol:     "aapl",
		From:       "2024-01-01",
		To:         "2024-02-09",
		Multiplier: 1,
		Timespan:   "day",
		Train:      train,
	}
}
