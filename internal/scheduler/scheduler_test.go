package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/pkg/cache"
	applogger "StockCast/pkg/logger"
)

type recordingIngester struct {
	mu   sync.Mutex
	reqs []*models.IngestRequest
	fail map[string]bool
}

func (r *recordingIngester) Ingest(_ context.Context, req *models.IngestRequest) (*models.IngestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	if r.fail[req.Symbol] {
		return nil, errors.New("boom")
	}
	return &models.IngestResult{Symbol: req.Symbol, Rows: 10}, nil
}

type weekdays struct{}

func (weekdays) IsTradingDay(t time.Time) bool {
	return t.Weekday() != time.Saturday && t.Weekday() != time.Sunday
}

func newTestScheduler(ing Ingester, locks cache.Service, now time.Time) *Scheduler {
	s := New(ing, locks, weekdays{}, Config{
		Spec:     "0 30 22 * * 1-5",
		Symbols:  []string{"aapl", " msft ", ""},
		Lookback: 30,
	}, applogger.Nop())
	s.now = func() time.Time { return now }
	return s
}

func TestRunOnceIngestsEachSymbolOncePerDay(t *testing.T) {
	ctx := context.Background()
	ing := &recordingIngester{}
	locks := cache.NewMemoryCache()
	defer locks.Close()

	monday := time.Date(2024, 9, 9, 22, 30, 0, 0, time.UTC)
	s := newTestScheduler(ing, locks, monday)

	if n := s.RunOnce(ctx); n != 2 {
		t.Fatalf("first run ingested %d", n)
	}
	if n := s.RunOnce(ctx); n != 0 {
		t.Fatalf("second run ingested %d", n)
	}
	if len(ing.reqs) != 2 {
		t.Fatalf("requests = %d", len(ing.reqs))
	}
	got := ing.reqs[1]
	if got.Symbol != "MSFT" || got.From != "2024-08-10" || got.To != "2024-09-09" || got.Timespan != "day" {
		t.Fatalf("request = %+v", got)
	}
}

func TestRunOnceSkipsWeekend(t *testing.T) {
	ing := &recordingIngester{}
	saturday := time.Date(2024, 9, 7, 22, 30, 0, 0, time.UTC)
	s := newTestScheduler(ing, nil, saturday)

	if n := s.RunOnce(context.Background()); n != 0 || len(ing.reqs) != 0 {
		t.Fatalf("weekend run ingested %d", n)
	}
}

func TestFailedSymbolReleasesLock(t *testing.T) {
	ctx := context.Background()
	ing := &recordingIngester{fail: map[string]bool{"AAPL": true}}
	locks := cache.NewMemoryCache()
	defer locks.Close()

	s := newTestScheduler(ing, locks, time.Date(2024, 9, 10, 22, 30, 0, 0, time.UTC))
	if n := s.RunOnce(ctx); n != 1 {
		t.Fatalf("ingested %d", n)
	}

	ing.fail = nil
	if n := s.RunOnce(ctx); n != 1 {
		t.Fatalf("retry ingested %d", n)
	}
}

func TestStartNeedsSymbols(t *testing.T) {
	s := New(&recordingIngester{}, nil, nil, Config{Spec: "0 0 * * * *"}, applogger.Nop())
	if err := s.Start(context.Background()); err == nil {
		t.Fatalf("expected an error without symbols")
	}
}

func TestTradingCalendarWeekend(t *testing.T) {
	cal := NewTradingCalendar("xnys")
	if cal.IsTradingDay(time.Date(2024, 9, 8, 15, 0, 0, 0, time.UTC)) {
		t.Fatalf("sunday is not a trading day")
	}
	if !cal.IsTradingDay(time.Date(2024, 9, 10, 15, 0, 0, 0, time.UTC)) {
		t.Fatalf("a regular tuesday is a trading day")
	}
}
