// Package scheduler runs ingestion for a fixed symbol list on a cron
// schedule.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/pkg/cache"
	applogger "StockCast/pkg/logger"
	xutil "StockCast/pkg/util"

	"github.com/robfig/cron/v3"
)

// Ingester is the ingestion entry point the scheduler drives.
type Ingester interface {
	Ingest(ctx context.Context, req *models.IngestRequest) (*models.IngestResult, error)
}

// Calendar reports exchange business days.
type Calendar interface {
	IsTradingDay(t time.Time) bool
}

// Config is the schedule section of the application config.
type Config struct {
	Spec     string
	Symbols  []string
	Lookback int
	Train    bool
	LockTTL  time.Duration
}

// Scheduler ingests every configured symbol on each cron tick that falls on
// a trading day. A per-symbol, per-day lock keeps replicas from ingesting
// the same symbol twice.
type Scheduler struct {
	cron     *cron.Cron
	ingester Ingester
	locks    cache.Service
	cal      Calendar
	cfg      Config
	log      *applogger.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
}

// New creates a Scheduler. locks may be nil on a single replica.
func New(ingester Ingester, locks cache.Service, cal Calendar, cfg Config, lgr *applogger.Logger) *Scheduler {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 20 * time.Hour
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		ingester: ingester,
		locks:    locks,
		cal:      cal,
		cfg:      cfg,
		log:      lgr,
		now:      time.Now,
	}
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.cfg.Symbols) == 0 {
		return fmt.Errorf("scheduler: no symbols configured")
	}
	if _, err := s.cron.AddFunc(s.cfg.Spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("register schedule %q: %w", s.cfg.Spec, err)
	}
	s.cron.Start()
	s.log.Info("scheduler started",
		applogger.String("spec", s.cfg.Spec),
		applogger.Int("symbols", len(s.cfg.Symbols)))
	return nil
}

// Stop stops the cron loop and waits for a running tick.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs one tick. It returns the number of symbols ingested.
// Overlapping ticks are skipped.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("previous scheduled run still in progress")
		return 0
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	now := s.now()
	if s.cal != nil && !s.cal.IsTradingDay(now) {
		s.log.Info("not a trading day, skipping", applogger.String("date", xutil.FormatDate(now)))
		return 0
	}

	from, to := xutil.Lookback(now, s.cfg.Lookback)
	done := 0
	for _, sym := range s.cfg.Symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if s.ingest(ctx, sym, from, to) {
			done++
		}
	}
	return done
}

func (s *Scheduler) ingest(ctx context.Context, symbol, from, to string) bool {
	key := cache.GenerateKey("schedule", symbol+":"+to)
	if s.locks != nil {
		ok, err := s.locks.TryLock(ctx, key, s.cfg.LockTTL)
		if err != nil {
			s.log.Warn("schedule lock failed", applogger.String("symbol", symbol), applogger.Error(err))
			return false
		}
		if !ok {
			s.log.Debug("already ingested today", applogger.String("symbol", symbol))
			return false
		}
	}

	res, err := s.ingester.Ingest(ctx, &models.IngestRequest{
		Symbol:     symbol,
		From:       from,
		To:         to,
		Multiplier: 1,
		Timespan:   "day",
		Train:      s.cfg.Train,
	})
	if err != nil {
		s.log.Error("scheduled ingestion failed", applogger.String("symbol", symbol), applogger.Error(err))
		if s.locks != nil {
			_ = s.locks.Unlock(ctx, key)
		}
		return false
	}
	s.log.Info("scheduled ingestion done",
		applogger.String("symbol", symbol),
		applogger.Int("rows", res.Rows),
		applogger.Bool("insufficient", res.Insufficient))
	return true
}
