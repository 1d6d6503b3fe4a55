package usecase

import (
	"context"
	"fmt"
	"sync"

	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	applogger "StockCast/pkg/logger"
)

// LocalSubmitter runs in-process training on a goroutine. It is used when
// no Redis queue is configured.
type LocalSubmitter struct {
	trainer *Trainer
	log     *applogger.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	// mu orders wg.Add in Submit against cancel in Stop.
	mu      sync.Mutex
	wg      sync.WaitGroup
	sem     chan struct{}
}

var _ drepo.JobSubmitter = (*LocalSubmitter)(nil)

// NewLocalSubmitter runs at most workers trainings at once.
func NewLocalSubmitter(trainer *Trainer, workers int, lgr *applogger.Logger) *LocalSubmitter {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalSubmitter{
		trainer: trainer,
		log:     lgr,
		ctx:     ctx,
		cancel:  cancel,
		sem:     make(chan struct{}, workers),
	}
}

func (s *LocalSubmitter) Submit(_ context.Context, spec *models.TrainingJobSpec) (string, error) {
	s.mu.Lock()
	if err := s.ctx.Err(); err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("local submitter stopped: %w", err)
	}
	s.wg.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.wg.Done()
		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			return
		}
		defer func() { <-s.sem }()
		_, _ = s.trainer.Run(s.ctx, spec)
	}()
	return "local-" + spec.RunID, nil
}

// Stop cancels pending runs and waits for running ones.
func (s *LocalSubmitter) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.log.Warn("local trainings still running at shutdown")
		return ctx.Err()
	}
}

// Wait blocks until every submitted run has finished.
func (s *LocalSubmitter) Wait() {
	s.wg.Wait()
}
