package repository

import (
	"context"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/pkg/queue"
)

// QueueSubmitter hands in-process training jobs to the Redis queue.
type QueueSubmitter struct {
	q *queue.RedisQueue
}

var _ domrepo.JobSubmitter = (*QueueSubmitter)(nil)

func NewQueueSubmitter(q *queue.RedisQueue) *QueueSubmitter {
	return &QueueSubmitter{q: q}
}

// Submit enqueues the job and returns the queue message id.
func (s *QueueSubmitter) Submit(ctx context.Context, spec *models.TrainingJobSpec) (string, error) {
	return s.q.Enqueue(ctx, models.JobTrainInProcess, spec)
}
