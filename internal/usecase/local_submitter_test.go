package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"StockCast/internal/domain/models"
	applogger "StockCast/pkg/logger"
)

func missingDatasetSpec(i int) *models.TrainingJobSpec {
	return &models.TrainingJobSpec{
		Name:    fmt.Sprintf("local-%d", i),
		Family:  models.FamilyLinearRegression,
		Dataset: "training/processed/missing.csv",
		RunID:   fmt.Sprintf("run-%d", i),
	}
}

func TestLocalSubmitterRejectsAfterStop(t *testing.T) {
	p := newPipeline(t)
	local := NewLocalSubmitter(p.trainer, 1, applogger.Nop())

	if _, err := local.Submit(context.Background(), missingDatasetSpec(0)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := local.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := local.Submit(context.Background(), missingDatasetSpec(1)); err == nil {
		t.Fatal("submit after stop must fail")
	}
}

func TestLocalSubmitterSubmitDuringStop(t *testing.T) {
	p := newPipeline(t)
	local := NewLocalSubmitter(p.trainer, 2, applogger.Nop())

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, _ = local.Submit(context.Background(), missingDatasetSpec(i))
		}(i)
	}
	close(start)
	if err := local.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	wg.Wait()
	local.Wait()

	if _, err := local.Submit(context.Background(), missingDatasetSpec(99)); err == nil {
		t.Fatal("submit after stop must fail")
	}
}
