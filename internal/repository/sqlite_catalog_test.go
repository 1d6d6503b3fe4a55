package repository

import (
	"context"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	applogger "StockCast/pkg/logger"
)

func newMemCatalog(t *testing.T) *SQLiteCatalog {
	t.Helper()
	c, err := NewSQLiteCatalog(":memory:", applogger.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return c
}

func TestSQLiteCatalogSnapshots(t *testing.T) {
	ctx := context.Background()
	c := newMemCatalog(t)

	base := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	snaps := []*models.Snapshot{
		{ID: "a", Symbol: "AAPL", Kind: models.SnapshotRaw, Location: "file:///a.json", Rows: 21, CreatedAt: base},
		{ID: "b", Symbol: "AAPL", Kind: models.SnapshotProcessed, Location: "file:///b.csv", Rows: 8, CreatedAt: base.Add(time.Second)},
		{ID: "c", Symbol: "MSFT", Kind: models.SnapshotRaw, Location: "file:///c.json", Rows: 21, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, s := range snaps {
		if err := c.RecordSnapshot(ctx, s); err != nil {
			t.Fatalf("record %s: %v", s.ID, err)
		}
	}

	all, err := c.ListSnapshots(ctx, "", "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" {
		t.Fatalf("want newest first, got %d rows first=%v", len(all), all[0].ID)
	}

	aapl, err := c.ListSnapshots(ctx, "AAPL", models.SnapshotProcessed, 10)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(aapl) != 1 || aapl[0].ID != "b" || aapl[0].Rows != 8 {
		t.Fatalf("filtered = %+v", aapl)
	}
	if !aapl[0].CreatedAt.Equal(base.Add(time.Second)) {
		t.Fatalf("created_at = %v", aapl[0].CreatedAt)
	}
}

func TestSQLiteCatalogRunUpsert(t *testing.T) {
	ctx := context.Background()
	c := newMemCatalog(t)

	run := &models.TrainingRun{
		ID:        "run-1",
		Family:    models.FamilyLinearRegression,
		Mode:      "inprocess",
		Dataset:   "file:///b.csv",
		JobID:     "job-1",
		Status:    models.RunSubmitted,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.RecordRun(ctx, run); err != nil {
		t.Fatalf("record: %v", err)
	}

	run.Status = models.RunSucceeded
	run.Version = "20240901T000000Z"
	run.Metrics = &models.Metrics{MSE: 1.5, MAE: 1, R2: 0.9, N: 4}
	if err := c.RecordRun(ctx, run); err != nil {
		t.Fatalf("update: %v", err)
	}

	runs, err := c.ListRuns(ctx, models.FamilyLinearRegression, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("want 1 run after upsert, got %d", len(runs))
	}
	got := runs[0]
	if got.Status != models.RunSucceeded || got.Metrics == nil || got.Metrics.N != 4 {
		t.Fatalf("run = %+v", got)
	}

	none, err := c.ListRuns(ctx, models.FamilyDecisionTree, 10)
	if err != nil || len(none) != 0 {
		t.Fatalf("other family: %v %d", err, len(none))
	}
}
