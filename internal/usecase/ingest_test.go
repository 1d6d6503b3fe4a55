package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"StockCast/internal/domain/errs"
	"StockCast/internal/domain/models"
	"StockCast/internal/services/dataset"
)

func TestIngestStoresSnapshotsAndAnnounces(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	events := &capturePublisher{}

	res, err := p.ingestor(&fakeMarket{bars: synthBars(40)}, events).Ingest(ctx, ingestRequest(false))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Symbol != "AAPL" || res.Bars != 40 || res.Rows != 40-(testWindow-1) || res.Insufficient {
		t.Fatalf("result = %+v", res)
	}
	// Fewer rows than the sequence look-back is still a valid ingest.
	if res.Windows != 0 {
		t.Fatalf("windows = %d", res.Windows)
	}
	if !strings.Contains(res.RawLocation, "training/raw/stock_data_AAPL_") || !strings.HasSuffix(res.RawLocation, ".json") {
		t.Fatalf("raw location = %s", res.RawLocation)
	}
	if !strings.Contains(res.ProcessedLocation, "training/processed/stock_data_AAPL_") {
		t.Fatalf("processed location = %s", res.ProcessedLocation)
	}
	rawID := strings.TrimSuffix(res.RawLocation[strings.LastIndex(res.RawLocation, "_")+1:], ".json")
	procID := strings.TrimSuffix(res.ProcessedLocation[strings.LastIndex(res.ProcessedLocation, "_")+1:], ".csv")
	if rawID == "" || rawID == procID {
		t.Fatalf("raw and processed snapshots share id %q", rawID)
	}
	if res.RawURL == "" || res.ProcessedURL == "" {
		t.Fatalf("missing links: %+v", res)
	}

	raw, err := p.blobs.Get(ctx, res.RawLocation)
	if err != nil || string(raw) != `{"ticker":"AAPL"}` {
		t.Fatalf("raw body = %q, %v", raw, err)
	}
	body, err := p.blobs.Get(ctx, res.ProcessedLocation)
	if err != nil {
		t.Fatalf("processed: %v", err)
	}
	table, err := dataset.DecodeSnapshot(body, testWindow)
	if err != nil || table.Len() != res.Rows {
		t.Fatalf("decoded %v rows, err %v", table, err)
	}

	snaps, err := p.catalog.ListSnapshots(ctx, "AAPL", "", 10)
	if err != nil || len(snaps) != 2 {
		t.Fatalf("snapshots = %d, %v", len(snaps), err)
	}
	if len(events.events) != 1 || events.events[0].Location != res.ProcessedLocation || events.events[0].Rows != res.Rows {
		t.Fatalf("events = %+v", events.events)
	}
	if len(res.Submissions) != 0 {
		t.Fatalf("unexpected submissions %+v", res.Submissions)
	}
}

func TestIngestInsufficientKeepsRawOnly(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	events := &capturePublisher{}

	res, err := p.ingestor(&fakeMarket{bars: synthBars(testWindow - 1)}, events).Ingest(ctx, ingestRequest(true))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !res.Insufficient || res.Rows != 0 || res.ProcessedLocation != "" || res.RawLocation == "" {
		t.Fatalf("result = %+v", res)
	}
	if len(events.events) != 0 || len(res.Submissions) != 0 {
		t.Fatalf("nothing should be announced or dispatched")
	}
	snaps, _ := p.catalog.ListSnapshots(ctx, "", "", 10)
	if len(snaps) != 1 || snaps[0].Kind != models.SnapshotRaw {
		t.Fatalf("snapshots = %+v", snaps)
	}
}

func TestIngestRejectsReversedRange(t *testing.T) {
	p := newPipeline(t)
	req := ingestRequest(false)
	req.From, req.To = req.To, req.From

	_, err := p.ingestor(&fakeMarket{bars: synthBars(40)}, nil).Ingest(context.Background(), req)
	if !errors.Is(err, errs.ErrMalformedInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestIngestPropagatesUpstreamFailure(t *testing.T) {
	p := newPipeline(t)
	market := &fakeMarket{err: errs.Upstream(403, "aggregates for AAPL")}

	_, err := p.ingestor(market, nil).Ingest(context.Background(), ingestRequest(false))
	if errs.StatusOf(err) != 403 {
		t.Fatalf("err = %v", err)
	}
	snaps, _ := p.catalog.ListSnapshots(context.Background(), "", "", 10)
	if len(snaps) != 0 {
		t.Fatalf("nothing should be stored on upstream failure")
	}
}
