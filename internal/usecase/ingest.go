package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"StockCast/internal/domain/errs"
	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	"StockCast/internal/services/dataset"
	applogger "StockCast/pkg/logger"
	xutil "StockCast/pkg/util"

	"github.com/google/uuid"
)

// IngestOptions controls feature building and link lifetimes.
// WindowLength is the look-back of sequence-model windows.
type IngestOptions struct {
	Window       int
	WindowLength int
	PresignTTL   time.Duration
}

// Ingestor fetches bars, stores the raw answer and the processed snapshot,
// and then either dispatches training directly or announces the snapshot.
type Ingestor struct {
	market     drepo.MarketData
	blobs      drepo.BlobStore
	catalog    drepo.Catalog
	events     drepo.EventPublisher
	dispatcher *Dispatcher
	metrics    drepo.Metrics
	log        *applogger.Logger
	opts       IngestOptions
	now        func() time.Time
}

// NewIngestor creates an Ingestor. events may be nil.
func NewIngestor(
	market drepo.MarketData,
	blobs drepo.BlobStore,
	catalog drepo.Catalog,
	events drepo.EventPublisher,
	dispatcher *Dispatcher,
	metrics drepo.Metrics,
	lgr *applogger.Logger,
	opts IngestOptions,
) *Ingestor {
	if opts.WindowLength < 1 {
		opts.WindowLength = dataset.DefaultWindowLength
	}
	return &Ingestor{
		market:     market,
		blobs:      blobs,
		catalog:    catalog,
		events:     events,
		dispatcher: dispatcher,
		metrics:    metrics,
		log:        lgr,
		opts:       opts,
		now:        time.Now,
	}
}

// Ingest runs one ingestion. When no fully defined row survives, only the
// raw snapshot is kept and the result is flagged insufficient.
func (u *Ingestor) Ingest(ctx context.Context, req *models.IngestRequest) (*models.IngestResult, error) {
	start := u.now()
	res, err := u.ingest(ctx, req)
	u.metrics.RecordLatency("ingest", u.now().Sub(start).Seconds())
	if err != nil {
		u.metrics.RecordError(errKind(err))
		return nil, err
	}
	return res, nil
}

func (u *Ingestor) ingest(ctx context.Context, req *models.IngestRequest) (*models.IngestResult, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.From > req.To {
		return nil, errs.New(errs.MalformedInput, "from %s is after to %s", req.From, req.To)
	}

	agg, err := u.market.Aggregates(ctx, drepo.AggregatesQuery{
		Symbol:     symbol,
		Multiplier: req.Multiplier,
		Timespan:   drepo.NormalizeTimespan(req.Timespan),
		From:       req.From,
		To:         req.To,
	})
	if err != nil {
		return nil, err
	}

	day := xutil.FormatDate(u.now())
	res := &models.IngestResult{Symbol: symbol, Bars: len(agg.Bars)}

	res.RawLocation, err = u.blobs.Put(ctx, rawKey(symbol, day, uuid.NewString()), agg.Raw, "application/json")
	if err != nil {
		return nil, fmt.Errorf("store raw snapshot: %w", err)
	}
	u.record(ctx, symbol, models.SnapshotRaw, res.RawLocation, len(agg.Bars), req)
	res.RawURL = u.presign(ctx, res.RawLocation)

	table, err := dataset.Build(symbol, agg.Bars, u.opts.Window)
	if err != nil {
		return nil, err
	}
	res.Rows = table.Len()
	u.metrics.RecordIngest(symbol, len(agg.Bars), table.Len())

	windows, err := dataset.Windowed(table, u.opts.WindowLength)
	if err != nil {
		return nil, err
	}
	res.Windows = windows.Len()

	if table.Len() == 0 {
		res.Insufficient = true
		u.log.Warn("no fully defined rows",
			applogger.String("symbol", symbol),
			applogger.Int("bars", len(agg.Bars)),
			applogger.Int("window", u.opts.Window))
		return res, nil
	}

	body, err := dataset.EncodeSnapshot(table)
	if err != nil {
		return nil, fmt.Errorf("encode processed snapshot: %w", err)
	}
	res.ProcessedLocation, err = u.blobs.Put(ctx, processedKey(symbol, day, uuid.NewString()), body, "text/csv")
	if err != nil {
		return nil, fmt.Errorf("store processed snapshot: %w", err)
	}
	u.record(ctx, symbol, models.SnapshotProcessed, res.ProcessedLocation, table.Len(), req)
	res.ProcessedURL = u.presign(ctx, res.ProcessedLocation)

	u.log.Info("ingested",
		applogger.String("symbol", symbol),
		applogger.Int("bars", len(agg.Bars)),
		applogger.Int("skipped", agg.Skipped),
		applogger.Int("rows", table.Len()),
		applogger.Int("windows", res.Windows),
		applogger.String("location", res.ProcessedLocation))
	if windows.Insufficient() {
		u.log.Warn("too few rows for sequence windows",
			applogger.String("symbol", symbol),
			applogger.Int("rows", table.Len()),
			applogger.Int("window_length", u.opts.WindowLength))
	}

	switch {
	case req.Train:
		subs, err := u.dispatcher.Dispatch(ctx, res.ProcessedLocation, nil)
		res.Submissions = subs
		if err != nil {
			return res, err
		}
	case u.events != nil:
		ev := &models.DatasetProcessed{
			Symbol:   symbol,
			Location: res.ProcessedLocation,
			Rows:     table.Len(),
			At:       u.now().UTC(),
		}
		if err := u.events.PublishDatasetProcessed(ctx, ev); err != nil {
			u.metrics.RecordError("publish")
			u.log.Error("dataset event not published",
				applogger.String("location", res.ProcessedLocation),
				applogger.Error(err))
		}
	}
	return res, nil
}

func (u *Ingestor) record(ctx context.Context, symbol, kind, location string, rows int, req *models.IngestRequest) {
	u.metrics.RecordSnapshot(kind)
	err := u.catalog.RecordSnapshot(ctx, &models.Snapshot{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Kind:      kind,
		Location:  location,
		Rows:      rows,
		FromDate:  req.From,
		ToDate:    req.To,
		CreatedAt: u.now().UTC(),
	})
	if err != nil {
		u.log.Warn("catalog record failed", applogger.String("location", location), applogger.Error(err))
	}
}

func (u *Ingestor) presign(ctx context.Context, location string) string {
	url, err := u.blobs.PresignGet(ctx, location, u.opts.PresignTTL)
	if err != nil {
		u.log.Warn("presign failed", applogger.String("location", location), applogger.Error(err))
		return ""
	}
	return url
}
