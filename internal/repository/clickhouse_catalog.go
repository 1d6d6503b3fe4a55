package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgch "StockCast/pkg/clickhouse"
	applogger "StockCast/pkg/logger"
)

// CHCatalog implements Catalog backed by ClickHouse. Training runs live in a
// ReplacingMergeTree keyed by id so a later RecordRun supersedes the
// submitted row.
type CHCatalog struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

var _ domrepo.Catalog = (*CHCatalog)(nil)

func NewCHCatalog(ch *pkgch.Client) *CHCatalog {
	return &CHCatalog{ch: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHCatalog) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHCatalog) snapshots() string { return s.ch.Database() + ".snapshots" }
func (s *CHCatalog) runs() string      { return s.ch.Database() + ".training_runs" }

func (s *CHCatalog) Init(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id String,
            symbol LowCardinality(String),
            kind LowCardinality(String),
            location String,
            row_count UInt32,
            from_date String,
            to_date String,
            created_at DateTime64(3, 'UTC')
        ) ENGINE = MergeTree
        ORDER BY (symbol, kind, created_at)`, s.snapshots()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id String,
            family LowCardinality(String),
            mode LowCardinality(String),
            dataset String,
            job_id String,
            status LowCardinality(String),
            version String,
            metrics String,
            error String,
            created_at DateTime64(3, 'UTC'),
            updated_at DateTime64(3, 'UTC')
        ) ENGINE = ReplacingMergeTree(updated_at)
        ORDER BY id`, s.runs()),
	}
	if err := s.ch.InitSchema(ctx, stmts); err != nil {
		s.logError("clickhouse init schema error", err)
		return err
	}
	return nil
}

func (s *CHCatalog) RecordSnapshot(ctx context.Context, snap *models.Snapshot) error {
	q := fmt.Sprintf(`INSERT INTO %s (id, symbol, kind, location, row_count, from_date, to_date, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.snapshots())
	_, err := s.db.ExecContext(ctx, q,
		snap.ID, snap.Symbol, snap.Kind, snap.Location, uint32(snap.Rows),
		snap.FromDate, snap.ToDate, snap.CreatedAt.UTC(),
	)
	if err != nil {
		s.logError("clickhouse record_snapshot error", err, applogger.String("kind", snap.Kind))
		return fmt.Errorf("record snapshot: %w", err)
	}
	return nil
}

func (s *CHCatalog) ListSnapshots(ctx context.Context, symbol, kind string, limit int) ([]*models.Snapshot, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT id, symbol, kind, location, row_count, from_date, to_date, created_at
        FROM %s
        WHERE (? = '' OR symbol = ?) AND (? = '' OR kind = ?)
        ORDER BY created_at DESC
        LIMIT ?
    `, s.snapshots())
	rows, err := s.db.QueryContext(ctx, q, symbol, symbol, kind, kind, clampLimit(limit))
	if err != nil {
		s.logError("clickhouse list_snapshots query error", err, applogger.String("symbol", symbol))
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer closeRows(rows)

	out := make([]*models.Snapshot, 0, 16)
	for rows.Next() {
		var (
			snap models.Snapshot
			n    uint32
		)
		if err := rows.Scan(&snap.ID, &snap.Symbol, &snap.Kind, &snap.Location, &n,
			&snap.FromDate, &snap.ToDate, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.Rows = int(n)
		out = append(out, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse list_snapshots ok",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHCatalog) RecordRun(ctx context.Context, r *models.TrainingRun) error {
	metrics, err := encodeMetrics(r.Metrics)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, family, mode, dataset, job_id, status, version, metrics, error, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.runs())
	_, err = s.db.ExecContext(ctx, q,
		r.ID, r.Family, r.Mode, r.Dataset, r.JobID, r.Status, r.Version,
		metrics, r.Error, r.CreatedAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		s.logError("clickhouse record_run error", err, applogger.String("family", r.Family))
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func (s *CHCatalog) ListRuns(ctx context.Context, family string, limit int) ([]*models.TrainingRun, error) {
	q := fmt.Sprintf(`
        SELECT id, family, mode, dataset, job_id, status, version, metrics, error, created_at
        FROM %s FINAL
        WHERE (? = '' OR family = ?)
        ORDER BY created_at DESC
        LIMIT ?
    `, s.runs())
	rows, err := s.db.QueryContext(ctx, q, family, family, clampLimit(limit))
	if err != nil {
		s.logError("clickhouse list_runs query error", err, applogger.String("family", family))
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer closeRows(rows)

	out := make([]*models.TrainingRun, 0, 16)
	for rows.Next() {
		var (
			r       models.TrainingRun
			metrics string
		)
		if err := rows.Scan(&r.ID, &r.Family, &r.Mode, &r.Dataset, &r.JobID, &r.Status,
			&r.Version, &metrics, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.Metrics, err = decodeMetrics(metrics); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *CHCatalog) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHCatalog) Close() error {
	return s.ch.Close()
}

func (s *CHCatalog) logError(msg string, err error, fields ...applogger.Field) {
	if s.l == nil {
		return
	}
	s.l.Error(msg, append(fields, applogger.Error(err))...)
}
