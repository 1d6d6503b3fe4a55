package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	applogger "StockCast/pkg/logger"

	_ "modernc.org/sqlite"
)

// SQLiteCatalog implements Catalog on a local SQLite file. Timestamps are
// stored as unix milliseconds.
type SQLiteCatalog struct {
	db *sql.DB
	l  *applogger.Logger
}

var _ domrepo.Catalog = (*SQLiteCatalog)(nil)

// NewSQLiteCatalog opens (or creates) the database at path. ":memory:" is
// pinned to a single connection so every query sees the same database.
func NewSQLiteCatalog(path string, l *applogger.Logger) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return &SQLiteCatalog{db: db, l: l}, nil
}

func (s *SQLiteCatalog) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id         TEXT PRIMARY KEY,
			symbol     TEXT NOT NULL,
			kind       TEXT NOT NULL,
			location   TEXT NOT NULL,
			row_count  INTEGER,
			from_date  TEXT,
			to_date    TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_symbol ON snapshots(symbol, created_at)`,

		`CREATE TABLE IF NOT EXISTS training_runs (
			id         TEXT PRIMARY KEY,
			family     TEXT NOT NULL,
			mode       TEXT NOT NULL,
			dataset    TEXT NOT NULL,
			job_id     TEXT,
			status     TEXT NOT NULL,
			version    TEXT,
			metrics    TEXT,
			error      TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_family ON training_runs(family, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	s.l.Info("sqlite catalog ready")
	return nil
}

func (s *SQLiteCatalog) RecordSnapshot(ctx context.Context, snap *models.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO snapshots
		(id, symbol, kind, location, row_count, from_date, to_date, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		snap.ID, snap.Symbol, snap.Kind, snap.Location, snap.Rows,
		snap.FromDate, snap.ToDate, snap.CreatedAt.UnixMilli(),
	)
	if err != nil {
		s.l.Error("sqlite record_snapshot error", applogger.String("kind", snap.Kind), applogger.Error(err))
		return fmt.Errorf("record snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteCatalog) ListSnapshots(ctx context.Context, symbol, kind string, limit int) ([]*models.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, kind, location, row_count, from_date, to_date, created_at
		FROM snapshots
		WHERE (? = '' OR symbol = ?) AND (? = '' OR kind = ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		symbol, symbol, kind, kind, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer closeRows(rows)

	var out []*models.Snapshot
	for rows.Next() {
		var (
			snap models.Snapshot
			ms   int64
		)
		if err := rows.Scan(&snap.ID, &snap.Symbol, &snap.Kind, &snap.Location, &snap.Rows,
			&snap.FromDate, &snap.ToDate, &ms); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.CreatedAt = time.UnixMilli(ms).UTC()
		out = append(out, &snap)
	}
	return out, rows.Err()
}

// RecordRun upserts by id.
func (s *SQLiteCatalog) RecordRun(ctx context.Context, r *models.TrainingRun) error {
	metrics, err := encodeMetrics(r.Metrics)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO training_runs
		(id, family, mode, dataset, job_id, status, version, metrics, error, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			job_id = excluded.job_id,
			status = excluded.status,
			version = excluded.version,
			metrics = excluded.metrics,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		r.ID, r.Family, r.Mode, r.Dataset, r.JobID, r.Status, r.Version,
		metrics, r.Error, r.CreatedAt.UnixMilli(), time.Now().UnixMilli(),
	)
	if err != nil {
		s.l.Error("sqlite record_run error", applogger.String("family", r.Family), applogger.Error(err))
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func (s *SQLiteCatalog) ListRuns(ctx context.Context, family string, limit int) ([]*models.TrainingRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, family, mode, dataset, job_id, status, version, metrics, error, created_at
		FROM training_runs
		WHERE (? = '' OR family = ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		family, family, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer closeRows(rows)

	var out []*models.TrainingRun
	for rows.Next() {
		var (
			r       models.TrainingRun
			metrics string
			ms      int64
		)
		if err := rows.Scan(&r.ID, &r.Family, &r.Mode, &r.Dataset, &r.JobID, &r.Status,
			&r.Version, &metrics, &r.Error, &ms); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt = time.UnixMilli(ms).UTC()
		if r.Metrics, err = decodeMetrics(metrics); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLiteCatalog) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteCatalog) Close() error {
	return s.db.Close()
}
