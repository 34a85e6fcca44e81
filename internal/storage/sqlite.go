package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kensaku/internal/models"
)

// SQLiteArchive implements Archive using SQLite.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteArchive(dbPath string) (*SQLiteArchive, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteArchive{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

	CREATE TABLE IF NOT EXISTS run_hits (
		run_id TEXT NOT NULL,
		query_id TEXT NOT NULL,
		rank INTEGER NOT NULL,
		docno TEXT NOT NULL,
		score REAL NOT NULL,
		PRIMARY KEY (run_id, query_id, rank),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_run_hits_docno ON run_hits(docno);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateRun records a run and the model it was scored with. An existing run
// keeps its creation time and takes the new model.
func (s *SQLiteArchive) CreateRun(ctx context.Context, runID, model string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, model, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET model = excluded.model`,
		runID, model, time.Now(),
	)
	return err
}

// SaveRun replaces the hits of queryID in runID with hits, ranked in list
// order from 1. The run is created if it does not exist.
func (s *SQLiteArchive) SaveRun(ctx context.Context, runID, queryID string, hits *models.SearchHits) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO runs (id, created_at) VALUES (?, ?)`, runID, time.Now()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM run_hits WHERE run_id = ? AND query_id = ?`, runID, queryID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_hits (run_id, query_id, rank, docno, score) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, hit := range hits.Hits() {
		if _, err := stmt.ExecContext(ctx, runID, queryID, i+1, hit.Docno, hit.Score); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadRun returns the archived hits of queryID in runID in rank order.
func (s *SQLiteArchive) LoadRun(ctx context.Context, runID, queryID string) (*models.SearchHits, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT docno, score FROM run_hits
		 WHERE run_id = ? AND query_id = ? ORDER BY rank`,
		runID, queryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := models.NewSearchHits()
	for rows.Next() {
		hit := &models.SearchHit{DocID: -1}
		if err := rows.Scan(&hit.Docno, &hit.Score); err != nil {
			return nil, err
		}
		hits.Add(hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if hits.Len() == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrRunNotFound, runID, queryID)
	}
	return hits, nil
}

// ListRuns returns all runs, newest first, with their query and hit counts.
func (s *SQLiteArchive) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.model, r.created_at,
		        COUNT(DISTINCT h.query_id), COUNT(h.rank)
		 FROM runs r LEFT JOIN run_hits h ON h.run_id = r.id
		 GROUP BY r.id, r.model, r.created_at
		 ORDER BY r.created_at DESC, r.id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Model, &r.CreatedAt, &r.Queries, &r.Hits); err != nil {
			return nil, err
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its hits.
func (s *SQLiteArchive) DeleteRun(ctx context.Context, runID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_hits WHERE run_id = ?`, runID); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteArchive) Close() error {
	return s.db.Close()
}
