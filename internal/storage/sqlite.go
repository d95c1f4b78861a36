package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/shiori/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		build_id TEXT NOT NULL,
		lang TEXT NOT NULL,
		engine TEXT NOT NULL,
		documents INTEGER NOT NULL,
		skipped INTEGER NOT NULL DEFAULT 0,
		size_bytes INTEGER NOT NULL,
		chunks INTEGER NOT NULL DEFAULT 0,
		output TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_builds_build_id ON builds(build_id);
	CREATE INDEX IF NOT EXISTS idx_builds_lang_created ON builds(lang, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

const buildColumns = `id, build_id, lang, engine, documents, skipped, size_bytes, chunks, output, created_at`

// RecordBuild inserts a build record.
func (s *SQLiteStorage) RecordBuild(ctx context.Context, rec *models.BuildRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.BuildID == "" {
		return fmt.Errorf("build record %s has no build id", rec.ID)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (`+buildColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.BuildID, rec.Lang, string(rec.Engine), rec.Documents, rec.Skipped,
		rec.SizeBytes, rec.Chunks, rec.Output, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record build: %w", err)
	}
	return nil
}

// GetBuild returns the records of one build.
func (s *SQLiteStorage) GetBuild(ctx context.Context, buildID string) ([]*models.BuildRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+buildColumns+` FROM builds WHERE build_id = ? ORDER BY lang`, buildID)
	if err != nil {
		return nil, err
	}
	recs, err := scanBuilds(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("build not found: %s", buildID)
	}
	return recs, nil
}

// LatestBuilds returns up to limit records, newest first.
func (s *SQLiteStorage) LatestBuilds(ctx context.Context, limit int) ([]*models.BuildRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+buildColumns+` FROM builds ORDER BY created_at DESC, lang LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return scanBuilds(rows)
}

// LatestByLang returns the newest record per language, ordered by language.
func (s *SQLiteStorage) LatestByLang(ctx context.Context) ([]*models.BuildRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+buildColumns+` FROM builds b
		 WHERE created_at = (SELECT MAX(created_at) FROM builds WHERE lang = b.lang)
		 GROUP BY lang
		 ORDER BY lang`)
	if err != nil {
		return nil, err
	}
	return scanBuilds(rows)
}

// CountBuilds returns the number of stored records.
func (s *SQLiteStorage) CountBuilds(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM builds`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func scanBuilds(rows *sql.Rows) ([]*models.BuildRecord, error) {
	defer rows.Close()
	var recs []*models.BuildRecord
	for rows.Next() {
		var rec models.BuildRecord
		var engine string
		if err := rows.Scan(&rec.ID, &rec.BuildID, &rec.Lang, &engine, &rec.Documents, &rec.Skipped,
			&rec.SizeBytes, &rec.Chunks, &rec.Output, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Engine = models.Engine(engine)
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

var _ Storage = (*SQLiteStorage)(nil)
