package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/vulnwatch/webscan/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scan_results (
	scan_id      TEXT PRIMARY KEY,
	target_url   TEXT NOT NULL,
	status       TEXT NOT NULL,
	completed_at DATETIME NOT NULL,
	bundle       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS scan_progress (
	scan_id    TEXT NOT NULL,
	percent    REAL NOT NULL,
	message    TEXT,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_progress_scan_id ON scan_progress (scan_id);
`

// SQLiteSink stores result bundles as JSON documents keyed by scan ID,
// with a progress table appended to as the scan advances.
type SQLiteSink struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// NewSQLiteSink opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteSink(path string, log zerolog.Logger) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory for '%s': %w", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database '%s': %w", path, err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}

	return &SQLiteSink{
		db:     db,
		path:   path,
		logger: log.With().Str("component", "SQLiteSink").Logger(),
	}, nil
}

// Close closes the underlying database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// SaveResults upserts the bundle document for the scan.
func (s *SQLiteSink) SaveResults(ctx context.Context, scanID string, bundle *models.ResultBundle) SinkResult {
	encoded, err := json.Marshal(bundle)
	if err != nil {
		return failure(s.path, fmt.Errorf("failed to marshal result bundle: %w", err))
	}

	info := bundle.Summary.ScanInfo
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO scan_results (scan_id, target_url, status, completed_at, bundle) VALUES (?, ?, ?, ?, ?)`,
		scanID, info.TargetURL, info.Status, time.Now(), string(encoded))
	if err != nil {
		return failure(s.path, fmt.Errorf("failed to store scan results: %w", err))
	}

	s.logger.Info().Str("scan_id", scanID).Str("db", s.path).Msg("Results stored")
	return success(s.path)
}

// UpdateProgress appends a progress row for the scan.
func (s *SQLiteSink) UpdateProgress(ctx context.Context, scanID string, percent float64, message string) SinkResult {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_progress (scan_id, percent, message, updated_at) VALUES (?, ?, ?, ?)`,
		scanID, percent, message, time.Now())
	if err != nil {
		return failure(s.path, fmt.Errorf("failed to store progress update: %w", err))
	}
	return success(s.path)
}

// LoadResults reads back the stored bundle for a scan ID.
func (s *SQLiteSink) LoadResults(ctx context.Context, scanID string) (*models.ResultBundle, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx, `SELECT bundle FROM scan_results WHERE scan_id = ?`, scanID).Scan(&encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to load results for scan '%s': %w", scanID, err)
	}

	var bundle models.ResultBundle
	if err := json.Unmarshal([]byte(encoded), &bundle); err != nil {
		return nil, fmt.Errorf("failed to decode stored bundle for scan '%s': %w", scanID, err)
	}
	return &bundle, nil
}
