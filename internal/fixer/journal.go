package fixer

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aleister1102/secwatch/internal/common"
	"github.com/aleister1102/secwatch/internal/models"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Journal records fix attempts in a sqlite database.
type Journal struct {
	db     *sql.DB
	logger zerolog.Logger
}

// OpenJournal opens (creating if needed) the journal database at path.
func OpenJournal(path string, logger zerolog.Logger) (*Journal, error) {
	logger = logger.With().Str("module", "FixJournal").Logger()
	logger.Info().Str("db_path", path).Msg("Opening fix journal")

	if err := common.NewFileManager(logger).EnsureDirectory(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Error().Err(err).Str("db_path", path).Msg("Failed to open fix journal")
		return nil, fmt.Errorf("sql.Open failed for %s: %w", path, err)
	}
	// One writer at a time; fix requests can arrive concurrently.
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, logger: logger}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

func (j *Journal) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS fix_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		alert_id TEXT NOT NULL,
		file_path TEXT NOT NULL,
		success INTEGER NOT NULL,
		error_kind TEXT,
		error TEXT,
		bytes_before INTEGER NOT NULL DEFAULT 0,
		bytes_after INTEGER NOT NULL DEFAULT 0,
		applied_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fix_history_file ON fix_history(file_path);
	`
	if _, err := j.db.Exec(query); err != nil {
		j.logger.Error().Err(err).Msg("Failed to initialize fix_history schema")
		return err
	}
	return nil
}

// Record inserts rec and returns its row ID.
func (j *Journal) Record(ctx context.Context, rec models.FixRecord) (int64, error) {
	if rec.AppliedAt.IsZero() {
		rec.AppliedAt = time.Now()
	}

	query := `INSERT INTO fix_history (alert_id, file_path, success, error_kind, error, bytes_before, bytes_after, applied_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := j.db.ExecContext(ctx, query,
		rec.AlertID,
		rec.FilePath,
		rec.Success,
		sql.NullString{String: string(rec.ErrorKind), Valid: rec.ErrorKind != ""},
		sql.NullString{String: rec.Error, Valid: rec.Error != ""},
		rec.BytesBefore,
		rec.BytesAfter,
		rec.AppliedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert fix record: %w", err)
	}
	return result.LastInsertId()
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]models.FixRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, alert_id, file_path, success, error_kind, error, bytes_before, bytes_after, applied_at FROM fix_history ORDER BY id DESC LIMIT ?`
	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fix history: %w", err)
	}
	defer rows.Close()

	var records []models.FixRecord
	for rows.Next() {
		var (
			rec       models.FixRecord
			errorKind sql.NullString
			errorText sql.NullString
			appliedAt string
		)
		if err := rows.Scan(&rec.ID, &rec.AlertID, &rec.FilePath, &rec.Success, &errorKind, &errorText, &rec.BytesBefore, &rec.BytesAfter, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fix record: %w", err)
		}
		rec.ErrorKind = models.FixErrorKind(errorKind.String)
		rec.Error = errorText.String
		if rec.AppliedAt, err = time.Parse(time.RFC3339Nano, appliedAt); err != nil {
			j.logger.Warn().Err(err).Int64("id", rec.ID).Msg("Unparseable applied_at in fix history")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
