package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/IshaanNene/NewsSort/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	link  TEXT NOT NULL DEFAULT '',
	label TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_records_label ON records(label);
`

// SQLiteStorage keeps records in a single SQLite table.
type SQLiteStorage struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStorage opens (and migrates) a SQLite database file.
func NewSQLiteStorage(path string, logger *slog.Logger) (*SQLiteStorage, error) {
	s := &SQLiteStorage{path: path, logger: logger.With("component", "sqlite_storage")}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, s.wrap(fmt.Errorf("create database directory: %w", err))
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, s.wrap(fmt.Errorf("open database: %w", err))
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, s.wrap(fmt.Errorf("ping database: %w", err))
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, s.wrap(fmt.Errorf("migrate: %w", err))
	}

	s.db = db
	return s, nil
}

func (s *SQLiteStorage) Name() string { return "sqlite" }

func (s *SQLiteStorage) Load(ctx context.Context) ([]types.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title, link, label FROM records ORDER BY id`)
	if err != nil {
		return nil, s.wrap(fmt.Errorf("query records: %w", err))
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		var r types.Record
		if err := rows.Scan(&r.Title, &r.Link, &r.Label); err != nil {
			return nil, s.wrap(fmt.Errorf("scan record: %w", err))
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(err)
	}

	s.logger.Debug("records loaded", "path", s.path, "records", len(records))
	return records, nil
}

// Save replaces the table contents in one transaction.
func (s *SQLiteStorage) Save(ctx context.Context, records []types.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap(fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return s.wrap(fmt.Errorf("clear records: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (title, link, label) VALUES (?, ?, ?)`)
	if err != nil {
		return s.wrap(fmt.Errorf("prepare insert: %w", err))
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Title, r.Link, r.Label); err != nil {
			return s.wrap(fmt.Errorf("insert record: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return s.wrap(fmt.Errorf("commit: %w", err))
	}

	s.logger.Info("records written", "path", s.path, "records", len(records))
	return nil
}

func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStorage) wrap(err error) error {
	return &types.StorageError{Backend: s.Name(), Location: s.path, Err: err}
}
