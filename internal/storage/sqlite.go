package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tunecrawl/internal/catalog"
	"tunecrawl/internal/track"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLite stores the catalog as ordered rows plus a metadata row.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLite{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLite) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate it)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *SQLite) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *SQLite) Load(ctx context.Context) (catalog.Catalog, bool, error) {
	var (
		cat   catalog.Catalog
		found bool
	)
	err := retryOnBusy(ctx, func() error {
		var err error
		cat, found, err = s.load(ctx)
		return err
	})
	return cat, found, err
}

func (s *SQLite) load(ctx context.Context) (catalog.Catalog, bool, error) {
	var (
		lastAggregation sql.NullString
		count           int
		createdAt       string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT last_aggregation, aggregation_count, created_at FROM catalog_meta WHERE id = 1",
	).Scan(&lastAggregation, &count, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Catalog{}, false, nil
	}
	if err != nil {
		return catalog.Catalog{}, false, fmt.Errorf("read catalog metadata: %w", err)
	}

	cat := catalog.Catalog{AggregationCount: count}
	if cat.CreatedAt, err = parseTime(createdAt); err != nil {
		return catalog.Catalog{}, false, fmt.Errorf("parse created_at: %w", err)
	}
	if lastAggregation.Valid {
		ts, err := parseTime(lastAggregation.String)
		if err != nil {
			return catalog.Catalog{}, false, fmt.Errorf("parse last_aggregation: %w", err)
		}
		cat.LastAggregation = &ts
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, artist, url, source, genre, duration, popularity, crawled_at, verified
         FROM tracks ORDER BY position`)
	if err != nil {
		return catalog.Catalog{}, false, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	cat.Records = []track.Record{}
	for rows.Next() {
		var (
			rec       track.Record
			crawledAt string
			verified  int
		)
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Artist, &rec.URL, &rec.Source, &rec.Genre,
			&rec.Duration, &rec.Popularity, &crawledAt, &verified); err != nil {
			return catalog.Catalog{}, false, fmt.Errorf("scan track: %w", err)
		}
		if rec.CrawledAt, err = parseTime(crawledAt); err != nil {
			return catalog.Catalog{}, false, fmt.Errorf("parse crawled_at: %w", err)
		}
		rec.Verified = verified != 0
		cat.Records = append(cat.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return catalog.Catalog{}, false, fmt.Errorf("iterate tracks: %w", err)
	}
	return cat, true, nil
}

// Save replaces all rows in one transaction.
func (s *SQLite) Save(ctx context.Context, cat catalog.Catalog) error {
	return retryOnBusy(ctx, func() error {
		return s.save(ctx, cat)
	})
}

func (s *SQLite) save(ctx context.Context, cat catalog.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var lastAggregation any
	if cat.LastAggregation != nil {
		lastAggregation = formatTime(*cat.LastAggregation)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO catalog_meta (id, last_aggregation, aggregation_count, created_at)
         VALUES (1, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
            last_aggregation = excluded.last_aggregation,
            aggregation_count = excluded.aggregation_count,
            created_at = excluded.created_at`,
		lastAggregation, cat.AggregationCount, formatTime(cat.CreatedAt),
	); err != nil {
		return fmt.Errorf("write catalog metadata: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM tracks"); err != nil {
		return fmt.Errorf("clear tracks: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tracks (position, id, title, artist, url, source, genre, duration, popularity, crawled_at, verified)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare track insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range cat.Records {
		verified := 0
		if rec.Verified {
			verified = 1
		}
		if _, err := stmt.ExecContext(ctx, i, rec.ID, rec.Title, rec.Artist, rec.URL, rec.Source,
			rec.Genre, rec.Duration, rec.Popularity, formatTime(rec.CrawledAt), verified); err != nil {
			return fmt.Errorf("insert track %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) Describe() string { return "sqlite:" + s.path }

func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}
