package history

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
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; the history database is a derived record and safe to delete.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible
// version.
var ErrSchemaMismatch = errors.New("history: schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Record is one completed sort cycle.
type Record struct {
	ID              int64
	CycleID         string
	SortedAt        time.Time
	Name            string
	SetCode         string
	CollectorNumber string
	Confidence      float64
	PriceUSD        *float64
	PriceSource     string
	Bin             string
	Reason          string
	Flags           []string
	Mode            string
}

// Store manages cycle history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
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
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
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

// Append inserts one cycle record and returns its row id.
func (s *Store) Append(ctx context.Context, record Record) (int64, error) {
	sortedAt := record.SortedAt
	if sortedAt.IsZero() {
		sortedAt = time.Now()
	}

	var price any
	if record.PriceUSD != nil {
		price = *record.PriceUSD
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO cycles (
            cycle_id, sorted_at, name, set_code, collector_number,
            confidence, price_usd, price_source, bin, reason, flags, mode
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.CycleID,
		sortedAt.UTC().Format(time.RFC3339Nano),
		record.Name,
		record.SetCode,
		record.CollectorNumber,
		record.Confidence,
		price,
		record.PriceSource,
		record.Bin,
		record.Reason,
		strings.Join(record.Flags, ";"),
		record.Mode,
	)
	if err != nil {
		return 0, fmt.Errorf("insert cycle: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx = ensureContext(ctx)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cycle_id, sorted_at, name, set_code, collector_number,
                confidence, price_usd, price_source, bin, reason, flags, mode
         FROM cycles ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent cycles: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// CountsByBin aggregates cycle totals per destination bin.
func (s *Store) CountsByBin(ctx context.Context) (map[string]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT bin, COUNT(1) FROM cycles GROUP BY bin")
	if err != nil {
		return nil, fmt.Errorf("query bin counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var bin string
		var count int
		if err := rows.Scan(&bin, &count); err != nil {
			return nil, fmt.Errorf("scan bin count: %w", err)
		}
		counts[bin] = count
	}
	return counts, rows.Err()
}

// Clear deletes all cycle records.
func (s *Store) Clear(ctx context.Context) error {
	return s.execWithoutResultRetry(ensureContext(ctx), "DELETE FROM cycles")
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		record    Record
		sortedAt  string
		name      sql.NullString
		setCode   sql.NullString
		collector sql.NullString
		price     sql.NullFloat64
		source    sql.NullString
		flags     string
	)
	if err := rows.Scan(
		&record.ID, &record.CycleID, &sortedAt, &name, &setCode, &collector,
		&record.Confidence, &price, &source, &record.Bin, &record.Reason, &flags, &record.Mode,
	); err != nil {
		return Record{}, fmt.Errorf("scan cycle: %w", err)
	}

	if parsed, err := time.Parse(time.RFC3339Nano, sortedAt); err == nil {
		record.SortedAt = parsed
	}
	record.Name = name.String
	record.SetCode = setCode.String
	record.CollectorNumber = collector.String
	if price.Valid {
		value := price.Float64
		record.PriceUSD = &value
	}
	record.PriceSource = source.String
	if flags != "" {
		record.Flags = strings.Split(flags, ";")
	}
	return record, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
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

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
