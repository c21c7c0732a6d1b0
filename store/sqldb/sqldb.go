/*
Package sqldb provides a SQL-backed implementation of the storage interfaces.

PURPOSE:
  Implements the attendance key/value slots (attendance.KV) and a holiday
  table that doubles as a holiday.Source. SQLite is the default; the same
  schema and queries run on PostgreSQL.

INTERFACES IMPLEMENTED:
  attendance.KV:   state + theme slots
  holiday.Source:  ordered holiday list

KEY TABLES:
  slots:     key/value pairs, one row per key
  holidays:  date, name, position (source order)

DIALECTS:
  Queries are built with squirrel. The only dialect difference is the
  placeholder format: "?" for sqlite3, "$1" for postgres.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite in-memory databases are
  pinned to a single connection so every query sees the same data.

USAGE:
  store, err := sqldb.Open("sqlite3", "./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  state := attendance.Load(ctx, store, policy.Default(), nil, nil)

SEE ALSO:
  - attendance/store.go: KV interface
  - holiday/index.go: Source interface
  - store/memory: in-memory implementation for testing
*/
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/holiday"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// ErrUnsupportedDriver is returned by Open for unknown driver names.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Store implements attendance.KV and holiday.Source.
type Store struct {
	db       *sql.DB
	sb       sq.StatementBuilderType
	location *time.Location
	mu       sync.RWMutex
}

// Open connects to the database and migrates the schema.
// For sqlite3, use ":memory:" for an in-memory database.
func Open(driver, dsn string) (*Store, error) {
	var sb sq.StatementBuilderType
	switch driver {
	case DriverSQLite:
		sb = sq.StatementBuilder.PlaceholderFormat(sq.Question)
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL"
		}
	case DriverPostgres:
		sb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, sb: sb, location: time.Local}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// New opens a SQLite store at dbPath.
func New(dbPath string) (*Store, error) {
	return Open(DriverSQLite, dbPath)
}

// WithLocation sets the location holiday dates are read in.
func (s *Store) WithLocation(loc *time.Location) *Store {
	if loc != nil {
		s.location = loc
	}
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS slots (
		slot_key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS holidays (
		position INTEGER PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date
		ON holidays(date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// KEY/VALUE SLOTS (attendance.KV interface)
// =============================================================================

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query, args, err := s.sb.Select("value").From("slots").Where(sq.Eq{"slot_key": key}).ToSql()
	if err != nil {
		return "", false, err
	}

	var value string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read slot %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := s.sb.Insert("slots").
		Columns("slot_key", "value", "updated_at").
		Values(key, value, time.Now().UTC().Format(time.RFC3339)).
		Suffix("ON CONFLICT(slot_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to write slot %q: %w", key, err)
	}
	return nil
}

// =============================================================================
// HOLIDAYS (holiday.Source interface)
// =============================================================================

// Fetch returns all holidays in stored order.
func (s *Store) Fetch(ctx context.Context) ([]holiday.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query, args, err := s.sb.Select("date", "name").From("holidays").OrderBy("position").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", holiday.ErrSource, err)
	}
	defer rows.Close()

	var holidays []holiday.Holiday
	for rows.Next() {
		var date, name string
		if err := rows.Scan(&date, &name); err != nil {
			return nil, fmt.Errorf("%w: %v", holiday.ErrSource, err)
		}
		holidays = append(holidays, holiday.Holiday{
			Date: calendar.Parse(date, s.location),
			Name: name,
		})
	}
	return holidays, rows.Err()
}

// ReplaceHolidays swaps the whole holiday table for list, atomically.
func (s *Store) ReplaceHolidays(ctx context.Context, list []holiday.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	del, args, err := s.sb.Delete("holidays").ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return fmt.Errorf("failed to clear holidays: %w", err)
	}

	if len(list) > 0 {
		insert := s.sb.Insert("holidays").Columns("position", "date", "name")
		for i, h := range list {
			if !h.Date.Valid() {
				return &holiday.InvalidRecordError{Name: h.Name}
			}
			insert = insert.Values(i, h.Date.String(), h.Name)
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert holidays: %w", err)
		}
	}
	return tx.Commit()
}
