package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/i474232898/weather-station/internal/weather"
)

//go:embed sql/create-readings.sql
var createReadingsSQL string

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/get-latest-reading.sql
var getLatestReadingSQL string

//go:embed sql/get-all-latest.sql
var getAllLatestSQL string

var _ weather.Store = (*SQLiteLog)(nil)

// SQLiteLog keeps the append-only log in a single SQLite table.
// Rows are only ever inserted; the autoincrement id gives insertion order.
type SQLiteLog struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and ensures the readings table exists.
func OpenSQLite(path string) (*SQLiteLog, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, &StorageError{Op: "open", Path: path, Err: err}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, &StorageError{Op: "open", Path: path, Err: err}
	}
	// One writer; keeps ":memory:" databases on a single connection too.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, &StorageError{Op: "ping", Path: path, Err: err}
	}
	if _, err := db.Exec(createReadingsSQL); err != nil {
		_ = db.Close()
		return nil, &StorageError{Op: "create", Path: path, Err: err}
	}

	return &SQLiteLog{db: db, path: path, now: time.Now}, nil
}

func buildDSN(path string) (string, error) {
	if path == ":memory:" {
		return "file::memory:?_busy_timeout=5000&_txlock=immediate", nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	params := []string{
		"_busy_timeout=5000",
		"_journal_mode=WAL",
		"_txlock=immediate",
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}

// Close releases the database handle.
func (s *SQLiteLog) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Append inserts r.
func (s *SQLiteLog) Append(r weather.Reading) error {
	if blank(r.Location) {
		return ErrInvalidLocation
	}
	if err := checkFinite(r); err != nil {
		return err
	}
	return s.insert(s.db, r)
}

func (s *SQLiteLog) insert(q querier, r weather.Reading) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now()
	}

	_, err := q.Exec(insertReadingSQL,
		r.Timestamp.Truncate(time.Second).Local().Format(weather.TimestampLayout),
		r.Location,
		r.Key(),
		r.Humidity,
		r.Temperature,
		r.Rainfall,
		r.WindSpeed,
	)
	if err != nil {
		return &StorageError{Op: "append", Path: s.path, Err: err}
	}
	return nil
}

// Latest returns the most recently inserted reading for location.
func (s *SQLiteLog) Latest(location string) (weather.Reading, error) {
	if blank(location) {
		return weather.Reading{}, ErrInvalidLocation
	}
	return s.latest(s.db, location)
}

func (s *SQLiteLog) latest(q querier, location string) (weather.Reading, error) {
	r, err := scanReading(q.QueryRow(getLatestReadingSQL, weather.LocationKey(location)))
	if errors.Is(err, sql.ErrNoRows) {
		return weather.Reading{}, fmt.Errorf("%w: %q", ErrNotFound, location)
	}
	if err != nil {
		return weather.Reading{}, &StorageError{Op: "latest", Path: s.path, Err: err}
	}
	return r, nil
}

// RecomputeAndAppend evolves the latest reading for location and inserts the result.
// The read and the insert share one transaction.
func (s *SQLiteLog) RecomputeAndAppend(location string, ev weather.Evolver) (_ weather.Reading, err error) {
	if blank(location) {
		return weather.Reading{}, ErrInvalidLocation
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return weather.Reading{}, &StorageError{Op: "recompute", Path: s.path, Err: err}
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
				slog.Error("rollback recompute", "error", rerr)
			}
		}
	}()

	prev, err := s.latest(tx, location)
	if err != nil {
		return weather.Reading{}, err
	}

	next := weather.NextReading(prev, location, ev, s.now())
	if err := checkFinite(next); err != nil {
		return weather.Reading{}, err
	}
	if err := s.insert(tx, next); err != nil {
		return weather.Reading{}, err
	}
	if err := tx.Commit(); err != nil {
		return weather.Reading{}, &StorageError{Op: "recompute", Path: s.path, Err: err}
	}
	return next, nil
}

// AllLatest returns the latest reading per lowercased location.
func (s *SQLiteLog) AllLatest() (map[string]weather.Reading, error) {
	rows, err := s.db.Query(getAllLatestSQL)
	if err != nil {
		return nil, &StorageError{Op: "all-latest", Path: s.path, Err: err}
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close all-latest rows", "error", err)
		}
	}()

	out := make(map[string]weather.Reading)
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, &StorageError{Op: "all-latest", Path: s.path, Err: err}
		}
		out[r.Key()] = r
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "all-latest", Path: s.path, Err: err}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner) (weather.Reading, error) {
	var (
		r  weather.Reading
		ts string
	)
	if err := row.Scan(&ts, &r.Location, &r.Humidity, &r.Temperature, &r.Rainfall, &r.WindSpeed); err != nil {
		return weather.Reading{}, err
	}
	t, err := time.ParseInLocation(weather.TimestampLayout, ts, time.Local)
	if err != nil {
		return weather.Reading{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	r.Timestamp = t
	return r, nil
}
