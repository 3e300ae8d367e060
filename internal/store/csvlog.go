package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-station/internal/weather"
)

var _ weather.Store = (*CSVLog)(nil)

// CSVLog is an append-only delimited-text log of readings.
//
// Every call opens the file, reads or writes it fully and closes it again;
// no handle is held between calls. The mutex serialises callers within one
// process only.
type CSVLog struct {
	path string
	mu   sync.Mutex
	now  func() time.Time

	// write performs the single append write; replaced in tests.
	write func(f *os.File, p []byte) (int, error)
}

// NewCSVLog returns a log backed by the file at path. The file is created on first Append.
func NewCSVLog(path string) *CSVLog {
	return &CSVLog{path: path, now: time.Now, write: (*os.File).Write}
}

// Path returns the backing file path.
func (l *CSVLog) Path() string { return l.path }

// Append writes r as one row, preceded by the header when the file is absent or holds
// only blank lines.
// The row is written with a single write call; on failure the file is truncated back
// to its previous size.
func (l *CSVLog) Append(r weather.Reading) error {
	if blank(r.Location) {
		return ErrInvalidLocation
	}
	if err := checkFinite(r); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(r)
}

func (l *CSVLog) appendLocked(r weather.Reading) (err error) {
	if r.Timestamp.IsZero() {
		r.Timestamp = l.now()
	}
	r.Timestamp = r.Timestamp.Truncate(time.Second)

	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return &StorageError{Op: "append", Path: l.path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &StorageError{Op: "append", Path: l.path, Err: cerr}
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return &StorageError{Op: "append", Path: l.path, Err: err}
	}
	size := info.Size()

	hasRecords, endsWithNewline, err := inspect(f, size)
	if err != nil {
		return &StorageError{Op: "append", Path: l.path, Err: err}
	}

	var buf bytes.Buffer
	if !endsWithNewline {
		buf.WriteByte('\n')
	}
	w := csv.NewWriter(&buf)
	if !hasRecords {
		_ = w.Write(Columns)
	}
	_ = w.Write(encodeRow(r))
	w.Flush()
	if err := w.Error(); err != nil {
		return &StorageError{Op: "append", Path: l.path, Err: fmt.Errorf("encode row: %w", err)}
	}

	if _, err := l.write(f, buf.Bytes()); err != nil {
		if terr := f.Truncate(size); terr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", terr))
		}
		return &StorageError{Op: "append", Path: l.path, Err: err}
	}
	return nil
}

// inspect reports whether the first size bytes of f hold anything besides line
// breaks, and whether they end with a newline. An empty file counts as ending
// with one.
func inspect(f *os.File, size int64) (hasRecords, endsWithNewline bool, err error) {
	if size == 0 {
		return false, true, nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return false, false, fmt.Errorf("read last byte: %w", err)
	}
	endsWithNewline = last[0] == '\n'

	chunk := make([]byte, 4096)
	for off := int64(0); off < size; {
		n, err := f.ReadAt(chunk, off)
		for _, b := range chunk[:n] {
			if b != '\n' && b != '\r' {
				return true, endsWithNewline, nil
			}
		}
		off += int64(n)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return false, false, fmt.Errorf("read log: %w", err)
		}
	}
	return false, endsWithNewline, nil
}

// Latest returns the last row whose location matches case-insensitively.
func (l *CSVLog) Latest(location string) (weather.Reading, error) {
	if blank(location) {
		return weather.Reading{}, ErrInvalidLocation
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latestLocked(location)
}

func (l *CSVLog) latestLocked(location string) (weather.Reading, error) {
	key := weather.LocationKey(location)

	var (
		latest weather.Reading
		found  bool
	)
	err := l.scan(func(r weather.Reading) {
		if r.Key() == key {
			latest = r
			found = true
		}
	})
	if err != nil {
		return weather.Reading{}, err
	}
	if !found {
		return weather.Reading{}, fmt.Errorf("%w: %q", ErrNotFound, location)
	}
	return latest, nil
}

// RecomputeAndAppend evolves the latest reading for location and appends the result.
// Nothing is appended when location has no reading.
func (l *CSVLog) RecomputeAndAppend(location string, ev weather.Evolver) (weather.Reading, error) {
	if blank(location) {
		return weather.Reading{}, ErrInvalidLocation
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev, err := l.latestLocked(location)
	if err != nil {
		return weather.Reading{}, err
	}

	next := weather.NextReading(prev, location, ev, l.now())
	if err := checkFinite(next); err != nil {
		return weather.Reading{}, err
	}
	if err := l.appendLocked(next); err != nil {
		return weather.Reading{}, err
	}
	return next, nil
}

// AllLatest returns the latest reading per lowercased location.
// An absent log yields an empty map.
func (l *CSVLog) AllLatest() (map[string]weather.Reading, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]weather.Reading)
	err := l.scan(func(r weather.Reading) {
		out[r.Key()] = r
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// scan streams every row of the log; an absent file has no rows.
func (l *CSVLog) scan(fn func(weather.Reading)) error {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &StorageError{Op: "open", Path: l.path, Err: err}
	}
	defer f.Close()

	return scanReadings(f, l.path, fn)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
