package store

import (
	"errors"
	"fmt"

	"github.com/i474232898/weather-station/internal/weather"
)

var (
	// ErrNotFound is returned when no reading is stored for a given location.
	ErrNotFound = errors.New("no weather data for location")

	// ErrInvalidLocation is returned before touching storage when the location is blank.
	ErrInvalidLocation = fmt.Errorf("store: %w", weather.ErrInvalidLocation)

	// ErrInvalidReading is returned when a reading carries a NaN or infinite value.
	ErrInvalidReading = errors.New("reading has a non-finite value")
)

// StorageError reports an I/O or decoding failure of the underlying log.
type StorageError struct {
	Op   string // "append", "scan", "open", ...
	Path string
	Row  int // 1-based row number including the header; 0 when not row specific
	Err  error
}

func (e *StorageError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("store: %s %s: row %d: %v", e.Op, e.Path, e.Row, e.Err)
	}
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
