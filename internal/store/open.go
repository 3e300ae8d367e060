package store

import (
	"fmt"

	"github.com/i474232898/weather-station/internal/weather"
)

// Options selects and locates a store backend.
type Options struct {
	Driver     string // "csv", "sqlite" or "memory"
	LogPath    string
	SQLitePath string
}

// Open builds the configured backend wrapped with metrics. The returned close
// function releases backend resources and is never nil.
func Open(opts Options) (weather.Store, func() error, error) {
	noop := func() error { return nil }

	switch opts.Driver {
	case "", "csv":
		return Instrument(NewCSVLog(opts.LogPath), "csv"), noop, nil
	case "sqlite":
		s, err := OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return Instrument(s, "sqlite"), s.Close, nil
	case "memory":
		return Instrument(NewMemoryStore(), "memory"), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
