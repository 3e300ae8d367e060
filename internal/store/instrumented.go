package store

import (
	"errors"
	"time"

	"github.com/i474232898/weather-station/internal/metrics"
	"github.com/i474232898/weather-station/internal/weather"
)

var _ weather.Store = (*Instrumented)(nil)

// Instrumented wraps a store and records Prometheus metrics for each call.
type Instrumented struct {
	next    weather.Store
	backend string
}

func Instrument(next weather.Store, backend string) *Instrumented {
	return &Instrumented{next: next, backend: backend}
}

func (s *Instrumented) Append(r weather.Reading) error {
	start := time.Now()
	err := s.next.Append(r)
	s.observe("append", err, start)
	return err
}

func (s *Instrumented) Latest(location string) (weather.Reading, error) {
	start := time.Now()
	r, err := s.next.Latest(location)
	s.observe("latest", err, start)
	return r, err
}

func (s *Instrumented) RecomputeAndAppend(location string, ev weather.Evolver) (weather.Reading, error) {
	start := time.Now()
	r, err := s.next.RecomputeAndAppend(location, ev)
	s.observe("recompute", err, start)
	return r, err
}

func (s *Instrumented) AllLatest() (map[string]weather.Reading, error) {
	start := time.Now()
	m, err := s.next.AllLatest()
	s.observe("all_latest", err, start)
	return m, err
}

func (s *Instrumented) observe(op string, err error, start time.Time) {
	metrics.ObserveStore(s.backend, op, resultLabel(err), time.Since(start))
}

func resultLabel(err error) string {
	var se *StorageError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, weather.ErrInvalidLocation), errors.Is(err, ErrInvalidReading):
		return "invalid"
	case errors.As(err, &se):
		return "storage_error"
	default:
		return "error"
	}
}
