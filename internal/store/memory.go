package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/i474232898/weather-station/internal/weather"
)

var _ weather.Store = (*MemoryStore)(nil)

// MemoryStore is a concurrency-safe in-memory log with the same semantics as CSVLog.
// Its contents do not survive the process.
type MemoryStore struct {
	mu sync.RWMutex

	// readings in append order
	readings []weather.Reading

	// key: lowercased location, value: index into readings
	latest map[string]int

	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		latest: make(map[string]int),
		now:    time.Now,
	}
}

// Append records r.
func (s *MemoryStore) Append(r weather.Reading) error {
	if blank(r.Location) {
		return ErrInvalidLocation
	}
	if err := checkFinite(r); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(r)
	return nil
}

func (s *MemoryStore) appendLocked(r weather.Reading) {
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now()
	}
	r.Timestamp = r.Timestamp.Truncate(time.Second)

	s.readings = append(s.readings, r)
	s.latest[r.Key()] = len(s.readings) - 1
}

// Latest returns the most recent reading for a location.
func (s *MemoryStore) Latest(location string) (weather.Reading, error) {
	if blank(location) {
		return weather.Reading{}, ErrInvalidLocation
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.latest[weather.LocationKey(location)]
	if !ok {
		return weather.Reading{}, fmt.Errorf("%w: %q", ErrNotFound, location)
	}
	return s.readings[i], nil
}

// RecomputeAndAppend evolves the latest reading for location and records the result.
func (s *MemoryStore) RecomputeAndAppend(location string, ev weather.Evolver) (weather.Reading, error) {
	if blank(location) {
		return weather.Reading{}, ErrInvalidLocation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.latest[weather.LocationKey(location)]
	if !ok {
		return weather.Reading{}, fmt.Errorf("%w: %q", ErrNotFound, location)
	}

	next := weather.NextReading(s.readings[i], location, ev, s.now())
	if err := checkFinite(next); err != nil {
		return weather.Reading{}, err
	}
	s.appendLocked(next)
	return s.readings[len(s.readings)-1], nil
}

// AllLatest returns the latest reading per lowercased location.
func (s *MemoryStore) AllLatest() (map[string]weather.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]weather.Reading, len(s.latest))
	for key, i := range s.latest {
		out[key] = s.readings[i]
	}
	return out, nil
}

// Len returns the number of readings recorded.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings)
}
