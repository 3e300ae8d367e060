package weather

import (
	"context"
	"errors"
)

// ErrInvalidLocation is returned when an operation requiring a location gets an empty one.
var ErrInvalidLocation = errors.New("location is required")

// Store is the contract every record store backend (CSV log, SQLite) must satisfy.
// Readings are append-only; Latest and AllLatest use last-wins semantics
// with case-insensitive location matching.
type Store interface {
	Append(r Reading) error
	Latest(location string) (Reading, error)
	RecomputeAndAppend(location string, ev Evolver) (Reading, error)
	AllLatest() (map[string]Reading, error)
}

// Publisher forwards observations to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, obs Observation) error
}

// Sensors produces live snapshots and evolves existing values.
type Sensors interface {
	Evolver
	Snapshot() Conditions
}

// Classifier maps conditions to a forecast category.
type Classifier interface {
	Classify(c Conditions) Category
}
