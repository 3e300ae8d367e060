package weather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Service orchestrates sensors, the record store, the forecast rule and publication.
type Service struct {
	store     Store
	sensors   Sensors
	rule      Classifier
	publisher Publisher
	logger    *slog.Logger
	validate  *validator.Validate
	now       func() time.Time
}

// NewService creates a new Service. A nil publisher disables publication.
func NewService(store Store, sensors Sensors, rule Classifier, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		sensors:   sensors,
		rule:      rule,
		publisher: publisher,
		logger:    logger,
		validate:  validator.New(),
		now:       time.Now,
	}
}

type locationInput struct {
	Location string `validate:"required"`
}

func (s *Service) checkLocation(location string) error {
	in := locationInput{Location: strings.TrimSpace(location)}
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	return nil
}

// Observe takes a live snapshot for location, persists it and classifies it.
func (s *Service) Observe(ctx context.Context, location string) (Observation, error) {
	if err := s.checkLocation(location); err != nil {
		return Observation{}, err
	}

	r := Reading{
		Timestamp:  s.now().Truncate(time.Second),
		Location:   location,
		Conditions: s.sensors.Snapshot(),
	}
	if err := s.store.Append(r); err != nil {
		return Observation{}, err
	}

	obs := s.observation(r)
	s.logger.Debug("observed", "location", location, "forecast", obs.Category)
	s.publish(ctx, obs)
	return obs, nil
}

// Latest returns the most recent stored reading for location.
func (s *Service) Latest(location string) (Reading, error) {
	if err := s.checkLocation(location); err != nil {
		return Reading{}, err
	}
	return s.store.Latest(location)
}

// Update evolves the latest reading for location and appends the result.
func (s *Service) Update(ctx context.Context, location string) (Reading, error) {
	if err := s.checkLocation(location); err != nil {
		return Reading{}, err
	}

	r, err := s.store.RecomputeAndAppend(location, s.sensors)
	if err != nil {
		return Reading{}, err
	}

	s.logger.Debug("updated", "location", location)
	s.publish(ctx, s.observation(r))
	return r, nil
}

// AllLatest returns the latest reading per lowercased location.
func (s *Service) AllLatest() (map[string]Reading, error) {
	return s.store.AllLatest()
}

// Forecast classifies the latest stored reading for location.
func (s *Service) Forecast(location string) (Observation, error) {
	r, err := s.Latest(location)
	if err != nil {
		return Observation{}, err
	}
	return s.observation(r), nil
}

func (s *Service) observation(r Reading) Observation {
	cat := s.rule.Classify(r.Conditions)
	return Observation{Reading: r, Category: cat, Message: cat.Message()}
}

// publish is best effort: the reading is already persisted.
func (s *Service) publish(ctx context.Context, obs Observation) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, obs); err != nil {
		s.logger.Warn("publish failed", "location", obs.Reading.Location, "error", err)
	}
}
