package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-station/internal/store"
	"github.com/i474232898/weather-station/internal/weather"
)

// Sampler is the subset of weather.Service the scheduler drives.
type Sampler interface {
	Update(ctx context.Context, location string) (weather.Reading, error)
	Observe(ctx context.Context, location string) (weather.Observation, error)
}

// Scheduler periodically samples the configured locations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Sampler
	locations []string
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(locations []string, interval time.Duration, service Sampler, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.Local),
		service:   service,
		locations: locations,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the sampling job and starts the underlying scheduler.
// It is a no-op when no interval or no locations are configured.
func (s *Scheduler) Start() error {
	if s.interval <= 0 || len(s.locations) == 0 {
		s.logger.Info("scheduler: sampling disabled", "interval", s.interval, "locations", len(s.locations))
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler: sampling started", "interval", s.interval, "locations", s.locations)
	return nil
}

// RunOnce samples every configured location once. Locations are handled one
// after another; a failure for one location does not stop the others.
func (s *Scheduler) RunOnce() {
	s.logger.Debug("scheduler: running sampling job")

	for _, loc := range s.locations {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := s.sample(ctx, loc); err != nil {
			s.logger.Error("scheduler: sampling failed", "location", loc, "error", err)
		}
		cancel()
	}
}

// sample evolves the latest reading, or takes a first snapshot when there is none.
func (s *Scheduler) sample(ctx context.Context, location string) error {
	_, err := s.service.Update(ctx, location)
	if errors.Is(err, store.ErrNotFound) {
		_, err = s.service.Observe(ctx, location)
	}
	return err
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
