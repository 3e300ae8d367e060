package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	httpapi "github.com/i474232898/weather-station/internal/api/http"
	"github.com/i474232898/weather-station/internal/config"
	"github.com/i474232898/weather-station/internal/logging"
	"github.com/i474232898/weather-station/internal/publish"
	"github.com/i474232898/weather-station/internal/scheduler"
	"github.com/i474232898/weather-station/internal/store"
	"github.com/i474232898/weather-station/internal/weather"
)

const appName = "weather-station"

// version is overridden with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(os.Stdout, cfg, version, appName)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("run failed", "error", err)
		os.Exit(1)
	}
	log.Info("shut down")
}

func run(cfg *config.AppConfig, log *slog.Logger) error {
	log.Info("starting",
		"version", version,
		"env", cfg.AppEnv,
		"store", cfg.StoreDriver,
		"logPath", cfg.LogPath,
		"sqlitePath", cfg.SQLitePath,
		"sampleInterval", cfg.SampleInterval,
		"mqttBroker", cfg.MQTTBroker,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	records, closeStore, err := store.Open(store.Options{
		Driver:     cfg.StoreDriver,
		LogPath:    cfg.LogPath,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error("store close", "error", err)
		}
	}()

	// Publication is optional; a nil publisher disables it.
	var publisher weather.Publisher
	if cfg.MQTTBroker != "" {
		mq := publish.NewMQTTPublisher(publish.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			Port:     cfg.MQTTPort,
			Topic:    cfg.MQTTTopic,
			ClientID: cfg.MQTTClientID,
		}, log)

		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := mq.Connect(connectCtx)
		cancel()
		if err != nil {
			log.Warn("mqtt broker unreachable, retrying in background", "error", err)
		}
		defer mq.Disconnect()
		publisher = mq
	}

	sensors := weather.NewSensorSet(cfg.SensorSeed)
	service := weather.NewService(records, sensors, weather.ForecastRule{}, publisher, log)

	sched := scheduler.New(cfg.SampleLocations, cfg.SampleInterval, service, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(httpapi.Metrics())

	httpapi.RegisterRoutes(app, service)

	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", "port", cfg.Port)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("http shutting down")
	return app.ShutdownWithContext(shutdownCtx)
}
