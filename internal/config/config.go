package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported STORE_DRIVER values.
const (
	DriverCSV    = "csv"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type AppConfig struct {
	AppEnv   string
	LogLevel slog.Level
	Port     string

	// StoreDriver selects the record store backend.
	StoreDriver string
	LogPath     string // CSV log file
	SQLitePath  string

	// SampleInterval controls how often configured locations are sampled (0 = disabled).
	SampleInterval  time.Duration
	SampleLocations []string

	// SensorSeed seeds the simulated sensors (0 = random).
	SensorSeed uint64

	// MQTT publication is disabled when MQTTBroker is empty.
	MQTTBroker   string
	MQTTPort     int
	MQTTTopic    string
	MQTTClientID string
}

// Load reads configuration from environment with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	level, err := ParseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level
	cfg.Port = getenvDefault("PORT", "8080")

	cfg.StoreDriver = strings.ToLower(getenvDefault("STORE_DRIVER", DriverCSV))
	switch cfg.StoreDriver {
	case DriverCSV, DriverSQLite, DriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q (allowed: csv, sqlite, memory)", cfg.StoreDriver)
	}
	cfg.LogPath = getenvDefault("WEATHER_LOG_PATH", "weather_data.csv")
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "weather_data.db")

	interval, err := time.ParseDuration(getenvDefault("SAMPLE_INTERVAL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SAMPLE_INTERVAL: %w", err)
	}
	if interval < 0 {
		return nil, fmt.Errorf("invalid SAMPLE_INTERVAL %s: must not be negative", interval)
	}
	cfg.SampleInterval = interval
	cfg.SampleLocations = splitList(os.Getenv("SAMPLE_LOCATIONS"))

	if v := strings.TrimSpace(os.Getenv("SENSOR_SEED")); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SENSOR_SEED %q: %w", v, err)
		}
		cfg.SensorSeed = seed
	}

	cfg.MQTTBroker = strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	cfg.MQTTPort = getenvInt("MQTT_PORT", 1883)
	cfg.MQTTTopic = getenvDefault("MQTT_TOPIC", "weather/readings")
	cfg.MQTTClientID = getenvDefault("MQTT_CLIENT_ID", "weather-station")

	return cfg, nil
}

func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
