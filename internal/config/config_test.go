package config

import (
	"log/slog"
	"reflect"
	"testing"
	"time"
)

var envKeys = []string{
	"APP_ENV", "LOG_LEVEL", "PORT", "STORE_DRIVER", "WEATHER_LOG_PATH", "SQLITE_PATH",
	"SAMPLE_INTERVAL", "SAMPLE_LOCATIONS", "SENSOR_SEED",
	"MQTT_BROKER", "MQTT_PORT", "MQTT_TOPIC", "MQTT_CLIENT_ID",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	if cfg.AppEnv != "dev" {
		t.Errorf("AppEnv=%q want dev", cfg.AppEnv)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel=%v want info", cfg.LogLevel)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port=%q want 8080", cfg.Port)
	}
	if cfg.StoreDriver != DriverCSV {
		t.Errorf("StoreDriver=%q want csv", cfg.StoreDriver)
	}
	if cfg.LogPath != "weather_data.csv" {
		t.Errorf("LogPath=%q want weather_data.csv", cfg.LogPath)
	}
	if cfg.SampleInterval != 0 || len(cfg.SampleLocations) != 0 {
		t.Errorf("sampling should be disabled, got %v %v", cfg.SampleInterval, cfg.SampleLocations)
	}
	if cfg.SensorSeed != 0 {
		t.Errorf("SensorSeed=%d want 0", cfg.SensorSeed)
	}
	if cfg.MQTTBroker != "" || cfg.MQTTPort != 1883 || cfg.MQTTTopic != "weather/readings" {
		t.Errorf("unexpected MQTT defaults: %q %d %q", cfg.MQTTBroker, cfg.MQTTPort, cfg.MQTTTopic)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/var/lib/weather/log.db")
	t.Setenv("SAMPLE_INTERVAL", "30s")
	t.Setenv("SAMPLE_LOCATIONS", " Paris, ,Berlin ,")
	t.Setenv("SENSOR_SEED", "1234")
	t.Setenv("MQTT_BROKER", "tcp://localhost")
	t.Setenv("MQTT_PORT", "1884")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	if cfg.AppEnv != "prod" || cfg.LogLevel != slog.LevelDebug {
		t.Errorf("env=%q level=%v", cfg.AppEnv, cfg.LogLevel)
	}
	if cfg.StoreDriver != DriverSQLite || cfg.SQLitePath != "/var/lib/weather/log.db" {
		t.Errorf("driver=%q path=%q", cfg.StoreDriver, cfg.SQLitePath)
	}
	if cfg.SampleInterval != 30*time.Second {
		t.Errorf("SampleInterval=%v want 30s", cfg.SampleInterval)
	}
	if want := []string{"Paris", "Berlin"}; !reflect.DeepEqual(cfg.SampleLocations, want) {
		t.Errorf("SampleLocations=%q want %q", cfg.SampleLocations, want)
	}
	if cfg.SensorSeed != 1234 {
		t.Errorf("SensorSeed=%d want 1234", cfg.SensorSeed)
	}
	if cfg.MQTTBroker != "tcp://localhost" || cfg.MQTTPort != 1884 {
		t.Errorf("broker=%q port=%d", cfg.MQTTBroker, cfg.MQTTPort)
	}
}

func TestFromEnvInvalid(t *testing.T) {
	cases := map[string]string{
		"APP_ENV":         "staging",
		"LOG_LEVEL":       "loud",
		"STORE_DRIVER":    "redis",
		"SAMPLE_INTERVAL": "-5s",
		"SENSOR_SEED":     "-1",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			if _, err := FromEnv(); err == nil {
				t.Fatalf("FromEnv with %s=%q should fail", key, value)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" Info ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q)=%v, %v want %v", in, got, err, want)
		}
	}
}
