package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-station/internal/metrics"
	"github.com/i474232898/weather-station/internal/weather"
)

var _ weather.Publisher = (*MQTTPublisher)(nil)

// MQTTConfig describes the broker connection.
type MQTTConfig struct {
	Broker   string
	Port     int
	Topic    string
	ClientID string

	// RetryInterval is the delay between connection attempts; 5s when zero.
	RetryInterval time.Duration
}

// MQTTPublisher sends each observation as JSON to <topic>/<location key>.
type MQTTPublisher struct {
	client  mqtt.Client
	topic   string
	logger  *slog.Logger
	circuit *gobreaker.CircuitBreaker

	// send delivers one payload; replaced in tests.
	send func(ctx context.Context, topic string, payload []byte) error

	stopCh   chan struct{}
	stopOnce sync.Once
}

// message is the wire form of an observation.
type message struct {
	Timestamp   string  `json:"timestamp"`
	Location    string  `json:"location"`
	Humidity    float64 `json:"humidity"`
	Temperature float64 `json:"temperature"`
	Rainfall    float64 `json:"rainfall"`
	WindSpeed   float64 `json:"wind_speed"`
	Forecast    string  `json:"forecast"`
	Message     string  `json:"message"`
}

func NewMQTTPublisher(cfg MQTTConfig, logger *slog.Logger) *MQTTPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &MQTTPublisher{
		topic:   strings.TrimSuffix(cfg.Topic, "/"),
		logger:  logger,
		circuit: newBreaker("mqtt"),
		stopCh:  make(chan struct{}),
	}

	retry := cfg.RetryInterval
	if retry <= 0 {
		retry = 5 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(retry)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("mqtt connected", "broker", cfg.Broker, "port", cfg.Port)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	p.send = p.sendMQTT
	return p
}

// Connect starts connecting to the broker and waits until ctx ends.
// A timeout leaves the client retrying in the background; only Disconnect stops it.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	if p.client.IsConnectionOpen() {
		return nil
	}
	if err := p.wait(ctx, p.client.Connect()); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Connected reports whether the broker connection is currently up.
func (p *MQTTPublisher) Connected() bool {
	return p.client.IsConnectionOpen()
}

// Publish sends obs. Failures count towards the circuit breaker; no retries are made.
func (p *MQTTPublisher) Publish(ctx context.Context, obs weather.Observation) error {
	payload, err := encodeMessage(obs)
	if err != nil {
		return err
	}
	topic := p.topic + "/" + topicSegment(obs.Reading.Key())

	err = guarded(p.circuit, func() error {
		return p.send(ctx, topic, payload)
	})
	metrics.ObservePublish("mqtt", err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.logger.Debug("published observation", "topic", topic)
	return nil
}

// Disconnect closes the broker connection. Safe to call more than once.
func (p *MQTTPublisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.client.Disconnect(250)
	p.logger.Info("mqtt publisher disconnected")
}

func (p *MQTTPublisher) sendMQTT(ctx context.Context, topic string, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		return errors.New("mqtt client not connected")
	}
	return p.wait(ctx, p.client.Publish(topic, 1, false, payload))
}

// wait blocks until token completes, ctx ends, or the publisher is stopped.
func (p *MQTTPublisher) wait(ctx context.Context, token mqtt.Token) error {
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			return token.Error()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return errors.New("publisher stopped")
		default:
		}
	}
}

func encodeMessage(obs weather.Observation) ([]byte, error) {
	r := obs.Reading
	return json.Marshal(message{
		Timestamp:   r.Timestamp.Local().Format(weather.TimestampLayout),
		Location:    r.Location,
		Humidity:    r.Humidity,
		Temperature: r.Temperature,
		Rainfall:    r.Rainfall,
		WindSpeed:   r.WindSpeed,
		Forecast:    string(obs.Category),
		Message:     obs.Message,
	})
}

// topicSegment makes a location key safe to use as a single MQTT topic level.
func topicSegment(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', ' ':
			return '_'
		}
		return r
	}, key)
}
