package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/i474232898/weather-station/internal/weather"
)

func testObservation(loc string) weather.Observation {
	r := weather.Reading{
		Timestamp:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local),
		Location:   loc,
		Conditions: weather.Conditions{Humidity: 70, Temperature: 30, Rainfall: 20, WindSpeed: 40},
	}
	cat := weather.ForecastRule{}.Classify(r.Conditions)
	return weather.Observation{Reading: r, Category: cat, Message: cat.Message()}
}

func newTestPublisher() *MQTTPublisher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMQTTPublisher(MQTTConfig{
		Broker:   "localhost",
		Port:     1883,
		Topic:    "weather/readings/",
		ClientID: "test",
	}, logger)
}

func TestPublishTopicAndPayload(t *testing.T) {
	t.Parallel()

	p := newTestPublisher()
	var (
		gotTopic   string
		gotPayload []byte
	)
	p.send = func(_ context.Context, topic string, payload []byte) error {
		gotTopic, gotPayload = topic, payload
		return nil
	}

	if err := p.Publish(context.Background(), testObservation("New York")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if want := "weather/readings/new_york"; gotTopic != want {
		t.Fatalf("topic=%q want %q", gotTopic, want)
	}

	var msg message
	if err := json.Unmarshal(gotPayload, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := message{
		Timestamp:   "2024-01-01 12:00:00",
		Location:    "New York",
		Humidity:    70,
		Temperature: 30,
		Rainfall:    20,
		WindSpeed:   40,
		Forecast:    "hot and humid",
		Message:     "It will likely be hot and humid.",
	}
	if msg != want {
		t.Fatalf("message=%+v want %+v", msg, want)
	}
}

func TestPublishOpensCircuitAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	p := newTestPublisher()
	calls := 0
	boom := errors.New("broker unavailable")
	p.send = func(context.Context, string, []byte) error {
		calls++
		return boom
	}

	ctx := context.Background()
	for i := 0; i < tripAfter; i++ {
		err := p.Publish(ctx, testObservation("Paris"))
		if !errors.Is(err, boom) {
			t.Fatalf("attempt %d: err=%v want %v", i+1, err, boom)
		}
	}

	err := p.Publish(ctx, testObservation("Paris"))
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err=%v want ErrCircuitOpen", err)
	}
	if calls != tripAfter {
		t.Fatalf("send called %d times want %d", calls, tripAfter)
	}
}

func TestPublishWithoutConnection(t *testing.T) {
	t.Parallel()

	p := newTestPublisher()
	if err := p.Publish(context.Background(), testObservation("Paris")); err == nil {
		t.Fatal("expected error when client is not connected")
	}
}

func TestTopicSegment(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"paris":        "paris",
		"new york":     "new_york",
		"a/b+c#d":      "a_b_c_d",
		"  ":           "_",
		"são paulo":    "são_paulo",
		"washington,d": "washington,d",
	}
	for in, want := range cases {
		if got := topicSegment(in); got != want {
			t.Errorf("topicSegment(%q)=%q want %q", in, got, want)
		}
	}
}
