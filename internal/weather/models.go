package weather

import (
	"strings"
	"time"
)

// TimestampLayout is the second-precision layout used for persisted timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Channel identifies one of the four measured quantities.
type Channel int

const (
	Humidity Channel = iota
	Temperature
	Rainfall
	WindSpeed
)

// Channels lists every channel in persisted column order.
var Channels = []Channel{Humidity, Temperature, Rainfall, WindSpeed}

func (c Channel) String() string {
	if int(c) < 0 || int(c) >= len(channelTable) {
		return "unknown"
	}
	return channelTable[c].name
}

// Conditions holds one value per channel.
type Conditions struct {
	Humidity    float64 `json:"humidity"`
	Temperature float64 `json:"temperature"`
	Rainfall    float64 `json:"rainfall"`
	WindSpeed   float64 `json:"wind_speed"`
}

// Value returns the value of channel c.
func (c Conditions) Value(ch Channel) float64 {
	switch ch {
	case Humidity:
		return c.Humidity
	case Temperature:
		return c.Temperature
	case Rainfall:
		return c.Rainfall
	case WindSpeed:
		return c.WindSpeed
	default:
		return 0
	}
}

// Set assigns v to channel ch.
func (c *Conditions) Set(ch Channel, v float64) {
	switch ch {
	case Humidity:
		c.Humidity = v
	case Temperature:
		c.Temperature = v
	case Rainfall:
		c.Rainfall = v
	case WindSpeed:
		c.WindSpeed = v
	}
}

// Reading is one timestamped set of channel values for a location.
// Location keeps the caller's casing; lookups compare LocationKey.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	Location  string    `json:"location"`
	Conditions
}

// LocationKey returns the case-insensitive index key for a location.
func LocationKey(location string) string {
	return strings.ToLower(location)
}

// Key returns the index key of the reading's location.
func (r Reading) Key() string {
	return LocationKey(r.Location)
}

// Observation is a reading together with the forecast derived from it.
type Observation struct {
	Reading  Reading  `json:"reading"`
	Category Category `json:"forecast"`
	Message  string   `json:"message"`
}
