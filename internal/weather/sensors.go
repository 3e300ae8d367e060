package weather

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// maxDrift bounds the perturbation applied by Evolve in either direction.
const maxDrift = 5.0

type channelInfo struct {
	name    string
	min     float64
	max     float64
	integer bool
}

// channelTable is indexed by Channel.
var channelTable = [...]channelInfo{
	Humidity:    {name: "humidity", min: 0, max: 100, integer: true},
	Temperature: {name: "temperature", min: -10, max: 40},
	Rainfall:    {name: "rainfall", min: 0, max: 50},
	WindSpeed:   {name: "wind_speed", min: 0, max: 100},
}

// Range returns the nominal range of channel c.
func (c Channel) Range() (lo, hi float64) {
	info := channelTable[c]
	return info.min, info.max
}

// Evolver perturbs an existing channel value.
type Evolver interface {
	Evolve(ch Channel, current float64) float64
}

// SensorSet simulates one generator per channel.
type SensorSet struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSensorSet returns a SensorSet. A zero seed draws from the clock.
func NewSensorSet(seed uint64) *SensorSet {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &SensorSet{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Snapshot draws a fresh value for every channel.
func (s *SensorSet) Snapshot() Conditions {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c Conditions
	for _, ch := range Channels {
		c.Set(ch, s.generate(ch))
	}
	return c
}

func (s *SensorSet) generate(ch Channel) float64 {
	info := channelTable[ch]
	if info.integer {
		return float64(int(info.min) + s.rng.IntN(int(info.max-info.min)+1))
	}
	return round2(info.min + s.rng.Float64()*(info.max-info.min))
}

// Evolve adds a uniform drift in [-5, 5] to current and rounds to two decimals.
// The result is not clamped to the channel's nominal range.
func (s *SensorSet) Evolve(_ Channel, current float64) float64 {
	s.mu.Lock()
	delta := -maxDrift + s.rng.Float64()*2*maxDrift
	s.mu.Unlock()
	return round2(current + delta)
}

// NextReading derives the successor of prev by evolving every channel.
func NextReading(prev Reading, location string, ev Evolver, now time.Time) Reading {
	next := Reading{
		Timestamp: now.Truncate(time.Second),
		Location:  location,
	}
	for _, ch := range Channels {
		next.Set(ch, ev.Evolve(ch, prev.Value(ch)))
	}
	return next
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
