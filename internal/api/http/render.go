package httpapi

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/i474232898/weather-station/internal/weather"
)

type readingJSON struct {
	Timestamp   string  `json:"timestamp"`
	Location    string  `json:"location"`
	Humidity    float64 `json:"humidity"`
	Temperature float64 `json:"temperature"`
	Rainfall    float64 `json:"rainfall"`
	WindSpeed   float64 `json:"wind_speed"`
}

type observationJSON struct {
	Reading  readingJSON `json:"reading"`
	Forecast string      `json:"forecast"`
	Message  string      `json:"message"`
}

func toReadingJSON(r weather.Reading) readingJSON {
	return readingJSON{
		Timestamp:   formatTime(r),
		Location:    r.Location,
		Humidity:    r.Humidity,
		Temperature: r.Temperature,
		Rainfall:    r.Rainfall,
		WindSpeed:   r.WindSpeed,
	}
}

func toObservationJSON(obs weather.Observation) observationJSON {
	return observationJSON{
		Reading:  toReadingJSON(obs.Reading),
		Forecast: string(obs.Category),
		Message:  obs.Message,
	}
}

func formatTime(r weather.Reading) string {
	return r.Timestamp.Local().Format(weather.TimestampLayout)
}

// renderReading lists every field except the location under title.
func renderReading(title string, r weather.Reading) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "timestamp: %s\n", formatTime(r))
	for _, ch := range weather.Channels {
		fmt.Fprintf(&b, "%s: %s\n", ch, formatValue(r.Value(ch)))
	}
	return b.String()
}

func renderObservation(title string, obs weather.Observation) string {
	return renderReading(title, obs.Reading) + "\nPrediction: " + obs.Message + "\n"
}

// renderAll prints the latest reading of every location, sorted by key.
func renderAll(all map[string]weather.Reading) string {
	if len(all) == 0 {
		return "No data found for any city.\n"
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		r := all[k]
		fmt.Fprintf(&b, "Latest weather data for %s:\n", capitalize(k))
		fmt.Fprintf(&b, "  timestamp: %s\n", formatTime(r))
		fmt.Fprintf(&b, "  location: %s\n", r.Location)
		for _, ch := range weather.Channels {
			fmt.Fprintf(&b, "  %s: %s\n", ch, formatValue(r.Value(ch)))
		}
	}
	return b.String()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
