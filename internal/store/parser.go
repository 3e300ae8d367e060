package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-station/internal/weather"
)

// Columns is the persisted column order. The log carries no version marker,
// so this order is the schema.
var Columns = []string{"timestamp", "location", "humidity", "temperature", "rainfall", "wind_speed"}

// channelColumn maps each channel to its column index in Columns.
var channelColumn = map[weather.Channel]int{
	weather.Humidity:    2,
	weather.Temperature: 3,
	weather.Rainfall:    4,
	weather.WindSpeed:   5,
}

// encodeRow renders r in Columns order.
func encodeRow(r weather.Reading) []string {
	row := make([]string, len(Columns))
	row[0] = r.Timestamp.Local().Format(weather.TimestampLayout)
	row[1] = r.Location
	for ch, i := range channelColumn {
		row[i] = strconv.FormatFloat(r.Value(ch), 'f', -1, 64)
	}
	return row
}

func checkFinite(r weather.Reading) error {
	for _, ch := range weather.Channels {
		v := r.Value(ch)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%v", ErrInvalidReading, ch, v)
		}
	}
	return nil
}

// scanReadings decodes a log and calls fn for every row in file order.
// An empty input has no rows. Any malformed row aborts the scan.
func scanReadings(in io.Reader, path string, fn func(weather.Reading)) error {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1 // validated per row below

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return &StorageError{Op: "scan", Path: path, Row: 1, Err: fmt.Errorf("read header: %w", err)}
	}
	if err := checkHeader(header); err != nil {
		return &StorageError{Op: "scan", Path: path, Row: 1, Err: err}
	}

	rowNum := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		rowNum++
		if err != nil {
			return &StorageError{Op: "scan", Path: path, Row: rowNum, Err: err}
		}
		r, err := parseRow(rec)
		if err != nil {
			return &StorageError{Op: "scan", Path: path, Row: rowNum, Err: err}
		}
		fn(r)
	}
}

func checkHeader(header []string) error {
	if len(header) != len(Columns) {
		return fmt.Errorf("unexpected header %q (want %q)", strings.Join(header, ","), strings.Join(Columns, ","))
	}
	for i, col := range Columns {
		if strings.ToLower(strings.TrimSpace(header[i])) != col {
			return fmt.Errorf("unexpected header %q (want %q)", strings.Join(header, ","), strings.Join(Columns, ","))
		}
	}
	return nil
}

func parseRow(rec []string) (weather.Reading, error) {
	if len(rec) != len(Columns) {
		return weather.Reading{}, fmt.Errorf("expected %d columns, got %d", len(Columns), len(rec))
	}

	ts, err := time.ParseInLocation(weather.TimestampLayout, strings.TrimSpace(rec[0]), time.Local)
	if err != nil {
		return weather.Reading{}, fmt.Errorf("parse timestamp %q: %w", rec[0], err)
	}

	r := weather.Reading{Timestamp: ts, Location: rec[1]}
	for ch, i := range channelColumn {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		if err != nil {
			return weather.Reading{}, fmt.Errorf("parse %s %q: %w", ch, rec[i], err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return weather.Reading{}, fmt.Errorf("invalid %s %v", ch, v)
		}
		r.Set(ch, v)
	}
	return r, nil
}
