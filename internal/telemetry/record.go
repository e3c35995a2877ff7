package telemetry

import (
	"strconv"
	"strings"
	"time"
)

// Statuses a record can carry. Live fetches produce ok,
// no_current_weather, bad_status_<code> or error; replay passes add
// parse_error and replay_file_missing, and reuse error for failed
// dataset reads.
const (
	StatusOK               = "ok"
	StatusNoCurrentWeather = "no_current_weather"
	StatusError            = "error"
	StatusParseError       = "parse_error"
	StatusReplayMissing    = "replay_file_missing"
)

// Sources a record can originate from.
const (
	SourceLive   = "live"
	SourceReplay = "replay"
)

// maxErrorLen caps the error text stored on a record.
const maxErrorLen = 200

// Record is a single weather observation, fetched live or replayed
// from a dataset. Temperature and Windspeed are pointers so that an
// unparseable or injected-away value serializes as null instead of 0.
type Record struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature"`
	Windspeed   *float64  `json:"windspeed"`
	Status      string    `json:"status"`
	Source      string    `json:"source"`
	LatencyMS   float64   `json:"latency_ms"`
	Error       string    `json:"error,omitempty"`
}

// Healthy reports whether the record counts as a successful fetch.
// A response without a current_weather block is still a healthy
// round-trip, only bad statuses and transport errors are not.
func (r Record) Healthy() bool {
	return r.Status == StatusOK || r.Status == StatusNoCurrentWeather
}

// BadStatus returns the status string recorded for an upstream HTTP
// response code outside the 200 range.
func BadStatus(code int) string {
	return "bad_status_" + strconv.Itoa(code)
}

// Float coerces a decoded JSON value into a float pointer. Numbers,
// numeric strings and bools convert, everything else becomes nil.
func Float(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case bool:
		f := 0.0
		if t {
			f = 1.0
		}
		return &f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// FloatPtr returns a pointer to v. Convenience for building records
// from literals.
func FloatPtr(v float64) *float64 {
	return &v
}

// TruncateError trims an error message to the length stored on a
// record.
func TruncateError(s string) string {
	r := []rune(s)
	if len(r) <= maxErrorLen {
		return s
	}
	return string(r[:maxErrorLen])
}
