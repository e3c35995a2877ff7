// Package source produces weather records, either by polling the
// Open-Meteo API or by replaying a recorded dataset.
package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"pulseops-collector/internal/metrics"
	"pulseops-collector/internal/telemetry"
)

// LiveSource fetches the current weather for a fixed location from
// the Open-Meteo forecast API.
type LiveSource struct {
	client *http.Client
	url    string
	lat    float64
	lon    float64
	now    func() time.Time
}

// NewLiveSource returns a source polling baseURL for the given
// coordinates. The timeout bounds each request.
func NewLiveSource(baseURL string, lat, lon float64, timeout time.Duration) *LiveSource {
	return &LiveSource{
		client: &http.Client{Timeout: timeout},
		url:    baseURL,
		lat:    lat,
		lon:    lon,
		now:    time.Now,
	}
}

// Poll performs one fetch and maps every outcome onto a record.
// Transport failures and unparseable bodies yield status error,
// non-200 responses yield bad_status_<code>, and a missing
// current_weather block yields no_current_weather. Poll never fails
// outright, the caller decides what to do with unhealthy records.
func (s *LiveSource) Poll(ctx context.Context) telemetry.Record {
	rec := telemetry.Record{
		Timestamp: s.now().UTC(),
		Source:    telemetry.SourceLive,
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(s.lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(s.lon, 'f', -1, 64))
	q.Set("current_weather", "true")

	t0 := time.Now()
	// measure stamps the latency exactly once per poll, whatever the
	// outcome. Failed fetches count toward the histogram too.
	measure := func() {
		elapsed := time.Since(t0)
		rec.LatencyMS = float64(elapsed) / float64(time.Millisecond)
		metrics.FetchLatency.Observe(elapsed.Seconds())
	}
	fail := func(err error) telemetry.Record {
		rec.Status = telemetry.StatusError
		rec.Error = telemetry.TruncateError(err.Error())
		return rec
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+"?"+q.Encode(), nil)
	if err != nil {
		measure()
		return fail(err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		measure()
		return fail(err)
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	// Latency covers the request plus the body download.
	measure()

	if readErr != nil {
		return fail(readErr)
	}
	if resp.StatusCode != http.StatusOK {
		rec.Status = telemetry.BadStatus(resp.StatusCode)
		return rec
	}
	var payload struct {
		CurrentWeather map[string]any `json:"current_weather"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fail(err)
	}
	if len(payload.CurrentWeather) == 0 {
		rec.Status = telemetry.StatusNoCurrentWeather
		return rec
	}

	rec.Status = telemetry.StatusOK
	rec.Temperature = telemetry.Float(payload.CurrentWeather["temperature"])
	rec.Windspeed = telemetry.Float(payload.CurrentWeather["windspeed"])
	return rec
}
