package source

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pulseops-collector/internal/telemetry"
)

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weather.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func fixedClock() func() time.Time {
	ts := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestReplayCyclesThroughDataset(t *testing.T) {
	path := writeDataset(t, strings.Join([]string{
		`{"temperature": 18.5, "windspeed": 3.1}`,
		`{"temperature": 19.0, "windspeed": 4.0}`,
		`{"temperature": 19.5, "windspeed": 4.4}`,
	}, "\n"))
	src := NewReplaySource(path)
	src.now = fixedClock()
	defer src.Close()

	ctx := context.Background()
	var temps []float64
	for i := 0; i < 6; i++ {
		rec, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next() %d returned error: %v", i, err)
		}
		if rec.Temperature == nil {
			t.Fatalf("Next() %d returned nil temperature", i)
		}
		temps = append(temps, *rec.Temperature)
	}
	want := []float64{18.5, 19.0, 19.5, 18.5, 19.0, 19.5}
	for i := range want {
		if temps[i] != want[i] {
			t.Fatalf("temps = %v, want %v", temps, want)
		}
	}
}

func TestReplayDefaultsAndPassThrough(t *testing.T) {
	path := writeDataset(t, strings.Join([]string{
		`{"temperature": 21.0, "windspeed": 7.5}`,
		`{"temperature": 15, "windspeed": 5, "status": "degraded", "latency_ms": 120}`,
		`{"temperature": "22.5", "windspeed": "8"}`,
	}, "\n"))
	src := NewReplaySource(path)
	src.now = fixedClock()
	defer src.Close()

	ctx := context.Background()

	rec, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next() returned error: %v", err)
	}
	if rec.Status != telemetry.StatusOK {
		t.Errorf("record without status should default to ok, got %q", rec.Status)
	}
	if rec.Source != telemetry.SourceReplay {
		t.Errorf("Source = %q, want replay", rec.Source)
	}
	if rec.LatencyMS != 0 {
		t.Errorf("LatencyMS = %v, want 0 when absent", rec.LatencyMS)
	}

	rec, err = src.Next(ctx)
	if err != nil {
		t.Fatalf("Next() returned error: %v", err)
	}
	if rec.Status != "degraded" {
		t.Errorf("recorded status should pass through, got %q", rec.Status)
	}
	if rec.Temperature == nil || *rec.Temperature != 15 {
		t.Errorf("Temperature = %v, want 15 alongside unhealthy status", rec.Temperature)
	}
	if rec.LatencyMS != 120 {
		t.Errorf("LatencyMS = %v, want 120", rec.LatencyMS)
	}

	rec, err = src.Next(ctx)
	if err != nil {
		t.Fatalf("Next() returned error: %v", err)
	}
	if rec.Temperature == nil || *rec.Temperature != 22.5 {
		t.Errorf("Temperature = %v, want 22.5 coerced from string", rec.Temperature)
	}
	if rec.Windspeed == nil || *rec.Windspeed != 8 {
		t.Errorf("Windspeed = %v, want 8 coerced from string", rec.Windspeed)
	}
}

func TestReplayParseError(t *testing.T) {
	path := writeDataset(t, `{"temperature": broken`)
	src := NewReplaySource(path)
	src.now = fixedClock()
	defer src.Close()

	rec, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() returned error: %v", err)
	}
	if rec.Status != telemetry.StatusParseError {
		t.Errorf("Status = %q, want parse_error", rec.Status)
	}
	if rec.Temperature != nil || rec.Windspeed != nil {
		t.Errorf("parse_error record should carry null values, got %v/%v", rec.Temperature, rec.Windspeed)
	}
	if rec.Error != "" {
		t.Errorf("parse_error record carries no error text, got %q", rec.Error)
	}
}

func TestReplaySkipsBlankLines(t *testing.T) {
	path := writeDataset(t, "\n{\"temperature\": 10}\n\n   \n{\"temperature\": 11}\n\n")
	src := NewReplaySource(path)
	src.now = fixedClock()
	defer src.Close()

	ctx := context.Background()
	var temps []float64
	for i := 0; i < 4; i++ {
		rec, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next() returned error: %v", err)
		}
		temps = append(temps, *rec.Temperature)
	}
	want := []float64{10, 11, 10, 11}
	for i := range want {
		if temps[i] != want[i] {
			t.Fatalf("temps = %v, want %v", temps, want)
		}
	}
}

func TestReplayMissingFileSentinel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.jsonl")
	src := NewReplaySource(path)
	src.now = fixedClock()

	for i := 0; i < 2; i++ {
		rec, err := src.Next(context.Background())
		if err != nil {
			t.Fatalf("Next() %d returned error: %v", i, err)
		}
		if rec.Status != telemetry.StatusReplayMissing {
			t.Fatalf("Status = %q, want replay_file_missing", rec.Status)
		}
		if rec.Temperature == nil || *rec.Temperature != sentinelTemperature {
			t.Errorf("Temperature = %v, want sentinel %v", rec.Temperature, sentinelTemperature)
		}
		if rec.Windspeed == nil || *rec.Windspeed != sentinelWindspeed {
			t.Errorf("Windspeed = %v, want sentinel %v", rec.Windspeed, sentinelWindspeed)
		}
		if rec.Error != "missing: "+path {
			t.Errorf("Error = %q, want missing: %s", rec.Error, path)
		}
		if rec.LatencyMS != 0 {
			t.Errorf("LatencyMS = %v, want 0", rec.LatencyMS)
		}
	}
}

func TestReplayEmptyDatasetThrottles(t *testing.T) {
	path := writeDataset(t, "\n\n")
	src := NewReplaySource(path)
	src.now = fixedClock()

	slept := 0
	src.sleep = func(ctx context.Context, d time.Duration) error {
		slept++
		return context.Canceled
	}

	if _, err := src.Next(context.Background()); err != context.Canceled {
		t.Fatalf("Next() error = %v, want canceled from throttle sleep", err)
	}
	if slept != 1 {
		t.Errorf("throttle sleep called %d times, want 1", slept)
	}
}

func TestReplayHonorsContext(t *testing.T) {
	path := writeDataset(t, `{"temperature": 10}`)
	src := NewReplaySource(path)
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); err == nil {
		t.Fatal("Next() ignored canceled context")
	}
}

func TestReplaySkipsOversizedLine(t *testing.T) {
	long := `{"temperature": 99.0, "padding": "` + strings.Repeat("x", maxLineBytes) + `"}`
	path := writeDataset(t, strings.Join([]string{
		`{"temperature": 18.5, "windspeed": 3.1}`,
		long,
		`{"temperature": 19.5, "windspeed": 4.4}`,
	}, "\n"))
	src := NewReplaySource(path)
	src.now = fixedClock()
	defer src.Close()

	ctx := context.Background()
	var statuses []string
	var temps []*float64
	for i := 0; i < 6; i++ {
		rec, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next() %d returned error: %v", i, err)
		}
		statuses = append(statuses, rec.Status)
		temps = append(temps, rec.Temperature)
	}
	want := []string{
		telemetry.StatusOK, telemetry.StatusParseError, telemetry.StatusOK,
		telemetry.StatusOK, telemetry.StatusParseError, telemetry.StatusOK,
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", statuses, want)
		}
	}
	if temps[2] == nil || *temps[2] != 19.5 {
		t.Errorf("record after the oversized line = %v, want 19.5", temps[2])
	}
	if temps[5] == nil || *temps[5] != 19.5 {
		t.Errorf("second pass should still reach the tail, got %v", temps[5])
	}
	if temps[1] != nil {
		t.Errorf("oversized line should carry null values, got %v", *temps[1])
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestReplaySurfacesReadFailure(t *testing.T) {
	path := writeDataset(t, `{"temperature": 10}`)
	src := NewReplaySource(path)
	src.now = fixedClock()
	defer src.Close()

	ctx := context.Background()
	rec, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next() returned error: %v", err)
	}
	if rec.Status != telemetry.StatusOK {
		t.Fatalf("Status = %q, want ok", rec.Status)
	}

	src.reader = bufio.NewReader(failingReader{err: errors.New("disk gone")})
	rec, err = src.Next(ctx)
	if err != nil {
		t.Fatalf("Next() returned error: %v", err)
	}
	if rec.Status != telemetry.StatusError {
		t.Errorf("Status = %q, want error after read failure", rec.Status)
	}
	if rec.Error != "disk gone" {
		t.Errorf("Error = %q, want disk gone", rec.Error)
	}

	rec, err = src.Next(ctx)
	if err != nil {
		t.Fatalf("Next() returned error: %v", err)
	}
	if rec.Status != telemetry.StatusOK {
		t.Errorf("Status = %q, want ok from the fresh pass", rec.Status)
	}
}
