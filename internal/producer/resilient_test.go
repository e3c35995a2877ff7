package producer

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"pulseops-collector/internal/telemetry"
)

type scriptedPoller struct {
	script []telemetry.Record
	calls  int
}

// Poll returns the scripted records in order, repeating the last one
// once the script runs out.
func (s *scriptedPoller) Poll(context.Context) telemetry.Record {
	rec := s.script[len(s.script)-1]
	if s.calls < len(s.script) {
		rec = s.script[s.calls]
	}
	s.calls++
	return rec
}

func okRecord() telemetry.Record {
	return telemetry.Record{Status: telemetry.StatusOK, Source: telemetry.SourceLive}
}

func failRecord(status string) telemetry.Record {
	return telemetry.Record{Status: status, Source: telemetry.SourceLive}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordSleeps replaces the producer's sleeps with a recorder so
// tests can assert delay order and size without waiting.
func recordSleeps(p *ResilientProducer) *[]time.Duration {
	var sleeps []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		sleeps = append(sleeps, d)
		return nil
	}
	return &sleeps
}

func inBackoffRange(d time.Duration, base time.Duration) bool {
	return d >= base && d < base+time.Second
}

func TestNextFirstCycleHasNoDelay(t *testing.T) {
	poller := &scriptedPoller{script: []telemetry.Record{okRecord()}}
	p := New(poller, NewBreaker(5), Options{MaxRetries: 3, Pace: time.Minute, Cooldown: 30 * time.Second}, quietLogger())
	sleeps := recordSleeps(p)

	rec, err := p.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() returned error: %v", err)
	}
	if rec.Status != telemetry.StatusOK {
		t.Errorf("Status = %q, want ok", rec.Status)
	}
	if len(*sleeps) != 0 {
		t.Errorf("first cycle slept %v, want no delay", *sleeps)
	}
	if poller.calls != 1 {
		t.Errorf("poller called %d times, want 1", poller.calls)
	}
}

func TestNextPacesBetweenCycles(t *testing.T) {
	poller := &scriptedPoller{script: []telemetry.Record{okRecord()}}
	p := New(poller, NewBreaker(5), Options{MaxRetries: 3, Pace: time.Minute, Cooldown: 30 * time.Second}, quietLogger())
	sleeps := recordSleeps(p)

	ctx := context.Background()
	p.Next(ctx)
	p.Next(ctx)

	if len(*sleeps) != 1 || (*sleeps)[0] != time.Minute {
		t.Errorf("sleeps = %v, want exactly the pace delay", *sleeps)
	}
}

func TestNextRetriesWithBackoff(t *testing.T) {
	poller := &scriptedPoller{script: []telemetry.Record{
		failRecord(telemetry.StatusError),
		failRecord("bad_status_500"),
		okRecord(),
	}}
	breaker := NewBreaker(5)
	p := New(poller, breaker, Options{MaxRetries: 3, Pace: time.Minute, Cooldown: 30 * time.Second}, quietLogger())
	sleeps := recordSleeps(p)

	rec, err := p.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() returned error: %v", err)
	}
	if rec.Status != telemetry.StatusOK {
		t.Fatalf("Status = %q, want ok after retries", rec.Status)
	}
	if poller.calls != 3 {
		t.Errorf("poller called %d times, want 3", poller.calls)
	}
	if len(*sleeps) != 2 {
		t.Fatalf("sleeps = %v, want 2 backoffs", *sleeps)
	}
	if !inBackoffRange((*sleeps)[0], time.Second) {
		t.Errorf("first backoff = %v, want 1s plus jitter", (*sleeps)[0])
	}
	if !inBackoffRange((*sleeps)[1], 2*time.Second) {
		t.Errorf("second backoff = %v, want 2s plus jitter", (*sleeps)[1])
	}
	if breaker.Failures() != 0 {
		t.Errorf("breaker failures = %d, want 0 after a healthy cycle", breaker.Failures())
	}
}

func TestNextEmitsLastFailureAfterRetries(t *testing.T) {
	poller := &scriptedPoller{script: []telemetry.Record{
		failRecord("bad_status_500"),
		failRecord("bad_status_502"),
		failRecord("bad_status_503"),
	}}
	breaker := NewBreaker(5)
	p := New(poller, breaker, Options{MaxRetries: 3, Pace: time.Minute, Cooldown: 30 * time.Second}, quietLogger())
	sleeps := recordSleeps(p)

	rec, err := p.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() returned error: %v", err)
	}
	if rec.Status != "bad_status_503" {
		t.Errorf("Status = %q, want the last attempt's failure", rec.Status)
	}
	if len(*sleeps) != 3 {
		t.Errorf("sleeps = %v, want a backoff after every attempt including the last", *sleeps)
	}
	if breaker.Failures() != 1 {
		t.Errorf("breaker failures = %d, want 1 failed cycle", breaker.Failures())
	}
}

func TestNextBackoffIsCapped(t *testing.T) {
	poller := &scriptedPoller{script: []telemetry.Record{failRecord(telemetry.StatusError)}}
	p := New(poller, NewBreaker(50), Options{MaxRetries: 6, Pace: time.Minute, Cooldown: 30 * time.Second}, quietLogger())
	sleeps := recordSleeps(p)

	p.Next(context.Background())

	if len(*sleeps) != 6 {
		t.Fatalf("sleeps = %v, want 6 backoffs", *sleeps)
	}
	for i, want := range []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second,
		8 * time.Second, 8 * time.Second, 8 * time.Second,
	} {
		if !inBackoffRange((*sleeps)[i], want) {
			t.Errorf("backoff %d = %v, want %v plus jitter", i+1, (*sleeps)[i], want)
		}
	}
}

func TestNextCooldownBeforeReset(t *testing.T) {
	poller := &scriptedPoller{script: []telemetry.Record{failRecord("bad_status_500")}}
	breaker := NewBreaker(2)
	p := New(poller, breaker, Options{MaxRetries: 1, Pace: 5 * time.Second, Cooldown: 30 * time.Second}, quietLogger())
	sleeps := recordSleeps(p)

	ctx := context.Background()

	p.Next(ctx)
	if breaker.Failures() != 1 {
		t.Fatalf("failures after cycle 1 = %d, want 1", breaker.Failures())
	}

	p.Next(ctx)
	if !breaker.Open() {
		t.Fatal("breaker should be open after 2 failed cycles")
	}

	p.Next(ctx)
	if breaker.Open() {
		t.Error("breaker should be closed again after the cooldown")
	}
	if breaker.Failures() != 1 {
		t.Errorf("failures after cooldown cycle = %d, want reset plus one new failure", breaker.Failures())
	}

	// Cycle 1: backoff. Cycle 2: pace, backoff. Cycle 3: cooldown,
	// pace, backoff.
	if len(*sleeps) != 6 {
		t.Fatalf("sleeps = %v, want 6 entries", *sleeps)
	}
	if (*sleeps)[3] != 30*time.Second {
		t.Errorf("cooldown sleep = %v, want 30s before anything else in the cycle", (*sleeps)[3])
	}
	if (*sleeps)[4] != 5*time.Second {
		t.Errorf("pace sleep = %v, want 5s after the cooldown", (*sleeps)[4])
	}
}

func TestNextTreatsNoCurrentWeatherAsHealthy(t *testing.T) {
	poller := &scriptedPoller{script: []telemetry.Record{
		{Status: telemetry.StatusNoCurrentWeather, Source: telemetry.SourceLive},
	}}
	breaker := NewBreaker(5)
	p := New(poller, breaker, Options{MaxRetries: 3, Pace: time.Minute, Cooldown: 30 * time.Second}, quietLogger())
	recordSleeps(p)

	rec, err := p.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() returned error: %v", err)
	}
	if rec.Status != telemetry.StatusNoCurrentWeather {
		t.Errorf("Status = %q, want no_current_weather", rec.Status)
	}
	if poller.calls != 1 {
		t.Errorf("poller called %d times, want no retries", poller.calls)
	}
	if breaker.Failures() != 0 {
		t.Errorf("breaker failures = %d, want 0", breaker.Failures())
	}
}

func TestNextHonorsContext(t *testing.T) {
	poller := &scriptedPoller{script: []telemetry.Record{okRecord()}}
	p := New(poller, NewBreaker(5), Options{MaxRetries: 3, Pace: time.Minute, Cooldown: 30 * time.Second}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Next(ctx); err == nil {
		t.Fatal("Next() ignored canceled context")
	}
	if poller.calls != 0 {
		t.Errorf("poller called %d times after cancellation, want 0", poller.calls)
	}
}
