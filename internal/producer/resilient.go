package producer

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"pulseops-collector/internal/telemetry"
)

// maxBackoff caps the exponential backoff between retry attempts.
const maxBackoff = 8 * time.Second

// Poller performs a single fetch. Every outcome is a record, the
// producer inspects the status to decide whether to retry.
type Poller interface {
	Poll(ctx context.Context) telemetry.Record
}

// Options tunes a ResilientProducer.
type Options struct {
	// MaxRetries is the number of fetch attempts per cycle.
	MaxRetries int
	// Pace is the delay between cycles.
	Pace time.Duration
	// Cooldown is how long an open breaker blocks the next cycle.
	Cooldown time.Duration
}

// ResilientProducer runs fetch cycles against a poller. Each cycle
// retries with capped exponential backoff and jitter until an attempt
// is healthy, otherwise the last failing record is emitted and the
// breaker advances. Next always yields a record per cycle, healthy or
// not, so the stream never goes silent.
type ResilientProducer struct {
	poller  Poller
	breaker *Breaker
	opts    Options
	log     *slog.Logger

	started bool
	rng     *rand.Rand
	sleep   func(context.Context, time.Duration) error
}

// New returns a producer over poller. The breaker is shared with the
// caller so its state can be reported elsewhere.
func New(poller Poller, breaker *Breaker, opts Options, log *slog.Logger) *ResilientProducer {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	return &ResilientProducer{
		poller:  poller,
		breaker: breaker,
		opts:    opts,
		log:     log,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:   sleepCtx,
	}
}

// Next runs one fetch cycle and returns its record. Pacing and the
// breaker cooldown owed by the previous cycle happen at the start of
// the call, so every wait honors ctx cancellation. The cooldown runs
// before the pace delay and ends with an unconditional reset.
func (p *ResilientProducer) Next(ctx context.Context) (telemetry.Record, error) {
	if p.started {
		if p.breaker.Open() {
			p.log.Warn("circuit breaker open, cooling down",
				"failures", p.breaker.Failures(),
				"cooldown", p.opts.Cooldown)
			if err := p.sleep(ctx, p.opts.Cooldown); err != nil {
				return telemetry.Record{}, err
			}
			p.breaker.Reset()
		}
		if err := p.sleep(ctx, p.opts.Pace); err != nil {
			return telemetry.Record{}, err
		}
	}
	p.started = true

	var rec telemetry.Record
	for attempt := 1; attempt <= p.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return telemetry.Record{}, err
		}
		rec = p.poller.Poll(ctx)
		if rec.Healthy() {
			p.breaker.Reset()
			return rec, nil
		}
		p.log.Warn("fetch attempt failed",
			"attempt", attempt,
			"max_retries", p.opts.MaxRetries,
			"status", rec.Status,
			"error", rec.Error)
		if err := p.sleep(ctx, p.backoff(attempt)); err != nil {
			return telemetry.Record{}, err
		}
	}

	if p.breaker.Failure() {
		p.log.Error("circuit breaker tripped",
			"failures", p.breaker.Failures())
	}
	return rec, nil
}

// backoff returns min(2^(attempt-1), 8) seconds plus up to a second
// of jitter.
func (p *ResilientProducer) backoff(attempt int) time.Duration {
	base := maxBackoff
	if attempt < 4 {
		base = time.Duration(1<<uint(attempt-1)) * time.Second
	}
	return base + time.Duration(p.rng.Float64()*float64(time.Second))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
