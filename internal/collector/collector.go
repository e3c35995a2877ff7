// Package collector wires a record source to the configured sinks and
// keeps runtime state for the admin surface.
package collector

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pulseops-collector/internal/config"
	"pulseops-collector/internal/faults"
	"pulseops-collector/internal/logging"
	"pulseops-collector/internal/metrics"
	"pulseops-collector/internal/producer"
	"pulseops-collector/internal/sink"
	"pulseops-collector/internal/source"
	"pulseops-collector/internal/telemetry"
)

// readyMaxWait bounds the startup wait for a slow sink backend.
const readyMaxWait = 120 * time.Second

// Source yields the next record to emit. Next blocks for pacing and
// returns an error only when ctx is done.
type Source interface {
	Next(ctx context.Context) (telemetry.Record, error)
}

// Collector runs the produce-write loop for one mode.
type Collector struct {
	cfg      *config.Config
	writer   sink.RecordWriter
	source   Source
	injector *faults.Injector
	breaker  *producer.Breaker
	pace     func(ctx context.Context) error

	mu          sync.Mutex
	seq         int
	last        telemetry.Record
	haveRec     bool
	breakerSnap producer.BreakerSnapshot
}

// New builds a collector for cfg.Mode. The injector is only used in
// replay mode and may be nil otherwise.
func New(cfg *config.Config, w sink.RecordWriter, inj *faults.Injector, log *slog.Logger) *Collector {
	c := &Collector{cfg: cfg, writer: w}
	if cfg.Mode == config.ModeLive {
		c.breaker = producer.NewBreaker(cfg.FailThreshold)
		poller := source.NewLiveSource(cfg.OpenMeteoURL, cfg.CityLat, cfg.CityLon, cfg.HTTPTimeout)
		c.source = producer.New(poller, c.breaker, producer.Options{
			MaxRetries: cfg.MaxRetries,
			Pace:       cfg.LoopDelay,
			Cooldown:   cfg.BreakerSleep,
		}, log)
		c.breakerSnap = c.breaker.Snapshot()
		return c
	}

	c.injector = inj
	c.source = source.NewReplaySource(cfg.ReplayFile)
	limiter := rate.NewLimiter(rate.Every(cfg.ReplayDelay), 1)
	c.pace = limiter.Wait
	return c
}

// Run loops until ctx is done. Sink failures are logged and counted,
// never fatal.
func (c *Collector) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	c.bootstrap(ctx)
	log.Info("collector started", "mode", c.cfg.Mode, "sinks", strings.Join(c.cfg.Sinks, ","))

	for {
		rec, err := c.source.Next(ctx)
		if err != nil {
			return err
		}

		c.mu.Lock()
		c.seq++
		seq := c.seq
		c.mu.Unlock()

		if c.injector != nil {
			rec = c.injector.Apply(rec, seq)
		}

		if err := c.writer.WriteRecord(ctx, rec); err != nil {
			log.Error("sink write failed", "error", err, "status", rec.Status)
			metrics.SinkWriteFailures.Inc()
		}
		metrics.RecordsProduced.WithLabelValues(rec.Source, rec.Status).Inc()
		log.Debug("record emitted", "seq", seq, "status", rec.Status, "latency_ms", rec.LatencyMS)

		c.mu.Lock()
		c.last = rec
		c.haveRec = true
		if c.breaker != nil {
			c.breakerSnap = c.breaker.Snapshot()
		}
		c.mu.Unlock()

		c.notifyStatus()

		if c.pace != nil {
			if err := c.pace(ctx); err != nil {
				return err
			}
		}
	}
}

// bootstrap waits for the sink backend and prepares its index. Both
// steps are best effort so the collector still comes up against a
// slow or absent backend.
func (c *Collector) bootstrap(ctx context.Context) {
	log := logging.FromContext(ctx)
	if rw, ok := c.writer.(sink.ReadyWaiter); ok {
		if err := rw.WaitReady(ctx, readyMaxWait); err != nil {
			log.Warn("sink not ready, continuing", "error", err)
		}
	}
	if ie, ok := c.writer.(sink.IndexEnsurer); ok {
		if err := ie.EnsureIndex(ctx); err != nil {
			log.Warn("index setup failed, continuing", "error", err)
		}
	}
}

func (c *Collector) notifyStatus() {
	sw, ok := c.writer.(sink.StatusWriter)
	if !ok {
		return
	}
	c.mu.Lock()
	snap := c.breakerSnap
	c.mu.Unlock()
	enabled := c.injector != nil && c.injector.Enabled()
	sw.WriteStatus(c.cfg.Mode, snap, enabled)
}

// Status is a point-in-time view of the collector for the admin
// surface.
type Status struct {
	Mode          string                    `json:"mode"`
	Records       int                       `json:"records"`
	LastRecord    *telemetry.Record         `json:"last_record,omitempty"`
	Breaker       *producer.BreakerSnapshot `json:"breaker,omitempty"`
	FaultsEnabled *bool                     `json:"faults_enabled,omitempty"`
}

// Status reports the collector state. Safe to call from other
// goroutines while Run is looping.
func (c *Collector) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{Mode: c.cfg.Mode, Records: c.seq}
	if c.haveRec {
		rec := c.last
		st.LastRecord = &rec
	}
	if c.breaker != nil {
		snap := c.breakerSnap
		st.Breaker = &snap
	}
	if c.injector != nil {
		enabled := c.injector.Enabled()
		st.FaultsEnabled = &enabled
	}
	return st
}

// Close releases the record source.
func (c *Collector) Close() error {
	if cl, ok := c.source.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
