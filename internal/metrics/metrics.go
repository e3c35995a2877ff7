package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsProduced counts every record handed to the sink, labelled
	// by source and status.
	RecordsProduced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_records_produced_total",
		Help: "Records emitted by the collector, by source and status.",
	}, []string{"source", "status"})

	// SinkWriteFailures counts records the sink rejected. The loop
	// logs and moves on, so this is the only trace of a lost record.
	SinkWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_sink_write_failures_total",
		Help: "Record writes rejected by the sink.",
	})

	// FetchLatency tracks upstream round-trip time for live fetches.
	FetchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collector_fetch_latency_seconds",
		Help:    "Upstream fetch round-trip latency.",
		Buckets: prometheus.DefBuckets,
	})

	// BreakerState is 0 while the breaker is closed and 1 while open.
	BreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collector_breaker_state",
		Help: "Circuit breaker state, 0 closed and 1 open.",
	})

	// BreakerTrips counts closed to open transitions.
	BreakerTrips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_breaker_trips_total",
		Help: "Times the circuit breaker tripped open.",
	})

	// FaultsInjected counts records degraded by the fault injector.
	FaultsInjected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_faults_injected_total",
		Help: "Synthetic faults applied to replayed records.",
	})
)
