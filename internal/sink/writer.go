// Package sink contains the output writers records are delivered to.
package sink

import (
	"context"
	"time"

	"pulseops-collector/internal/producer"
	"pulseops-collector/internal/telemetry"
)

// RecordWriter delivers records to an output. Writers are used by a
// single goroutine; a failed write affects only that record.
type RecordWriter interface {
	WriteRecord(ctx context.Context, rec telemetry.Record) error
	Close() error
}

// ReadyWaiter is implemented by writers that can block until their
// backend answers, so startup can wait for slow containers.
type ReadyWaiter interface {
	WaitReady(ctx context.Context, maxWait time.Duration) error
}

// IndexEnsurer is implemented by writers that create their target
// index or table before the first record is written.
type IndexEnsurer interface {
	EnsureIndex(ctx context.Context) error
}

// StatusWriter is implemented by writers that render collector state
// alongside records.
type StatusWriter interface {
	WriteStatus(mode string, breaker producer.BreakerSnapshot, faultsEnabled bool)
}
