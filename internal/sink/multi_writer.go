package sink

import (
	"context"
	"errors"
	"time"

	"pulseops-collector/internal/producer"
	"pulseops-collector/internal/telemetry"
)

// MultiWriter fans records out to multiple writers in a fixed order.
// A failing writer does not stop delivery to the others.
type MultiWriter struct {
	writers []RecordWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(writers ...RecordWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteRecord sends the record to every writer and joins any errors.
func (mw *MultiWriter) WriteRecord(ctx context.Context, rec telemetry.Record) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.WriteRecord(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WaitReady forwards to writers that support readiness checks.
func (mw *MultiWriter) WaitReady(ctx context.Context, maxWait time.Duration) error {
	var errs []error
	for _, w := range mw.writers {
		if rw, ok := w.(ReadyWaiter); ok {
			if err := rw.WaitReady(ctx, maxWait); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// EnsureIndex forwards to writers that manage an index or table.
func (mw *MultiWriter) EnsureIndex(ctx context.Context) error {
	var errs []error
	for _, w := range mw.writers {
		if ie, ok := w.(IndexEnsurer); ok {
			if err := ie.EnsureIndex(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// WriteStatus forwards collector state to interactive writers.
func (mw *MultiWriter) WriteStatus(mode string, breaker producer.BreakerSnapshot, faultsEnabled bool) {
	for _, w := range mw.writers {
		if sw, ok := w.(StatusWriter); ok {
			sw.WriteStatus(mode, breaker, faultsEnabled)
		}
	}
}

// SetFaultToggler forwards the toggle hook to interactive writers.
func (mw *MultiWriter) SetFaultToggler(fn func() bool) {
	for _, w := range mw.writers {
		if tw, ok := w.(interface{ SetFaultToggler(func() bool) }); ok {
			tw.SetFaultToggler(fn)
		}
	}
}

// SetAdminStatus forwards the admin listener state to interactive
// writers.
func (mw *MultiWriter) SetAdminStatus(active bool) {
	for _, w := range mw.writers {
		if aw, ok := w.(interface{ SetAdminStatus(bool) }); ok {
			aw.SetAdminStatus(active)
		}
	}
}

// Close closes every writer.
func (mw *MultiWriter) Close() error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
