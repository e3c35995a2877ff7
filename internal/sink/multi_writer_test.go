package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"pulseops-collector/internal/config"
	"pulseops-collector/internal/producer"
	"pulseops-collector/internal/telemetry"
)

type captureWriter struct {
	records []telemetry.Record
	failErr error
	closed  bool
}

func (c *captureWriter) WriteRecord(_ context.Context, rec telemetry.Record) error {
	if c.failErr != nil {
		return c.failErr
	}
	c.records = append(c.records, rec)
	return nil
}

func (c *captureWriter) Close() error {
	c.closed = true
	return nil
}

type readyCaptureWriter struct {
	captureWriter
	readyCalls  int
	ensureCalls int
	statusCalls int
	toggler     func() bool
	adminActive bool
}

func (c *readyCaptureWriter) WaitReady(context.Context, time.Duration) error {
	c.readyCalls++
	return nil
}

func (c *readyCaptureWriter) EnsureIndex(context.Context) error {
	c.ensureCalls++
	return nil
}

func (c *readyCaptureWriter) WriteStatus(string, producer.BreakerSnapshot, bool) {
	c.statusCalls++
}

func (c *readyCaptureWriter) SetFaultToggler(fn func() bool) {
	c.toggler = fn
}

func (c *readyCaptureWriter) SetAdminStatus(active bool) {
	c.adminActive = active
}

func TestMultiWriterFansOut(t *testing.T) {
	a, b := &captureWriter{}, &captureWriter{}
	mw := NewMultiWriter(a, b)

	rec := telemetry.Record{Status: telemetry.StatusOK, Source: telemetry.SourceReplay}
	if err := mw.WriteRecord(context.Background(), rec); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if len(a.records) != 1 || len(b.records) != 1 {
		t.Fatalf("records not fanned out: %d, %d", len(a.records), len(b.records))
	}
}

func TestMultiWriterContinuesPastFailure(t *testing.T) {
	boom := errors.New("sink down")
	a := &captureWriter{failErr: boom}
	b := &captureWriter{}
	mw := NewMultiWriter(a, b)

	err := mw.WriteRecord(context.Background(), telemetry.Record{Status: telemetry.StatusOK})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error with %v, got %v", boom, err)
	}
	if len(b.records) != 1 {
		t.Fatal("second writer did not receive the record")
	}
}

func TestMultiWriterForwardsCapabilities(t *testing.T) {
	plain := &captureWriter{}
	ready := &readyCaptureWriter{}
	mw := NewMultiWriter(plain, ready)

	if err := mw.WaitReady(context.Background(), time.Second); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if ready.readyCalls != 1 {
		t.Fatalf("WaitReady forwarded %d times, want 1", ready.readyCalls)
	}
	if err := mw.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if ready.ensureCalls != 1 {
		t.Fatalf("EnsureIndex forwarded %d times, want 1", ready.ensureCalls)
	}
	mw.WriteStatus(config.ModeReplay, producer.BreakerSnapshot{}, true)
	if ready.statusCalls != 1 {
		t.Fatalf("WriteStatus forwarded %d times, want 1", ready.statusCalls)
	}
	mw.SetFaultToggler(func() bool { return true })
	if ready.toggler == nil || !ready.toggler() {
		t.Fatal("fault toggler not forwarded")
	}
	mw.SetAdminStatus(true)
	if !ready.adminActive {
		t.Fatal("admin status not forwarded")
	}
}

func TestMultiWriterCloseAll(t *testing.T) {
	a, b := &captureWriter{}, &captureWriter{}
	mw := NewMultiWriter(a, b)

	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Fatal("not all writers closed")
	}
}
