package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"pulseops-collector/internal/telemetry"
)

// JSONStdoutWriter prints records as JSON lines to STDOUT.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// WriteRecord outputs one record in JSON format.
func (w *JSONStdoutWriter) WriteRecord(_ context.Context, rec telemetry.Record) error {
	data, _ := json.Marshal(rec)
	fmt.Fprintln(w.out, string(data))
	return nil
}

// Close is a no-op; STDOUT stays open.
func (w *JSONStdoutWriter) Close() error { return nil }
