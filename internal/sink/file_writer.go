package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"pulseops-collector/internal/telemetry"
)

// FileWriter appends records to a JSONL file. The file is opened in
// append mode so restarts extend an existing log instead of
// truncating it.
type FileWriter struct {
	f   *os.File
	enc *json.Encoder
}

// NewFileWriter opens path for appending, creating it when missing.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	return &FileWriter{f: f, enc: json.NewEncoder(f)}, nil
}

// WriteRecord logs a single record.
func (w *FileWriter) WriteRecord(_ context.Context, rec telemetry.Record) error {
	return w.enc.Encode(rec)
}

// Close closes the underlying file.
func (w *FileWriter) Close() error {
	return w.f.Close()
}
