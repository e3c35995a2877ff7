package source

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"pulseops-collector/internal/telemetry"
)

const (
	// maxLineBytes bounds a single dataset line.
	maxLineBytes = 1 << 20
	// emptyPassDelay throttles reopening when a pass produced nothing.
	// An empty dataset would otherwise spin on open/close.
	emptyPassDelay = time.Second
)

// Sentinel values emitted when the dataset file is missing.
const (
	sentinelTemperature = 27.5
	sentinelWindspeed   = 10.0
)

// ReplaySource cycles through a JSONL dataset forever, reopening the
// file for every pass so edits show up without a restart. Blank lines
// are skipped, unparseable and oversized lines become parse_error
// records, and a mid-pass read failure ends the pass with an error
// record. A broken dataset degrades instead of stopping the stream.
type ReplaySource struct {
	path  string
	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	file    *os.File
	reader  *bufio.Reader
	emitted int
}

// NewReplaySource returns a source replaying the dataset at path.
func NewReplaySource(path string) *ReplaySource {
	return &ReplaySource{
		path:  path,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Next returns the next record of the current pass, starting a new
// pass when the previous one is exhausted. A missing dataset yields
// one sentinel record per pass so the pipeline stays observable.
func (s *ReplaySource) Next(ctx context.Context) (telemetry.Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return telemetry.Record{}, err
		}
		if s.file == nil {
			f, err := os.Open(s.path)
			if err != nil {
				return s.sentinel(err), nil
			}
			s.file = f
			s.reader = bufio.NewReaderSize(f, 64*1024)
			s.emitted = 0
		}
		for {
			line, tooLong, err := s.readLine()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				rec := s.readFailure(err)
				s.closeFile()
				return rec, nil
			}
			if tooLong {
				s.emitted++
				return s.parseFailure(), nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			s.emitted++
			return s.parse(line), nil
		}
		empty := s.emitted == 0
		s.closeFile()
		if empty {
			if err := s.sleep(ctx, emptyPassDelay); err != nil {
				return telemetry.Record{}, err
			}
		}
	}
}

// Close releases the dataset file if a pass is in progress.
func (s *ReplaySource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.reader = nil
	return err
}

func (s *ReplaySource) closeFile() {
	s.file.Close()
	s.file = nil
	s.reader = nil
}

// readLine returns the next dataset line. Lines over maxLineBytes are
// consumed to their end and reported via tooLong, so one oversized
// entry cannot hide the rest of the pass. io.EOF means the pass is
// exhausted.
func (s *ReplaySource) readLine() (line string, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, err := s.reader.ReadSlice('\n')
		buf = append(buf, chunk...)
		switch {
		case err == nil:
			buf = buf[:len(buf)-1]
			if len(buf) > maxLineBytes {
				return "", true, nil
			}
			return string(buf), false, nil
		case errors.Is(err, bufio.ErrBufferFull):
			if len(buf) > maxLineBytes {
				if derr := s.discardLine(); derr != nil && !errors.Is(derr, io.EOF) {
					return "", false, derr
				}
				return "", true, nil
			}
		case errors.Is(err, io.EOF):
			if len(buf) == 0 {
				return "", false, io.EOF
			}
			if len(buf) > maxLineBytes {
				return "", true, nil
			}
			return string(buf), false, nil
		default:
			return "", false, err
		}
	}
}

// discardLine consumes the remainder of the current line.
func (s *ReplaySource) discardLine() error {
	for {
		_, err := s.reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return err
	}
}

func (s *ReplaySource) parse(line string) telemetry.Record {
	rec := telemetry.Record{
		Timestamp: s.now().UTC(),
		Source:    telemetry.SourceReplay,
	}
	var row map[string]any
	if err := json.Unmarshal([]byte(line), &row); err != nil {
		return s.parseFailure()
	}
	rec.Temperature = telemetry.Float(row["temperature"])
	rec.Windspeed = telemetry.Float(row["windspeed"])
	rec.Status = telemetry.StatusOK
	if st, ok := row["status"].(string); ok && st != "" {
		rec.Status = st
	}
	if lat := telemetry.Float(row["latency_ms"]); lat != nil {
		rec.LatencyMS = *lat
	}
	return rec
}

func (s *ReplaySource) parseFailure() telemetry.Record {
	return telemetry.Record{
		Timestamp: s.now().UTC(),
		Source:    telemetry.SourceReplay,
		Status:    telemetry.StatusParseError,
	}
}

// readFailure maps a mid-pass read error onto a record. The pass ends
// here, the next call starts over from the top of the file.
func (s *ReplaySource) readFailure(err error) telemetry.Record {
	return telemetry.Record{
		Timestamp: s.now().UTC(),
		Source:    telemetry.SourceReplay,
		Status:    telemetry.StatusError,
		Error:     telemetry.TruncateError(err.Error()),
	}
}

func (s *ReplaySource) sentinel(err error) telemetry.Record {
	msg := "missing: " + s.path
	if !errors.Is(err, fs.ErrNotExist) {
		msg = telemetry.TruncateError(err.Error())
	}
	return telemetry.Record{
		Timestamp:   s.now().UTC(),
		Temperature: telemetry.FloatPtr(sentinelTemperature),
		Windspeed:   telemetry.FloatPtr(sentinelWindspeed),
		Status:      telemetry.StatusReplayMissing,
		Source:      telemetry.SourceReplay,
		Error:       msg,
	}
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
