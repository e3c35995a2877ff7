// ConsoleWriter prints human-friendly, colorized records to STDOUT.
package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"pulseops-collector/internal/config"
	"pulseops-collector/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// ConsoleWriter prints records using ANSI colors, with a one-time
// configuration overview before the first record.
type ConsoleWriter struct {
	cfg  *config.Config
	out  io.Writer
	once sync.Once
}

// NewConsoleWriter creates a ConsoleWriter writing to os.Stdout.
func NewConsoleWriter(cfg *config.Config) *ConsoleWriter {
	return &ConsoleWriter{cfg: cfg, out: os.Stdout}
}

func (w *ConsoleWriter) printOverview() {
	if w.cfg == nil {
		return
	}

	fmt.Fprintln(w.out, "Collector Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Mode:\t%s\n", w.cfg.Mode)
	fmt.Fprintf(tw, "Sinks:\t%s\n", strings.Join(w.cfg.Sinks, ","))
	fmt.Fprintf(tw, "Index:\t%s\n", w.cfg.IndexName)
	if w.cfg.Mode == config.ModeLive {
		fmt.Fprintf(tw, "Upstream:\t%s\n", w.cfg.OpenMeteoURL)
		fmt.Fprintf(tw, "City:\t%.4f,%.4f\n", w.cfg.CityLat, w.cfg.CityLon)
		fmt.Fprintf(tw, "Loop Delay:\t%s\n", w.cfg.LoopDelay)
		fmt.Fprintf(tw, "Max Retries:\t%d\n", w.cfg.MaxRetries)
		fmt.Fprintf(tw, "Breaker Threshold:\t%d\n", w.cfg.FailThreshold)
	} else {
		fmt.Fprintf(tw, "Replay File:\t%s\n", w.cfg.ReplayFile)
		fmt.Fprintf(tw, "Replay Delay:\t%s\n", w.cfg.ReplayDelay)
		fmt.Fprintf(tw, "Fault Every N:\t%d\n", w.cfg.FaultEveryN)
		fmt.Fprintf(tw, "Fault Probability:\t%.2f\n", w.cfg.FaultProb)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

// WriteRecord outputs a single record in colorized format.
func (w *ConsoleWriter) WriteRecord(_ context.Context, rec telemetry.Record) error {
	w.once.Do(w.printOverview)

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, rec.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%ssource=%s%s ", colorBlue, rec.Source, colorReset)
	fmt.Fprintf(w.out, "%stemp=%s%s ", colorMagenta, fmtReading(rec.Temperature), colorReset)
	fmt.Fprintf(w.out, "%swind=%s%s ", colorCyan, fmtReading(rec.Windspeed), colorReset)
	fmt.Fprintf(w.out, "%slatency=%.1fms%s ", colorYellow, rec.LatencyMS, colorReset)
	fmt.Fprintf(w.out, "%sstatus=%s%s", statusColor(rec), rec.Status, colorReset)
	if rec.Error != "" {
		fmt.Fprintf(w.out, " %serr=%q%s", colorRed, rec.Error, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// Close is a no-op; STDOUT stays open.
func (w *ConsoleWriter) Close() error { return nil }

func statusColor(rec telemetry.Record) string {
	switch {
	case rec.Status == telemetry.StatusOK:
		return colorGreen
	case rec.Status == telemetry.StatusNoCurrentWeather:
		return colorCyan
	case rec.Status == telemetry.StatusParseError, rec.Status == telemetry.StatusReplayMissing:
		return colorYellow
	default:
		return colorRed
	}
}

func fmtReading(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}
