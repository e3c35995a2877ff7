package main

import (
	"fmt"

	"pulseops-collector/internal/config"
	"pulseops-collector/internal/sink"
)

// newWriter builds the record writer stack from cfg.Sinks. A single
// sink is returned bare, several are fanned out through a MultiWriter.
func newWriter(cfg *config.Config) (sink.RecordWriter, error) {
	writers := make([]sink.RecordWriter, 0, len(cfg.Sinks))
	for _, name := range cfg.Sinks {
		w, err := newSink(cfg, name)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}
	if len(writers) == 1 {
		return writers[0], nil
	}
	return sink.NewMultiWriter(writers...), nil
}

func newSink(cfg *config.Config, name string) (sink.RecordWriter, error) {
	switch name {
	case "opensearch":
		return sink.NewOpenSearchWriter(cfg.OpenSearchURL(), cfg.OpenSearchUser, cfg.OpenSearchPass, cfg.IndexName)
	case "greptime":
		return sink.NewGreptimeDBWriter(cfg.GreptimeHost, cfg.GreptimePort, cfg.GreptimeDatabase, cfg.GreptimeTable)
	case "stdout":
		return sink.NewJSONStdoutWriter(), nil
	case "console":
		return sink.NewConsoleWriter(cfg), nil
	case "file":
		return sink.NewFileWriter(cfg.OutputFile)
	case "tui":
		return sink.NewTUIWriter(cfg), nil
	default:
		return nil, fmt.Errorf("unknown sink %q", name)
	}
}
