package sink

import (
	"context"
	"fmt"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"pulseops-collector/internal/telemetry"
)

// greptimeClient is the slice of the ingester client the writer uses.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter mirrors records into a GreptimeDB table, one row
// per record. The server creates the table from the first write.
type GreptimeDBWriter struct {
	client greptimeClient
	table  string
}

// NewGreptimeDBWriter connects to a GreptimeDB instance over gRPC.
func NewGreptimeDBWriter(host string, port int, database, tbl string) (*GreptimeDBWriter, error) {
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return &GreptimeDBWriter{client: client, table: tbl}, nil
}

// WriteRecord inserts one record. Absent readings become nulls.
func (w *GreptimeDBWriter) WriteRecord(ctx context.Context, rec telemetry.Record) error {
	tbl, err := table.New(w.table)
	if err != nil {
		return fmt.Errorf("greptime table: %w", err)
	}
	if err := tbl.AddTagColumn("source", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("temperature", types.FLOAT); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("windspeed", types.FLOAT); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("latency_ms", types.FLOAT); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("status", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("error", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}

	if err := tbl.AddRow(
		rec.Source,
		floatOrNil(rec.Temperature),
		floatOrNil(rec.Windspeed),
		rec.LatencyMS,
		rec.Status,
		rec.Error,
		rec.Timestamp,
	); err != nil {
		return fmt.Errorf("greptime row: %w", err)
	}

	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write: %w", err)
	}
	return nil
}

// Close tears down the gRPC connection when backed by a real client.
func (w *GreptimeDBWriter) Close() error {
	if c, ok := w.client.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
