package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"
	"github.com/google/uuid"

	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/common"
	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/msis"
)

// BatchSize is the number of rows per native insert.
const BatchSize = 100_000

// CreateResultsTable is the DDL for the results table. NaN is stored as is.
const CreateResultsTable = `CREATE TABLE IF NOT EXISTS %s (
	run_id UUID,
	time DateTime,
	version LowCardinality(String),
	lon Float64,
	lat Float64,
	alt Float64,
	f107 Float64,
	f107a Float64,
	ap_daily Float64,
	mass_density Float64,
	n2 Float64,
	o2 Float64,
	o Float64,
	he Float64,
	h Float64,
	ar Float64,
	n Float64,
	anomalous_o Float64,
	no Float64,
	temperature Float64
) ENGINE = MergeTree
ORDER BY (run_id, time, alt, lat, lon)`

// ResultBatch holds columnar data for native ClickHouse insert.
type ResultBatch struct {
	RunID   *proto.ColUUID
	Time    *proto.ColDateTime
	Version *proto.ColStr
	Inputs  [6]*proto.ColFloat64 // lon, lat, alt, f107, f107a, ap_daily
	Values  [msis.NumVariables]*proto.ColFloat64
}

var inputColumns = [6]string{"lon", "lat", "alt", "f107", "f107a", "ap_daily"}

var valueColumns = [msis.NumVariables]string{
	"mass_density", "n2", "o2", "o", "he", "h", "ar", "n", "anomalous_o", "no", "temperature",
}

func NewResultBatch() *ResultBatch {
	b := &ResultBatch{
		RunID:   new(proto.ColUUID),
		Time:    new(proto.ColDateTime),
		Version: new(proto.ColStr),
	}
	for i := range b.Inputs {
		b.Inputs[i] = new(proto.ColFloat64)
	}
	for i := range b.Values {
		b.Values[i] = new(proto.ColFloat64)
	}
	return b
}

func (b *ResultBatch) Reset() {
	b.RunID.Reset()
	b.Time.Reset()
	b.Version.Reset()
	for _, c := range b.Inputs {
		c.Reset()
	}
	for _, c := range b.Values {
		c.Reset()
	}
}

func (b *ResultBatch) Len() int {
	return b.RunID.Rows()
}

// Add appends one row.
func (b *ResultBatch) Add(r Row) error {
	id, err := uuid.Parse(r.RunID)
	if err != nil {
		return fmt.Errorf("run id %q: %w", r.RunID, err)
	}
	b.RunID.Append(id)
	b.Time.Append(r.Time)
	b.Version.Append(r.Version)
	for i, v := range [6]float64{r.Lon, r.Lat, r.Alt, r.F107, r.F107a, r.ApDaily} {
		b.Inputs[i].Append(v)
	}
	for i, v := range r.Values() {
		b.Values[i].Append(v)
	}
	return nil
}

func (b *ResultBatch) Input() proto.Input {
	in := proto.Input{
		{Name: "run_id", Data: b.RunID},
		{Name: "time", Data: b.Time},
		{Name: "version", Data: b.Version},
	}
	for i, name := range inputColumns {
		in = append(in, proto.InputColumn{Name: name, Data: b.Inputs[i]})
	}
	for i, name := range valueColumns {
		in = append(in, proto.InputColumn{Name: name, Data: b.Values[i]})
	}
	return in
}

// ClickHouseWriter inserts result rows over the native protocol.
type ClickHouseWriter struct {
	conn  *ch.Client
	table string
	batch *ResultBatch
}

// DialClickHouse connects using the application config. table is
// qualified with the configured database when it has no dot.
func DialClickHouse(ctx context.Context, c *common.Config, table string) (*ClickHouseWriter, error) {
	conn, err := ch.Dial(ctx, ch.Options{
		Address:     c.ClickHouseAddr(),
		Database:    c.ClickHouseDatabase,
		User:        c.ClickHouseUser,
		Password:    c.ClickHousePassword,
		Compression: ch.CompressionLZ4,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse connect failed: %w", err)
	}
	return NewClickHouseWriter(conn, qualify(c.ClickHouseDatabase, table)), nil
}

// NewClickHouseWriter wraps an open connection.
func NewClickHouseWriter(conn *ch.Client, table string) *ClickHouseWriter {
	return &ClickHouseWriter{conn: conn, table: table, batch: NewResultBatch()}
}

// EnsureTable creates the results table if needed.
func (w *ClickHouseWriter) EnsureTable(ctx context.Context) error {
	return w.conn.Do(ctx, ch.Query{Body: fmt.Sprintf(CreateResultsTable, w.table)})
}

// Write inserts rows in BatchSize chunks.
func (w *ClickHouseWriter) Write(ctx context.Context, rows []Row) error {
	for _, r := range rows {
		if err := w.batch.Add(r); err != nil {
			return err
		}
		if w.batch.Len() >= BatchSize {
			if err := w.flush(ctx); err != nil {
				return err
			}
		}
	}
	return w.flush(ctx)
}

func (w *ClickHouseWriter) flush(ctx context.Context) error {
	if w.batch.Len() == 0 {
		return nil
	}
	query := fmt.Sprintf("INSERT INTO %s VALUES", w.table)
	if err := w.conn.Do(ctx, ch.Query{Body: query, Input: w.batch.Input()}); err != nil {
		w.batch.Reset()
		return fmt.Errorf("insert %s: %w", w.table, err)
	}
	common.Debugf("export: inserted %d rows into %s", w.batch.Len(), w.table)
	w.batch.Reset()
	return nil
}

// Close closes the connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}

func qualify(db, table string) string {
	if db == "" || strings.Contains(table, ".") {
		return table
	}
	return db + "." + table
}
