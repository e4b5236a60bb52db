package solar

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// CreateIndexTable is the DDL for solar.indices_raw.
const CreateIndexTable = `CREATE TABLE IF NOT EXISTS %s (
    date          Date32,
    time          DateTime,
    observed_flux Float32,
    adjusted_flux Float32,
    ssn           Float32,
    kp_index      Float32,
    ap_index      Float32,
    xray_short    Float32,
    xray_long     Float32,
    f107_avg81    Float32 DEFAULT -1,
    flux_kind     Int8 DEFAULT 0,
    source_file   LowCardinality(String),
    updated_at    DateTime DEFAULT now()
) ENGINE = ReplacingMergeTree(updated_at)
ORDER BY (date, time)`

// Tables created before the model inputs were stored lack these columns.
var indexTableMigrations = []string{
	"ALTER TABLE %s ADD COLUMN IF NOT EXISTS f107_avg81 Float32 DEFAULT -1",
	"ALTER TABLE %s ADD COLUMN IF NOT EXISTS flux_kind Int8 DEFAULT 0",
}

// EnsureIndexTable creates table if needed and adds missing columns.
func EnsureIndexTable(ctx context.Context, conn *ch.Client, table string) error {
	stmts := append([]string{CreateIndexTable}, indexTableMigrations...)
	for _, stmt := range stmts {
		if err := conn.Do(ctx, ch.Query{Body: fmt.Sprintf(stmt, table)}); err != nil {
			return fmt.Errorf("ensure %s: %w", table, err)
		}
	}
	return nil
}

// IndexBatch holds columnar data for native ClickHouse insert.
// Matches schema: solar.indices_raw (date, time, observed_flux, adjusted_flux,
// ssn, kp_index, ap_index, xray_short, xray_long, f107_avg81, flux_kind,
// source_file)
//
// Each day produces 8 rows (one per 3-hour bucket: 00, 03, 06, ..., 21 UTC).
// SSN and SFI are replicated across all 8 buckets; Kp/ap are bucket-specific.
// The published 81-day average and the F10.7 Kind travel with every row so
// a table read back serves the aligner unchanged. Missing values are
// written as -1.
type IndexBatch struct {
	Date         *proto.ColDate32
	Time         *proto.ColDateTime
	ObservedFlux *proto.ColFloat32
	AdjustedFlux *proto.ColFloat32
	SSN          *proto.ColFloat32
	KpIndex      *proto.ColFloat32
	ApIndex      *proto.ColFloat32
	XrayShort    *proto.ColFloat32
	XrayLong     *proto.ColFloat32
	F107Avg81    *proto.ColFloat32
	FluxKind     *proto.ColInt8
	SourceFile   *proto.ColStr
}

func NewIndexBatch() *IndexBatch {
	return &IndexBatch{
		Date:         new(proto.ColDate32),
		Time:         new(proto.ColDateTime),
		ObservedFlux: new(proto.ColFloat32),
		AdjustedFlux: new(proto.ColFloat32),
		SSN:          new(proto.ColFloat32),
		KpIndex:      new(proto.ColFloat32),
		ApIndex:      new(proto.ColFloat32),
		XrayShort:    new(proto.ColFloat32),
		XrayLong:     new(proto.ColFloat32),
		F107Avg81:    new(proto.ColFloat32),
		FluxKind:     new(proto.ColInt8),
		SourceFile:   new(proto.ColStr),
	}
}

func (b *IndexBatch) Reset() {
	b.Date.Reset()
	b.Time.Reset()
	b.ObservedFlux.Reset()
	b.AdjustedFlux.Reset()
	b.SSN.Reset()
	b.KpIndex.Reset()
	b.ApIndex.Reset()
	b.XrayShort.Reset()
	b.XrayLong.Reset()
	b.F107Avg81.Reset()
	b.FluxKind.Reset()
	b.SourceFile.Reset()
}

func (b *IndexBatch) Len() int {
	return b.Date.Rows()
}

func (b *IndexBatch) Input() proto.Input {
	return proto.Input{
		{Name: "date", Data: b.Date},
		{Name: "time", Data: b.Time},
		{Name: "observed_flux", Data: b.ObservedFlux},
		{Name: "adjusted_flux", Data: b.AdjustedFlux},
		{Name: "ssn", Data: b.SSN},
		{Name: "kp_index", Data: b.KpIndex},
		{Name: "ap_index", Data: b.ApIndex},
		{Name: "xray_short", Data: b.XrayShort},
		{Name: "xray_long", Data: b.XrayLong},
		{Name: "f107_avg81", Data: b.F107Avg81},
		{Name: "flux_kind", Data: b.FluxKind},
		{Name: "source_file", Data: b.SourceFile},
	}
}

// AddRecord appends the eight 3-hour rows of one day.
func (b *IndexBatch) AddRecord(r Record, source string) {
	for i := 0; i < BinsPerDay; i++ {
		b.Date.Append(r.Date)
		b.Time.Append(r.BinTime(i))
		b.ObservedFlux.Append(fill(r.F107))
		b.AdjustedFlux.Append(fill(r.F107Adj))
		b.SSN.Append(fill(r.SSN))
		b.KpIndex.Append(fill(r.Kp[i]))
		b.ApIndex.Append(fill(r.Ap[i]))
		b.XrayShort.Append(0)
		b.XrayLong.Append(0)
		b.F107Avg81.Append(fill(r.F107Avg81))
		b.FluxKind.Append(int8(r.Kind))
		b.SourceFile.Append(source)
	}
}

// Flush inserts the batch into table and resets it.
func (b *IndexBatch) Flush(ctx context.Context, conn *ch.Client, table string) error {
	if b.Len() == 0 {
		return nil
	}
	query := fmt.Sprintf("INSERT INTO %s (date, time, observed_flux, adjusted_flux, ssn, kp_index, ap_index, xray_short, xray_long, f107_avg81, flux_kind, source_file) VALUES", table)
	if err := conn.Do(ctx, ch.Query{Body: query, Input: b.Input()}); err != nil {
		return err
	}
	b.Reset()
	return nil
}

func fill(v float64) float32 {
	if math.IsNaN(v) {
		return -1
	}
	return float32(v)
}

// BucketRow is one 3-hour row of solar.indices_raw.
type BucketRow struct {
	Time         time.Time
	ObservedFlux float32
	AdjustedFlux float32
	SSN          float32
	Kp           float32
	Ap           float32
	F107Avg81    float32
	FluxKind     int8
}

// AssembleBuckets folds 3-hour rows back into daily records. Rows may
// arrive in any order within a day but days must be ascending. A day with
// fewer than eight buckets keeps NaN for the missing bins. The stored
// 81-day average and Kind are kept; the average is only recomputed for
// rows that stored -1.
func AssembleBuckets(rows []BucketRow) (*Table, error) {
	var records []Record
	for _, row := range rows {
		ts := row.Time.UTC()
		d := truncateDay(ts)
		if n := len(records); n == 0 || !records[n-1].Date.Equal(d) {
			records = append(records, newEmptyRecord(d))
		}
		r := &records[len(records)-1]
		bin := ts.Hour() / 3
		r.Ap[bin] = missing(float64(row.Ap))
		r.Kp[bin] = missing(float64(row.Kp))
		r.F107 = missing(float64(row.ObservedFlux))
		r.F107Adj = missing(float64(row.AdjustedFlux))
		r.SSN = missing(float64(row.SSN))
		r.F107Avg81 = missing(float64(row.F107Avg81))
		r.Kind = Kind(row.FluxKind)
	}
	for i := range records {
		records[i].DailyAp = dailyAp(records[i].Ap)
	}
	fillAvg81(records)
	patchBadFlux(records)
	return NewTable(records)
}

func newEmptyRecord(d time.Time) Record {
	r := Record{Date: d, F107: nan(), F107Adj: nan(), F107Avg81: nan(), DailyAp: nan(), SSN: nan()}
	for i := range r.Ap {
		r.Ap[i] = nan()
		r.Kp[i] = nan()
	}
	return r
}

// ReadClickHouse rebuilds a Table from solar.indices_raw-style storage.
// An empty source selects every source_file.
func ReadClickHouse(ctx context.Context, conn driver.Conn, table, source string) (*Table, error) {
	query := fmt.Sprintf(`SELECT time, observed_flux, adjusted_flux, ssn, kp_index, ap_index,
		       f107_avg81, flux_kind
		FROM %s FINAL
		WHERE (? = '' OR source_file = ?)
		ORDER BY time`, table)

	rows, err := conn.Query(ctx, query, source, source)
	if err != nil {
		return nil, fmt.Errorf("query %s: %v: %w", table, err, ErrDataUnavailable)
	}
	defer rows.Close()

	var buckets []BucketRow
	for rows.Next() {
		var b BucketRow
		if err := rows.Scan(&b.Time, &b.ObservedFlux, &b.AdjustedFlux, &b.SSN, &b.Kp, &b.Ap, &b.F107Avg81, &b.FluxKind); err != nil {
			return nil, fmt.Errorf("scan %s: %v: %w", table, err, ErrDataUnavailable)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %v: %w", table, err, ErrDataUnavailable)
	}
	return AssembleBuckets(buckets)
}
