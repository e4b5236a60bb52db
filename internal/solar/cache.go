package solar

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
)

// cacheRow is the Parquet layout of a cached Record.
type cacheRow struct {
	Date      int64     `parquet:"date"` // Unix seconds, UTC midnight
	F107      float64   `parquet:"f107"`
	F107Adj   float64   `parquet:"f107_adj"`
	F107Avg81 float64   `parquet:"f107_avg81"`
	Ap        []float64 `parquet:"ap"`
	Kp        []float64 `parquet:"kp"`
	DailyAp   float64   `parquet:"daily_ap"`
	SSN       float64   `parquet:"ssn"`
	Kind      int32     `parquet:"kind"`
	Schema    int32     `parquet:"schema"`
}

func toCacheRow(r Record) cacheRow {
	return cacheRow{
		Date:      r.Date.Unix(),
		F107:      r.F107,
		F107Adj:   r.F107Adj,
		F107Avg81: r.F107Avg81,
		Ap:        append([]float64(nil), r.Ap[:]...),
		Kp:        append([]float64(nil), r.Kp[:]...),
		DailyAp:   r.DailyAp,
		SSN:       r.SSN,
		Kind:      int32(r.Kind),
		Schema:    SchemaVersion,
	}
}

func (c cacheRow) record() (Record, error) {
	if c.Schema != SchemaVersion {
		return Record{}, fmt.Errorf("cache schema %d, want %d", c.Schema, SchemaVersion)
	}
	if len(c.Ap) != BinsPerDay || len(c.Kp) != BinsPerDay {
		return Record{}, fmt.Errorf("cache row %d: want %d ap/kp values", c.Date, BinsPerDay)
	}
	r := Record{
		Date:      time.Unix(c.Date, 0).UTC(),
		F107:      c.F107,
		F107Adj:   c.F107Adj,
		F107Avg81: c.F107Avg81,
		DailyAp:   c.DailyAp,
		SSN:       c.SSN,
		Kind:      Kind(c.Kind),
	}
	copy(r.Ap[:], c.Ap)
	copy(r.Kp[:], c.Kp)
	return r, nil
}

// WriteCache persists the table as Parquet, replacing path atomically.
func WriteCache(path string, t *Table) error {
	rows := make([]cacheRow, 0, t.Len())
	for _, r := range t.records {
		rows = append(rows, toCacheRow(r))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	err = parquet.Write(tmp, rows)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename cache: %w", err)
	}
	return nil
}

// ReadCache loads a table written by WriteCache.
func ReadCache(path string) (*Table, error) {
	rows, err := parquet.ReadFile[cacheRow](path)
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %v: %w", path, err, ErrDataUnavailable)
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		r, err := row.record()
		if err != nil {
			return nil, fmt.Errorf("read cache %s: %v: %w", path, err, ErrDataUnavailable)
		}
		records = append(records, r)
	}
	return NewTable(records)
}
