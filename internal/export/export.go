// Package export writes model output to Parquet files and ClickHouse.
package export

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/msis"
)

// Row is one evaluated point in long format.
type Row struct {
	RunID       string    `parquet:"run_id,dict"`
	Time        time.Time `parquet:"time,timestamp(millisecond)"`
	Version     string    `parquet:"version,dict"`
	Lon         float64   `parquet:"lon"`
	Lat         float64   `parquet:"lat"`
	Alt         float64   `parquet:"alt"`
	F107        float64   `parquet:"f107"`
	F107a       float64   `parquet:"f107a"`
	ApDaily     float64   `parquet:"ap_daily"`
	MassDensity float64   `parquet:"mass_density"`
	N2          float64   `parquet:"n2"`
	O2          float64   `parquet:"o2"`
	O           float64   `parquet:"o"`
	He          float64   `parquet:"he"`
	H           float64   `parquet:"h"`
	Ar          float64   `parquet:"ar"`
	N           float64   `parquet:"n"`
	AnomalousO  float64   `parquet:"anomalous_o"`
	NO          float64   `parquet:"no"`
	Temperature float64   `parquet:"temperature"`
}

// Values returns the model outputs in msis.Variable order.
func (r Row) Values() [msis.NumVariables]float64 {
	return [msis.NumVariables]float64{
		r.MassDensity, r.N2, r.O2, r.O, r.He, r.H, r.Ar, r.N, r.AnomalousO, r.NO, r.Temperature,
	}
}

// NewRunID returns a fresh run identifier.
func NewRunID() uuid.UUID {
	return uuid.New()
}

// Rows pairs every grid record with its output row.
func Rows(runID uuid.UUID, version msis.Version, g *msis.Grid, t *msis.Tensor) ([]Row, error) {
	if g.Len() != t.Points() {
		return nil, fmt.Errorf("grid has %d points, output has %d: %w", g.Len(), t.Points(), msis.ErrShapeMismatch)
	}
	id := runID.String()
	rows := make([]Row, g.Len())
	for i, rec := range g.Records {
		v := t.Row(i)
		rows[i] = Row{
			RunID:       id,
			Time:        rec.Time,
			Version:     string(version),
			Lon:         rec.Lon,
			Lat:         rec.Lat,
			Alt:         rec.Alt,
			F107:        rec.F107,
			F107a:       rec.F107a,
			ApDaily:     rec.Ap[0],
			MassDensity: v[msis.MassDensity],
			N2:          v[msis.N2],
			O2:          v[msis.O2],
			O:           v[msis.O],
			He:          v[msis.He],
			H:           v[msis.H],
			Ar:          v[msis.Ar],
			N:           v[msis.N],
			AnomalousO:  v[msis.AnomalousO],
			NO:          v[msis.NO],
			Temperature: v[msis.Temperature],
		}
	}
	return rows, nil
}
