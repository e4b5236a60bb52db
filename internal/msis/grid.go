package msis

import (
	"fmt"
	"math"
	"time"

	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/common"
	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/solar"
)

// IndexAligner derives activity inputs for evaluation times.
// *solar.Aligner implements it.
type IndexAligner interface {
	AlignAll(times []time.Time) ([]solar.Indices, bool, error)
}

// Query describes the points to evaluate.
//
// In grid mode (the default) the output is the outer product
// Times x Lons x Lats x Alts. In paired mode the four slices must have the
// same length and describe individual points.
//
// F107, F107a and Ap are per time (length ntime) or a single value that is
// broadcast. A nil slice is derived from the index data.
type Query struct {
	Times []time.Time
	Lons  []float64 // degrees
	Lats  []float64 // degrees
	Alts  []float64 // km

	F107  []float64
	F107a []float64
	Ap    [][7]float64

	Paired bool
}

// CallRecord is one model evaluation point.
type CallRecord struct {
	Time      time.Time
	DayOfYear float64 // 1-366
	UTSeconds float64
	Lon       float64
	Lat       float64
	Alt       float64
	F107      float64
	F107a     float64
	Ap        [7]float64
}

// Grid is a flattened, ready-to-run query.
type Grid struct {
	Shape   []int // (ntime, nlon, nlat, nalt) or (n) when paired
	Records []CallRecord
	Options OptionSet

	// Estimated is set when derived F10.7 came from interpolated or
	// predicted data.
	Estimated bool
}

// Len returns the number of points.
func (g *Grid) Len() int {
	return len(g.Records)
}

// Index returns the flat record position of a grid coordinate.
// It panics when idx does not address a point of the grid.
func (g *Grid) Index(idx ...int) int {
	return flatIndex(g.Shape, idx)
}

// Record returns the record at a grid coordinate.
func (g *Grid) Record(idx ...int) CallRecord {
	return g.Records[g.Index(idx...)]
}

// InferShape returns the leading shape of the output for q.
func InferShape(q Query) ([]int, error) {
	nt, nlon, nlat, nalt := len(q.Times), len(q.Lons), len(q.Lats), len(q.Alts)
	if q.Paired {
		if nlon != nt || nlat != nt || nalt != nt {
			return nil, fmt.Errorf("paired lengths time=%d lon=%d lat=%d alt=%d: %w",
				nt, nlon, nlat, nalt, ErrShapeMismatch)
		}
		if nt == 0 {
			return nil, ErrEmptyGrid
		}
		return []int{nt}, nil
	}
	if nt == 0 || nlon == 0 || nlat == 0 || nalt == 0 {
		return nil, fmt.Errorf("shape (%d, %d, %d, %d): %w", nt, nlon, nlat, nalt, ErrEmptyGrid)
	}
	return []int{nt, nlon, nlat, nalt}, nil
}

// Compose validates q, fills missing activity inputs from aligner and
// flattens the result row-major with altitude varying fastest.
// aligner may be nil when q carries all activity inputs.
func Compose(q Query, aligner IndexAligner, opts OptionSet) (*Grid, error) {
	shape, err := InferShape(q)
	if err != nil {
		return nil, err
	}
	nt := len(q.Times)

	if err := checkFinite("lon", q.Lons); err != nil {
		return nil, err
	}
	if err := checkFinite("lat", q.Lats); err != nil {
		return nil, err
	}
	if err := checkFinite("alt", q.Alts); err != nil {
		return nil, err
	}
	for _, c := range []struct {
		name string
		n    int
		set  bool
	}{
		{"f107", len(q.F107), q.F107 != nil},
		{"f107a", len(q.F107a), q.F107a != nil},
		{"ap", len(q.Ap), q.Ap != nil},
	} {
		if c.set && c.n != 1 && c.n != nt {
			return nil, fmt.Errorf("%s has %d values for %d times: %w", c.name, c.n, nt, ErrShapeMismatch)
		}
	}
	if err := checkFinite("f107", q.F107); err != nil {
		return nil, err
	}
	if err := checkFinite("f107a", q.F107a); err != nil {
		return nil, err
	}
	for i, ap := range q.Ap {
		if err := checkFinite(fmt.Sprintf("ap[%d]", i), ap[:]); err != nil {
			return nil, err
		}
	}

	f107, f107a, ap := q.F107, q.F107a, q.Ap
	estimated := false
	if f107 == nil || f107a == nil || ap == nil {
		if aligner == nil {
			return nil, fmt.Errorf("activity inputs missing and no index data: %w", solar.ErrDataUnavailable)
		}
		derived, est, err := aligner.AlignAll(q.Times)
		if err != nil {
			return nil, err
		}
		if f107 == nil {
			f107 = make([]float64, nt)
			for i, d := range derived {
				f107[i] = d.F107
			}
			estimated = est
		}
		if f107a == nil {
			f107a = make([]float64, nt)
			for i, d := range derived {
				f107a[i] = d.F107a
			}
		}
		if ap == nil {
			ap = make([][7]float64, nt)
			for i, d := range derived {
				ap[i] = d.Ap
			}
		}
	}
	if estimated {
		common.Warnf("F10.7 data was interpolated or predicted rather than observed for part of the requested period")
	}

	g := &Grid{Shape: shape, Options: opts, Estimated: estimated}
	if q.Paired {
		g.Records = make([]CallRecord, nt)
		for i := range q.Times {
			g.Records[i] = newCallRecord(q.Times[i], q.Lons[i], q.Lats[i], q.Alts[i],
				pick(f107, i), pick(f107a, i), pickAp(ap, i))
		}
		return g, nil
	}

	g.Records = make([]CallRecord, 0, nt*len(q.Lons)*len(q.Lats)*len(q.Alts))
	for i, t := range q.Times {
		fi, fai, api := pick(f107, i), pick(f107a, i), pickAp(ap, i)
		for _, lon := range q.Lons {
			for _, lat := range q.Lats {
				for _, alt := range q.Alts {
					g.Records = append(g.Records, newCallRecord(t, lon, lat, alt, fi, fai, api))
				}
			}
		}
	}
	return g, nil
}

func newCallRecord(t time.Time, lon, lat, alt, f107, f107a float64, ap [7]float64) CallRecord {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return CallRecord{
		Time:      t,
		DayOfYear: float64(t.YearDay()),
		UTSeconds: t.Sub(midnight).Seconds(),
		Lon:       lon,
		Lat:       lat,
		Alt:       alt,
		F107:      f107,
		F107a:     f107a,
		Ap:        ap,
	}
}

func pick(v []float64, i int) float64 {
	if len(v) == 1 {
		return v[0]
	}
	return v[i]
}

func pickAp(v [][7]float64, i int) [7]float64 {
	if len(v) == 1 {
		return v[0]
	}
	return v[i]
}

func checkFinite(name string, v []float64) error {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%s[%d] is %v: %w", name, i, x, ErrInvalidInput)
		}
	}
	return nil
}

func flatIndex(shape, idx []int) int {
	if len(idx) != len(shape) {
		panic(fmt.Sprintf("msis: %d indices for %d dimensions", len(idx), len(shape)))
	}
	pos := 0
	for d, i := range idx {
		if i < 0 || i >= shape[d] {
			panic(fmt.Sprintf("msis: index %d out of range for dimension %d of size %d", i, d, shape[d]))
		}
		pos = pos*shape[d] + i
	}
	return pos
}

// Scalar wraps a single value as a length-1 axis.
func Scalar(v float64) []float64 { return []float64{v} }

// At wraps a single time as a length-1 axis.
func At(t time.Time) []time.Time { return []time.Time{t} }

// DailyAp repeats one Ap value into every slot of the ap vector.
func DailyAp(ap float64) [7]float64 {
	return [7]float64{ap, ap, ap, ap, ap, ap, ap}
}

// Arange returns start, start+step, ... up to but excluding stop.
func Arange(start, stop, step float64) []float64 {
	if step == 0 || (stop-start)/step <= 0 {
		return nil
	}
	n := int(math.Ceil((stop - start) / step))
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// TimeRange returns times from start up to but excluding end.
func TimeRange(start, end time.Time, step time.Duration) []time.Time {
	if step <= 0 {
		return nil
	}
	var out []time.Time
	for t := start; t.Before(end); t = t.Add(step) {
		out = append(out, t)
	}
	return out
}
