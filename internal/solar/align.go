package solar

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
)

// ApLagBins is how many 3-hour bins before the current one the ap window
// reaches back (the 36-57 h average ends 19 bins back).
const ApLagBins = 19

// Indices are the activity inputs for one evaluation time.
//
// Ap layout:
//
//	[0] daily Ap
//	[1] 3 hr ap index for the current time
//	[2] 3 hr ap index 3 hrs before the current time
//	[3] 3 hr ap index 6 hrs before the current time
//	[4] 3 hr ap index 9 hrs before the current time
//	[5] average of eight 3 hr ap indices 12 to 33 hrs before
//	[6] average of eight 3 hr ap indices 36 to 57 hrs before
type Indices struct {
	F107      float64 // daily F10.7 of the previous day
	F107a     float64 // 81-day average centered on the day
	Ap        [7]float64
	Estimated bool // F10.7 was interpolated or predicted, not observed
}

// Aligner derives lagged model inputs from a Table.
type Aligner struct {
	table *Table
}

// NewAligner creates an Aligner over t.
func NewAligner(t *Table) *Aligner {
	return &Aligner{table: t}
}

// Table returns the underlying table.
func (a *Aligner) Table() *Table {
	return a.table
}

// Coverage returns the earliest and latest instants whose full lag window
// lies inside the table. Values inside the table may still be missing.
func (a *Aligner) Coverage() (first, last time.Time) {
	first = a.table.First().Add(ApLagBins * 3 * time.Hour)
	last = a.table.Last().Add(day - time.Nanosecond)
	return first, last
}

// Align returns the indices for time t.
func (a *Aligner) Align(t time.Time) (Indices, error) {
	t = t.UTC()
	today, err := a.table.Lookup(t)
	if err != nil {
		return Indices{}, err
	}
	yesterday, err := a.table.Lookup(t.Add(-day))
	if err != nil {
		return Indices{}, a.lagError(t, err, "previous-day F10.7")
	}

	idx := Indices{
		F107:      yesterday.F107,
		F107a:     today.F107Avg81,
		Estimated: yesterday.Kind.Estimated(),
	}

	bin := t.Hour() / 3
	w := apWindow{table: a.table, day: today}
	series := make([]float64, ApLagBins+1) // series[k] = ap k bins before current
	for k := 0; k <= ApLagBins; k++ {
		v, err := w.at(bin - k)
		if err != nil {
			return Indices{}, a.lagError(t, err, fmt.Sprintf("ap %d h before", 3*k))
		}
		series[k] = v
	}

	idx.Ap[0] = today.DailyAp
	copy(idx.Ap[1:5], series[0:4])
	idx.Ap[5] = floats.Sum(series[4:12]) / 8
	idx.Ap[6] = floats.Sum(series[12:20]) / 8

	if isNaN(idx.F107) || isNaN(idx.F107a) {
		return Indices{}, a.missingValue(t, "F10.7")
	}
	for i, v := range idx.Ap {
		if isNaN(v) {
			return Indices{}, a.missingValue(t, fmt.Sprintf("ap[%d]", i))
		}
	}
	return idx, nil
}

// AlignAll aligns every time and reports whether any F10.7 was estimated.
func (a *Aligner) AlignAll(times []time.Time) ([]Indices, bool, error) {
	out := make([]Indices, len(times))
	estimated := false
	for i, t := range times {
		idx, err := a.Align(t)
		if err != nil {
			return nil, false, err
		}
		out[i] = idx
		estimated = estimated || idx.Estimated
	}
	return out, estimated, nil
}

func (a *Aligner) lagError(t time.Time, err error, what string) error {
	var e *DateOutOfRangeError
	if errors.As(err, &e) {
		return &DateOutOfRangeError{
			Date:   t,
			First:  e.First,
			Last:   e.Last,
			Reason: fmt.Sprintf("%s needs %s: %s", what, e.Date.Format("2006-01-02"), e.Reason),
		}
	}
	return err
}

func (a *Aligner) missingValue(t time.Time, what string) error {
	return &DateOutOfRangeError{
		Date:   t,
		First:  a.table.First(),
		Last:   a.table.Last(),
		Reason: what + " value missing in index data",
	}
}

// apWindow walks 3-hour bins backwards across day boundaries.
type apWindow struct {
	table *Table
	day   Record
	prev  []Record
}

func (w *apWindow) at(bin int) (float64, error) {
	back := 0
	for bin < 0 {
		bin += BinsPerDay
		back++
	}
	if back == 0 {
		return w.day.Ap[bin], nil
	}
	for len(w.prev) < back {
		r, err := w.table.Lookup(w.day.Date.Add(-time.Duration(len(w.prev)+1) * day))
		if err != nil {
			return 0, err
		}
		w.prev = append(w.prev, r)
	}
	return w.prev[back-1].Ap[bin], nil
}
