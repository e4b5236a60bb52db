// Package solar provides space weather index handling for the
// atmosphere model: parsing of the CelesTrak and GFZ Potsdam index files,
// a date-keyed table of daily records, an on-disk cached store and the
// aligner that derives the lagged F10.7/ap inputs the model expects.
package solar

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// SchemaVersion is the current solar schema version.
const SchemaVersion = 2

// BinsPerDay is the number of 3-hour ap bins in a UTC day.
const BinsPerDay = 8

const day = 24 * time.Hour

// Kind marks how a daily F10.7 value was obtained.
type Kind int8

const (
	KindObserved Kind = iota
	KindInterpolated
	KindPredicted
)

func (k Kind) String() string {
	switch k {
	case KindInterpolated:
		return "INT"
	case KindPredicted:
		return "PRD"
	default:
		return "OBS"
	}
}

// Estimated reports whether the value was not directly observed.
func (k Kind) Estimated() bool {
	return k != KindObserved
}

// Record is one UTC day of indices. Missing values are NaN.
type Record struct {
	Date      time.Time           // UTC midnight
	F107      float64             // observed daily F10.7 (SFU)
	F107Adj   float64             // F10.7 adjusted to 1 AU
	F107Avg81 float64             // 81-day average centered on Date
	Ap        [BinsPerDay]float64 // 3-hourly ap, bins start 00, 03, ..., 21 UTC
	Kp        [BinsPerDay]float64 // 3-hourly Kp (0-9 scale)
	DailyAp   float64
	SSN       float64 // sunspot number
	Kind      Kind    // provenance of F10.7
}

// BinTime returns the start of 3-hour bin i of the record's day.
func (r Record) BinTime(i int) time.Time {
	return r.Date.Add(time.Duration(i) * 3 * time.Hour)
}

var (
	// ErrDataUnavailable means the index source is missing or corrupt.
	ErrDataUnavailable = errors.New("solar: index data unavailable")

	// ErrDateOutOfRange is matched by every *DateOutOfRangeError.
	ErrDateOutOfRange = errors.New("solar: date outside index coverage")
)

// DateOutOfRangeError reports a lookup the table cannot answer.
type DateOutOfRangeError struct {
	Date        time.Time
	First, Last time.Time
	Reason      string
}

func (e *DateOutOfRangeError) Error() string {
	return fmt.Sprintf("solar: no index data for %s (coverage %s to %s): %s",
		e.Date.Format(time.RFC3339), e.First.Format("2006-01-02"), e.Last.Format("2006-01-02"), e.Reason)
}

// Is makes errors.Is(err, ErrDateOutOfRange) true.
func (e *DateOutOfRangeError) Is(target error) bool {
	return target == ErrDateOutOfRange
}

// Table is an immutable, chronologically ordered set of daily records.
type Table struct {
	records []Record
}

// NewTable validates and wraps records. Dates are truncated to UTC days and
// must be strictly increasing.
func NewTable(records []Record) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("empty index table: %w", ErrDataUnavailable)
	}
	out := make([]Record, len(records))
	copy(out, records)
	for i := range out {
		out[i].Date = truncateDay(out[i].Date)
		if i > 0 && !out[i].Date.After(out[i-1].Date) {
			return nil, fmt.Errorf("index rows out of order or duplicated at %s: %w",
				out[i].Date.Format("2006-01-02"), ErrDataUnavailable)
		}
	}
	return &Table{records: out}, nil
}

// Len returns the number of daily records.
func (t *Table) Len() int {
	return len(t.records)
}

// First returns the date of the first record.
func (t *Table) First() time.Time {
	return t.records[0].Date
}

// Last returns the date of the last record.
func (t *Table) Last() time.Time {
	return t.records[len(t.records)-1].Date
}

// Records returns a copy of the records.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Lookup returns the record for the UTC day containing date.
func (t *Table) Lookup(date time.Time) (Record, error) {
	d := truncateDay(date)
	if d.Before(t.First()) {
		return Record{}, t.outOfRange(date, "before first record")
	}
	if d.After(t.Last()) {
		return Record{}, t.outOfRange(date, "after last record")
	}
	i := sort.Search(len(t.records), func(i int) bool {
		return !t.records[i].Date.Before(d)
	})
	if i == len(t.records) || !t.records[i].Date.Equal(d) {
		return Record{}, t.outOfRange(date, "missing day in index table")
	}
	return t.records[i], nil
}

// Gaps returns the days between First and Last that have no record.
func (t *Table) Gaps() []time.Time {
	var gaps []time.Time
	for i := 1; i < len(t.records); i++ {
		for d := t.records[i-1].Date.Add(day); d.Before(t.records[i].Date); d = d.Add(day) {
			gaps = append(gaps, d)
		}
	}
	return gaps
}

func (t *Table) outOfRange(date time.Time, reason string) *DateOutOfRangeError {
	return &DateOutOfRangeError{Date: date, First: t.First(), Last: t.Last(), Reason: reason}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nan() float64 { return math.NaN() }

func isNaN(v float64) bool { return math.IsNaN(v) }
