package solar

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexBatch_AddRecord(t *testing.T) {
	r := synthTable(t, 1).Records()[0]
	r.SSN = math.NaN()

	b := NewIndexBatch()
	b.AddRecord(r, "SW-All.csv")
	require.Equal(t, BinsPerDay, b.Len())

	assert.Equal(t, float32(3), (*b.ApIndex)[3])
	assert.Equal(t, float32(-1), (*b.SSN)[0], "missing written as -1")
	assert.Equal(t, float32(100), (*b.ObservedFlux)[7])
	assert.Equal(t, r.BinTime(7), b.Time.Row(7).UTC())
	assert.Equal(t, float32(150), (*b.F107Avg81)[0])
	assert.Equal(t, int8(KindObserved), (*b.FluxKind)[0])

	b.Reset()
	assert.Equal(t, 0, b.Len())
}

func TestAssembleBuckets(t *testing.T) {
	var rows []BucketRow
	for d := 0; d < 2; d++ {
		for bin := 0; bin < BinsPerDay; bin++ {
			if d == 1 && bin == 4 {
				continue
			}
			rows = append(rows, BucketRow{
				Time:         start.AddDate(0, 0, d).Add(time.Duration(bin) * 3 * time.Hour),
				ObservedFlux: 120,
				AdjustedFlux: 118,
				SSN:          -1,
				Kp:           2,
				Ap:           float32(bin),
			})
		}
	}

	table, err := AssembleBuckets(rows)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	day0, err := table.Lookup(start)
	require.NoError(t, err)
	assert.Equal(t, 3.5, day0.DailyAp)
	assert.Equal(t, 7.0, day0.Ap[7])
	assert.Equal(t, 120.0, day0.F107)
	assert.True(t, math.IsNaN(day0.SSN))

	day1, err := table.Lookup(start.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(day1.Ap[4]))
	assert.True(t, math.IsNaN(day1.DailyAp))
}

// bucketsFromBatch reads the batch columns back the way ReadClickHouse
// scans them.
func bucketsFromBatch(b *IndexBatch) []BucketRow {
	rows := make([]BucketRow, b.Len())
	for i := range rows {
		rows[i] = BucketRow{
			Time:         b.Time.Row(i),
			ObservedFlux: (*b.ObservedFlux)[i],
			AdjustedFlux: (*b.AdjustedFlux)[i],
			SSN:          (*b.SSN)[i],
			Kp:           (*b.KpIndex)[i],
			Ap:           (*b.ApIndex)[i],
			F107Avg81:    (*b.F107Avg81)[i],
			FluxKind:     (*b.FluxKind)[i],
		}
	}
	return rows
}

func TestAssembleBuckets_KeepsAverageAndKind(t *testing.T) {
	records := append([]Record(nil), synthTable(t, 4).Records()...)
	records[2].Kind = KindPredicted

	b := NewIndexBatch()
	for _, r := range records {
		b.AddRecord(r, "SW-All.csv")
	}

	table, err := AssembleBuckets(bucketsFromBatch(b))
	require.NoError(t, err)
	require.Equal(t, 4, table.Len())

	day2, err := table.Lookup(start.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, KindPredicted, day2.Kind)
	assert.Equal(t, 150.0, day2.F107Avg81, "stored average, not recomputed")

	idx, err := NewAligner(table).Align(start.AddDate(0, 0, 3).Add(12 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 102.0, idx.F107)
	assert.Equal(t, 150.0, idx.F107a)
	assert.True(t, idx.Estimated)

	idx, err = NewAligner(table).Align(start.AddDate(0, 0, 2).Add(12 * time.Hour))
	require.NoError(t, err)
	assert.False(t, idx.Estimated)
}

func TestAssembleBuckets_RecomputesMissingAverage(t *testing.T) {
	var rows []BucketRow
	for bin := 0; bin < BinsPerDay; bin++ {
		rows = append(rows, BucketRow{
			Time:         start.Add(time.Duration(bin) * 3 * time.Hour),
			ObservedFlux: 120,
			AdjustedFlux: 118,
			Ap:           4,
			F107Avg81:    -1,
		})
	}
	table, err := AssembleBuckets(rows)
	require.NoError(t, err)

	day, err := table.Lookup(start)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(day.F107Avg81), "one day cannot fill an 81-day window")
	assert.Equal(t, KindObserved, day.Kind)
}
