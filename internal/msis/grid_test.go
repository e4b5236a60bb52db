package msis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/solar"
)

type fakeAligner struct {
	calls     int
	estimated bool
	err       error
}

func (f *fakeAligner) AlignAll(times []time.Time) ([]solar.Indices, bool, error) {
	f.calls++
	if f.err != nil {
		return nil, false, f.err
	}
	out := make([]solar.Indices, len(times))
	for i := range times {
		v := float64(100 + i)
		out[i] = solar.Indices{F107: v, F107a: v + 0.5, Ap: [7]float64{v, v, v, v, v, v, v}}
	}
	return out, f.estimated, nil
}

var epoch = time.Date(2003, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCompose_ScalarQuery(t *testing.T) {
	q := Query{
		Times: At(epoch.Add(90 * time.Minute)),
		Lons:  Scalar(-70), Lats: Scalar(40), Alts: Scalar(400),
		F107: Scalar(150), F107a: Scalar(150), Ap: [][7]float64{DailyAp(4)},
	}
	g, err := Compose(q, nil, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1, 1, 1}, g.Shape)
	require.Equal(t, 1, g.Len())
	rec := g.Records[0]
	assert.Equal(t, 1.0, rec.DayOfYear)
	assert.Equal(t, 5400.0, rec.UTSeconds)
	assert.Equal(t, 400.0, rec.Alt)
	assert.False(t, g.Estimated)
}

func TestCompose_RowMajorAltFastest(t *testing.T) {
	q := Query{
		Times: []time.Time{epoch, epoch.Add(time.Hour)},
		Lons:  []float64{0},
		Lats:  []float64{10},
		Alts:  []float64{100, 200},
		F107:  []float64{120, 130}, F107a: []float64{140}, Ap: [][7]float64{{}},
	}
	g, err := Compose(q, nil, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []int{2, 1, 1, 2}, g.Shape)
	require.Equal(t, 4, g.Len())
	assert.Equal(t, 200.0, g.Records[1].Alt)
	assert.Equal(t, 3600.0, g.Records[2].UTSeconds)
	assert.Equal(t, 3, g.Index(1, 0, 0, 1))

	// per-time flux, broadcast average
	assert.Equal(t, 120.0, g.Record(0, 0, 0, 1).F107)
	assert.Equal(t, 130.0, g.Record(1, 0, 0, 0).F107)
	assert.Equal(t, 140.0, g.Record(1, 0, 0, 1).F107a)
}

func TestCompose_Paired(t *testing.T) {
	q := Query{
		Times:  []time.Time{epoch, epoch.Add(time.Hour)},
		Lons:   []float64{0, 10},
		Lats:   []float64{20, 30},
		Alts:   []float64{100, 200},
		F107:   []float64{150}, F107a: []float64{150}, Ap: [][7]float64{{}},
		Paired: true,
	}
	g, err := Compose(q, nil, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []int{2}, g.Shape)
	require.Equal(t, 2, g.Len())
	assert.Equal(t, 10.0, g.Records[1].Lon)
	assert.Equal(t, 30.0, g.Records[1].Lat)

	q.Lats = []float64{20}
	_, err = Compose(q, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestCompose_EmptyAxis(t *testing.T) {
	q := Query{Times: []time.Time{epoch}, Lons: []float64{0}, Lats: nil, Alts: []float64{100}}
	_, err := Compose(q, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyGrid)
}

func TestCompose_ActivityLengthMismatch(t *testing.T) {
	q := Query{
		Times: []time.Time{epoch, epoch, epoch},
		Lons:  []float64{0}, Lats: []float64{0}, Alts: []float64{100},
		F107: []float64{1, 2}, F107a: []float64{150}, Ap: [][7]float64{{}},
	}
	_, err := Compose(q, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestCompose_RejectsNonFinite(t *testing.T) {
	q := Query{
		Times: []time.Time{epoch},
		Lons:  []float64{0}, Lats: []float64{math.NaN()}, Alts: []float64{100},
		F107: []float64{150}, F107a: []float64{150}, Ap: [][7]float64{{}},
	}
	_, err := Compose(q, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidInput)

	q.Lats = []float64{0}
	q.Ap = [][7]float64{{0, 0, math.Inf(1), 0, 0, 0, 0}}
	_, err = Compose(q, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCompose_DerivesOnlyMissing(t *testing.T) {
	a := &fakeAligner{estimated: true}
	q := Query{
		Times: []time.Time{epoch, epoch.Add(24 * time.Hour)},
		Lons:  []float64{0}, Lats: []float64{0}, Alts: []float64{100},
		F107a: []float64{99},
	}
	g, err := Compose(q, a, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 101.0, g.Records[1].F107)
	assert.Equal(t, 99.0, g.Records[1].F107a, "explicit value kept")
	assert.Equal(t, 101.0, g.Records[1].Ap[6])
	assert.True(t, g.Estimated)
}

func TestCompose_NoAlignerCall(t *testing.T) {
	a := &fakeAligner{}
	q := Query{
		Times: []time.Time{epoch},
		Lons:  []float64{0}, Lats: []float64{0}, Alts: []float64{100},
		F107: []float64{150}, F107a: []float64{150}, Ap: [][7]float64{{}},
	}
	_, err := Compose(q, a, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, a.calls)
}

func TestCompose_MissingIndexData(t *testing.T) {
	q := Query{Times: []time.Time{epoch}, Lons: []float64{0}, Lats: []float64{0}, Alts: []float64{100}}
	_, err := Compose(q, nil, DefaultOptions())
	assert.ErrorIs(t, err, solar.ErrDataUnavailable)

	_, err = Compose(q, &fakeAligner{err: solar.ErrDateOutOfRange}, DefaultOptions())
	assert.ErrorIs(t, err, solar.ErrDateOutOfRange)
}

func TestArange(t *testing.T) {
	assert.Equal(t, []float64{0, 5, 10}, Arange(0, 15, 5))
	assert.Equal(t, []float64{0, 5, 10, 15}, Arange(0, 16, 5))
	assert.Nil(t, Arange(0, 10, 0))
	assert.Nil(t, Arange(10, 0, 1))

	times := TimeRange(epoch, epoch.Add(3*time.Hour), time.Hour)
	assert.Len(t, times, 3)
}
