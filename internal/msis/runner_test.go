package msis

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/common"
)

// stubModel writes the record altitude into every slot and the sentinel
// into NO.
type stubModel struct {
	mu       sync.Mutex
	inits    []OptionSet
	fail     error
	sentinel float64 // MissingValue when zero
}

func (m *stubModel) Version() Version { return Version20 }

func (m *stubModel) Init(opts OptionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inits = append(m.inits, opts)
	return nil
}

func (m *stubModel) Calc(recs []CallRecord, out []float64) error {
	if m.fail != nil {
		return m.fail
	}
	for i, r := range recs {
		for v := 0; v < NumVariables; v++ {
			out[i*NumVariables+v] = r.Alt
		}
		out[i*NumVariables+int(NO)] = MissingValue
		if m.sentinel != 0 {
			out[i*NumVariables+int(NO)] = m.sentinel
		}
	}
	return nil
}

func scalarQuery(alts ...float64) Query {
	return Query{
		Times: []time.Time{epoch},
		Lons:  []float64{0}, Lats: []float64{0}, Alts: alts,
		F107: []float64{150}, F107a: []float64{150}, Ap: [][7]float64{{4, 4, 4, 4, 4, 4, 4}},
	}
}

func TestRunner_ScalarShapeAndSqueeze(t *testing.T) {
	r := NewRunner(&stubModel{}, 1, nil)
	out, err := r.Evaluate(context.Background(), scalarQuery(400), nil, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1, 1, 1, NumVariables}, out.Dims())
	sq := out.Squeeze()
	assert.Equal(t, []int{NumVariables}, sq.Dims())
	assert.Equal(t, 400.0, sq.Value(Temperature))
	assert.Equal(t, 400.0, out.Value(MassDensity, 0, 0, 0, 0))
}

func TestRunner_SentinelBecomesNaN(t *testing.T) {
	r := NewRunner(&stubModel{}, 1, nil)
	out, err := r.Evaluate(context.Background(), scalarQuery(100, 200), nil, DefaultOptions())
	require.NoError(t, err)

	for _, v := range out.Column(NO) {
		assert.True(t, math.IsNaN(v))
	}
	assert.Equal(t, []float64{100, 200}, out.Column(Temperature))
}

func TestRunner_SinglePrecisionSentinelBecomesNaN(t *testing.T) {
	widened := float64(float32(MissingValue))
	require.NotEqual(t, MissingValue, widened)

	r := NewRunner(&stubModel{sentinel: widened}, 1, nil)
	out, err := r.Evaluate(context.Background(), scalarQuery(100, 200), nil, DefaultOptions())
	require.NoError(t, err)

	for _, v := range out.Column(NO) {
		assert.True(t, math.IsNaN(v))
	}
}

func TestIsMissing(t *testing.T) {
	assert.True(t, IsMissing(MissingValue))
	assert.True(t, IsMissing(float64(float32(MissingValue))))
	assert.False(t, IsMissing(0))
	assert.False(t, IsMissing(1e-40))
	assert.False(t, IsMissing(5e-37))
	assert.False(t, IsMissing(math.NaN()))
}

func TestRunner_InitOnlyOnOptionChange(t *testing.T) {
	m := &stubModel{}
	r := NewRunner(m, 1, nil)
	ctx := context.Background()

	_, err := r.Evaluate(ctx, scalarQuery(100), nil, DefaultOptions())
	require.NoError(t, err)
	_, err = r.Evaluate(ctx, scalarQuery(200), nil, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, m.inits, 1)

	opts, err := EncodeOptions(map[string]float64{"diurnal": 0})
	require.NoError(t, err)
	_, err = r.Evaluate(ctx, scalarQuery(100), nil, opts)
	require.NoError(t, err)
	require.Len(t, m.inits, 2)
	assert.Equal(t, 0.0, m.inits[1].Get(SwitchDiurnal))
}

func TestRunner_ParallelMatchesSequential(t *testing.T) {
	alts := Arange(0, 1000, 1)
	q := scalarQuery(alts...)

	stats := common.NewStats()
	par := NewRunner(&stubModel{}, 4, stats)
	seq := NewRunner(&stubModel{}, 1, nil)

	a, err := par.Evaluate(context.Background(), q, nil, DefaultOptions())
	require.NoError(t, err)
	b, err := seq.Evaluate(context.Background(), q, nil, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, b.Column(Temperature), a.Column(Temperature))
	assert.Equal(t, uint64(len(alts)), stats.GetPoints())
	assert.Equal(t, uint64(4), stats.GetCalls())
}

func TestRunner_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewRunner(nil, 1, nil).Evaluate(ctx, scalarQuery(100), nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrModelInvocation)

	_, err = NewRunner(&stubModel{}, 1, nil).Run(ctx, &Grid{})
	assert.ErrorIs(t, err, ErrEmptyGrid)

	m := &stubModel{fail: errors.New("segfault in the linked library")}
	_, err = NewRunner(m, 1, nil).Evaluate(ctx, scalarQuery(100), nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrModelInvocation)
}

func TestRunner_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(&stubModel{}, 1, nil).Evaluate(ctx, scalarQuery(100), nil, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}
