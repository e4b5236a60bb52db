package msis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func TestTensor_Indexing(t *testing.T) {
	tn, err := NewTensor([]int{2, 1, 1, 3}, seq(6*NumVariables))
	require.NoError(t, err)

	assert.Equal(t, 6, tn.Points())
	assert.Equal(t, []int{2, 1, 1, 3, NumVariables}, tn.Dims())
	// point (1,0,0,2) is flat row 5
	assert.Equal(t, float64(5*NumVariables+int(Temperature)), tn.Value(Temperature, 1, 0, 0, 2))
	assert.Equal(t, tn.Row(5), tn.At(1, 0, 0, 2))
}

func TestTensor_SqueezeKeepsVariableAxis(t *testing.T) {
	tn, err := NewTensor([]int{1, 1, 1, 1}, seq(NumVariables))
	require.NoError(t, err)

	sq := tn.Squeeze()
	assert.Empty(t, sq.Shape())
	assert.Equal(t, []int{NumVariables}, sq.Dims())
	assert.Equal(t, float64(Temperature), sq.Value(Temperature))

	tn, err = NewTensor([]int{1, 4, 1, 1}, seq(4*NumVariables))
	require.NoError(t, err)
	assert.Equal(t, []int{4, NumVariables}, tn.Squeeze().Dims())
}

func TestTensor_Errors(t *testing.T) {
	_, err := NewTensor([]int{2, 2}, seq(3*NumVariables))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = NewTensor([]int{0, 2}, nil)
	assert.ErrorIs(t, err, ErrEmptyGrid)

	tn, err := NewTensor([]int{2}, seq(2*NumVariables))
	require.NoError(t, err)
	assert.Panics(t, func() { tn.At(2) })
	assert.Panics(t, func() { tn.At(0, 0) })
}
