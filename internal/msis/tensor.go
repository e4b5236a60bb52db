package msis

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor holds model output: one row of NumVariables values per point,
// addressed through the leading shape of the query.
type Tensor struct {
	shape []int
	data  *mat.Dense
}

// NewTensor wraps flat row-major output. len(flat) must equal the product
// of shape times NumVariables.
func NewTensor(shape []int, flat []float64) (*Tensor, error) {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("tensor dimension %d: %w", d, ErrEmptyGrid)
		}
		n *= d
	}
	if len(flat) != n*NumVariables {
		return nil, fmt.Errorf("tensor has %d values, shape %v needs %d: %w",
			len(flat), shape, n*NumVariables, ErrShapeMismatch)
	}
	return &Tensor{
		shape: append([]int(nil), shape...),
		data:  mat.NewDense(n, NumVariables, flat),
	}, nil
}

// Shape returns the leading (point) dimensions.
func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Dims returns the full shape including the variable axis.
func (t *Tensor) Dims() []int {
	return append(t.Shape(), NumVariables)
}

// Points returns the number of evaluated points.
func (t *Tensor) Points() int {
	r, _ := t.data.Dims()
	return r
}

// At returns a copy of the output vector at a point.
func (t *Tensor) At(idx ...int) []float64 {
	return mat.Row(nil, flatIndex(t.shape, idx), t.data)
}

// Value returns one variable at a point.
func (t *Tensor) Value(v Variable, idx ...int) float64 {
	return t.data.At(flatIndex(t.shape, idx), int(v))
}

// Row returns the output vector of the i-th point in flat order.
func (t *Tensor) Row(i int) []float64 {
	return mat.Row(nil, i, t.data)
}

// Column returns a variable across all points in flat order.
func (t *Tensor) Column(v Variable) []float64 {
	return mat.Col(nil, int(v), t.data)
}

// Matrix exposes the points x variables matrix.
func (t *Tensor) Matrix() mat.Matrix {
	return t.data
}

// Squeeze drops every point dimension of size 1. A scalar query squeezes
// to shape () and Dims (NumVariables). The variable axis is never removed.
func (t *Tensor) Squeeze() *Tensor {
	shape := make([]int, 0, len(t.shape))
	for _, d := range t.shape {
		if d != 1 {
			shape = append(shape, d)
		}
	}
	return &Tensor{shape: shape, data: t.data}
}
