// Package msis assembles inputs for the NRLMSIS upper-atmosphere model,
// drives a model implementation over them and reshapes the output.
//
// Pipeline:
//   - Encoder turns named switches into the 25-element OptionSet
//   - Compose broadcasts time/lon/lat/alt into a Grid of CallRecords,
//     deriving missing F10.7/ap values through an IndexAligner
//   - Runner evaluates a Model over the Grid and returns a Tensor
//     shaped (ntime, nlon, nlat, nalt, NumVariables)
package msis

import (
	"errors"
	"math"
)

// NumVariables is the number of values the model returns per point.
const NumVariables = 11

// MissingValue is the model's marker for an undefined output.
const MissingValue = 9.9e-38

// missingTolerance absorbs the marker arriving through single precision.
// It stays below the marker so tiny real densities are kept.
const missingTolerance = 1e-38

// IsMissing reports whether v is the model's missing-value marker.
func IsMissing(v float64) bool {
	return math.Abs(v-MissingValue) <= missingTolerance
}

// Variable indexes the model output vector.
type Variable int

const (
	MassDensity Variable = iota // total mass density, kg/m3
	N2                          // number density, m-3
	O2
	O
	He
	H
	Ar
	N
	AnomalousO
	NO
	Temperature // K
)

var variableNames = [NumVariables]string{
	"mass_density", "N2", "O2", "O", "He", "H", "Ar", "N", "anomalous_O", "NO", "temperature",
}

var variableUnits = [NumVariables]string{
	"kg/m3", "m-3", "m-3", "m-3", "m-3", "m-3", "m-3", "m-3", "m-3", "m-3", "K",
}

func (v Variable) String() string {
	if v < 0 || int(v) >= NumVariables {
		return "unknown"
	}
	return variableNames[v]
}

// Unit returns the physical unit of the variable.
func (v Variable) Unit() string {
	if v < 0 || int(v) >= NumVariables {
		return ""
	}
	return variableUnits[v]
}

// Variables returns all variables in output order.
func Variables() []Variable {
	vs := make([]Variable, NumVariables)
	for i := range vs {
		vs[i] = Variable(i)
	}
	return vs
}

var (
	ErrShapeMismatch   = errors.New("msis: input shapes cannot be broadcast")
	ErrEmptyGrid       = errors.New("msis: grid has a zero-length dimension")
	ErrInvalidInput    = errors.New("msis: input has non-finite values")
	ErrModelInvocation = errors.New("msis: model invocation failed")
	ErrUnknownVersion  = errors.New("msis: unknown model version")
)
