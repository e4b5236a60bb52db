package msis

import (
	"fmt"
	"strings"
)

// Version selects a model formulation.
type Version string

const (
	Version00 Version = "0"   // NRLMSISE-00
	Version20 Version = "2.0" // NRLMSIS 2.0
	Version21 Version = "2.1" // NRLMSIS 2.1, adds NO
)

// ParseVersion accepts "0", "00" and "0.0" for NRLMSISE-00 and "2.0" for
// NRLMSIS 2.0. Any other value starting with "2" ("2", "2.1", "2.1.0")
// selects the latest 2.x release.
func ParseVersion(s string) (Version, error) {
	v := strings.TrimSpace(s)
	switch {
	case v == "0", v == "00", v == "0.0":
		return Version00, nil
	case v == "2.0":
		return Version20, nil
	case strings.HasPrefix(v, "2"):
		return Version21, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownVersion)
}

// HasNO reports whether the version models nitric oxide.
func (v Version) HasNO() bool {
	return v == Version21
}

// Model is a point-wise atmosphere model. Calc fills out with
// NumVariables values per record, in Variable order. Implementations may
// write MissingValue for outputs they do not define.
//
// Init is called before the first Calc and whenever the options change.
// Calc may be called concurrently on disjoint slices after Init returns.
type Model interface {
	Version() Version
	Init(opts OptionSet) error
	Calc(recs []CallRecord, out []float64) error
}
