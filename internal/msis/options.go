package msis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// NumOptions is the length of the model switch vector.
const NumOptions = 25

// Switch is a named position in the switch vector. The order is the
// model's calling convention and must not change.
type Switch int

const (
	SwitchF107 Switch = iota
	SwitchTimeIndependent
	SwitchSymmetricalAnnual
	SwitchSymmetricalSemiannual
	SwitchAsymmetricalAnnual
	SwitchAsymmetricalSemiannual
	SwitchDiurnal
	SwitchSemidiurnal
	SwitchGeomagneticActivity // 1 = daily Ap, -1 = storm-time ap history
	SwitchAllUTEffects
	SwitchLongitudinal
	SwitchMixedUTLong
	SwitchMixedApUTLong
	SwitchTerdiurnal

	numNamedSwitches
)

var switchNames = [numNamedSwitches]string{
	"f107",
	"time_independent",
	"symmetrical_annual",
	"symmetrical_semiannual",
	"asymmetrical_annual",
	"asymmetrical_semiannual",
	"diurnal",
	"semidiurnal",
	"geomagnetic_activity",
	"all_ut_effects",
	"longitudinal",
	"mixed_ut_long",
	"mixed_ap_ut_long",
	"terdiurnal",
}

func (s Switch) String() string {
	if s < 0 || s >= numNamedSwitches {
		return fmt.Sprintf("switch(%d)", int(s))
	}
	return switchNames[s]
}

// SwitchNames returns the recognised switch names in vector order.
func SwitchNames() []string {
	return append([]string(nil), switchNames[:]...)
}

// LookupSwitch resolves a switch name.
func LookupSwitch(name string) (Switch, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, n := range switchNames {
		if n == key {
			return Switch(i), nil
		}
	}
	return 0, &UnknownOptionError{Name: name}
}

// UnknownOptionError reports a switch name the model does not know.
type UnknownOptionError struct {
	Name string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("msis: unknown option %q (known: %s)", e.Name, strings.Join(switchNames[:], ", "))
}

// OptionSet is the switch vector passed to the model.
type OptionSet [NumOptions]float64

// DefaultOptions has every switch on and daily-Ap geomagnetic mode.
func DefaultOptions() OptionSet {
	var o OptionSet
	for i := range o {
		o[i] = 1
	}
	return o
}

// Get returns the value of a named switch.
func (o OptionSet) Get(s Switch) float64 {
	return o[s]
}

// On reports whether a switch contributes at all.
func (o OptionSet) On(s Switch) bool {
	return o[s] != 0
}

// StormTime reports whether the geomagnetic term uses the ap history.
func (o OptionSet) StormTime() bool {
	return o[SwitchGeomagneticActivity] == -1
}

// Slice returns the vector as a slice.
func (o OptionSet) Slice() []float64 {
	return append([]float64(nil), o[:]...)
}

// Encoder builds OptionSets from named switches.
type Encoder struct {
	// StormTime makes -1 (storm-time ap history) the default for the
	// geomagnetic switch instead of 1 (daily Ap).
	StormTime bool
}

// Default returns the vector used when no switches are given.
func (e Encoder) Default() OptionSet {
	o := DefaultOptions()
	if e.StormTime {
		o[SwitchGeomagneticActivity] = -1
	}
	return o
}

// Encode returns the switch vector. A non-nil override replaces the whole
// vector and switches are ignored. Names are validated before anything is
// applied.
func (e Encoder) Encode(switches map[string]float64, override []float64) (OptionSet, error) {
	var o OptionSet
	if override != nil {
		if len(override) != NumOptions {
			return o, fmt.Errorf("options need %d values, got %d: %w", NumOptions, len(override), ErrShapeMismatch)
		}
		for i, v := range override {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return o, fmt.Errorf("option %d is %v: %w", i, v, ErrInvalidInput)
			}
			o[i] = v
		}
		return o, nil
	}

	names := make([]string, 0, len(switches))
	for name := range switches {
		names = append(names, name)
	}
	sort.Strings(names)

	// Every bad entry is reported, not just the first.
	var merr *multierror.Error
	resolved := make(map[Switch]float64, len(switches))
	for _, name := range names {
		s, err := LookupSwitch(name)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		v := switches[name]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			merr = multierror.Append(merr, fmt.Errorf("option %s is %v: %w", name, v, ErrInvalidInput))
			continue
		}
		resolved[s] = v
	}
	if err := merr.ErrorOrNil(); err != nil {
		return OptionSet{}, err
	}

	o = e.Default()
	for s, v := range resolved {
		o[s] = v
	}
	return o, nil
}

// EncodeOptions encodes with the daily-Ap default.
func EncodeOptions(switches map[string]float64) (OptionSet, error) {
	return Encoder{}.Encode(switches, nil)
}
