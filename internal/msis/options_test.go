package msis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_DefaultsAllOn(t *testing.T) {
	o, err := EncodeOptions(nil)
	require.NoError(t, err)
	for i, v := range o {
		assert.Equal(t, 1.0, v, "option %d", i)
	}
	assert.False(t, o.StormTime())
}

func TestEncode_NamedSwitches(t *testing.T) {
	o, err := EncodeOptions(map[string]float64{
		"diurnal":              0,
		"geomagnetic_activity": -1,
		"Terdiurnal":           0,
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, o.Get(SwitchDiurnal))
	assert.Equal(t, 0.0, o.Get(SwitchTerdiurnal))
	assert.True(t, o.StormTime())
	assert.Equal(t, 1.0, o.Get(SwitchAsymmetricalSemiannual))
	assert.Equal(t, 1.0, o[NumOptions-1], "tail stays on")
}

func TestEncode_SwitchOrder(t *testing.T) {
	assert.Equal(t, 14, len(SwitchNames()))
	assert.Equal(t, Switch(0), SwitchF107)
	assert.Equal(t, Switch(6), SwitchDiurnal)
	assert.Equal(t, Switch(8), SwitchGeomagneticActivity)
	assert.Equal(t, Switch(13), SwitchTerdiurnal)
	assert.Equal(t, "mixed_ap_ut_long", SwitchMixedApUTLong.String())
}

func TestEncode_UnknownName(t *testing.T) {
	_, err := EncodeOptions(map[string]float64{"diurnal": 0, "lunar_tides": 0})
	require.Error(t, err)

	var unk *UnknownOptionError
	require.True(t, errors.As(err, &unk))
	assert.Equal(t, "lunar_tides", unk.Name)
}

func TestEncode_ReportsEveryBadEntry(t *testing.T) {
	_, err := EncodeOptions(map[string]float64{
		"lunar_tides": 0,
		"diurnal":     math.NaN(),
		"solar_wind":  1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "lunar_tides")
	assert.Contains(t, err.Error(), "solar_wind")
	assert.Contains(t, err.Error(), "3 errors occurred")
}

func TestEncode_StormTimeDefault(t *testing.T) {
	o, err := Encoder{StormTime: true}.Encode(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, -1.0, o.Get(SwitchGeomagneticActivity))

	o, err = Encoder{StormTime: true}.Encode(map[string]float64{"geomagnetic_activity": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, o.Get(SwitchGeomagneticActivity))
}

func TestEncode_Override(t *testing.T) {
	override := make([]float64, NumOptions)
	override[3] = 2

	o, err := Encoder{}.Encode(map[string]float64{"diurnal": 1}, override)
	require.NoError(t, err)
	assert.Equal(t, override, o.Slice())

	_, err = Encoder{}.Encode(nil, make([]float64, 14))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestParseVersion(t *testing.T) {
	cases := map[string]Version{
		"0":     Version00,
		"00":    Version00,
		"2":     Version21,
		"2.0":   Version20,
		"2.1":   Version21,
		"2.10":  Version21,
		"2.1.0": Version21,
		" 2.0 ": Version20,
	}
	for in, want := range cases {
		got, err := ParseVersion(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"1.5", "", "0.5", "3"} {
		_, err := ParseVersion(bad)
		assert.ErrorIs(t, err, ErrUnknownVersion, bad)
	}
	assert.True(t, Version21.HasNO())
	assert.False(t, Version20.HasNO())
}
