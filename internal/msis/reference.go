package msis

import (
	"fmt"
	"math"
	"sync"
)

// Physical constants.
const (
	boltzmann = 1.380649e-23   // J/K
	amu       = 1.66053907e-27 // kg
	earthR    = 6356.766       // km, effective radius for gravity
	g0        = 9.80665        // m/s2

	zBase     = 120.0  // km, bottom of the diffusive region
	tBase     = 380.0  // K at zBase
	tFloor    = 180.0  // K
	lapseRate = 6.4    // K/km below zBase
	sigma     = 0.0291 // 1/km, Bates shape parameter
	meanMass  = 28.95  // amu, well-mixed air
	tHotO     = 4000.0 // K, scale temperature of anomalous oxygen
	stepKm    = 1.0    // integration step
	fluxRef   = 150.0  // F10.7 used when the flux switch is off
	minTinf   = 500.0
)

type species struct {
	v     Variable
	mass  float64 // amu
	n0    float64 // m-3 at zBase
	alpha float64 // thermal diffusion factor
}

var speciesTable = []species{
	{N2, 28.0134, 3.8e17, 0},
	{O2, 31.9988, 4.5e16, 0},
	{O, 15.9994, 8.0e16, 0},
	{He, 4.0026, 3.0e13, -0.38},
	{H, 1.00794, 3.0e11, -0.25},
	{Ar, 39.948, 1.4e15, 0},
	{N, 14.0067, 5.0e11, 0},
	{NO, 30.006, 3.0e13, 0},
}

// Anomalous oxygen is a hot population and does not follow the local
// temperature.
var anomalousO = species{AnomalousO, 15.9994, 1.0e8, 0}

// ReferenceModel is a closed-form thermosphere used when no native model
// library is linked. It follows the NRLMSIS structure: a Bates temperature
// profile above 120 km driven by an exospheric temperature that depends on
// solar flux, geomagnetic activity and the switch-gated seasonal and local
// time terms, diffusive equilibrium per species above 120 km and a
// well-mixed atmosphere below it.
//
// Calc is safe for concurrent use after Init.
type ReferenceModel struct {
	version Version

	mu          sync.RWMutex
	opts        OptionSet
	initialized bool
}

// NewReferenceModel creates a model reporting the given version. Versions
// before 2.1 return MissingValue for NO.
func NewReferenceModel(v Version) (*ReferenceModel, error) {
	parsed, err := ParseVersion(string(v))
	if err != nil {
		return nil, err
	}
	return &ReferenceModel{version: parsed}, nil
}

func (m *ReferenceModel) Version() Version {
	return m.version
}

func (m *ReferenceModel) Init(opts OptionSet) error {
	for i, v := range opts {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("option %d is %v: %w", i, v, ErrInvalidInput)
		}
	}
	m.mu.Lock()
	m.opts = opts
	m.initialized = true
	m.mu.Unlock()
	return nil
}

func (m *ReferenceModel) Calc(recs []CallRecord, out []float64) error {
	m.mu.RLock()
	opts, ok := m.opts, m.initialized
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("calc before init: %w", ErrModelInvocation)
	}
	if len(out) != len(recs)*NumVariables {
		return fmt.Errorf("output has %d slots for %d records: %w", len(out), len(recs), ErrModelInvocation)
	}

	for i := range recs {
		m.point(&recs[i], opts, out[i*NumVariables:(i+1)*NumVariables])
	}
	return nil
}

func (m *ReferenceModel) point(rec *CallRecord, opts OptionSet, out []float64) {
	tinf := exosphericTemperature(rec, opts)
	z := rec.Alt
	tz := temperature(z, tinf)

	// I = integral from zBase to z of g/(kT) dz, in 1/(kg) after the
	// species mass is applied.
	integral := gravityIntegral(z, tinf)

	rho := 0.0
	for _, s := range speciesTable {
		var n float64
		if z >= zBase {
			n = s.n0 * math.Exp((1+s.alpha)*math.Log(tBase/tz)-s.mass*amu*integral)
		} else {
			// Well mixed: every species follows the mean molecular mass.
			n = s.n0 * math.Exp(math.Log(tBase/tz)-meanMass*amu*integral)
		}
		if s.v == NO && !m.version.HasNO() {
			out[s.v] = MissingValue
			continue
		}
		out[s.v] = n
		rho += n * s.mass * amu
	}

	var nAO float64
	if z >= zBase {
		nAO = anomalousO.n0 * math.Exp(-anomalousO.mass*amu*hotIntegral(z))
	} else {
		nAO = anomalousO.n0 * math.Exp(-(zBase-z)/5)
	}
	out[AnomalousO] = nAO
	rho += nAO * anomalousO.mass * amu

	out[MassDensity] = rho
	out[Temperature] = tz
}

// exosphericTemperature combines the flux, geomagnetic and switch-gated
// harmonic terms.
func exosphericTemperature(rec *CallRecord, opts OptionSet) float64 {
	f107, f107a := rec.F107, rec.F107a
	if !opts.On(SwitchF107) {
		f107, f107a = fluxRef, fluxRef
	}
	tc := 379 + 3.24*f107a + 1.3*(f107-f107a)

	lat := rec.Lat * math.Pi / 180
	lon := rec.Lon * math.Pi / 180
	year := 2 * math.Pi * (rec.DayOfYear - 1) / 365.25
	cosLat, sinLat := math.Cos(lat), math.Sin(lat)

	var g float64
	if opts.On(SwitchTimeIndependent) {
		g += -0.02 * (3*sinLat*sinLat - 1) / 2
	}
	if opts.On(SwitchSymmetricalAnnual) {
		g += 0.02 * math.Cos(year-2*math.Pi*3/365.25)
	}
	if opts.On(SwitchSymmetricalSemiannual) {
		g += 0.03 * math.Cos(2*year-2*2*math.Pi*100/365.25)
	}
	if opts.On(SwitchAsymmetricalAnnual) {
		g += 0.02 * sinLat * math.Cos(year-2*math.Pi*171/365.25)
	}
	if opts.On(SwitchAsymmetricalSemiannual) {
		g += 0.01 * sinLat * math.Cos(2*year-2*2*math.Pi*171/365.25)
	}

	// Local solar time hour angle, peak near 14 LT.
	lst := rec.UTSeconds/3600 + rec.Lon/15
	h := 2 * math.Pi * (lst - 14) / 24
	if opts.On(SwitchDiurnal) {
		g += 0.12 * cosLat * math.Cos(h)
	}
	if opts.On(SwitchSemidiurnal) {
		g += 0.03 * cosLat * cosLat * math.Cos(2*h)
	}
	if opts.On(SwitchTerdiurnal) {
		g += 0.01 * cosLat * cosLat * cosLat * math.Cos(3*h)
	}

	ap := geomagneticAp(rec, opts)
	if opts.On(SwitchAllUTEffects) {
		ut := 2 * math.Pi * rec.UTSeconds / 86400
		if opts.On(SwitchLongitudinal) {
			g += 0.005 * cosLat * math.Cos(lon)
		}
		if opts.On(SwitchMixedUTLong) {
			g += 0.004 * cosLat * math.Cos(ut+lon)
		}
		if opts.On(SwitchMixedApUTLong) {
			g += 0.0001 * ap * cosLat * math.Cos(ut+lon)
		}
	}

	tinf := tc * (1 + g)
	if ap > 0 {
		tinf += ap + 100*(1-math.Exp(-0.08*ap))
	}
	return math.Max(tinf, minTinf)
}

// stormWeights weight ap[1..6] by recency.
var stormWeights = [6]float64{1, 0.8, 0.64, 0.51, 0.33, 0.12}

func geomagneticAp(rec *CallRecord, opts OptionSet) float64 {
	switch {
	case !opts.On(SwitchGeomagneticActivity):
		return 0
	case opts.StormTime():
		var sum, wsum float64
		for i, w := range stormWeights {
			sum += w * rec.Ap[i+1]
			wsum += w
		}
		return math.Max(sum/wsum, 0)
	default:
		return math.Max(rec.Ap[0], 0)
	}
}

func temperature(z, tinf float64) float64 {
	if z >= zBase {
		return tinf - (tinf-tBase)*math.Exp(-sigma*(z-zBase))
	}
	return math.Max(tBase-lapseRate*(zBase-z), tFloor)
}

func gravity(z float64) float64 {
	r := earthR / (earthR + z)
	return g0 * r * r
}

// gravityIntegral is the trapezoidal integral of g/(kT) from zBase to z
// in 1/kg (metres converted). Negative below zBase.
func gravityIntegral(z, tinf float64) float64 {
	f := func(x float64) float64 { return gravity(x) / (boltzmann * temperature(x, tinf)) }
	return trapezoid(f, zBase, z) * 1000
}

func hotIntegral(z float64) float64 {
	f := func(x float64) float64 { return gravity(x) / (boltzmann * tHotO) }
	return trapezoid(f, zBase, z) * 1000
}

func trapezoid(f func(float64) float64, a, b float64) float64 {
	n := int(math.Ceil(math.Abs(b-a) / stepKm))
	if n == 0 {
		return 0
	}
	h := (b - a) / float64(n)
	sum := (f(a) + f(b)) / 2
	for i := 1; i < n; i++ {
		sum += f(a + float64(i)*h)
	}
	return sum * h
}
