package solar

import (
	"gonum.org/v1/gonum/floats"
)

const (
	// AvgWindowDays is the length of the centered F10.7 average.
	AvgWindowDays = 81

	// RadioBurstFlux is the F10.7 level above which a daily value is
	// treated as a solar radio burst rather than background flux.
	RadioBurstFlux = 400.0
)

func validFlux(v float64) bool {
	return !isNaN(v) && v > 0 && v <= RadioBurstFlux
}

// fillAvg81 computes the centered 81-day average for records that do not
// carry one. The window must be fully present (no gaps); otherwise the
// average stays NaN. Invalid daily values inside the window are skipped.
func fillAvg81(records []Record) {
	half := AvgWindowDays / 2
	window := make([]float64, 0, AvgWindowDays)

	for i := range records {
		if !isNaN(records[i].F107Avg81) {
			continue
		}
		if i-half < 0 || i+half >= len(records) {
			continue
		}
		if records[i+half].Date.Sub(records[i-half].Date) != (AvgWindowDays-1)*day {
			continue
		}

		window = window[:0]
		for j := i - half; j <= i+half; j++ {
			if validFlux(records[j].F107) {
				window = append(window, records[j].F107)
			}
		}
		if len(window) > 0 {
			records[i].F107Avg81 = floats.Sum(window) / float64(len(window))
		}
	}
}

// patchBadFlux replaces non-physical daily F10.7 values (missing, <= 0 or
// radio bursts) with the 81-day average and flags them interpolated.
func patchBadFlux(records []Record) {
	for i := range records {
		if validFlux(records[i].F107) {
			continue
		}
		records[i].F107 = records[i].F107Avg81
		records[i].Kind = KindInterpolated
	}
}

// dailyAp is the mean of the eight 3-hourly values, NaN if any is missing.
func dailyAp(ap [BinsPerDay]float64) float64 {
	for _, v := range ap {
		if isNaN(v) {
			return nan()
		}
	}
	return floats.Sum(ap[:]) / BinsPerDay
}

// missing maps the negative fill values used by index providers to NaN.
func missing(v float64) float64 {
	if v < 0 {
		return nan()
	}
	return v
}
