package solar

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gfzLine renders one GFZ Kp_ap_Ap_SN_F107 data line.
func gfzLine(d time.Time, ap float64, f107 float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %02d %02d %5d %7.1f %4d %2d", d.Year(), int(d.Month()), d.Day(), d.YearDay(), 0.5, 2000, 1)
	for i := 0; i < BinsPerDay; i++ {
		b.WriteString(" 1.333")
	}
	for i := 0; i < BinsPerDay; i++ {
		fmt.Fprintf(&b, " %4.0f", ap)
	}
	fmt.Fprintf(&b, " %4.0f %4d %8.1f %8.1f 2", ap, 80, f107, f107)
	return b.String()
}

func TestParseGFZ_Fields(t *testing.T) {
	src := strings.Join([]string{
		"# Kp, ap and Ap, SN, F10.7 since 1932",
		"#YYY MM DD  days  days_m  Bsr dB    Kp1 ...",
		gfzLine(start, 7, 120.5),
		gfzLine(start.AddDate(0, 0, 1), -1, -1),
		"",
		gfzLine(start.AddDate(0, 0, 2), 12, 450),
	}, "\n")

	records, err := ParseGFZ(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, records, 3)

	r := records[0]
	assert.Equal(t, start, r.Date)
	assert.Equal(t, 7.0, r.Ap[3])
	assert.InDelta(t, 1.333, r.Kp[7], 1e-9)
	assert.Equal(t, 7.0, r.DailyAp)
	assert.Equal(t, 80.0, r.SSN)
	assert.Equal(t, 120.5, r.F107)
	assert.Equal(t, KindObserved, r.Kind)

	// missing values and the radio burst are flagged; no 81-day window
	// exists so the replacement is NaN
	assert.True(t, math.IsNaN(records[1].Ap[0]))
	assert.True(t, math.IsNaN(records[1].F107))
	assert.Equal(t, KindInterpolated, records[1].Kind)
	assert.Equal(t, KindInterpolated, records[2].Kind)
}

func TestParseGFZ_CenteredAverage(t *testing.T) {
	var lines []string
	for d := 0; d < AvgWindowDays; d++ {
		f := 100.0
		if d == 40 {
			f = 999 // radio burst
		}
		if d == 10 {
			f = 190
		}
		lines = append(lines, gfzLine(start.AddDate(0, 0, d), 5, f))
	}

	records, err := ParseGFZ(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)

	center := records[40]
	assert.InDelta(t, 8090.0/80, center.F107Avg81, 1e-9, "burst excluded from the mean")
	assert.InDelta(t, center.F107Avg81, center.F107, 1e-9)
	assert.Equal(t, KindInterpolated, center.Kind)
	assert.True(t, math.IsNaN(records[39].F107Avg81), "window incomplete")
}

func TestParseGFZ_Malformed(t *testing.T) {
	_, err := ParseGFZ(strings.NewReader(gfzLine(start, 1, 100) + "\n2003 01 02 garbage\n"))
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

const celestrakFixture = `DATE,BSRN,ND,KP1,KP2,KP3,KP4,KP5,KP6,KP7,KP8,KP_SUM,AP1,AP2,AP3,AP4,AP5,AP6,AP7,AP8,AP_AVG,CP,C9,ISN,F10.7_OBS,F10.7_ADJ,F10.7_DATA_TYPE,F10.7_OBS_CENTER81,F10.7_OBS_LAST81,F10.7_ADJ_CENTER81,F10.7_ADJ_LAST81
2003-01-01,2311,10,33,27,20,13,17,13,20,30,173,18,12,7,5,6,5,7,15,9,0.5,2,121,144.5,139.8,OBS,151.2,140.1,146.9,136.5
2003-01-02,2311,11,10,10,10,10,10,10,10,10,80,4,4,4,4,4,4,4,4,4,0.1,0,100,-1,-1,INT,150.0,140.0,146.0,136.0
2003-01-03,2311,12,20,20,20,20,20,20,20,20,160,7,7,7,7,7,7,7,7,7,0.2,1,90,130.0,128.0,PRD,149.0,140.0,146.0,136.0
2003-02-01,2312,1,,,,,,,,,,,,,,,,,,12,,,110,140.0,138.0,PRM,148.0,140.0,146.0,136.0
`

func TestParseCelesTrak(t *testing.T) {
	records, err := ParseCelesTrak(strings.NewReader(celestrakFixture))
	require.NoError(t, err)
	require.Len(t, records, 3, "monthly PRM row dropped")

	r := records[0]
	assert.Equal(t, start, r.Date)
	assert.InDelta(t, 3.3, r.Kp[0], 1e-9)
	assert.Equal(t, 18.0, r.Ap[0])
	assert.Equal(t, 15.0, r.Ap[7])
	assert.Equal(t, 9.0, r.DailyAp)
	assert.Equal(t, 144.5, r.F107)
	assert.Equal(t, 151.2, r.F107Avg81)
	assert.Equal(t, KindObserved, r.Kind)

	// negative flux replaced by the centered average
	assert.Equal(t, 150.0, records[1].F107)
	assert.Equal(t, KindInterpolated, records[1].Kind)
	assert.Equal(t, KindPredicted, records[2].Kind)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatCelesTrak, DetectFormat("/data/SW-All.csv.gz"))
	assert.Equal(t, FormatCelesTrak, DetectFormat("sw-last5years.csv"))
	assert.Equal(t, FormatGFZ, DetectFormat("Kp_ap_Ap_SN_F107_since_1932.txt"))
	assert.Equal(t, FormatUnknown, DetectFormat("indices.bin"))

	assert.Equal(t, FormatGFZ, ParseFormat("GFZ"))
	assert.Equal(t, GFZURL, FormatGFZ.DefaultURL())
	assert.Equal(t, CelesTrakURL, ParseFormat("celestrak").DefaultURL())
}
