package solar

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

// CelesTrakURL serves observed, interpolated and predicted space weather data.
const CelesTrakURL = "https://celestrak.org/SpaceData/SW-All.csv"

// celestrakRow maps the SW-All.csv columns we use. Kp columns are in tenths.
type celestrakRow struct {
	Date     string  `csv:"DATE"`
	Kp1      float64 `csv:"KP1"`
	Kp2      float64 `csv:"KP2"`
	Kp3      float64 `csv:"KP3"`
	Kp4      float64 `csv:"KP4"`
	Kp5      float64 `csv:"KP5"`
	Kp6      float64 `csv:"KP6"`
	Kp7      float64 `csv:"KP7"`
	Kp8      float64 `csv:"KP8"`
	Ap1      float64 `csv:"AP1"`
	Ap2      float64 `csv:"AP2"`
	Ap3      float64 `csv:"AP3"`
	Ap4      float64 `csv:"AP4"`
	Ap5      float64 `csv:"AP5"`
	Ap6      float64 `csv:"AP6"`
	Ap7      float64 `csv:"AP7"`
	Ap8      float64 `csv:"AP8"`
	ApAvg    float64 `csv:"AP_AVG"`
	ISN      float64 `csv:"ISN"`
	F107Obs  float64 `csv:"F10.7_OBS"`
	F107Adj  float64 `csv:"F10.7_ADJ"`
	DataType string  `csv:"F10.7_DATA_TYPE"`
	F107Avg  float64 `csv:"F10.7_OBS_CENTER81"`
}

func (c *celestrakRow) record() (Record, error) {
	date, err := time.Parse("2006-01-02", strings.TrimSpace(c.Date))
	if err != nil {
		return Record{}, err
	}

	r := Record{
		Date:      date,
		Ap:        [BinsPerDay]float64{c.Ap1, c.Ap2, c.Ap3, c.Ap4, c.Ap5, c.Ap6, c.Ap7, c.Ap8},
		Kp:        [BinsPerDay]float64{c.Kp1, c.Kp2, c.Kp3, c.Kp4, c.Kp5, c.Kp6, c.Kp7, c.Kp8},
		DailyAp:   missing(c.ApAvg),
		SSN:       missing(c.ISN),
		F107:      c.F107Obs,
		F107Adj:   missing(c.F107Adj),
		F107Avg81: missing(c.F107Avg),
	}
	for i := range r.Ap {
		r.Ap[i] = missing(r.Ap[i])
		r.Kp[i] = missing(r.Kp[i]) / 10
	}

	switch strings.TrimSpace(c.DataType) {
	case "INT":
		r.Kind = KindInterpolated
	case "PRD":
		r.Kind = KindPredicted
	}
	return r, nil
}

// ParseCelesTrak reads SW-All.csv. Monthly predicted (PRM) rows carry no
// 3-hourly data and are dropped before decoding.
func ParseCelesTrak(reader io.Reader) ([]Record, error) {
	var buf bytes.Buffer
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "PRM") {
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("celestrak read: %v: %w", err, ErrDataUnavailable)
	}

	var rows []*celestrakRow
	if err := gocsv.Unmarshal(&buf, &rows); err != nil {
		return nil, fmt.Errorf("celestrak decode: %v: %w", err, ErrDataUnavailable)
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		r, err := row.record()
		if err != nil {
			return nil, fmt.Errorf("celestrak row %d: %v: %w", i+2, err, ErrDataUnavailable)
		}
		records = append(records, r)
	}

	fillAvg81(records)
	patchBadFlux(records)
	return records, nil
}
