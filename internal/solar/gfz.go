package solar

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// GFZURL is the definitive Kp/ap/Ap/SN/F10.7 dataset from GFZ Potsdam.
const GFZURL = "https://kp.gfz-potsdam.de/app/files/Kp_ap_Ap_SN_F107_since_1932.txt"

// parseGFZLine parses one data line from the GFZ Kp file.
// Format (whitespace-delimited):
//
//	Col  0: Year
//	Col  1: Month
//	Col  2: Day
//	Col  3: Days (day of year)
//	Col  4: Days_m (modified Julian)
//	Col  5: Bsr (Bartels rotation)
//	Col  6: dB (day within rotation)
//	Col  7-14: Kp1..Kp8 (3-hourly, decimal 0.000-9.000)
//	Col 15-22: ap1..ap8 (3-hourly)
//	Col 23: Ap (daily)
//	Col 24: SN (sunspot number)
//	Col 25: F10.7obs
//	Col 26: F10.7adj
//
// Missing values are -1.000 or -1.
func parseGFZLine(line string) (Record, bool) {
	fields := strings.Fields(line)
	if len(fields) < 27 {
		return Record{}, false
	}

	year, err := strconv.Atoi(fields[0])
	if err != nil || year < 1900 || year > 2100 {
		return Record{}, false
	}
	month, _ := strconv.Atoi(fields[1])
	dom, _ := strconv.Atoi(fields[2])
	if month < 1 || month > 12 || dom < 1 || dom > 31 {
		return Record{}, false
	}

	r := Record{
		Date:      time.Date(year, time.Month(month), dom, 0, 0, 0, 0, time.UTC),
		F107Avg81: nan(),
	}

	for i := 0; i < BinsPerDay; i++ {
		r.Kp[i] = parseGFZValue(fields[7+i])
		r.Ap[i] = parseGFZValue(fields[15+i])
	}
	r.DailyAp = parseGFZValue(fields[23])
	r.SSN = parseGFZValue(fields[24])
	r.F107 = parseGFZValue(fields[25])
	r.F107Adj = parseGFZValue(fields[26])

	return r, true
}

func parseGFZValue(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nan()
	}
	return missing(v)
}

// ParseGFZ reads the GFZ file. Comment lines start with '#'.
func ParseGFZ(reader io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(reader)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		r, ok := parseGFZLine(line)
		if !ok {
			return nil, fmt.Errorf("gfz line %d: malformed record: %w", lineNo, ErrDataUnavailable)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("gfz read: %v: %w", err, ErrDataUnavailable)
	}

	fillAvg81(records)
	patchBadFlux(records)
	return records, nil
}
