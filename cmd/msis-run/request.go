package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/msis"
)

// Request is the YAML description of a model run.
//
//	version: "2.1"
//	time: {start: 2003-01-01T00:00:00Z, end: 2003-01-02T00:00:00Z, step: 3h}
//	lon: {start: -180, stop: 180, step: 30}
//	lat: [-60, 0, 60]
//	alt: 400
//	options: {diurnal: 0}
//	output: {parquet: /tmp/run.parquet}
type Request struct {
	Version   string             `yaml:"version"`
	Time      timeAxis           `yaml:"time"`
	Lon       axis               `yaml:"lon"`
	Lat       axis               `yaml:"lat"`
	Alt       axis               `yaml:"alt"`
	Paired    bool               `yaml:"paired"`
	F107      []float64          `yaml:"f107"`
	F107a     []float64          `yaml:"f107a"`
	Ap        [][]float64        `yaml:"ap"`
	Options   map[string]float64 `yaml:"options"`
	Override  []float64          `yaml:"override"`
	StormTime *bool              `yaml:"storm_time"`
	Output    Output             `yaml:"output"`
}

// Output selects where results go besides stdout.
type Output struct {
	Parquet    string `yaml:"parquet"`
	ClickHouse string `yaml:"clickhouse_table"`
}

// axis is a scalar, a list or a {start, stop, step} range.
type axis struct {
	Values []float64
}

func (a *axis) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return err
		}
		a.Values = []float64{v}
	case yaml.SequenceNode:
		return node.Decode(&a.Values)
	case yaml.MappingNode:
		var r struct {
			Start float64 `yaml:"start"`
			Stop  float64 `yaml:"stop"`
			Step  float64 `yaml:"step"`
		}
		if err := node.Decode(&r); err != nil {
			return err
		}
		a.Values = msis.Arange(r.Start, r.Stop, r.Step)
		if len(a.Values) == 0 {
			return fmt.Errorf("line %d: empty range %v..%v step %v", node.Line, r.Start, r.Stop, r.Step)
		}
	default:
		return fmt.Errorf("line %d: expected number, list or range", node.Line)
	}
	return nil
}

// timeAxis is a timestamp, a list or a {start, end, step} range.
type timeAxis struct {
	Values []time.Time
}

func (a *timeAxis) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		t, err := parseTime(node.Value)
		if err != nil {
			return err
		}
		a.Values = []time.Time{t}
	case yaml.SequenceNode:
		var raw []string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		for _, s := range raw {
			t, err := parseTime(s)
			if err != nil {
				return err
			}
			a.Values = append(a.Values, t)
		}
	case yaml.MappingNode:
		var r struct {
			Start string `yaml:"start"`
			End   string `yaml:"end"`
			Step  string `yaml:"step"`
		}
		if err := node.Decode(&r); err != nil {
			return err
		}
		start, err := parseTime(r.Start)
		if err != nil {
			return err
		}
		end, err := parseTime(r.End)
		if err != nil {
			return err
		}
		step, err := time.ParseDuration(r.Step)
		if err != nil {
			return fmt.Errorf("line %d: step: %w", node.Line, err)
		}
		a.Values = msis.TimeRange(start, end, step)
		if len(a.Values) == 0 {
			return fmt.Errorf("line %d: empty time range", node.Line)
		}
	default:
		return fmt.Errorf("line %d: expected time, list or range", node.Line)
	}
	return nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02"}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}

// LoadRequest reads a YAML request file.
func LoadRequest(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRequest(data)
}

// ParseRequest decodes a YAML request. Unknown keys are rejected.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	return &req, nil
}

// Query converts the request to a model query.
func (r *Request) Query() (msis.Query, error) {
	q := msis.Query{
		Times:  r.Time.Values,
		Lons:   r.Lon.Values,
		Lats:   r.Lat.Values,
		Alts:   r.Alt.Values,
		F107:   r.F107,
		F107a:  r.F107a,
		Paired: r.Paired,
	}
	if r.Ap != nil {
		q.Ap = make([][7]float64, len(r.Ap))
		for i, row := range r.Ap {
			switch len(row) {
			case 1:
				q.Ap[i] = msis.DailyAp(row[0])
			case 7:
				copy(q.Ap[i][:], row)
			default:
				return msis.Query{}, fmt.Errorf("ap row %d has %d values, want 1 or 7: %w", i, len(row), msis.ErrShapeMismatch)
			}
		}
	}
	return q, nil
}

// parseList parses a comma-separated list of numbers.
func parseList(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []float64
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}
