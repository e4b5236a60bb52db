package solar

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/pgzip"
)

// Format identifies an index file layout.
type Format int

const (
	FormatUnknown Format = iota
	FormatCelesTrak
	FormatGFZ
)

func (f Format) String() string {
	switch f {
	case FormatCelesTrak:
		return "celestrak"
	case FormatGFZ:
		return "gfz"
	default:
		return "unknown"
	}
}

// ParseFormat maps a source name ("celestrak", "gfz") to a Format.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "celestrak", "sw-all", "csv":
		return FormatCelesTrak
	case "gfz", "kp":
		return FormatGFZ
	default:
		return FormatUnknown
	}
}

// DefaultURL returns the upstream URL for a format.
func (f Format) DefaultURL() string {
	if f == FormatGFZ {
		return GFZURL
	}
	return CelesTrakURL
}

// DetectFormat determines the file format from its name.
func DetectFormat(path string) Format {
	base := strings.ToLower(filepath.Base(path))
	base = strings.TrimSuffix(base, ".gz")
	ext := filepath.Ext(base)

	switch {
	case strings.HasPrefix(base, "sw-"), ext == ".csv":
		return FormatCelesTrak
	case strings.HasPrefix(base, "kp_ap"), ext == ".txt":
		return FormatGFZ
	}
	return FormatUnknown
}

// Parse decodes an index source into a Table.
func Parse(r io.Reader, f Format) (*Table, error) {
	var (
		records []Record
		err     error
	)
	switch f {
	case FormatCelesTrak:
		records, err = ParseCelesTrak(r)
	case FormatGFZ:
		records, err = ParseGFZ(r)
	default:
		return nil, fmt.Errorf("unknown index format: %w", ErrDataUnavailable)
	}
	if err != nil {
		return nil, err
	}
	return NewTable(records)
}

// LoadFile parses an index file from disk. Files ending in .gz are
// decompressed on the fly. FormatUnknown detects the format from the name.
func LoadFile(path string, f Format) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", path, err, ErrDataUnavailable)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := pgzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("gunzip %s: %v: %w", path, err, ErrDataUnavailable)
		}
		defer gz.Close()
		reader = gz
	}

	if f == FormatUnknown {
		f = DetectFormat(path)
	}
	return Parse(reader, f)
}
