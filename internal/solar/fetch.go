package solar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Fetcher downloads index sources and stores them gzip-compressed.
type Fetcher struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewFetcher creates a Fetcher with the given per-download timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		Client:  &http.Client{Timeout: timeout},
		Timeout: timeout,
	}
}

// Fetch copies src (http(s)://, file:// or a plain path) to destPath,
// compressing on the way unless src is already a .gz file. The file is
// written to a temp name and renamed so readers never see a partial file.
// Returns the number of bytes read from src.
func (f *Fetcher) Fetch(ctx context.Context, src, destPath string) (int64, error) {
	body, err := f.open(ctx, src)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %v: %w", src, err, ErrDataUnavailable)
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, fmt.Errorf("create directory failed: %v: %w", err, ErrDataUnavailable)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create file failed: %v: %w", err, ErrDataUnavailable)
	}
	tmpPath := tmp.Name()

	var n int64
	if strings.HasSuffix(strings.ToLower(src), ".gz") {
		// Already compressed upstream
		n, err = io.Copy(tmp, body)
	} else {
		gz, _ := gzip.NewWriterLevel(tmp, gzip.BestCompression)
		n, err = io.Copy(gz, body)
		if err == nil {
			err = gz.Close()
		}
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("download failed: %v: %w", err, ErrDataUnavailable)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("rename failed: %v: %w", err, ErrDataUnavailable)
	}
	return n, nil
}

func (f *Fetcher) open(ctx context.Context, src string) (io.ReadCloser, error) {
	u, err := url.Parse(src)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "", "file":
		path := src
		if u.Scheme == "file" {
			path = u.Path
		}
		return os.Open(path)
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: f.Timeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	return resp.Body, nil
}
