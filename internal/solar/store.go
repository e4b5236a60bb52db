package solar

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/common"
)

// StoreConfig configures a Store.
type StoreConfig struct {
	Dir     string        // directory holding the raw download and the Parquet cache
	URL     string        // source URL; defaults to Format.DefaultURL()
	Format  Format        // source layout; detected from URL if unknown
	Timeout time.Duration // download timeout
	Stats   *common.Stats // optional telemetry
}

// Store owns a loaded index table. Load is load-once per Store; Refresh
// forces a new download and atomically replaces the on-disk files.
type Store struct {
	cfg     StoreConfig
	fetcher *Fetcher

	mu    sync.Mutex
	table *Table
}

// NewStore creates a Store. Nothing is read until Load.
func NewStore(cfg StoreConfig) *Store {
	if cfg.Format == FormatUnknown && cfg.URL != "" {
		cfg.Format = DetectFormat(sourceName(cfg.URL))
	}
	if cfg.Format == FormatUnknown {
		cfg.Format = FormatCelesTrak
	}
	if cfg.URL == "" {
		cfg.URL = cfg.Format.DefaultURL()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Store{cfg: cfg, fetcher: NewFetcher(cfg.Timeout)}
}

// NewStoreFromConfig builds a Store from application configuration.
func NewStoreFromConfig(c *common.Config, stats *common.Stats) *Store {
	return NewStore(StoreConfig{
		Dir:    c.SolarDataDir(),
		URL:    c.IndexURL,
		Format: ParseFormat(c.IndexSource),
		Stats:  stats,
	})
}

// RawPath is the gzip-compressed copy of the source.
func (s *Store) RawPath() string {
	return filepath.Join(s.cfg.Dir, sourceName(s.cfg.URL)+".gz")
}

// CachePath is the Parquet cache of the parsed table.
func (s *Store) CachePath() string {
	return filepath.Join(s.cfg.Dir, sourceName(s.cfg.URL)+".parquet")
}

// Load returns the table, reading the Parquet cache, the raw file or the
// remote source in that order of preference.
func (s *Store) Load(ctx context.Context) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table != nil {
		return s.table, nil
	}

	if _, err := os.Stat(s.CachePath()); err == nil {
		t, err := ReadCache(s.CachePath())
		if err == nil {
			common.Debugf("solar: loaded %d days from cache %s", t.Len(), s.CachePath())
			s.table = t
			return t, nil
		}
		common.Warnf("solar: ignoring unreadable cache: %v", err)
	}

	if _, err := os.Stat(s.RawPath()); err != nil {
		if err := s.download(ctx); err != nil {
			return nil, err
		}
	}

	t, err := s.parseRaw()
	if err != nil {
		return nil, err
	}
	s.table = t
	return t, nil
}

// Refresh downloads the source again and replaces both the raw file and
// the cache. Concurrent readers in other processes see either the old or
// the new files, never a partial one.
func (s *Store) Refresh(ctx context.Context) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.download(ctx); err != nil {
		return nil, err
	}
	t, err := s.parseRaw()
	if err != nil {
		return nil, err
	}
	s.table = t
	return t, nil
}

// Aligner loads the table and returns an aligner over it.
func (s *Store) Aligner(ctx context.Context) (*Aligner, error) {
	t, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return NewAligner(t), nil
}

// Lookup loads the table and returns the record for date.
func (s *Store) Lookup(ctx context.Context, date time.Time) (Record, error) {
	t, err := s.Load(ctx)
	if err != nil {
		return Record{}, err
	}
	return t.Lookup(date)
}

func (s *Store) download(ctx context.Context) error {
	common.Warnf("solar: downloading ap and F10.7 data from %s", s.cfg.URL)
	n, err := s.fetcher.Fetch(ctx, s.cfg.URL, s.RawPath())
	if err != nil {
		return err
	}
	if s.cfg.Stats != nil {
		s.cfg.Stats.AddBytes(uint64(n))
	}
	common.Infof("solar: downloaded %s (%d bytes)", filepath.Base(s.RawPath()), n)
	return nil
}

func (s *Store) parseRaw() (*Table, error) {
	t, err := LoadFile(s.RawPath(), s.cfg.Format)
	if err != nil {
		return nil, err
	}
	if err := WriteCache(s.CachePath(), t); err != nil {
		// The table is still usable; the next process parses again.
		common.Warnf("solar: cannot write cache %s: %v", s.CachePath(), err)
	}
	if gaps := t.Gaps(); len(gaps) > 0 {
		common.Warnf("solar: %d missing day(s) in %s, first %s", len(gaps),
			filepath.Base(s.RawPath()), gaps[0].Format("2006-01-02"))
	}
	common.Infof("solar: parsed %d days (%s to %s)", t.Len(),
		t.First().Format("2006-01-02"), t.Last().Format("2006-01-02"))
	return t, nil
}

// sourceName is the final path element of a URL or file path.
func sourceName(src string) string {
	if u, err := url.Parse(src); err == nil && u.Path != "" {
		src = u.Path
	}
	name := path.Base(filepath.ToSlash(src))
	if name == "." || name == "/" || name == "" {
		return fmt.Sprintf("indices-%d", SchemaVersion)
	}
	return strings.TrimSuffix(name, ".gz")
}
