package solar

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/common"
)

func writeSource(t *testing.T, dir string, days int) string {
	t.Helper()
	var lines []string
	for d := 0; d < days; d++ {
		lines = append(lines, gfzLine(start.AddDate(0, 0, d), float64(d), 100+float64(d)))
	}
	path := filepath.Join(dir, "Kp_ap_Ap_SN_F107_test.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func TestStore_DownloadCacheAndReuse(t *testing.T) {
	srcDir, dataDir := t.TempDir(), t.TempDir()
	src := writeSource(t, srcDir, 5)
	stats := common.NewStats()

	cfg := StoreConfig{Dir: dataDir, URL: "file://" + src, Stats: stats}
	store := NewStore(cfg)
	table, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, table.Len())
	assert.FileExists(t, store.RawPath())
	assert.FileExists(t, store.CachePath())
	assert.Positive(t, stats.GetBytes())

	// A second store reads the Parquet cache without touching the source.
	require.NoError(t, os.Remove(src))
	require.NoError(t, os.Remove(store.RawPath()))

	cached, err := NewStore(cfg).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, table.Len(), cached.Len())
	r, err := cached.Lookup(start.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, 103.0, r.F107)
	assert.Equal(t, 3.0, r.Ap[5])
	assert.Equal(t, KindObserved, r.Kind)
}

func TestStore_Refresh(t *testing.T) {
	srcDir, dataDir := t.TempDir(), t.TempDir()
	src := writeSource(t, srcDir, 3)

	store := NewStore(StoreConfig{Dir: dataDir, URL: "file://" + src})
	table, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())

	writeSource(t, srcDir, 6)
	table, err = store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len(), "load is once per store")

	table, err = store.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, table.Len())

	cached, err := ReadCache(store.CachePath())
	require.NoError(t, err)
	assert.Equal(t, 6, cached.Len())
}

func TestStore_Unavailable(t *testing.T) {
	store := NewStore(StoreConfig{
		Dir:     t.TempDir(),
		URL:     "file:///nonexistent/SW-All.csv",
		Timeout: time.Second,
	})
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrDataUnavailable)

	_, err = store.Aligner(context.Background())
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestStore_Paths(t *testing.T) {
	s := NewStore(StoreConfig{Dir: "/data"})
	assert.Equal(t, "/data/SW-All.csv.gz", s.RawPath())
	assert.Equal(t, "/data/SW-All.csv.parquet", s.CachePath())

	s = NewStore(StoreConfig{Dir: "/data", Format: FormatGFZ})
	assert.Equal(t, "/data/Kp_ap_Ap_SN_F107_since_1932.txt.gz", s.RawPath())
}
