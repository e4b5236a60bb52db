// msis-run - Evaluate the NRLMSIS atmosphere model over a grid
//
// Inputs come from a YAML request (-query) or from flags for quick runs.
// F10.7 and ap values not given explicitly are derived from the cached
// space weather index table (see solar-download).
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/msis-run ./cmd/msis-run

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/common"
	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/export"
	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/msis"
	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/solar"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

func main() {
	common.LoadDotEnv()
	cfg := common.DefaultConfig()

	queryFile := flag.String("query", "", "YAML request file")
	timeStr := flag.String("time", "", "Evaluation time (RFC3339), used without -query")
	lonStr := flag.String("lon", "0", "Longitudes, comma separated (degrees)")
	latStr := flag.String("lat", "0", "Latitudes, comma separated (degrees)")
	altStr := flag.String("alt", "400", "Altitudes, comma separated (km)")
	version := flag.String("version", cfg.ModelVersion, "Model version (0, 2.0, 2.1)")
	stormTime := flag.Bool("storm-time", cfg.StormTime, "Default to storm-time ap history")
	workers := flag.Int("workers", cfg.Workers, "Evaluation goroutines")
	indexSource := flag.String("source", cfg.IndexSource, "Index source (celestrak, gfz)")
	dataDir := flag.String("data-dir", cfg.DataDir, "Data directory")
	refresh := flag.Bool("refresh", false, "Download index data before the run")
	parquetOut := flag.String("parquet", "", "Write results to this Parquet file")
	chTable := flag.String("ch-table", "", "Insert results into this ClickHouse table")
	maxPrint := flag.Int("print", 20, "Print at most this many points (0 = none)")
	statsInterval := flag.Duration("stats-interval", 0, "Log throughput at this interval (0 = off)")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "msis-run v%s - NRLMSIS Atmosphere Model Runner\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nSwitches: %s\n", strings.Join(msis.SwitchNames(), ", "))
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -time 2003-01-01T00:00:00Z -lat 70 -alt 100,150,200\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -query run.yaml -parquet /tmp/run.parquet\n", os.Args[0])
	}
	flag.Parse()
	common.SetLogLevel(*logLevel)

	cfg.DataDir = *dataDir
	cfg.IndexSource = *indexSource
	cfg.Workers = *workers

	log.Println("=========================================================")
	log.Printf("msis-run v%s", Version)
	log.Println("=========================================================")

	req, err := buildRequest(*queryFile, *timeStr, *lonStr, *latStr, *altStr)
	if err != nil {
		log.Fatalf("Request error: %v", err)
	}
	if req.Version == "" {
		req.Version = *version
	}
	if req.StormTime == nil {
		req.StormTime = stormTime
	}
	if *parquetOut != "" {
		req.Output.Parquet = *parquetOut
	}
	if *chTable != "" {
		req.Output.ClickHouse = *chTable
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nShutdown requested...")
		cancel()
	}()

	stats := common.NewStats()
	if *metricsAddr != "" {
		common.ServeMetrics(ctx, *metricsAddr, common.NewMetricsRegistry(stats))
	}
	if *statsInterval > 0 {
		stats.StartReporter(*statsInterval)
	}
	err = run(ctx, cfg, req, *refresh, *maxPrint, stats)
	stats.StopReporter()
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	log.Println("=========================================================")
	log.Printf("Points:  %d", stats.GetPoints())
	log.Printf("Calls:   %d", stats.GetCalls())
	log.Printf("Latency: %v", stats.GetRunLatency().Round(time.Microsecond))
	if b := stats.GetBytes(); b > 0 {
		log.Printf("Index:   %d bytes downloaded", b)
	}
	log.Println("=========================================================")
}

func buildRequest(queryFile, timeStr, lonStr, latStr, altStr string) (*Request, error) {
	if queryFile != "" {
		return LoadRequest(queryFile)
	}
	if timeStr == "" {
		return nil, fmt.Errorf("either -query or -time is required")
	}
	t, err := parseTime(timeStr)
	if err != nil {
		return nil, err
	}
	req := &Request{Time: timeAxis{Values: []time.Time{t}}}
	for _, a := range []struct {
		dst *axis
		src string
	}{{&req.Lon, lonStr}, {&req.Lat, latStr}, {&req.Alt, altStr}} {
		if a.dst.Values, err = parseList(a.src); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func run(ctx context.Context, cfg *common.Config, req *Request, refresh bool, maxPrint int, stats *common.Stats) error {
	version, err := msis.ParseVersion(req.Version)
	if err != nil {
		return err
	}
	opts, err := msis.Encoder{StormTime: *req.StormTime}.Encode(req.Options, req.Override)
	if err != nil {
		return err
	}
	q, err := req.Query()
	if err != nil {
		return err
	}

	// Index data is only touched when something must be derived.
	var aligner msis.IndexAligner
	if q.F107 == nil || q.F107a == nil || q.Ap == nil {
		store := solar.NewStoreFromConfig(cfg, stats)
		if refresh {
			if _, err := store.Refresh(ctx); err != nil {
				return err
			}
		}
		a, err := store.Aligner(ctx)
		if err != nil {
			return err
		}
		first, last := a.Coverage()
		common.Debugf("index coverage %s to %s", first.Format(time.RFC3339), last.Format(time.RFC3339))
		aligner = a
	}

	grid, err := msis.Compose(q, aligner, opts)
	if err != nil {
		return err
	}
	log.Printf("Model:  NRLMSIS %s", version)
	log.Printf("Shape:  %v (%d points)", grid.Shape, grid.Len())
	if grid.Estimated {
		log.Printf("Note:   F10.7 includes interpolated or predicted values")
	}

	model, err := msis.NewReferenceModel(version)
	if err != nil {
		return err
	}
	runner := msis.NewRunner(model, cfg.Workers, stats)

	t0 := time.Now()
	out, err := runner.Run(ctx, grid)
	if err != nil {
		return err
	}
	log.Printf("Evaluated %d points in %v", grid.Len(), time.Since(t0).Round(time.Microsecond))

	printResults(grid, out, maxPrint)

	if req.Output.Parquet == "" && req.Output.ClickHouse == "" {
		return nil
	}

	runID := export.NewRunID()
	rows, err := export.Rows(runID, version, grid, out)
	if err != nil {
		return err
	}
	log.Printf("Run ID: %s", runID)

	if path := req.Output.Parquet; path != "" {
		if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
			path = filepath.Join(cfg.MSISDataDir(), path)
		}
		if err := export.WriteParquet(path, rows); err != nil {
			return err
		}
		log.Printf("Wrote %d rows to %s", len(rows), path)
	}

	if table := req.Output.ClickHouse; table != "" {
		w, err := export.DialClickHouse(ctx, cfg, table)
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.EnsureTable(ctx); err != nil {
			return err
		}
		if err := w.Write(ctx, rows); err != nil {
			return err
		}
		log.Printf("Inserted %d rows into %s", len(rows), table)
	}
	return nil
}

func printResults(g *msis.Grid, out *msis.Tensor, limit int) {
	if limit <= 0 {
		return
	}
	fmt.Printf("%-20s %8s %7s %7s", "time", "lon", "lat", "alt")
	for _, v := range msis.Variables() {
		fmt.Printf(" %12s", v)
	}
	fmt.Println()

	n := g.Len()
	if n > limit {
		n = limit
	}
	for i := 0; i < n; i++ {
		r := g.Records[i]
		fmt.Printf("%-20s %8.2f %7.2f %7.1f", r.Time.Format("2006-01-02T15:04:05"), r.Lon, r.Lat, r.Alt)
		for _, v := range out.Row(i) {
			fmt.Printf(" %12.4e", v)
		}
		fmt.Println()
	}
	if g.Len() > n {
		fmt.Printf("... %d more points\n", g.Len()-n)
	}
}
