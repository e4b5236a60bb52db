// solar-download - Download space weather indices for the atmosphere model
//
// Data sources:
//   - CelesTrak SW-All: observed, interpolated and predicted F10.7 / Kp / ap
//   - CelesTrak SW-Last5Years: the recent subset of SW-All
//   - GFZ Potsdam: definitive Kp/ap/Ap/SN/F10.7 since 1932
//
// Each source is stored gzip-compressed next to a Parquet cache of the
// parsed table, so msis-run can start without parsing text files.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/solar-download ./cmd/solar-download

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/common"
	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/solar"
)

// Version can be overridden at build time via -ldflags
var Version = "3.0.0"

// DataSource defines a space weather index source
type DataSource struct {
	Name   string
	URL    string
	Format solar.Format
	Desc   string
}

var sources = []DataSource{
	{
		Name:   "celestrak",
		URL:    solar.CelesTrakURL,
		Format: solar.FormatCelesTrak,
		Desc:   "CelesTrak SW-All (1957-present, with 45-day predictions)",
	},
	{
		Name:   "celestrak_5y",
		URL:    "https://celestrak.org/SpaceData/SW-Last5Years.csv",
		Format: solar.FormatCelesTrak,
		Desc:   "CelesTrak SW-Last5Years (recent subset)",
	},
	{
		Name:   "gfz",
		URL:    solar.GFZURL,
		Format: solar.FormatGFZ,
		Desc:   "GFZ Potsdam Kp/ap/Ap/SN/F10.7 (1932-present, definitive)",
	},
}

func main() {
	common.LoadDotEnv()
	cfg := common.DefaultConfig()

	destDir := flag.String("dest", cfg.SolarDataDir(), "Destination directory")
	timeout := flag.Duration("timeout", 60*time.Second, "HTTP timeout per download")
	listSources := flag.Bool("list", false, "List available data sources")
	source := flag.String("source", "all", "Source to download (or 'all')")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "solar-download v%s - Space Weather Index Downloader\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Downloads F10.7 and ap indices and builds the Parquet cache.\n\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nData Sources:\n")
		for _, s := range sources {
			fmt.Fprintf(os.Stderr, "  %-15s %s\n", s.Name, s.Desc)
		}
	}

	flag.Parse()
	common.SetLogLevel(*logLevel)

	if *listSources {
		fmt.Printf("Available index sources:\n\n")
		for _, s := range sources {
			fmt.Printf("  %-15s %s\n", s.Name, s.Desc)
			fmt.Printf("                  URL: %s\n", s.URL)
			fmt.Printf("                  Format: %s\n\n", s.Format)
		}
		return
	}

	fmt.Println("=========================================================")
	fmt.Printf("Solar Download v%s\n", Version)
	fmt.Println("=========================================================")
	fmt.Printf("Destination: %s\n", *destDir)
	fmt.Printf("Timeout:     %v\n", *timeout)
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutdown requested...")
		cancel()
	}()

	stats := common.NewStats()
	startTime := time.Now()
	downloaded := 0
	failed := 0

	for _, src := range sources {
		if *source != "all" && *source != src.Name {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		store := solar.NewStore(solar.StoreConfig{
			Dir:     *destDir,
			URL:     src.URL,
			Format:  src.Format,
			Timeout: *timeout,
			Stats:   stats,
		})
		fmt.Printf("[%s] Downloading from %s...\n", src.Name, src.URL)

		table, err := store.Refresh(ctx)
		if err != nil {
			fmt.Printf("  ERROR: %v\n", err)
			failed++
			continue
		}

		first, last := solar.NewAligner(table).Coverage()
		fmt.Printf("  %d days, %s to %s\n", table.Len(),
			table.First().Format("2006-01-02"), table.Last().Format("2006-01-02"))
		fmt.Printf("  Model inputs available %s to %s\n",
			first.Format("2006-01-02 15:04"), last.Format("2006-01-02 15:04"))
		if gaps := table.Gaps(); len(gaps) > 0 {
			fmt.Printf("  WARNING: %d missing day(s)\n", len(gaps))
		}
		fmt.Printf("  Cache: %s\n", store.CachePath())
		downloaded++
	}

	elapsed := time.Since(startTime)

	fmt.Println()
	fmt.Println("=========================================================")
	fmt.Println("Download Summary")
	fmt.Println("=========================================================")
	fmt.Printf("Downloaded: %d sources\n", downloaded)
	fmt.Printf("Failed:     %d sources\n", failed)
	fmt.Printf("Bytes:      %d\n", stats.GetBytes())
	fmt.Printf("Elapsed:    %v\n", elapsed.Round(time.Millisecond))
	fmt.Println("=========================================================")

	if failed > 0 {
		os.Exit(1)
	}
}
