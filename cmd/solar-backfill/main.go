// solar-backfill - Historical solar index backfill from GFZ Potsdam
//
// Downloads the definitive Kp/ap/Ap/SN/F10.7 dataset from GFZ Potsdam
// and inserts into ClickHouse solar.indices_raw with 3-hour bucketing.
//
// Source: https://kp.gfz-potsdam.de (Helmholtz Centre Potsdam, GFZ)
// Format: Daily SSN + F10.7 (SFI) + 8x 3-hourly Kp/ap values per day
//
// Each day produces 8 rows (one per 3-hour bucket: 00, 03, 06, ..., 21 UTC).
// SSN and SFI are replicated across all 8 buckets; Kp/ap are bucket-specific.
// Missing values are written as -1. Non-physical F10.7 days are replaced by
// the centered 81-day average before insert.
// ReplacingMergeTree(updated_at) on (date, time) handles deduplication.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/solar-backfill ./cmd/solar-backfill

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ClickHouse/ch-go"

	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/common"
	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/solar"
)

var Version = "2.0.0"

const (
	sourceTag  = "gfz-kp-backfill"
	batchLimit = 50000 // flush every 50k rows (~6250 days)
)

// rangeStats tracks min/max over the values that are present.
type rangeStats struct {
	count    int
	min, max float64
}

func (s *rangeStats) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	if s.count == 0 || v < s.min {
		s.min = v
	}
	if s.count == 0 || v > s.max {
		s.max = v
	}
	s.count++
}

// selectRange keeps records with start <= date <= end.
func selectRange(records []solar.Record, start, end time.Time) []solar.Record {
	var out []solar.Record
	for _, r := range records {
		if r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func main() {
	common.LoadDotEnv()
	cfg := common.DefaultConfig()

	chHost := flag.String("ch-host", cfg.ClickHouseAddr(), "ClickHouse address")
	chDB := flag.String("ch-db", cfg.ClickHouseDatabase, "ClickHouse database")
	chTable := flag.String("ch-table", "indices_raw", "ClickHouse table")
	startStr := flag.String("start", "1932-01-01", "Start date (YYYY-MM-DD)")
	endStr := flag.String("end", "", "End date (YYYY-MM-DD, default: today)")
	localFile := flag.String("file", "", "Use local GFZ file instead of downloading (.gz allowed)")
	dryRun := flag.Bool("dry-run", false, "Parse and report, skip ClickHouse insert")
	httpTimeout := flag.Int("timeout", 120, "HTTP download timeout (seconds)")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "solar-backfill v%s - Historical Solar Index Backfill (GFZ Potsdam)\n\n", Version)
		fmt.Fprintf(os.Stderr, "Downloads SSN, SFI (F10.7), and 3-hourly Kp/ap from GFZ Potsdam\n")
		fmt.Fprintf(os.Stderr, "and inserts into ClickHouse solar.indices_raw.\n\n")
		fmt.Fprintf(os.Stderr, "Source: %s\n\n", solar.GFZURL)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -ch-host 192.168.1.90:9000 -start 2020-01-01\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -file /tmp/Kp_ap_Ap_SN_F107_since_1932.txt -dry-run\n", os.Args[0])
	}
	flag.Parse()
	common.SetLogLevel(*logLevel)

	log.Println("=========================================================")
	log.Printf("solar-backfill v%s - GFZ Potsdam Solar Index Backfill", Version)
	log.Println("=========================================================")

	// Parse date range
	startDate, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		log.Fatalf("Invalid start date: %v", err)
	}
	endDate := time.Now().UTC().Truncate(24 * time.Hour)
	if *endStr != "" {
		endDate, err = time.Parse("2006-01-02", *endStr)
		if err != nil {
			log.Fatalf("Invalid end date: %v", err)
		}
	}
	log.Printf("Date range: %s to %s", startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nShutdown requested...")
		cancel()
	}()

	// Fetch or read GFZ data
	path := *localFile
	if path == "" {
		log.Printf("Downloading from GFZ Potsdam...")
		log.Printf("  URL: %s", solar.GFZURL)
		tmpDir, err := os.MkdirTemp("", "solar-backfill")
		if err != nil {
			log.Fatalf("Cannot create temp dir: %v", err)
		}
		defer os.RemoveAll(tmpDir)

		path = filepath.Join(tmpDir, "Kp_ap_Ap_SN_F107_since_1932.txt.gz")
		n, err := solar.NewFetcher(time.Duration(*httpTimeout)*time.Second).Fetch(ctx, solar.GFZURL, path)
		if err != nil {
			log.Fatalf("Download failed: %v", err)
		}
		log.Printf("  Downloaded %d bytes", n)
	} else {
		log.Printf("Reading local file: %s", path)
	}

	// Parse
	log.Printf("Parsing GFZ data...")
	t0 := time.Now()
	table, err := solar.LoadFile(path, solar.FormatGFZ)
	if err != nil {
		log.Fatalf("Parse error: %v", err)
	}
	days := selectRange(table.Records(), startDate, endDate)
	log.Printf("Parsed %d days (%d in range) in %v", table.Len(), len(days), time.Since(t0).Round(time.Millisecond))

	if len(days) == 0 {
		log.Fatal("No data found in date range")
	}

	// Stats
	var sfi, ssn, kp rangeStats
	interpolated := 0
	for _, d := range days {
		sfi.add(d.F107)
		ssn.add(d.SSN)
		for _, v := range d.Kp {
			kp.add(v)
		}
		if d.Kind.Estimated() {
			interpolated++
		}
	}

	log.Printf("Coverage (%s to %s):", days[0].Date.Format("2006-01-02"), days[len(days)-1].Date.Format("2006-01-02"))
	if ssn.count > 0 {
		log.Printf("  SSN: %d days with data (%.0f - %.0f)", ssn.count, ssn.min, ssn.max)
	} else {
		log.Printf("  SSN: no data")
	}
	if sfi.count > 0 {
		log.Printf("  SFI: %d days with data (%.1f - %.1f SFU), %d interpolated", sfi.count, sfi.min, sfi.max, interpolated)
	} else {
		log.Printf("  SFI: no data")
	}
	if kp.count > 0 {
		log.Printf("  Kp:  %d 3-hour values with data (%.1f - %.1f)", kp.count, kp.min, kp.max)
	} else {
		log.Printf("  Kp:  no data")
	}

	totalRows := len(days) * solar.BinsPerDay
	log.Printf("Will insert: %d rows (%d days x 8 buckets)", totalRows, len(days))

	if *dryRun {
		log.Println("Dry run - skipping ClickHouse insert")
		return
	}

	// Connect to ClickHouse
	log.Printf("Connecting to ClickHouse at %s...", *chHost)
	conn, err := ch.Dial(ctx, ch.Options{
		Address:     *chHost,
		Database:    *chDB,
		User:        cfg.ClickHouseUser,
		Password:    cfg.ClickHousePassword,
		Compression: ch.CompressionLZ4,
	})
	if err != nil {
		log.Fatalf("ClickHouse connection failed: %v", err)
	}
	defer conn.Close()

	tableFQN := fmt.Sprintf("%s.%s", *chDB, *chTable)
	log.Printf("Table: %s", tableFQN)
	if err := solar.EnsureIndexTable(ctx, conn, tableFQN); err != nil {
		log.Fatalf("Schema error: %v", err)
	}

	// Insert in batches
	t0 = time.Now()
	batch := solar.NewIndexBatch()
	inserted := 0

	for _, d := range days {
		select {
		case <-ctx.Done():
			log.Printf("Interrupted after %d rows", inserted)
			return
		default:
		}

		batch.AddRecord(d, sourceTag)

		if batch.Len() >= batchLimit {
			n := batch.Len()
			if err := batch.Flush(ctx, conn, tableFQN); err != nil {
				log.Fatalf("Insert error at row %d: %v", inserted, err)
			}
			inserted += n
			elapsed := time.Since(t0)
			rps := float64(inserted) / elapsed.Seconds()
			log.Printf("  Inserted %d / %d rows (%.0f rows/sec)", inserted, totalRows, rps)
		}
	}

	// Final flush
	n := batch.Len()
	if err := batch.Flush(ctx, conn, tableFQN); err != nil {
		log.Fatalf("Final insert error: %v", err)
	}
	inserted += n

	elapsed := time.Since(t0)
	rps := float64(inserted) / elapsed.Seconds()

	log.Println()
	log.Println("=========================================================")
	log.Println("Backfill Complete")
	log.Println("=========================================================")
	log.Printf("Days:    %d (%s to %s)", len(days), days[0].Date.Format("2006-01-02"), days[len(days)-1].Date.Format("2006-01-02"))
	log.Printf("Rows:    %d (8 per day)", inserted)
	log.Printf("Elapsed: %v", elapsed.Round(time.Millisecond))
	log.Printf("Rate:    %.0f rows/sec", rps)
	log.Printf("Source:  %s", sourceTag)
	log.Println("=========================================================")
	log.Println()
	log.Println("Run OPTIMIZE TABLE solar.indices_raw FINAL to merge duplicates.")
}
