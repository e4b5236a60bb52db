// solar-ingest - Space weather index ingestion into ClickHouse
//
// Supports the index formats the atmosphere model reads:
//   - CelesTrak CSV (SW-All.csv, SW-Last5Years.csv)
//   - GFZ Potsdam text (Kp_ap_Ap_SN_F107_since_1932.txt)
//
// Files may be gzip-compressed (.gz), as written by solar-download.
// With -verify the table is read back through the SQL driver and checked
// for gaps and model input coverage.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/solar-ingest ./cmd/solar-ingest

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

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/common"
	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/solar"
)

// Version can be overridden at build time via -ldflags
var Version = "3.0.0"

func main() {
	common.LoadDotEnv()
	cfg := common.DefaultConfig()

	chHost := flag.String("ch-host", cfg.ClickHouseAddr(), "ClickHouse address")
	chDB := flag.String("ch-db", cfg.ClickHouseDatabase, "ClickHouse database")
	chTable := flag.String("ch-table", "indices_raw", "ClickHouse table")
	sourceDir := flag.String("source-dir", cfg.SolarDataDir(), "Index file source directory")
	truncate := flag.Bool("truncate", false, "Truncate table before insert")
	verify := flag.Bool("verify", false, "Read the table back and report coverage")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "solar-ingest v%s - Space Weather Index Ingester\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [files...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Ingests F10.7 and Kp/ap index files into ClickHouse.\n\n")
		fmt.Fprintf(os.Stderr, "Supported formats:\n")
		fmt.Fprintf(os.Stderr, "  - CelesTrak CSV (SW-*.csv[.gz])\n")
		fmt.Fprintf(os.Stderr, "  - GFZ Potsdam (Kp_ap_*.txt[.gz])\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	common.SetLogLevel(*logLevel)

	log.Println("=========================================================")
	log.Printf("Solar Ingest v%s", Version)
	log.Println("=========================================================")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nShutdown requested...")
		cancel()
	}()

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

	// Truncate if requested
	if *truncate {
		log.Printf("Truncating table %s...", tableFQN)
		if err := conn.Do(ctx, ch.Query{Body: fmt.Sprintf("TRUNCATE TABLE %s", tableFQN)}); err != nil {
			log.Printf("Truncate warning: %v", err)
		}
	}

	// Discover files
	var files []string
	if len(flag.Args()) > 0 {
		files = flag.Args()
	} else {
		entries, err := os.ReadDir(*sourceDir)
		if err != nil {
			log.Fatalf("Cannot read source directory: %v", err)
		}
		for _, e := range entries {
			if !e.IsDir() && !strings.HasSuffix(e.Name(), ".parquet") {
				files = append(files, filepath.Join(*sourceDir, e.Name()))
			}
		}
	}

	if len(files) == 0 {
		log.Fatal("No files to process")
	}

	log.Printf("Found %d file(s)", len(files))

	startTime := time.Now()
	totalDays := 0
	totalRows := 0
	batch := solar.NewIndexBatch()
	var sources []string

fileLoop:
	for _, filePath := range files {
		select {
		case <-ctx.Done():
			break fileLoop
		default:
		}

		name := filepath.Base(filePath)
		format := solar.DetectFormat(filePath)
		if format == solar.FormatUnknown {
			log.Printf("[%s] Skipping (unknown format)", name)
			continue
		}

		table, err := solar.LoadFile(filePath, format)
		if err != nil {
			log.Printf("[%s] Parse error: %v", name, err)
			continue
		}

		source := strings.TrimSuffix(name, ".gz")
		for _, r := range table.Records() {
			batch.AddRecord(r, source)
		}
		rows := batch.Len()
		if err := batch.Flush(ctx, conn, tableFQN); err != nil {
			log.Fatalf("[%s] Insert error: %v", name, err)
		}

		log.Printf("[%s] %d days, %d rows (%s format)", name, table.Len(), rows, format)
		if gaps := table.Gaps(); len(gaps) > 0 {
			log.Printf("[%s] WARNING: %d missing day(s), first %s", name, len(gaps), gaps[0].Format("2006-01-02"))
		}
		totalDays += table.Len()
		totalRows += rows
		sources = append(sources, source)
	}

	elapsed := time.Since(startTime)

	log.Println()
	log.Println("=========================================================")
	log.Println("Final Statistics")
	log.Println("=========================================================")
	log.Printf("Total Days:    %d", totalDays)
	log.Printf("Total Rows:    %d", totalRows)
	log.Printf("Elapsed:       %v", elapsed.Round(time.Millisecond))
	log.Printf("Rate:          %.0f rows/sec", float64(totalRows)/elapsed.Seconds())
	log.Println("=========================================================")

	if *verify {
		verifyTable(ctx, cfg, *chHost, *chDB, tableFQN, sources)
	}
}

// verifyTable reads each ingested source back and reports what the
// aligner can serve from it.
func verifyTable(ctx context.Context, cfg *common.Config, addr, db, tableFQN string, sources []string) {
	sqlConn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: db,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		log.Printf("Verify: connection failed: %v", err)
		return
	}
	defer sqlConn.Close()

	for _, source := range sources {
		table, err := solar.ReadClickHouse(ctx, sqlConn, tableFQN, source)
		if err != nil {
			log.Printf("Verify [%s]: %v", source, err)
			continue
		}
		first, last := solar.NewAligner(table).Coverage()
		log.Printf("Verify [%s]: %d days, model inputs %s to %s, %d gap(s)",
			source, table.Len(), first.Format("2006-01-02 15:04"), last.Format("2006-01-02 15:04"), len(table.Gaps()))
	}
}
