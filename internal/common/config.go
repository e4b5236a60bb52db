// Package common provides shared utilities for KI7MT AI Lab applications.
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds common configuration for all applications.
type Config struct {
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	DataDir            string
	LogLevel           string

	// Space weather index source ("celestrak" or "gfz") and optional URL override.
	IndexSource string
	IndexURL    string

	// Model version ("0", "2.0", "2.1").
	ModelVersion string

	// StormTime makes storm-time Ap the default geomagnetic mode instead of daily Ap.
	StormTime bool

	// Workers is the number of evaluation goroutines (0 = NumCPU).
	Workers int

	// MetricsAddr serves Prometheus metrics when set (e.g. ":9464").
	MetricsAddr string
}

// LoadDotEnv reads a .env file into the environment if one exists.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			Warnf("cannot load %s: %v", p, err)
		}
	}
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ClickHouseHost:     getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickHousePort:     getEnvInt("CLICKHOUSE_PORT", 9000),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "solar"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		DataDir:            getEnv("KI7MT_DATA_DIR", "/var/lib/ki7mt-ai-lab"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		IndexSource:        getEnv("MSIS_INDEX_SOURCE", "celestrak"),
		IndexURL:           getEnv("MSIS_INDEX_URL", ""),
		ModelVersion:       getEnv("MSIS_VERSION", "2.1"),
		StormTime:          getEnvBool("MSIS_STORM_TIME", false),
		Workers:            getEnvInt("MSIS_WORKERS", runtime.NumCPU()),
		MetricsAddr:        getEnv("MSIS_METRICS_ADDR", ""),
	}
}

// ClickHouseAddr returns host:port for the native protocol.
func (c *Config) ClickHouseAddr() string {
	return fmt.Sprintf("%s:%d", c.ClickHouseHost, c.ClickHousePort)
}

// SolarDataDir returns the solar data directory path.
func (c *Config) SolarDataDir() string {
	return filepath.Join(c.DataDir, "solar")
}

// MSISDataDir returns the directory for model run output.
func (c *Config) MSISDataDir() string {
	return filepath.Join(c.DataDir, "msis")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
