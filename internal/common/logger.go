package common

import (
	"log"
	"strings"
	"sync/atomic"
)

// LogLevel orders log severities; smaller is more verbose.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var logLevel atomic.Int32

func init() {
	logLevel.Store(int32(LevelInfo))
}

// ParseLogLevel maps "debug", "info", "warn", "error" (any case) to a level.
// Unknown values map to LevelInfo.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetLogLevel sets the global log level from its string name.
func SetLogLevel(level string) {
	logLevel.Store(int32(ParseLogLevel(level)))
}

// CurrentLogLevel returns the active level.
func CurrentLogLevel() LogLevel {
	return LogLevel(logLevel.Load())
}

func logf(level LogLevel, tag, format string, v ...interface{}) {
	if CurrentLogLevel() <= level {
		log.Printf(tag+" "+format, v...)
	}
}

// Debugf logs at DEBUG level.
func Debugf(format string, v ...interface{}) { logf(LevelDebug, "[DEBUG]", format, v...) }

// Infof logs at INFO level.
func Infof(format string, v ...interface{}) { logf(LevelInfo, "[INFO]", format, v...) }

// Warnf logs at WARN level.
func Warnf(format string, v ...interface{}) { logf(LevelWarn, "[WARN]", format, v...) }

// Errorf logs at ERROR level.
func Errorf(format string, v ...interface{}) { logf(LevelError, "[ERROR]", format, v...) }
