package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	global = zerolog.Nop()
	closer io.Closer
)

// Init initializes the logger. With no file and console disabled, output goes to stdout.
func Init(enabled bool, levelStr, logFile string, console bool) error {
	mu.Lock()
	defer mu.Unlock()

	if closer != nil {
		closer.Close()
		closer = nil
	}

	if !enabled {
		global = zerolog.Nop()
		return nil
	}

	var writers []io.Writer
	if logFile != "" {
		dir := filepath.Dir(logFile)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return errors.Wrap(err, "failed to create log directory")
			}
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return errors.Wrap(err, "failed to open log file")
		}
		writers = append(writers, f)
		closer = f
	}

	if console || len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"})
	}

	global = newLogger(io.MultiWriter(writers...), parseLevel(levelStr))
	return nil
}

// SetOutput points the logger at w, for tests and embedded use.
func SetOutput(w io.Writer, levelStr string) {
	mu.Lock()
	defer mu.Unlock()
	global = newLogger(w, parseLevel(levelStr))
}

// Logger returns the underlying structured logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// parseLevel accepts zerolog level names plus "warning"; anything else is info.
func parseLevel(levelStr string) zerolog.Level {
	normalized := strings.ToLower(strings.TrimSpace(levelStr))
	if normalized == "warning" {
		normalized = "warn"
	}
	level, err := zerolog.ParseLevel(normalized)
	if err != nil || normalized == "" {
		return zerolog.InfoLevel
	}
	return level
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) {
	l := Logger()
	l.Debug().Msgf(format, args...)
}

// Infof logs an info message.
func Infof(format string, args ...interface{}) {
	l := Logger()
	l.Info().Msgf(format, args...)
}

// Warnf logs a warning.
func Warnf(format string, args ...interface{}) {
	l := Logger()
	l.Warn().Msgf(format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) {
	l := Logger()
	l.Error().Msgf(format, args...)
}
