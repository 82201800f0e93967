package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string // trace, debug, info, warn, error, fatal, panic
	Format     string // json, console
	TimeFormat string // RFC3339, Unix, or custom format
	Output     string // stdout, stderr, or file path
}

// DefaultConfig returns a sensible default logging configuration
func DefaultConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
		Output:     "stderr",
	}
}

// Setup initializes the global logger with the provided configuration.
// Report output goes to stdout, so logs default to stderr.
func Setup(config LogConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", config.Level, err)
	}

	output, err := openOutput(config.Output)
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(level)
	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	log.Logger = New(output, config)

	// A file from an earlier Setup is no longer referenced by the global logger.
	_ = closeLogFile()
	if f, ok := output.(*os.File); ok && f != os.Stderr && f != os.Stdout {
		logFile = f
	}
	return nil
}

// logFile is the file opened for LOG_OUTPUT, if any.
var logFile *os.File

// Close closes the log file opened by Setup and points the global logger
// back to stderr. Without a log file it does nothing.
func Close() error {
	if logFile == nil {
		return nil
	}
	log.Logger = New(os.Stderr, DefaultConfig())
	return closeLogFile()
}

func closeLogFile() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// New builds a logger writing to w in the configured format.
func New(w io.Writer, config LogConfig) zerolog.Logger {
	if strings.ToLower(config.Format) != "json" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: config.TimeFormat,
		}
	}
	return zerolog.New(w).With().
		Timestamp().
		Caller().
		Logger()
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		// Assume it's a file path
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return file, nil
	}
}

// WithComponent returns a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// WithRunID returns a component logger tagged with a report run id
func WithRunID(component, runID string) zerolog.Logger {
	return log.Logger.With().
		Str("component", component).
		Str("run_id", runID).
		Logger()
}
