// Package logging provides structured logging for nostrfeed using zerolog.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger. Component loggers derive from it.
var Logger zerolog.Logger

// Config selects level, format and destination.
type Config struct {
	// Level is one of trace, debug, info, warn, error or fatal.
	Level string

	// Format is json or console.
	Format string

	// Output defaults to stderr.
	Output io.Writer

	// File, when set, sends logs to a size-rotated file instead of Output.
	File string

	// MaxSizeMB is the rotation threshold for File.
	MaxSizeMB int

	// MaxBackups is how many rotated files to keep.
	MaxBackups int

	// EnableCaller adds the file:line of each log call.
	EnableCaller bool
}

// DefaultConfig is console output at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     os.Stderr,
		MaxSizeMB:  10,
		MaxBackups: 3,
	}
}

// Init replaces Logger and the global level.
func Init(cfg Config) {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	zerolog.TimeFieldFormat = time.RFC3339

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.File != "" {
		output = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxInt(cfg.MaxSizeMB, 1),
			MaxBackups: cfg.MaxBackups,
		}
	}

	// Human-readable output; files get no color codes.
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
			NoColor:    cfg.File != "",
		}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.EnableCaller {
		ctx = ctx.Caller()
	}
	Logger = ctx.Logger()
}

// Discard silences the global logger. Used while a full-screen UI owns the terminal.
func Discard() {
	Logger = zerolog.Nop()
}

// Unknown levels fall back to info.
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "trace":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component tags Logger with a component name.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// WithRun creates a logger tagged with a fetch cycle id.
func WithRun(logger zerolog.Logger, runID string) zerolog.Logger {
	return logger.With().Str("run_id", runID).Logger()
}

// WithContact tags logger with a contact's display name and identity.
func WithContact(logger zerolog.Logger, name, identity string) zerolog.Logger {
	return logger.With().Str("contact", name).Str("identity", identity).Logger()
}

// WithRelay tags logger with a relay url.
func WithRelay(logger zerolog.Logger, url string) zerolog.Logger {
	return logger.With().Str("relay", url).Logger()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func init() {
	Init(DefaultConfig())
}
