// Package logging configures the process-wide zerolog logger used by dtmctl
// and the examples. Library packages never call it; they take a
// zerolog.Logger through their config.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel   = "DTM_LOG_LEVEL"
	EnvLogFormat  = "DTM_LOG_FORMAT"
	EnvLogNoColor = "DTM_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Config is the resolved logger configuration for a profile.
type Config struct {
	Level     zerolog.Level
	Format    Format
	NoColor   bool
	Timestamp bool
}

var (
	configureOnce sync.Once
	configured    zerolog.Logger
)

func ConfigureRuntime() zerolog.Logger {
	return Configure(ProfileRuntime)
}

func ConfigureTests() zerolog.Logger {
	return Configure(ProfileTest)
}

// Configure builds the logger for profile on first use and returns the same
// logger on every later call.
func Configure(profile Profile) zerolog.Logger {
	configureOnce.Do(func() {
		cfg := DefaultConfig(profile)
		ApplyEnvOverrides(&cfg)
		configured = New(os.Stderr, cfg)
		zerolog.SetGlobalLevel(cfg.Level)
	})
	return configured
}

func DefaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: zerolog.DebugLevel, Format: FormatConsole, NoColor: true}
	default:
		return Config{Level: zerolog.InfoLevel, Format: FormatConsole, Timestamp: true}
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if level, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = level
	}
	if format, ok := parseFormat(os.Getenv(EnvLogFormat)); ok {
		cfg.Format = format
	}
	if value, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = value
	}
}

// New creates a logger writing to out. It does not touch global state.
func New(out io.Writer, cfg Config) zerolog.Logger {
	writer := out
	if cfg.Format == FormatConsole {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		}
	}
	builder := zerolog.New(writer).Level(cfg.Level).With()
	if cfg.Timestamp {
		builder = builder.Timestamp()
	}
	return builder.Logger()
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseFormat(raw string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatJSON:
		return FormatJSON, true
	case FormatConsole, "text", "pretty":
		return FormatConsole, true
	default:
		return "", false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}
