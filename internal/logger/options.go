package logger

import (
	"io"
	"strings"

	"github.com/aleister1102/secwatch/internal/common"
	"github.com/aleister1102/secwatch/internal/config"
	"github.com/rs/zerolog"
)

// LogFormat selects how log lines are encoded.
type LogFormat int

const (
	FormatJSON LogFormat = iota
	FormatConsole
	FormatText
)

const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 3
)

func (lf LogFormat) String() string {
	switch lf {
	case FormatJSON:
		return "json"
	case FormatText:
		return "text"
	default:
		return "console"
	}
}

// Options is a resolved log configuration.
type Options struct {
	Level  zerolog.Level
	Format LogFormat

	// FilePath enables rotating file output when set.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int

	// Console receives console output. Nil means os.Stderr.
	Console io.Writer
}

// OptionsFrom resolves cfg, applying defaults for unset sizes. An unparsable
// level falls back to info and is reported through the error.
func OptionsFrom(cfg config.LogConfig) (Options, error) {
	level, err := ParseLevel(cfg.LogLevel)
	opts := Options{
		Level:      level,
		Format:     ParseFormat(cfg.LogFormat),
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.MaxLogSizeMB,
		MaxBackups: cfg.MaxLogBackups,
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = defaultMaxSizeMB
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = defaultMaxBackups
	}
	return opts, err
}

// ParseLevel parses a level name. Unknown or empty names yield info and an error.
func ParseLevel(name string) (zerolog.Level, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return zerolog.InfoLevel, common.NewValidationError("log_level", name, "log level is empty")
	}
	level, err := zerolog.ParseLevel(normalized)
	if err != nil {
		return zerolog.InfoLevel, common.WrapError(err, "invalid log level")
	}
	return level, nil
}

// ParseFormat maps a format name to a LogFormat, defaulting to console.
func ParseFormat(name string) LogFormat {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	default:
		return FormatConsole
	}
}
