package logger

import (
	"io"
	stdlog "log" // aliased to avoid confusion with zerolog's log package

	"github.com/aleister1102/secwatch/internal/common"
	"github.com/aleister1102/secwatch/internal/config"
	"github.com/rs/zerolog"
)

// Builder assembles a zerolog.Logger from the application log config.
type Builder struct {
	opts Options
}

func NewBuilder() *Builder {
	return &Builder{opts: Options{
		Level:      zerolog.InfoLevel,
		Format:     FormatConsole,
		MaxSizeMB:  defaultMaxSizeMB,
		MaxBackups: defaultMaxBackups,
	}}
}

// WithConfig applies cfg. An unknown level falls back to info; the console
// output set earlier is kept.
func (b *Builder) WithConfig(cfg config.LogConfig) *Builder {
	opts, _ := OptionsFrom(cfg)
	opts.Console = b.opts.Console
	b.opts = opts
	return b
}

// WithLevel overrides the configured level.
func (b *Builder) WithLevel(level zerolog.Level) *Builder {
	b.opts.Level = level
	return b
}

// WithConsoleOutput redirects console output away from os.Stderr.
func (b *Builder) WithConsoleOutput(w io.Writer) *Builder {
	b.opts.Console = w
	return b
}

// Options returns the options Build will use.
func (b *Builder) Options() Options {
	return b.opts
}

// Build creates the logger. Console output is always on; a file is added
// when FilePath is set. The standard log package, which net/http writes
// to, is routed through the result.
func (b *Builder) Build() (zerolog.Logger, error) {
	if b.opts.MaxSizeMB <= 0 {
		return zerolog.Logger{}, common.NewValidationError("max_size_mb", b.opts.MaxSizeMB, "max size must be positive")
	}

	writers := []io.Writer{consoleWriter(b.opts)}
	if b.opts.FilePath != "" {
		fw, err := fileWriter(b.opts)
		if err != nil {
			return zerolog.Logger{}, common.WrapErrorf(err, "failed to open log file %s", b.opts.FilePath)
		}
		writers = append(writers, fw)
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(b.opts.Level).
		With().
		Timestamp().
		Logger()

	stdlog.SetOutput(log)
	stdlog.SetFlags(0)
	return log, nil
}
