package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const textTimeFormat = "15:04:05.000"

// encoders wrap an output in the encoding of one LogFormat. Console output
// is colored only on the terminal, never in files.
var encoders = map[LogFormat]func(out io.Writer, color bool) io.Writer{
	FormatJSON: func(out io.Writer, _ bool) io.Writer {
		return out
	},
	FormatConsole: func(out io.Writer, color bool) io.Writer {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: !color}
	},
	// Plain lines with a short clock, for editor output panes.
	FormatText: func(out io.Writer, _ bool) io.Writer {
		return zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: textTimeFormat,
			NoColor:    true,
			PartsOrder: []string{
				zerolog.TimestampFieldName,
				zerolog.LevelFieldName,
				zerolog.MessageFieldName,
			},
		}
	},
}

func encode(format LogFormat, out io.Writer, color bool) io.Writer {
	enc, ok := encoders[format]
	if !ok {
		enc = encoders[FormatConsole]
	}
	return enc(out, color)
}

func consoleWriter(opts Options) io.Writer {
	out := opts.Console
	if out == nil {
		out = os.Stderr
	}
	return encode(opts.Format, out, true)
}

// fileWriter opens a size-rotated log file, creating its directory.
func fileWriter(opts Options) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0755); err != nil {
		return nil, err
	}
	rotating := &lumberjack.Logger{
		Filename:   opts.FilePath,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		LocalTime:  true,
	}
	return encode(opts.Format, rotating, false), nil
}
