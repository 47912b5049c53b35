// Package logger builds the zerolog loggers used across secwatch: console
// output in json, console or text encoding, plus an optional rotating file.
package logger

import (
	"io"

	"github.com/aleister1102/secwatch/internal/config"
	"github.com/rs/zerolog"
)

// New creates a logger from cfg writing console output to console
// (os.Stderr when nil).
func New(cfg config.LogConfig, console io.Writer) (zerolog.Logger, error) {
	return NewBuilder().WithConsoleOutput(console).WithConfig(cfg).Build()
}
