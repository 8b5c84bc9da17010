package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// NewTestLogger returns a Logger that discards everything.
func NewTestLogger() Logger {
	return Logger{Logger: zerolog.Nop()}
}

// NewBufferedTestLogger writes JSON lines without timestamps, at debug level,
// so tests can decode and assert on individual fields.
func NewBufferedTestLogger(w io.Writer) Logger {
	return Logger{Logger: zerolog.New(w).Level(zerolog.DebugLevel)}
}
