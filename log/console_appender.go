package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ConsoleAppender renders events as coloured, human-readable lines on stdout.
type ConsoleAppender struct {
	w zerolog.ConsoleWriter
}

// NewConsoleAppender creates a console appender writing to stdout.
func NewConsoleAppender(noColor bool) *ConsoleAppender {
	return newConsoleAppender(os.Stdout, noColor)
}

func newConsoleAppender(out io.Writer, noColor bool) *ConsoleAppender {
	return &ConsoleAppender{
		w: zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    noColor,
			TimeFormat: time.RFC3339Nano,
		},
	}
}

// Write renders one JSON-encoded zerolog event.
func (ca *ConsoleAppender) Write(buf []byte) (int, error) {
	return ca.w.Write(buf)
}

// Refresh is a no-op; stdout writes are unbuffered.
func (ca *ConsoleAppender) Refresh() error {
	return nil
}

// Close is a no-op; stdout is not owned by the appender.
func (ca *ConsoleAppender) Close() error {
	return nil
}
