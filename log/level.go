package log

import (
	"strings"

	"github.com/rs/zerolog"
)

// Level is the severity of a log event. Higher values are more severe.
type Level int8

const (
	// TraceLevel is for per-frame diagnostics such as skip distances and raw header values.
	TraceLevel Level = iota + 1
	// DebugLevel is for registry construction details and plugin wiring.
	DebugLevel
	// InfoLevel is for lifecycle events: registry ready, plugins set up, shutdown.
	InfoLevel
	// WarnLevel is for recoverable per-frame problems (unknown type, undecodable body).
	WarnLevel
	// ErrorLevel is for failed operations that the caller must act on.
	ErrorLevel
	// FatalLevel terminates the process after the event is written.
	FatalLevel
)

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case TraceLevel:
		return "TRACE"
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a case-insensitive level name into a Level.
// Unrecognised input yields InfoLevel; use LookupLevel to detect it.
func ParseLevel(levelStr string) Level {
	if l, ok := LookupLevel(levelStr); ok {
		return l
	}
	return InfoLevel
}

// LookupLevel converts a case-insensitive level name into a Level and reports
// whether the name was recognised.
func LookupLevel(levelStr string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "TRACE":
		return TraceLevel, true
	case "DEBUG":
		return DebugLevel, true
	case "INFO":
		return InfoLevel, true
	case "WARN", "WARNING":
		return WarnLevel, true
	case "ERROR":
		return ErrorLevel, true
	case "FATAL":
		return FatalLevel, true
	}
	return InfoLevel, false
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case TraceLevel:
		return zerolog.TraceLevel
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case FatalLevel:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
