// Package log is the structured logger shared by every strixwire package.
// Events are built fluently (log.Info().Str("k", "v").Msg("...")) and fanned out
// to the configured appenders.
package log

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Event is a single structured log entry under construction.
type Event = zerolog.Event

// Logger is the interface implemented by WireLogger.
type Logger interface {
	Trace() *Event
	Debug() *Event
	Info() *Event
	Warn() *Event
	Error() *Event
	Fatal() *Event
	GetAppender() []LogAppender
	AddAppender(appender LogAppender)
}

// WireLogger writes zerolog events to a set of appenders.
type WireLogger struct {
	mu        sync.RWMutex
	zl        zerolog.Logger
	appenders []LogAppender
	cfg       *LogCfg
}

var _ Logger = (*WireLogger)(nil)

var _defaultLogger atomic.Pointer[WireLogger]

func init() {
	_defaultLogger.Store(NewLogger(DefaultCfg()))
}

// NewLogger builds a logger from cfg. A nil cfg uses the defaults.
func NewLogger(cfg *LogCfg) *WireLogger {
	if cfg == nil {
		cfg = DefaultCfg()
	}
	x := &WireLogger{cfg: cfg}
	if cfg.FileAppender {
		x.appenders = append(x.appenders, NewFileAppender(cfg))
	}
	if cfg.ConsoleAppender {
		x.appenders = append(x.appenders, NewConsoleAppender(cfg.NoColor))
	}
	x.rebuild()
	return x
}

func (x *WireLogger) rebuild() {
	writers := make([]io.Writer, 0, len(x.appenders))
	for _, a := range x.appenders {
		writers = append(writers, a)
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(x.cfg.LogLevel.zerolog()).
		With().Timestamp()
	if x.cfg.EnabledCallerInfo {
		ctx = ctx.CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + x.cfg.CallerSkip)
	}
	x.zl = ctx.Logger()
}

func (x *WireLogger) logger() *zerolog.Logger {
	x.mu.RLock()
	l := x.zl
	x.mu.RUnlock()
	return &l
}

// Trace starts a trace-level event.
func (x *WireLogger) Trace() *Event { return x.logger().Trace() }

// Debug starts a debug-level event.
func (x *WireLogger) Debug() *Event { return x.logger().Debug() }

// Info starts an info-level event.
func (x *WireLogger) Info() *Event { return x.logger().Info() }

// Warn starts a warn-level event.
func (x *WireLogger) Warn() *Event { return x.logger().Warn() }

// Error starts an error-level event.
func (x *WireLogger) Error() *Event { return x.logger().Error() }

// Fatal starts a fatal-level event; Msg exits the process.
func (x *WireLogger) Fatal() *Event { return x.logger().Fatal() }

// AddAppender attaches another output destination.
func (x *WireLogger) AddAppender(appender LogAppender) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.appenders = append(x.appenders, appender)
	x.rebuild()
}

// GetAppender returns the attached appenders.
func (x *WireLogger) GetAppender() []LogAppender {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.appenders
}

// Refresh flushes every appender.
func (x *WireLogger) Refresh() {
	for _, a := range x.GetAppender() {
		_ = a.Refresh()
	}
}

// Close flushes and closes every appender.
func (x *WireLogger) Close() {
	for _, a := range x.GetAppender() {
		_ = a.Close()
	}
}

// Initialize validates cfg and installs a logger built from it as the default.
// A nil cfg restores the defaults.
func Initialize(cfg *LogCfg) error {
	if cfg == nil {
		cfg = DefaultCfg()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	SetDefaultLogger(NewLogger(cfg))
	return nil
}

// SetDefaultLogger replaces the logger used by the package-level helpers.
// It is safe to call while other goroutines log. A nil logger is ignored.
func SetDefaultLogger(logger *WireLogger) {
	if logger != nil {
		_defaultLogger.Store(logger)
	}
}

// DefaultLogger returns the logger used by the package-level helpers.
func DefaultLogger() *WireLogger {
	return _defaultLogger.Load()
}

// AddAppender attaches an appender to the default logger.
func AddAppender(appender LogAppender) {
	_defaultLogger.Load().AddAppender(appender)
}

// Refresh flushes the default logger.
func Refresh() {
	_defaultLogger.Load().Refresh()
}

// Close flushes and closes the default logger.
func Close() {
	_defaultLogger.Load().Close()
}

// Trace starts a trace-level event on the default logger.
func Trace() *Event { return _defaultLogger.Load().Trace() }

// Debug starts a debug-level event on the default logger.
func Debug() *Event { return _defaultLogger.Load().Debug() }

// Info starts an info-level event on the default logger.
func Info() *Event { return _defaultLogger.Load().Info() }

// Warn starts a warn-level event on the default logger.
func Warn() *Event { return _defaultLogger.Load().Warn() }

// Error starts an error-level event on the default logger.
func Error() *Event { return _defaultLogger.Load().Error() }

// Fatal starts a fatal-level event on the default logger.
func Fatal() *Event { return _defaultLogger.Load().Fatal() }
