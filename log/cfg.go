package log

import (
	"fmt"
	"path/filepath"
)

// LogCfg configures the process logger.
type LogCfg struct {
	// LogPath is the target file for the file appender.
	LogPath string `mapstructure:"path"`

	// LogLevel is the minimum level written. Accepts the names understood by ParseLevel
	// when decoded from text configuration.
	LogLevel Level `mapstructure:"level"`

	// FileSplitMB is the size in megabytes at which the log file is rotated.
	FileSplitMB int `mapstructure:"splitMB"`

	// MaxBackups is the number of rotated files kept on disk. Zero keeps all of them.
	MaxBackups int `mapstructure:"maxBackups"`

	// MaxAgeDays removes rotated files older than this many days. Zero disables age pruning.
	MaxAgeDays int `mapstructure:"maxAgeDays"`

	// Compress gzips rotated files.
	Compress bool `mapstructure:"compress"`

	// FileAppender enables file output.
	FileAppender bool `mapstructure:"fileAppender"`

	// ConsoleAppender enables human-readable stdout output.
	ConsoleAppender bool `mapstructure:"consoleAppender"`

	// NoColor disables ANSI colours on the console appender.
	NoColor bool `mapstructure:"noColor"`

	// EnabledCallerInfo adds file:line of the call site to every event.
	EnabledCallerInfo bool `mapstructure:"enabledCallerInfo"`

	// CallerSkip is the number of extra frames skipped when resolving the caller.
	CallerSkip int `mapstructure:"callerSkip"`
}

// Validate checks the configuration for correctness and normalises the log path.
func (cfg *LogCfg) Validate() error {
	if cfg.LogLevel < TraceLevel || cfg.LogLevel > FatalLevel {
		return fmt.Errorf("invalid log level: %d, must be between %d (Trace) and %d (Fatal)",
			cfg.LogLevel, TraceLevel, FatalLevel)
	}

	if cfg.FileAppender && (cfg.FileSplitMB < 1 || cfg.FileSplitMB > 1024) {
		return fmt.Errorf("file split size must be between 1MB and 1024MB, got %dMB", cfg.FileSplitMB)
	}

	if cfg.MaxBackups < 0 {
		return fmt.Errorf("max backups must be non-negative, got %d", cfg.MaxBackups)
	}

	if cfg.MaxAgeDays < 0 {
		return fmt.Errorf("max age must be non-negative, got %d days", cfg.MaxAgeDays)
	}

	if cfg.CallerSkip < 0 {
		return fmt.Errorf("caller skip must be non-negative, got %d", cfg.CallerSkip)
	}

	if cfg.FileAppender && cfg.LogPath == "" {
		return fmt.Errorf("log path cannot be empty when file appender is enabled")
	}
	if cfg.LogPath != "" {
		cfg.LogPath = filepath.Clean(cfg.LogPath)
	}

	if !cfg.FileAppender && !cfg.ConsoleAppender {
		return fmt.Errorf("at least one appender (file or console) must be enabled")
	}
	return nil
}

// DefaultCfg returns the configuration used when none is supplied.
func DefaultCfg() *LogCfg {
	return &LogCfg{
		LogPath:           "strixwire.log",
		LogLevel:          InfoLevel,
		FileSplitMB:       50,
		MaxBackups:        5,
		ConsoleAppender:   true,
		EnabledCallerInfo: true,
	}
}
