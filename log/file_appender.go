package log

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileAppender writes JSON lines to a size-rotated file.
type FileAppender struct {
	out *lumberjack.Logger
}

// NewFileAppender creates a file appender from the rotation settings in cfg.
func NewFileAppender(cfg *LogCfg) *FileAppender {
	return &FileAppender{
		out: &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    cfg.FileSplitMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
			LocalTime:  true,
		},
	}
}

// Write appends one event to the current file, rotating first when it is full.
func (fa *FileAppender) Write(buf []byte) (int, error) {
	return fa.out.Write(buf)
}

// Refresh is a no-op; lumberjack does not buffer.
func (fa *FileAppender) Refresh() error {
	return nil
}

// Rotate closes the current file and starts a new one immediately.
func (fa *FileAppender) Rotate() error {
	return fa.out.Rotate()
}

// Close closes the current file.
func (fa *FileAppender) Close() error {
	return fa.out.Close()
}
