package log

// LogAppender is an output destination for formatted log events.
// Implementations must be safe for concurrent use.
type LogAppender interface {
	// Write outputs one encoded event.
	Write(buf []byte) (n int, err error)

	// Refresh forces any buffered output to its destination.
	Refresh() error

	// Close flushes and releases the underlying resources.
	Close() error
}
