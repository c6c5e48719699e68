package metrics

import "sync"

// Reporter receives every measurement. Implementations must be safe for concurrent use.
type Reporter interface {
	Report(r Record)
}

var (
	_reporters     []Reporter
	_lockReporters sync.RWMutex
)

// SetMetricsReporters replaces the registered reporters.
func SetMetricsReporters(reports []Reporter) {
	_lockReporters.Lock()
	defer _lockReporters.Unlock()
	_reporters = append([]Reporter(nil), reports...)
}

// AddReporter registers one more reporter.
func AddReporter(r Reporter) {
	_lockReporters.Lock()
	defer _lockReporters.Unlock()
	_reporters = append(_reporters, r)
}

// RemoveReporter unregisters r. Unknown reporters are ignored.
func RemoveReporter(r Reporter) {
	_lockReporters.Lock()
	defer _lockReporters.Unlock()
	for i, cur := range _reporters {
		if cur == r {
			_reporters = append(_reporters[:i:i], _reporters[i+1:]...)
			return
		}
	}
}

func report(r Record) {
	_lockReporters.RLock()
	reps := _reporters
	_lockReporters.RUnlock()
	for _, rep := range reps {
		rep.Report(r)
	}
}
