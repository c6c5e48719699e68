package metrics

import (
	"sync"
	"time"
)

// Metrics is implemented by every metric kind.
type Metrics interface {
	// Name returns the metric name.
	Name() string
	// Group returns the metric group.
	Group() string
	// Policy returns how values of this metric are combined.
	Policy() Policy
}

// family interns the metrics of one kind by name.
type family[T Metrics] struct {
	mu sync.RWMutex
	m  map[string]T
}

func newFamily[T Metrics]() *family[T] {
	return &family[T]{m: map[string]T{}}
}

// get returns the metric called name, creating it with create on first use.
func (f *family[T]) get(name string, create func() T) T {
	f.mu.RLock()
	v, ok := f.m[name]
	f.mu.RUnlock()
	if ok {
		return v
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok = f.m[name]; ok {
		return v
	}
	v = create()
	f.m[name] = v
	return v
}

var (
	_counters   = newFamily[Counter]()
	_gauges     = newFamily[Gauge]()
	_maxGauges  = newFamily[Gauge]()
	_stopwatchs = newFamily[StopWatch]()
)

// IncrCounterWithGroup adds value to the named counter.
func IncrCounterWithGroup(key string, group string, value Value) {
	getCounter(key, group).Incr(value)
}

// IncrCounterWithDimGroup adds value to the named counter under dimensions.
func IncrCounterWithDimGroup(key string, group string, value Value, dimensions Dimension) {
	getCounter(key, group).IncrWithDim(value, dimensions)
}

// UpdateGaugeWithGroup sets the named gauge.
func UpdateGaugeWithGroup(key string, group string, value Value) {
	getGauge(key, group).Update(value)
}

// UpdateGaugeWithDimGroup sets the named gauge under dimensions.
func UpdateGaugeWithDimGroup(key string, group string, value Value, dimensions Dimension) {
	getGauge(key, group).UpdateWithDim(value, dimensions)
}

// UpdateMaxGaugeWithDimGroup offers value to the named max gauge under dimensions.
func UpdateMaxGaugeWithDimGroup(key string, group string, value Value, dimensions Dimension) {
	getMaxGauge(key, group).UpdateWithDim(value, dimensions)
}

// RecordStopwatchWithGroup reports the time elapsed since startTime.
func RecordStopwatchWithGroup(key string, group string, startTime time.Time) time.Duration {
	return getStopWatch(key, group).RecordWithDim(nil, startTime)
}

// RecordStopwatchWithDimGroup reports the time elapsed since startTime under dimensions.
func RecordStopwatchWithDimGroup(key string, group string, startTime time.Time, dimensions Dimension) time.Duration {
	return getStopWatch(key, group).RecordWithDim(dimensions, startTime)
}

func getCounter(name string, group string) Counter {
	return _counters.get(name, func() Counter {
		return &counter{meta{name: name, group: group, policy: Policy_Sum}}
	})
}

func getGauge(name string, group string) Gauge {
	return _gauges.get(name, func() Gauge {
		return &gauge{meta{name: name, group: group, policy: Policy_Set}}
	})
}

func getMaxGauge(name string, group string) Gauge {
	return _maxGauges.get(name, func() Gauge {
		return &gauge{meta{name: name, group: group, policy: Policy_Max}}
	})
}

func getStopWatch(name string, group string) StopWatch {
	return _stopwatchs.get(name, func() StopWatch {
		return &stopwatch{meta{name: name, group: group, policy: Policy_Stopwatch}}
	})
}
