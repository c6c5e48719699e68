package metrics

import "time"

// Counter accumulates values that only grow.
type Counter interface {
	Metrics
	// Incr adds delta without dimensions.
	Incr(delta Value)
	// IncrWithDim adds delta under the given dimensions.
	IncrWithDim(delta Value, dimensions Dimension)
}

// Gauge is a point-in-time value. Its Policy decides whether a new value
// replaces the old one or only a larger one does.
type Gauge interface {
	Metrics
	Update(value Value)
	UpdateWithDim(value Value, dimensions Dimension)
}

// StopWatch measures how long an operation took.
type StopWatch interface {
	Metrics
	// RecordWithDim reports the time elapsed since startTime and returns it.
	RecordWithDim(dimensions Dimension, startTime time.Time) time.Duration
}

// meta is the identity shared by every metric kind.
type meta struct {
	name   string
	group  string
	policy Policy
}

func (m *meta) Name() string   { return m.name }
func (m *meta) Group() string  { return m.group }
func (m *meta) Policy() Policy { return m.policy }

type counter struct{ meta }

func (c *counter) Incr(v Value) { c.IncrWithDim(v, nil) }

func (c *counter) IncrWithDim(v Value, dimensions Dimension) {
	report(Record{metrics: c, value: v, dimensions: dimensions})
}

type gauge struct{ meta }

func (g *gauge) Update(v Value) { g.UpdateWithDim(v, nil) }

func (g *gauge) UpdateWithDim(v Value, dimensions Dimension) {
	report(Record{metrics: g, value: v, dimensions: dimensions})
}

type stopwatch struct{ meta }

// RecordWithDim reports the elapsed time in milliseconds.
func (s *stopwatch) RecordWithDim(dimensions Dimension, startTime time.Time) time.Duration {
	d := time.Since(startTime)
	report(Record{
		metrics:    s,
		value:      Value(float64(d.Microseconds()) / 1000),
		cnt:        1,
		dimensions: dimensions,
	})
	return d
}
