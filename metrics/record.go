package metrics

// Record is a single measurement of one metric.
type Record struct {
	metrics    Metrics
	value      Value
	cnt        int
	dimensions Dimension
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	cp := &Record{
		metrics: r.metrics,
		value:   r.value,
		cnt:     r.cnt,
	}
	cp.dimensions = make(Dimension, len(r.dimensions))
	for k, v := range r.dimensions {
		cp.dimensions[k] = v
	}
	return cp
}

// Metrics returns the metric the record belongs to.
func (r *Record) Metrics() Metrics {
	return r.metrics
}

// Value returns the measured value. Stopwatch records are averaged over their count.
func (r *Record) Value() Value {
	if r.metrics.Policy() == Policy_Stopwatch && r.cnt != 0 {
		return r.value / Value(r.cnt)
	}
	return r.value
}

// RawData returns the value and count without averaging.
func (r *Record) RawData() (Value, int) {
	return r.value, r.cnt
}

// Dimensions returns the record's labels.
func (r *Record) Dimensions() Dimension {
	return r.dimensions
}
