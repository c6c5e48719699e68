package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReporter struct {
	mu      sync.Mutex
	records []Record
}

func (m *mockReporter) Report(r Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *r.Clone())
}

func (m *mockReporter) get() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}

func withMockReporter(t *testing.T) *mockReporter {
	t.Helper()
	rep := &mockReporter{}
	SetMetricsReporters([]Reporter{rep})
	t.Cleanup(func() { SetMetricsReporters(nil) })
	return rep
}

func TestCounter(t *testing.T) {
	rep := withMockReporter(t)

	IncrCounterWithDimGroup("test_counter", "test_group", 3, Dimension{DimStatus: "ok"})
	IncrCounterWithGroup("test_counter", "test_group", 2)

	records := rep.get()
	require.Len(t, records, 2)
	assert.Equal(t, "test_counter", records[0].Metrics().Name())
	assert.Equal(t, "test_group", records[0].Metrics().Group())
	assert.Equal(t, Policy_Sum, records[0].Metrics().Policy())
	assert.Equal(t, Value(3), records[0].Value())
	assert.Equal(t, "ok", records[0].Dimensions()[DimStatus])
	assert.Empty(t, records[1].Dimensions())
}

func TestGetCounterReturnsSameInstance(t *testing.T) {
	a := getCounter("same_counter", GroupWire)
	b := getCounter("same_counter", GroupWire)
	assert.Same(t, a, b)
}

func TestGaugePolicies(t *testing.T) {
	rep := withMockReporter(t)

	UpdateGaugeWithGroup("test_gauge", "g", 10)
	UpdateMaxGaugeWithDimGroup("test_max_gauge", "g", 7, nil)

	records := rep.get()
	require.Len(t, records, 2)
	assert.Equal(t, Policy_Set, records[0].Metrics().Policy())
	assert.Equal(t, Policy_Max, records[1].Metrics().Policy())
}

func TestStopwatch(t *testing.T) {
	rep := withMockReporter(t)

	d := RecordStopwatchWithGroup("test_sw", "g", time.Now().Add(-5*time.Millisecond))
	assert.GreaterOrEqual(t, d, 5*time.Millisecond)

	records := rep.get()
	require.Len(t, records, 1)
	v, cnt := records[0].RawData()
	assert.Equal(t, 1, cnt)
	assert.GreaterOrEqual(t, float64(v), 5.0)
}

func TestRemoveReporter(t *testing.T) {
	a, b := &mockReporter{}, &mockReporter{}
	SetMetricsReporters([]Reporter{a})
	AddReporter(b)
	t.Cleanup(func() { SetMetricsReporters(nil) })

	IncrCounterWithGroup("remove_counter", "g", 1)
	RemoveReporter(a)
	IncrCounterWithGroup("remove_counter", "g", 1)

	assert.Len(t, a.get(), 1)
	assert.Len(t, b.get(), 2)
}
