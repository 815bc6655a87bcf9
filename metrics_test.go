package slabkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasicMetricsCollector(t *testing.T) {
	m := &BasicMetricsCollector{}

	m.RecordAlloc(16, false)
	m.RecordAlloc(16, true)
	m.RecordAlloc(64, false)
	m.RecordDealloc(16, true)

	stats := m.GetStats()
	assert.Equal(t, int64(3), stats.AllocCount)
	assert.Equal(t, int64(1), stats.FallbackAllocCount)
	assert.Equal(t, int64(1), stats.DeallocCount)
	assert.Equal(t, int64(1), stats.FallbackDeallocCount)
	assert.Equal(t, int64(2), stats.Outstanding)
}

func TestNoopMetricsCollector(t *testing.T) {
	var m MetricsCollector = NoopMetricsCollector{}
	m.RecordAlloc(16, false)
	m.RecordDealloc(16, false)
}
