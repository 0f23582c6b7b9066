package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecord(t *testing.T) {
	c := NewCollector()

	c.Record(OpChatAnswer, 100*time.Millisecond, false)
	c.Record(OpChatAnswer, 300*time.Millisecond, false)
	c.Record(OpChatAnswer, 200*time.Millisecond, true)

	snap := c.Snapshot()
	op, ok := snap.Operations[OpChatAnswer]
	require.True(t, ok)
	assert.Equal(t, int64(3), op.Count)
	assert.Equal(t, int64(1), op.Errors)
	assert.Equal(t, int64(600), op.TotalTimeMs)
	assert.Equal(t, int64(100), op.MinTimeMs)
	assert.Equal(t, int64(300), op.MaxTimeMs)
	assert.InDelta(t, 200.0, op.AvgTimeMs, 0.01)
}

func TestCollectorEmptyOperationsOmitted(t *testing.T) {
	c := NewCollector()
	c.Record(OpReport, 50*time.Millisecond, false)

	snap := c.Snapshot()
	assert.Len(t, snap.Operations, 1)
	_, ok := snap.Operations[OpChatStream]
	assert.False(t, ok)
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Record(OpChatStream, time.Millisecond, false)
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.Equal(t, int64(1000), snap.Operations[OpChatStream].Count)
}
