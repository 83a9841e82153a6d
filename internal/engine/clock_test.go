package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_Start(t *testing.T) {
	assert.Equal(t, int64(0), NewClock(0).Last())
	assert.Equal(t, int64(41), NewClock(41).Last())
}

func TestClock_NextAdvancesFirst(t *testing.T) {
	c := NewClock(9)

	assert.Equal(t, int64(10), c.Next())
	assert.Equal(t, int64(11), c.Next())
	assert.Equal(t, int64(11), c.Last(), "Last does not advance")
}

func TestClock_ConcurrentNextIsUnique(t *testing.T) {
	c := NewClock(0)
	const workers, perWorker = 32, 200

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]struct{}, workers*perWorker)
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				seq := c.Next()
				mu.Lock()
				seen[seq] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, int64(workers*perWorker), c.Last())
}
