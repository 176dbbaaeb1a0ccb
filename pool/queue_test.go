package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueueBoundsWorkers(t *testing.T) {
	q, err := NewQueue(2, "test")
	assert.NoError(t, err)
	defer q.Release()

	var running atomic.Int32
	var maxRunning atomic.Int32
	wg := &sync.WaitGroup{}
	for i := 0; i < 6; i++ {
		wg.Add(1)
		assert.NoError(t, q.Schedule(func() {
			defer wg.Done()
			n := running.Add(1)
			for {
				m := maxRunning.Load()
				if n <= m || maxRunning.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
		}))
	}
	wg.Wait()
	assert.LessOrEqual(t, maxRunning.Load(), int32(2))
}

func TestQueueSurvivesPanics(t *testing.T) {
	q, err := NewQueue(1, "test")
	assert.NoError(t, err)
	defer q.Release()

	assert.NoError(t, q.Schedule(func() {
		panic("boom")
	}))

	done := make(chan bool, 1)
	assert.NoError(t, q.Schedule(func() {
		done <- true
	}))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queue stopped working after a panic")
	}
}

func TestQueueRejectsAfterRelease(t *testing.T) {
	q, err := NewQueue(1, "test")
	assert.NoError(t, err)
	q.Release()
	assert.Error(t, q.Schedule(func() {}))
}
