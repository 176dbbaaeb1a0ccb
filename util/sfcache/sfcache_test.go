package sfcache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGroupSharesConcurrentCalls(t *testing.T) {
	g := NewGroup[string]()
	var calls atomic.Int32
	release := make(chan struct{})

	wg := &sync.WaitGroup{}
	results := make([]string, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err, _ := g.Do("key", func() (string, error) {
				calls.Add(1)
				<-release
				return "value", nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "value", r)
	}
}

func TestGroupNilResult(t *testing.T) {
	g := NewGroup[*int]()
	boom := errors.New("boom")
	v, err, shared := g.Do("key", func() (*int, error) {
		return nil, boom
	})
	assert.Nil(t, v)
	assert.ErrorIs(t, err, boom)
	assert.False(t, shared)
}
