package errcache

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// ErrCache remembers the most recent error for a key for a limited time.
type ErrCache struct {
	cache *cache.Cache
	mu    sync.Mutex
}

func NewErrCache(expiration time.Duration) *ErrCache {
	return &ErrCache{cache: cache.New(expiration, expiration*2)}
}

func (e *ErrCache) Resize(expiration time.Duration) {
	e.mu.Lock()
	e.cache = cache.NewFrom(expiration, expiration*2, e.cache.Items())
	e.mu.Unlock()
}

func (e *ErrCache) Get(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err, ok := e.cache.Get(key); ok {
		return err.(error)
	}
	return nil
}

func (e *ErrCache) Set(key string, err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	e.cache.Set(key, err, cache.DefaultExpiration)
	e.mu.Unlock()
}

func (e *ErrCache) Forget(key string) {
	e.mu.Lock()
	e.cache.Delete(key)
	e.mu.Unlock()
}

func (e *ErrCache) Flush() {
	e.mu.Lock()
	e.cache.Flush()
	e.mu.Unlock()
}
