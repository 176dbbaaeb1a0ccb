package sfcache

import (
	"golang.org/x/sync/singleflight"
)

// Group is a typed wrapper around singleflight.Group. Unlike a cache it keeps
// nothing once the shared call returns.
type Group[T any] struct {
	sf singleflight.Group
}

func NewGroup[T any]() *Group[T] {
	return &Group[T]{}
}

func (g *Group[T]) Do(key string, fn func() (T, error)) (T, error, bool) {
	v, err, shared := g.sf.Do(key, func() (interface{}, error) {
		return fn()
	})
	if v == nil {
		var zero T
		return zero, err, shared
	}
	// Safe cast because only fn's results are ever stored
	return v.(T), err, shared
}

func (g *Group[T]) Forget(key string) {
	g.sf.Forget(key)
}
