package metrics

import (
	"sync"
)

var beforeMetricsCalledFns = make(map[int]func())
var nextListenerId = 0
var listenersLock = &sync.Mutex{}

// OnBeforeMetricsRequested registers fn to run before every scrape. The
// returned function unregisters it.
func OnBeforeMetricsRequested(fn func()) func() {
	listenersLock.Lock()
	defer listenersLock.Unlock()

	id := nextListenerId
	nextListenerId++
	beforeMetricsCalledFns[id] = fn

	return func() {
		listenersLock.Lock()
		delete(beforeMetricsCalledFns, id)
		listenersLock.Unlock()
	}
}

func runBeforeMetricsRequested() {
	listenersLock.Lock()
	fns := make([]func(), 0, len(beforeMetricsCalledFns))
	for _, fn := range beforeMetricsCalledFns {
		fns = append(fns, fn)
	}
	listenersLock.Unlock()

	for _, fn := range fns {
		fn()
	}
}
