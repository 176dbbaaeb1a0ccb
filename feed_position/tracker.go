// Package feed_position turns a noisy scroll offset into the index of the item
// on screen.
package feed_position

import (
	"math"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/sirupsen/logrus"
)

type IndexFunc func(index int)

// Tracker reports the current feed index once the scroll offset has been
// quiet for the debounce period, and only when the index actually changed.
type Tracker struct {
	onIndex   IndexFunc
	debounced func(f func()) // nil when emitting synchronously
	log       *logrus.Entry

	mu         sync.Mutex
	itemExtent float64
	offset     float64
	hasOffset  bool
	dirty      bool
	emitted    int
	hasEmitted bool
	stopped    bool

	emitLock sync.Mutex
}

// IndexFor is round(offset / extent), never below zero.
func IndexFor(offset float64, extent float64) int {
	if extent <= 0 || math.IsNaN(offset) || offset <= 0 {
		return 0
	}
	return int(math.Round(offset / extent))
}

func NewTracker(itemExtent float64, quiet time.Duration, onIndex IndexFunc) *Tracker {
	t := &Tracker{
		onIndex:    onIndex,
		itemExtent: itemExtent,
		log:        logrus.WithField("component", "feed_position"),
	}
	if itemExtent <= 0 {
		t.log.Warnf("Item extent %.1f is not usable, assuming 1", itemExtent)
		t.itemExtent = 1
	}
	if quiet > 0 {
		t.debounced = debounce.New(quiet)
	}
	return t
}

// Observe records a raw scroll offset.
func (t *Tracker) Observe(offset float64) {
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return
	}

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.offset = offset
	t.hasOffset = true
	t.dirty = true
	t.mu.Unlock()

	if t.debounced == nil {
		t.emit()
		return
	}
	t.debounced(t.emit)
}

// Flush emits the index for the latest offset now instead of waiting for the
// quiet period.
func (t *Tracker) Flush() {
	t.emit()
}

// SetItemExtent changes the item height (or width) used for the index, such
// as after a layout change. The index is recomputed from the last offset.
func (t *Tracker) SetItemExtent(extent float64) {
	if extent <= 0 {
		t.log.Warnf("Ignoring unusable item extent %.1f", extent)
		return
	}

	t.mu.Lock()
	if t.stopped || t.itemExtent == extent {
		t.mu.Unlock()
		return
	}
	t.itemExtent = extent
	t.dirty = t.hasOffset
	t.mu.Unlock()

	t.emit()
}

// LastIndex is the most recently emitted index.
func (t *Tracker) LastIndex() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.emitted, t.hasEmitted
}

// Stop drops any pending emission. Observations after Stop are ignored.
func (t *Tracker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.dirty = false
	t.mu.Unlock()
}

func (t *Tracker) emit() {
	t.emitLock.Lock()
	defer t.emitLock.Unlock()

	t.mu.Lock()
	if t.stopped || !t.dirty {
		t.mu.Unlock()
		return
	}
	t.dirty = false
	index := IndexFor(t.offset, t.itemExtent)
	if t.hasEmitted && index == t.emitted {
		t.mu.Unlock()
		return
	}
	t.emitted = index
	t.hasEmitted = true
	t.mu.Unlock()

	t.log.Debugf("Viewer is now at index %d", index)
	if t.onIndex != nil {
		t.onIndex(index)
	}
}
