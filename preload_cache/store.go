package preload_cache

import (
	"sort"
	"sync"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/t2bot/feed-preloader/metrics"
	"github.com/t2bot/feed-preloader/playback"
	"github.com/t2bot/feed-preloader/util"
)

type Releaser interface {
	Release(h playback.Handle)
}

// Store maps resource URLs to their preload state. It never starts loads on
// its own; it only records results and releases handles when entries go away.
type Store struct {
	name     string
	cache    *cache.Cache
	releaser Releaser
	rwLock   *sync.RWMutex

	stopMetrics func()
}

func New(name string, releaser Releaser) *Store {
	s := &Store{
		name:     name,
		cache:    cache.New(cache.NoExpiration, 0), // entries leave only through Remove/Clear
		releaser: releaser,
		rwLock:   &sync.RWMutex{},
	}
	s.stopMetrics = metrics.OnBeforeMetricsRequested(s.publishMetrics)
	return s
}

func (s *Store) publishMetrics() {
	counts := s.CountByState()
	for _, state := range AllStates {
		metrics.CacheNumItems.With(prometheus.Labels{"cache": s.name, "state": state.String()}).Set(float64(counts[state]))
	}
}

// Get returns a copy of the entry for url.
func (s *Store) Get(url string) (*CacheEntry, bool) {
	s.rwLock.RLock()
	defer s.rwLock.RUnlock()

	item, found := s.cache.Get(url)
	if !found {
		return nil, false
	}
	entry := *(item.(*CacheEntry))
	return &entry, true
}

func (s *Store) Put(url string, entry CacheEntry) {
	entry.Url = url
	entry.UpdatedTs = util.NowMillis()

	s.rwLock.Lock()
	s.cache.Set(url, &entry, cache.NoExpiration)
	s.rwLock.Unlock()
}

// Remove releases any live handle held by the entry, then deletes it.
// Returns false if there was no entry.
func (s *Store) Remove(url string) bool {
	s.rwLock.Lock()
	defer s.rwLock.Unlock()

	item, found := s.cache.Get(url)
	if !found {
		return false
	}
	entry := item.(*CacheEntry)
	if entry.Handle != nil && s.releaser != nil {
		s.releaser.Release(entry.Handle)
	}
	s.cache.Delete(url)
	return true
}

// Clear releases every live handle and empties the store.
func (s *Store) Clear() int {
	s.rwLock.Lock()
	defer s.rwLock.Unlock()

	items := s.cache.Items()
	for _, item := range items {
		entry := item.Object.(*CacheEntry)
		if entry.Handle != nil && s.releaser != nil {
			s.releaser.Release(entry.Handle)
		}
	}
	s.cache.Flush()
	return len(items)
}

func (s *Store) Count() int {
	s.rwLock.RLock()
	defer s.rwLock.RUnlock()
	return s.cache.ItemCount()
}

// Entries returns copies of all entries ordered by feed position.
func (s *Store) Entries() []CacheEntry {
	s.rwLock.RLock()
	items := s.cache.Items()
	entries := make([]CacheEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, *(item.Object.(*CacheEntry)))
	}
	s.rwLock.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Position == entries[j].Position {
			return entries[i].Url < entries[j].Url
		}
		return entries[i].Position < entries[j].Position
	})
	return entries
}

func (s *Store) CountByState() map[EntryState]int {
	s.rwLock.RLock()
	defer s.rwLock.RUnlock()

	counts := make(map[EntryState]int)
	for _, item := range s.cache.Items() {
		counts[item.Object.(*CacheEntry).State]++
	}
	return counts
}

// Close stops publishing metrics for this store. Entries are left untouched.
func (s *Store) Close() {
	if s.stopMetrics != nil {
		s.stopMetrics()
		s.stopMetrics = nil
	}
}
