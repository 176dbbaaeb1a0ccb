package preloader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/t2bot/feed-preloader/metrics"
	"github.com/t2bot/feed-preloader/playback"
	"github.com/t2bot/feed-preloader/preload_cache"
)

type Stats struct {
	Total     int // streamed items in the feed
	Loaded    int
	Loading   int
	Queued    int
	Failed    int
	CacheSize int
}

// StateRetrying is reported for a loading item which already failed at least
// once and is working through its retry budget.
const StateRetrying = "retrying"

type ItemStatus struct {
	ItemId     string `json:"item_id"`
	Url        string `json:"url"`
	Position   int    `json:"position"`
	State      string `json:"state"`
	RetryCount int    `json:"retry_count"`
	LastError  string `json:"last_error,omitempty"`
	UpdatedTs  int64  `json:"updated_ts,omitempty"`
}

func (m *Manager) preloadedLocked(url string) (playback.Handle, bool) {
	entry, found := m.store.Get(url)
	if !found || entry.State != preload_cache.StateLoaded || entry.Handle == nil {
		return nil, false
	}
	return entry.Handle, true
}

// GetPreloadedHandle returns the ready handle for url, if the item has been
// preloaded. The manager keeps ownership of the handle.
func (m *Manager) GetPreloadedHandle(url string) (playback.Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false
	}

	h, ok := m.preloadedLocked(url)
	if ok {
		metrics.CacheHits.With(prometheus.Labels{"cache": "preload"}).Inc()
	} else {
		metrics.CacheMisses.With(prometheus.Labels{"cache": "preload"}).Inc()
	}
	return h, ok
}

// GetLoadingStatus maps every streamed item id to whether it is queued or
// loading right now.
func (m *Manager) GetLoadingStatus() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := make(map[string]bool, len(m.byUrl))
	for url, item := range m.byUrl {
		entry, found := m.store.Get(url)
		status[item.Id] = found && (entry.State == preload_cache.StateQueued || entry.State == preload_cache.StateLoading)
	}
	return status
}

// GetItemStatuses describes every streamed item in feed order, including the
// ones without a cache entry.
func (m *Manager) GetItemStatuses() []ItemStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	statuses := make([]ItemStatus, 0, len(m.byUrl))
	for _, item := range m.items {
		if first, ok := m.byUrl[item.Url]; !ok || first.Position != item.Position {
			continue
		}
		s := ItemStatus{
			ItemId:   item.Id,
			Url:      item.Url,
			Position: item.Position,
			State:    preload_cache.StateNotLoaded.String(),
		}
		if entry, found := m.store.Get(item.Url); found {
			s.State = entry.State.String()
			if entry.State == preload_cache.StateLoading && entry.RetryCount > 0 {
				s.State = StateRetrying
			}
			s.RetryCount = entry.RetryCount
			s.UpdatedTs = entry.UpdatedTs
			if entry.LastError != nil {
				s.LastError = entry.LastError.Error()
			}
		} else if err := m.failures.Get(item.Url); err != nil {
			s.LastError = err.Error()
		}
		statuses = append(statuses, s)
	}
	return statuses
}

func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := m.store.CountByState()
	return Stats{
		Total:     len(m.byUrl),
		Loaded:    counts[preload_cache.StateLoaded],
		Loading:   counts[preload_cache.StateLoading],
		Queued:    counts[preload_cache.StateQueued],
		Failed:    counts[preload_cache.StateFailed],
		CacheSize: m.store.Count(),
	}
}

// GetLastError is the most recent load failure for url. Failures are
// remembered for a while after the entry itself was evicted.
func (m *Manager) GetLastError(url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, found := m.store.Get(url); found && entry.LastError != nil {
		return entry.LastError
	}
	return m.failures.Get(url)
}

// CurrentOptions returns the settings the manager is running with.
func (m *Manager) CurrentOptions() Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opts
}
