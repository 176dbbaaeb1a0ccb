package preloader

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/olebedev/emitter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/feed-preloader/common"
	"github.com/t2bot/feed-preloader/common/rcontext"
	"github.com/t2bot/feed-preloader/errcache"
	"github.com/t2bot/feed-preloader/metrics"
	"github.com/t2bot/feed-preloader/playback"
	"github.com/t2bot/feed-preloader/pool"
	"github.com/t2bot/feed-preloader/preload_cache"
	"github.com/t2bot/feed-preloader/resource_loader"
	"github.com/t2bot/feed-preloader/types"
	"github.com/t2bot/feed-preloader/util"
	"github.com/t2bot/feed-preloader/util/retry"
)

// runningTask is a PreloadTask which holds one of the concurrency slots.
type runningTask struct {
	*PreloadTask
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{} // closed once finish has recorded the outcome
}

// Manager keeps the media around the viewer's position ready to play. All
// scheduling state is guarded by one mutex; loads run on a worker queue and
// only re-enter the Manager through finish and the retry notifications.
type Manager struct {
	ctx    rcontext.RequestContext
	cancel context.CancelFunc

	loader   *resource_loader.Loader
	store    *preload_cache.Store
	failures *errcache.ErrCache
	queue    *pool.Queue
	events   *emitter.Emitter
	running  sync.WaitGroup

	mu           sync.Mutex
	opts         Options
	items        []types.FeedItem
	byUrl        map[string]types.FeedItem // streamed items only
	currentIndex int
	pending      *taskQueue
	active       int
	inFlight     map[string]*runningTask
	closed       bool
}

// NewManager creates the preloader for one feed. The manager owns its cache
// and worker queue until Teardown is called. The feed name used in logs and
// metrics comes from common.ContextFeedId when the context carries one.
func NewManager(ctx rcontext.RequestContext, loader *resource_loader.Loader, opts Options) (*Manager, error) {
	opts = opts.normalized()

	name := "feed"
	if s, ok := ctx.Value(common.ContextFeedId).(string); ok && s != "" {
		name = s
	}

	queue, err := pool.NewQueue(opts.MaxConcurrentLoads, "preload-"+name)
	if err != nil {
		return nil, err
	}

	cctx, cancel := context.WithCancel(ctx.Context)
	return &Manager{
		ctx:      ctx.WithContext(cctx).LogWithFields(logrus.Fields{"feed": name}),
		cancel:   cancel,
		loader:   loader,
		store:    preload_cache.New(name, loader),
		failures: errcache.NewErrCache(opts.FailureTtl),
		queue:    queue,
		events:   emitter.New(32),
		opts:     opts,
		items:    make([]types.FeedItem, 0),
		byUrl:    make(map[string]types.FeedItem),
		pending:  newTaskQueue(nil),
		inFlight: make(map[string]*runningTask),
	}, nil
}

// SetCurrentIndex tells the manager which feed position is on screen. A
// changed index also makes previously failed items in the new preload window
// eligible again.
func (m *Manager) SetCurrentIndex(index int) error {
	if index < 0 {
		index = 0
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return common.ErrManagerClosed
	}
	changed := index != m.currentIndex
	m.currentIndex = index
	if changed {
		metrics.IndexChanges.Inc()
		m.ctx.Log.Debugf("Current index is now %d", index)
	}
	toStart := m.recomputeLocked(changed)
	m.mu.Unlock()

	m.dispatch(toStart)
	return nil
}

func (m *Manager) CurrentIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentIndex
}

// SetFeedItems replaces the feed. Positions are taken from the order of items.
// Items which disappeared lose their queued tasks, in-flight loads and cache
// entries.
func (m *Manager) SetFeedItems(items []types.FeedItem) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return common.ErrManagerClosed
	}

	normalized := make([]types.FeedItem, len(items))
	byUrl := make(map[string]types.FeedItem)
	for i, item := range items {
		item.Position = i
		normalized[i] = item
		if !item.IsStreamed() {
			continue
		}
		if _, dupe := byUrl[item.Url]; dupe {
			m.ctx.Log.WithFields(logrus.Fields{"url": item.Url, "itemId": item.Id}).Warn("Feed contains the same url more than once - only the first is preloaded")
			continue
		}
		byUrl[item.Url] = item
	}

	for url := range m.byUrl {
		if _, kept := byUrl[url]; !kept {
			m.dropLocked(url)
		}
	}
	for url, item := range byUrl {
		if entry, found := m.store.Get(url); found && (entry.Position != item.Position || entry.ItemId != item.Id) {
			entry.Position = item.Position
			entry.ItemId = item.Id
			m.store.Put(url, *entry)
		}
	}

	m.items = normalized
	m.byUrl = byUrl
	toStart := m.recomputeLocked(false)
	m.mu.Unlock()

	m.dispatch(toStart)
	return nil
}

// AppendFeedItems extends the feed, as when the next page arrives.
func (m *Manager) AppendFeedItems(items []types.FeedItem) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return common.ErrManagerClosed
	}
	combined := make([]types.FeedItem, 0, len(m.items)+len(items))
	combined = append(combined, m.items...)
	combined = append(combined, items...)
	m.mu.Unlock()

	return m.SetFeedItems(combined)
}

// dropLocked forgets a url which is no longer part of the feed.
func (m *Manager) dropLocked(url string) {
	if rt, ok := m.inFlight[url]; ok {
		// finish() discards the result once the load unwinds
		rt.cancel()
	}
	if entry, found := m.store.Get(url); found && entry.State != preload_cache.StateLoading {
		m.store.Remove(url)
		metrics.CacheEvictions.With(prometheus.Labels{"cache": "preload", "reason": "removed"}).Inc()
		m.emit(EventEvicted, entry.ItemId, url)
	}
	m.failures.Forget(url)
}

// recomputeLocked rebuilds the pending queue from scratch and evicts entries
// outside the keep window, both from the same index snapshot. The returned
// tasks already hold concurrency slots and must be passed to dispatch after
// the lock is released.
func (m *Manager) recomputeLocked(resetFailed bool) []*runningTask {
	cur := m.currentIndex
	last := len(m.items) - 1

	previous := m.pending.urls()
	tasks := make([]*PreloadTask, 0)
	now := util.NowMillis()

	for pos := cur; pos <= minInt(last, cur+m.opts.PreloadCount); pos++ {
		item := m.items[pos]
		if !item.IsStreamed() {
			continue
		}
		if first, ok := m.byUrl[item.Url]; !ok || first.Position != pos {
			continue
		}
		if _, running := m.inFlight[item.Url]; running {
			continue
		}

		if entry, found := m.store.Get(item.Url); found {
			switch entry.State {
			case preload_cache.StateLoading, preload_cache.StateLoaded:
				continue
			case preload_cache.StateFailed:
				if !resetFailed || errors.Is(entry.LastError, common.ErrInvalidResource) {
					continue
				}
			}
		}

		t := &PreloadTask{
			Item:       item,
			Priority:   m.opts.PreloadCount - (pos - cur),
			EnqueuedTs: now,
		}
		if old, ok := previous[item.Url]; ok {
			t.EnqueuedTs = old.EnqueuedTs
			delete(previous, item.Url)
		} else {
			m.emit(EventQueued, item.Id, item.Url)
		}

		m.store.Put(item.Url, preload_cache.CacheEntry{
			ItemId:   item.Id,
			Position: pos,
			State:    preload_cache.StateQueued,
		})
		tasks = append(tasks, t)
	}

	// Whatever is left in previous fell out of the window before it started
	for url := range previous {
		if entry, found := m.store.Get(url); found && entry.State == preload_cache.StateQueued {
			m.store.Remove(url)
		}
	}

	metrics.QueuedLoads.Sub(float64(m.pending.Len()))
	m.pending = newTaskQueue(tasks)
	toStart := m.startQueuedLocked()
	metrics.QueuedLoads.Add(float64(m.pending.Len()))

	m.evictLocked()
	return toStart
}

// startQueuedLocked pops tasks while concurrency slots are free.
func (m *Manager) startQueuedLocked() []*runningTask {
	toStart := make([]*runningTask, 0)
	for m.active < m.opts.MaxConcurrentLoads {
		t := m.pending.next()
		if t == nil {
			break
		}

		ctx, cancel := context.WithCancel(m.ctx.Context)
		rt := &runningTask{PreloadTask: t, ctx: ctx, cancel: cancel, done: make(chan struct{})}
		m.active++
		m.running.Add(1)
		metrics.ActiveLoads.Inc()
		m.inFlight[t.Item.Url] = rt
		m.store.Put(t.Item.Url, preload_cache.CacheEntry{
			ItemId:   t.Item.Id,
			Position: t.Item.Position,
			State:    preload_cache.StateLoading,
		})
		m.emit(EventLoading, t.Item.Id, t.Item.Url)
		toStart = append(toStart, rt)
	}
	return toStart
}

// evictLocked releases entries outside the keep window or further than the
// unload distance from the viewer. The current item, the preload window and
// loads still in flight are never touched.
func (m *Manager) evictLocked() {
	cur := m.currentIndex
	for _, entry := range m.store.Entries() {
		if entry.State == preload_cache.StateLoading || entry.State == preload_cache.StateQueued {
			continue
		}
		pos := entry.Position
		if m.retainedLocked(pos) {
			continue
		}

		if entry.State == preload_cache.StateFailed && entry.LastError != nil {
			m.failures.Set(entry.Url, entry.LastError)
		}
		m.store.Remove(entry.Url)
		metrics.CacheEvictions.With(prometheus.Labels{"cache": "preload", "reason": "window"}).Inc()
		m.ctx.Log.WithFields(logrus.Fields{"url": entry.Url, "position": pos, "index": cur}).Debug("Evicted preloaded item")
		m.emit(EventEvicted, entry.ItemId, entry.Url)
	}
}

// retainedLocked reports whether a settled entry at pos survives eviction at
// the current index.
func (m *Manager) retainedLocked(pos int) bool {
	cur := m.currentIndex
	last := len(m.items) - 1
	if pos == cur || (pos > cur && pos <= minInt(last, cur+m.opts.PreloadCount)) {
		return true
	}
	keepStart := maxInt(0, cur-1)
	keepEnd := minInt(last, cur+m.opts.PreloadCount+1)
	return pos >= keepStart && pos <= keepEnd && absInt(pos-cur) <= m.opts.UnloadDistance
}

func (m *Manager) dispatch(tasks []*runningTask) {
	for len(tasks) > 0 {
		rt := tasks[0]
		tasks = tasks[1:]

		err := m.queue.Schedule(func() {
			m.run(rt)
		})
		if err != nil {
			m.ctx.Log.WithField("url", rt.Item.Url).Error("Unable to schedule preload: ", err)
			if next := m.finish(rt, nil, &common.LoadError{Url: rt.Item.Url, Reason: err}); next != nil {
				tasks = append(tasks, next)
			}
		}
	}
}

// run executes a task, then keeps the worker busy with whatever finish hands
// back. Workers never submit to their own pool.
func (m *Manager) run(rt *runningTask) {
	for rt != nil {
		h, err := m.execute(rt)
		rt = m.finish(rt, h, err)
	}
}

func (m *Manager) execute(rt *runningTask) (h playback.Handle, err error) {
	log := m.ctx.Log.WithFields(logrus.Fields{"url": rt.Item.Url, "itemId": rt.Item.Id, "position": rt.Item.Position})
	defer func() {
		if r := recover(); r != nil {
			perr := util.PanicToError(r)
			log.Error("Panic while preloading: ", perr)
			sentry.CaptureException(perr)
			h = nil
			err = &common.LoadError{Url: rt.Item.Url, Reason: perr}
		}
	}()

	m.mu.Lock()
	opts := m.opts.Retry
	m.mu.Unlock()

	tctx := m.ctx.WithContext(rt.ctx).ReplaceLogger(log)
	return retry.Do(tctx, func(_ context.Context) (playback.Handle, error) {
		return m.loader.Load(tctx, rt.Item)
	}, opts, func(attempt int, err error, wait time.Duration) {
		log.Warnf("Preload attempt %d failed, retrying in %s: %v", attempt, wait, err)
		m.noteRetry(rt, attempt, err)
	})
}

// noteRetry records a failed attempt while the task waits out its backoff. The
// entry stays Loading so the task keeps its concurrency slot, and status
// readers report it as retrying.
func (m *Manager) noteRetry(rt *runningTask, attempt int, err error) {
	metrics.LoadRetries.With(prometheus.Labels{"host": resource_loader.HostOf(rt.Item.Url)}).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.inFlight[rt.Item.Url] != rt {
		return
	}
	if entry, found := m.store.Get(rt.Item.Url); found && entry.State == preload_cache.StateLoading {
		entry.RetryCount = minInt(attempt, m.opts.Retry.MaxRetries)
		entry.LastError = err
		m.store.Put(rt.Item.Url, *entry)
	}
}

// finish records the outcome of a task, frees its slot and returns the task
// the calling worker should run next, if any.
func (m *Manager) finish(rt *runningTask, h playback.Handle, err error) *runningTask {
	defer m.running.Done()
	defer close(rt.done)

	m.mu.Lock()
	url := rt.Item.Url
	if m.inFlight[url] == rt {
		delete(m.inFlight, url)
	}
	rt.cancel()
	m.active--
	metrics.ActiveLoads.Dec()

	if m.closed {
		m.mu.Unlock()
		m.loader.Release(h)
		return nil
	}

	log := m.ctx.Log.WithFields(logrus.Fields{"url": url, "itemId": rt.Item.Id})
	item, inFeed := m.byUrl[url]
	existing, found := m.store.Get(url)
	switch {
	case !inFeed:
		m.loader.Release(h)
		if found && existing.State == preload_cache.StateLoading {
			m.store.Remove(url)
		}
		log.Debug("Dropped result for an item which left the feed")
	case errors.Is(err, context.Canceled):
		// Cancelled by a feed change, the recompute below decides whether to try again
		m.loader.Release(h)
		if found && existing.State == preload_cache.StateLoading {
			m.store.Remove(url)
		}
	case err == nil:
		if found && existing.State == preload_cache.StateLoaded && existing.Handle != nil {
			// An on-demand load got there first
			if existing.Handle != h {
				m.loader.Release(h)
			}
			break
		}
		m.store.Put(url, preload_cache.CacheEntry{
			ItemId:   item.Id,
			Position: item.Position,
			Handle:   h,
			State:    preload_cache.StateLoaded,
		})
		m.failures.Forget(url)
		log.Debug("Preloaded item")
		m.emit(EventLoaded, item.Id, url)
	default:
		attempts := 1
		var exhausted *retry.RetriesExhaustedError
		if errors.As(err, &exhausted) {
			attempts = exhausted.Attempts
		} else if errors.Is(err, common.ErrInvalidResource) {
			attempts = 0
		}
		m.store.Put(url, preload_cache.CacheEntry{
			ItemId:     item.Id,
			Position:   item.Position,
			State:      preload_cache.StateFailed,
			RetryCount: minInt(attempts, m.opts.Retry.MaxRetries),
			LastError:  err,
		})
		m.failures.Set(url, err)
		log.Warn("Unable to preload item: ", err)
		m.emit(EventFailed, item.Id, url)
	}

	toStart := m.recomputeLocked(false)
	m.mu.Unlock()

	if len(toStart) == 0 {
		return nil
	}
	if len(toStart) > 1 {
		// More than one slot opened up, which happens after the limit was raised
		go m.dispatch(toStart[1:])
	}
	return toStart[0]
}

// RetryItem clears a failed entry so the item is loaded again if it is in the
// preload window.
func (m *Manager) RetryItem(url string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return common.ErrManagerClosed
	}
	if _, tracked := m.byUrl[url]; !tracked {
		m.mu.Unlock()
		return common.ErrNotTracked
	}
	if entry, found := m.store.Get(url); found && entry.State == preload_cache.StateFailed {
		m.store.Remove(url)
	}
	m.failures.Forget(url)
	toStart := m.recomputeLocked(false)
	m.mu.Unlock()

	m.dispatch(toStart)
	return nil
}

// LoadOnDemand returns a playable handle for url along with the function the
// caller must call once it is done with the handle.
//
// A preloaded handle is returned as is, and a preload already in flight for
// url is waited for rather than opened twice. Otherwise the resource is
// loaded right away. When the item sits where the scheduler keeps entries,
// the result is cached like a preloaded item (concurrent callers share the
// load) and stays owned by the manager. Items outside that window get a fresh
// handle which belongs to the caller and is released by the returned func.
func (m *Manager) LoadOnDemand(url string) (playback.Handle, func(), error) {
	m.mu.Lock()
	for {
		if m.closed {
			m.mu.Unlock()
			return nil, noRelease, common.ErrManagerClosed
		}
		if h, ok := m.preloadedLocked(url); ok {
			m.mu.Unlock()
			metrics.CacheHits.With(prometheus.Labels{"cache": "preload"}).Inc()
			return h, noRelease, nil
		}
		rt, loading := m.inFlight[url]
		if !loading {
			break
		}
		m.mu.Unlock()
		select {
		case <-rt.done:
		case <-m.ctx.Done():
		}
		m.mu.Lock()
	}
	item, tracked := m.byUrl[url]
	managed := tracked && m.retainedLocked(item.Position)
	ctx := m.ctx.LogWithFields(logrus.Fields{"url": url, "itemId": item.Id})
	m.mu.Unlock()
	if !tracked {
		return nil, noRelease, common.ErrNotTracked
	}

	if !managed {
		metrics.CacheMisses.With(prometheus.Labels{"cache": "preload"}).Inc()
		h, err := m.loader.Load(ctx, item)
		if err != nil {
			return nil, noRelease, err
		}
		ctx.Log.Debug("Loaded item outside the preload window for the caller")
		return h, func() {
			m.loader.Release(h)
		}, nil
	}

	h, err := m.loader.LoadOnDemand(ctx, item)
	if err != nil {
		return nil, noRelease, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		m.loader.Release(h)
		return nil, noRelease, common.ErrManagerClosed
	}
	if _, stillTracked := m.byUrl[url]; !stillTracked {
		m.loader.Release(h)
		return nil, noRelease, common.ErrNotTracked
	}
	if entry, found := m.store.Get(url); found && entry.State == preload_cache.StateLoaded && entry.Handle != nil {
		if entry.Handle != h {
			m.loader.Release(h)
		}
		return entry.Handle, noRelease, nil
	}
	// An in-flight preload of the same url sees the Loaded entry in finish
	m.store.Put(url, preload_cache.CacheEntry{
		ItemId:   item.Id,
		Position: item.Position,
		Handle:   h,
		State:    preload_cache.StateLoaded,
	})
	m.failures.Forget(url)
	m.emit(EventLoaded, item.Id, url)
	return h, noRelease, nil
}

func noRelease() {}

// ApplyConfig swaps the window and concurrency settings on a live manager.
func (m *Manager) ApplyConfig(opts Options) {
	opts = opts.normalized()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if opts.FailureTtl != m.opts.FailureTtl {
		m.failures.Resize(opts.FailureTtl)
	}
	m.opts = opts
	m.queue.Tune(opts.MaxConcurrentLoads)
	toStart := m.recomputeLocked(false)
	m.mu.Unlock()

	m.ctx.Log.Infof("Preloader now loads %d at a time, %d ahead, unloading beyond %d", opts.MaxConcurrentLoads, opts.PreloadCount, opts.UnloadDistance)
	m.dispatch(toStart)
}

// Teardown cancels outstanding loads and waits for them to unwind, releases
// every held handle and drops all queued work. Calling it again does nothing.
func (m *Manager) Teardown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.cancel()
	for _, rt := range m.inFlight {
		rt.cancel()
	}
	metrics.QueuedLoads.Sub(float64(m.pending.Len()))
	m.pending = newTaskQueue(nil)
	released := m.store.Clear()
	m.failures.Flush()
	m.events.Off("item.*")
	m.mu.Unlock()

	m.running.Wait()
	m.store.Close()
	m.queue.Release()
	m.ctx.Log.Infof("Preloader torn down, released %d cache entries", released)
}

func minInt(a int, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a int, b int) int {
	if a > b {
		return a
	}
	return b
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
