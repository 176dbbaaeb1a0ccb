package preloader

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/olebedev/emitter"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/t2bot/feed-preloader/common"
	"github.com/t2bot/feed-preloader/common/config"
	"github.com/t2bot/feed-preloader/common/rcontext"
	"github.com/t2bot/feed-preloader/playback"
	"github.com/t2bot/feed-preloader/preload_cache"
	"github.com/t2bot/feed-preloader/resource_loader"
	"github.com/t2bot/feed-preloader/types"
	"github.com/t2bot/feed-preloader/util/retry"
)

const waitFor = 3 * time.Second
const tick = 2 * time.Millisecond

func videoUrl(i int) string {
	return fmt.Sprintf("https://cdn.example.org/v/%d.mp4", i)
}

func makeFeed(n int) []types.FeedItem {
	items := make([]types.FeedItem, n)
	for i := 0; i < n; i++ {
		items[i] = types.FeedItem{
			Id:   fmt.Sprintf("item-%d", i),
			Url:  videoUrl(i),
			Kind: common.KindVideo,
		}
	}
	return items
}

func testOptions() Options {
	return Options{
		MaxConcurrentLoads: 2,
		PreloadCount:       2,
		UnloadDistance:     3,
		Retry: retry.Options{
			MaxRetries: 3,
			BaseDelay:  2 * time.Millisecond,
			MaxDelay:   10 * time.Millisecond,
			Multiplier: 2,
		},
	}
}

type ManagerSuite struct {
	suite.Suite
	capability *playback.SimulatedCapability
	loader     *resource_loader.Loader
	manager    *Manager
}

func (s *ManagerSuite) SetupTest() {
	s.capability = playback.NewSimulatedCapability(2*time.Millisecond, 6*time.Millisecond, 0)
	s.loader = resource_loader.New(s.capability, resource_loader.Options{Timeout: 20 * time.Millisecond})
	s.useOptions(testOptions())
}

func (s *ManagerSuite) TearDownTest() {
	if s.manager != nil {
		s.manager.Teardown()
	}
}

func (s *ManagerSuite) useOptions(opts Options) {
	if s.manager != nil {
		s.manager.Teardown()
	}
	ctx := rcontext.From(context.Background(), logrus.WithField("test", s.T().Name()), config.NewDefaultMainConfig())
	m, err := NewManager(ctx, s.loader, opts)
	s.Require().NoError(err)
	s.manager = m
}

func (s *ManagerSuite) entry(url string) (*preload_cache.CacheEntry, bool) {
	return s.manager.store.Get(url)
}

func (s *ManagerSuite) state(url string) preload_cache.EntryState {
	e, found := s.entry(url)
	if !found {
		return preload_cache.StateNotLoaded
	}
	return e.State
}

// settle waits until nothing is queued or loading.
func (s *ManagerSuite) settle() {
	assert.Eventually(s.T(), func() bool {
		st := s.manager.GetStats()
		s.manager.mu.Lock()
		active := s.manager.active
		s.manager.mu.Unlock()
		return st.Loading == 0 && st.Queued == 0 && active == 0
	}, waitFor, tick)
}

func (s *ManagerSuite) assertWindow() {
	t := s.T()
	cur := s.manager.CurrentIndex()
	opts := s.manager.CurrentOptions()
	loaded := 0
	for _, e := range s.manager.store.Entries() {
		if e.State != preload_cache.StateLoaded {
			continue
		}
		loaded++
		assert.GreaterOrEqual(t, e.Position, cur-1, e.Url)
		assert.LessOrEqual(t, e.Position, cur+opts.PreloadCount+1, e.Url)
		assert.LessOrEqual(t, absInt(e.Position-cur), opts.UnloadDistance, e.Url)
	}
	// Every live handle belongs to a Loaded entry
	assert.Equal(t, loaded, s.capability.Live())
}

func (s *ManagerSuite) TestInitialWindowLoadsOnlyPreloadRange() {
	t := s.T()

	assert.NoError(t, s.manager.SetFeedItems(makeFeed(5)))
	assert.NoError(t, s.manager.SetCurrentIndex(0))
	s.settle()

	for i := 0; i <= 2; i++ {
		assert.Equal(t, preload_cache.StateLoaded, s.state(videoUrl(i)), i)
		h, ok := s.manager.GetPreloadedHandle(videoUrl(i))
		assert.True(t, ok)
		assert.Equal(t, videoUrl(i), h.Url())
	}
	for i := 3; i <= 4; i++ {
		assert.Equal(t, preload_cache.StateNotLoaded, s.state(videoUrl(i)), i)
		assert.Equal(t, 0, s.capability.Opens(videoUrl(i)))
		_, ok := s.manager.GetPreloadedHandle(videoUrl(i))
		assert.False(t, ok)
	}
	assert.LessOrEqual(t, s.capability.MaxInFlight(), 2)

	stats := s.manager.GetStats()
	assert.Equal(t, Stats{Total: 5, Loaded: 3, CacheSize: 3}, stats)
}

func (s *ManagerSuite) TestFailingItemDoesNotAffectNeighbours() {
	t := s.T()

	fail := playback.Outcome{Delay: time.Millisecond, Err: playback.ErrSimulatedFailure}
	s.capability.Script(videoUrl(1), fail, fail, fail)

	assert.NoError(t, s.manager.SetFeedItems(makeFeed(5)))
	s.settle()

	assert.Equal(t, preload_cache.StateLoaded, s.state(videoUrl(0)))
	assert.Equal(t, preload_cache.StateLoaded, s.state(videoUrl(2)))

	e, found := s.entry(videoUrl(1))
	assert.True(t, found)
	assert.Equal(t, preload_cache.StateFailed, e.State)
	assert.Equal(t, 3, e.RetryCount)
	assert.ErrorIs(t, e.LastError, common.ErrRetriesExhausted)
	assert.ErrorIs(t, e.LastError, playback.ErrSimulatedFailure)
	assert.Equal(t, 3, s.capability.Opens(videoUrl(1)))
	assert.Equal(t, 1, s.manager.GetStats().Failed)
	s.assertWindow()
}

func (s *ManagerSuite) TestJumpEvictsOldWindow() {
	t := s.T()

	assert.NoError(t, s.manager.SetFeedItems(makeFeed(10)))
	s.settle()

	old := make([]playback.Handle, 0)
	for i := 0; i <= 2; i++ {
		h, ok := s.manager.GetPreloadedHandle(videoUrl(i))
		assert.True(t, ok)
		old = append(old, h)
	}

	assert.NoError(t, s.manager.SetCurrentIndex(5))
	s.settle()

	for i, h := range old {
		assert.Equal(t, preload_cache.StateNotLoaded, s.state(videoUrl(i)), i)
		assert.True(t, s.capability.IsDiscarded(h), i)
	}
	for i := 5; i <= 7; i++ {
		assert.Equal(t, preload_cache.StateLoaded, s.state(videoUrl(i)), i)
	}
	assert.Equal(t, 0, s.capability.Opens(videoUrl(8)))
	s.assertWindow()
}

func (s *ManagerSuite) TestTimeoutFailsThenRetries() {
	t := s.T()

	hang := playback.Outcome{Hang: true}
	s.capability.Script(videoUrl(0), hang, hang, hang)

	assert.NoError(t, s.manager.SetFeedItems(makeFeed(3)))
	s.settle()

	e, found := s.entry(videoUrl(0))
	assert.True(t, found)
	assert.Equal(t, preload_cache.StateFailed, e.State)
	assert.ErrorIs(t, e.LastError, common.ErrLoadTimeout)
	assert.Equal(t, 3, e.RetryCount)
	assert.Equal(t, 3, s.capability.Opens(videoUrl(0)))
	s.assertWindow()
}

func (s *ManagerSuite) TestTimeoutRecoversOnRetry() {
	t := s.T()

	s.capability.Script(videoUrl(0), playback.Outcome{Hang: true})

	assert.NoError(t, s.manager.SetFeedItems(makeFeed(1)))
	s.settle()

	assert.Equal(t, preload_cache.StateLoaded, s.state(videoUrl(0)))
	assert.Equal(t, 2, s.capability.Opens(videoUrl(0)))
	assert.Equal(t, 1, s.capability.Live())
}

func (s *ManagerSuite) TestConcurrencyBoundUnderScrolling() {
	t := s.T()

	assert.NoError(t, s.manager.SetFeedItems(makeFeed(20)))
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 40; i++ {
		assert.NoError(t, s.manager.SetCurrentIndex(rnd.Intn(20)))
		s.manager.mu.Lock()
		assert.LessOrEqual(t, s.manager.active, 2)
		s.manager.mu.Unlock()
		time.Sleep(time.Duration(rnd.Intn(4)) * time.Millisecond)
	}
	s.settle()

	assert.LessOrEqual(t, s.capability.MaxInFlight(), 2)
	assert.LessOrEqual(t, s.capability.MaxInFlightPerUrl(), 1)
	s.assertWindow()
}

func (s *ManagerSuite) TestWindowHoldsAfterSettling() {
	t := s.T()

	assert.NoError(t, s.manager.SetFeedItems(makeFeed(12)))
	for _, idx := range []int{0, 1, 2, 3, 4, 8, 7, 11, 0} {
		assert.NoError(t, s.manager.SetCurrentIndex(idx))
		s.settle()
		s.assertWindow()
		assert.Equal(t, preload_cache.StateLoaded, s.state(videoUrl(idx)), idx)
	}
}

func (s *ManagerSuite) TestExhaustedStaysFailedUntilIndexChanges() {
	t := s.T()

	fail := playback.Outcome{Delay: time.Millisecond, Err: playback.ErrSimulatedFailure}
	s.capability.Script(videoUrl(1), fail, fail, fail)

	assert.NoError(t, s.manager.SetFeedItems(makeFeed(6)))
	s.settle()
	assert.Equal(t, preload_cache.StateFailed, s.state(videoUrl(1)))

	// Same index: no new attempt
	assert.NoError(t, s.manager.SetCurrentIndex(0))
	s.settle()
	assert.Equal(t, preload_cache.StateFailed, s.state(videoUrl(1)))
	assert.Equal(t, 3, s.capability.Opens(videoUrl(1)))

	assert.NoError(t, s.manager.SetCurrentIndex(1))
	s.settle()
	assert.Equal(t, preload_cache.StateLoaded, s.state(videoUrl(1)))
	assert.Equal(t, 4, s.capability.Opens(videoUrl(1)))

	e, _ := s.entry(videoUrl(1))
	assert.Equal(t, 0, e.RetryCount)
	assert.Nil(t, s.manager.GetLastError(videoUrl(1)))
}

func (s *ManagerSuite) TestRetryItem() {
	t := s.T()

	fail := playback.Outcome{Delay: time.Millisecond, Err: playback.ErrSimulatedFailure}
	s.capability.Script(videoUrl(0), fail, fail, fail)

	assert.NoError(t, s.manager.SetFeedItems(makeFeed(3)))
	s.settle()
	assert.Equal(t, preload_cache.StateFailed, s.state(videoUrl(0)))
	assert.ErrorIs(t, s.manager.GetLastError(videoUrl(0)), playback.ErrSimulatedFailure)

	assert.NoError(t, s.manager.RetryItem(videoUrl(0)))
	s.settle()
	assert.Equal(t, preload_cache.StateLoaded, s.state(videoUrl(0)))

	assert.ErrorIs(t, s.manager.RetryItem("https://cdn.example.org/elsewhere.mp4"), common.ErrNotTracked)
}

func (s *ManagerSuite) TestInvalidResourceIsNeverRetried() {
	t := s.T()

	items := makeFeed(3)
	items[0].Url = "not a url"
	assert.NoError(t, s.manager.SetFeedItems(items))
	s.settle()

	e, found := s.entry("not a url")
	assert.True(t, found)
	assert.Equal(t, preload_cache.StateFailed, e.State)
	assert.Equal(t, 0, e.RetryCount)
	assert.ErrorIs(t, e.LastError, common.ErrInvalidResource)

	assert.NoError(t, s.manager.SetCurrentIndex(1))
	s.settle()
	assert.NoError(t, s.manager.SetCurrentIndex(0))
	s.settle()

	e, _ = s.entry("not a url")
	assert.Equal(t, preload_cache.StateFailed, e.State)
	assert.Equal(t, 0, s.capability.Opens("not a url"))
}

func (s *ManagerSuite) TestCurrentItemIsNeverEvicted() {
	t := s.T()

	opts := testOptions()
	opts.PreloadCount = 0
	opts.UnloadDistance = 0
	s.useOptions(opts)

	assert.NoError(t, s.manager.SetFeedItems(makeFeed(4)))
	assert.NoError(t, s.manager.SetCurrentIndex(2))
	s.settle()

	h, ok := s.manager.GetPreloadedHandle(videoUrl(2))
	assert.True(t, ok)
	for i := 0; i < 3; i++ {
		assert.NoError(t, s.manager.SetCurrentIndex(2))
		assert.NoError(t, s.manager.SetFeedItems(makeFeed(4)))
	}
	s.settle()

	h2, ok := s.manager.GetPreloadedHandle(videoUrl(2))
	assert.True(t, ok)
	assert.Same(t, h, h2)
	assert.False(t, s.capability.IsDiscarded(h))
	assert.Equal(t, 1, s.manager.GetStats().CacheSize)
}

func (s *ManagerSuite) TestTeardownIsIdempotent() {
	t := s.T()

	hang := playback.Outcome{Hang: true}
	for i := 0; i < 5; i++ {
		s.capability.Script(videoUrl(i), hang, hang, hang)
	}
	assert.NoError(t, s.manager.SetFeedItems(makeFeed(5)))
	assert.Eventually(t, func() bool {
		return s.manager.GetStats().Loading == 2
	}, waitFor, tick)

	s.manager.Teardown()
	s.manager.Teardown()

	assert.Equal(t, 0, s.manager.GetStats().CacheSize)
	assert.Equal(t, 0, s.capability.Live())
	assert.Equal(t, 0, s.loader.LiveHandles())
	assert.ErrorIs(t, s.manager.SetCurrentIndex(1), common.ErrManagerClosed)
	assert.ErrorIs(t, s.manager.SetFeedItems(makeFeed(1)), common.ErrManagerClosed)
	assert.ErrorIs(t, s.manager.RetryItem(videoUrl(0)), common.ErrManagerClosed)
	_, ok := s.manager.GetPreloadedHandle(videoUrl(0))
	assert.False(t, ok)
}

func (s *ManagerSuite) TestTeardownReleasesLoadedHandles() {
	t := s.T()

	assert.NoError(t, s.manager.SetFeedItems(makeFeed(5)))
	s.settle()
	assert.Equal(t, 3, s.capability.Live())

	s.manager.Teardown()
	assert.Equal(t, 0, s.capability.Live())
	assert.Equal(t, 0, s.manager.GetStats().CacheSize)
}

func (s *ManagerSuite) TestRemovedItemsAreDropped() {
	t := s.T()

	items := makeFeed(5)
	assert.NoError(t, s.manager.SetFeedItems(items))
	s.settle()
	h0, ok := s.manager.GetPreloadedHandle(videoUrl(0))
	assert.True(t, ok)

	assert.NoError(t, s.manager.SetFeedItems(items[1:]))
	s.settle()

	assert.True(t, s.capability.IsDiscarded(h0))
	assert.Equal(t, preload_cache.StateNotLoaded, s.state(videoUrl(0)))
	e, found := s.entry(videoUrl(1))
	assert.True(t, found)
	assert.Equal(t, 0, e.Position)
	assert.Equal(t, preload_cache.StateLoaded, s.state(videoUrl(3)))
	s.assertWindow()
}

func (s *ManagerSuite) TestAppendFeedItems() {
	t := s.T()

	items := makeFeed(6)
	assert.NoError(t, s.manager.SetFeedItems(items[:2]))
	assert.NoError(t, s.manager.SetCurrentIndex(1))
	s.settle()
	assert.Equal(t, 0, s.capability.Opens(videoUrl(2)))

	assert.NoError(t, s.manager.AppendFeedItems(items[2:]))
	s.settle()
	assert.Equal(t, preload_cache.StateLoaded, s.state(videoUrl(2)))
	assert.Equal(t, preload_cache.StateLoaded, s.state(videoUrl(3)))
	assert.Equal(t, 6, s.manager.GetStats().Total)
}

func (s *ManagerSuite) TestImagesAreNotPreloaded() {
	t := s.T()

	items := makeFeed(4)
	items[0].Kind = common.KindImage
	items[2].Kind = common.KindImage
	assert.NoError(t, s.manager.SetFeedItems(items))
	s.settle()

	assert.Equal(t, 0, s.capability.Opens(videoUrl(0)))
	assert.Equal(t, 0, s.capability.Opens(videoUrl(2)))
	assert.Equal(t, preload_cache.StateLoaded, s.state(videoUrl(1)))
	assert.Equal(t, 2, s.manager.GetStats().Total)

	status := s.manager.GetLoadingStatus()
	assert.Len(t, status, 2)
	_, hasImage := status["item-0"]
	assert.False(t, hasImage)
}

func (s *ManagerSuite) TestLoadingStatus() {
	t := s.T()

	hang := playback.Outcome{Hang: true}
	for i := 0; i < 3; i++ {
		s.capability.Script(videoUrl(i), hang)
	}
	assert.NoError(t, s.manager.SetFeedItems(makeFeed(5)))

	status := s.manager.GetLoadingStatus()
	assert.Equal(t, map[string]bool{
		"item-0": true,
		"item-1": true,
		"item-2": true,
		"item-3": false,
		"item-4": false,
	}, status)

	stats := s.manager.GetStats()
	assert.Equal(t, 2, stats.Loading)
	assert.Equal(t, 1, stats.Queued)
}

func (s *ManagerSuite) TestLoadOnDemand() {
	t := s.T()

	fail := playback.Outcome{Delay: time.Millisecond, Err: playback.ErrSimulatedFailure}
	s.capability.Script(videoUrl(0), fail, fail, fail)

	assert.NoError(t, s.manager.SetFeedItems(makeFeed(3)))
	s.settle()
	assert.Equal(t, preload_cache.StateFailed, s.state(videoUrl(0)))

	h, release, err := s.manager.LoadOnDemand(videoUrl(0))
	assert.NoError(t, err)
	assert.Equal(t, videoUrl(0), h.Url())
	assert.Equal(t, preload_cache.StateLoaded, s.state(videoUrl(0)))

	// The current item is managed, so releasing is left to the manager
	release()
	assert.False(t, s.capability.IsDiscarded(h))

	cached, _, err := s.manager.LoadOnDemand(videoUrl(0))
	assert.NoError(t, err)
	assert.Same(t, h, cached)
	assert.Equal(t, 4, s.capability.Opens(videoUrl(0)))

	_, _, err = s.manager.LoadOnDemand("https://cdn.example.org/elsewhere.mp4")
	assert.ErrorIs(t, err, common.ErrNotTracked)
}

func (s *ManagerSuite) TestLoadOnDemandOutsideWindowBelongsToCaller() {
	t := s.T()

	assert.NoError(t, s.manager.SetFeedItems(makeFeed(10)))
	s.settle()

	h, release, err := s.manager.LoadOnDemand(videoUrl(8))
	assert.NoError(t, err)
	assert.Equal(t, videoUrl(8), h.Url())
	assert.False(t, s.capability.IsDiscarded(h))

	// Another scheduling pass must leave the caller's handle alone
	assert.NoError(t, s.manager.SetCurrentIndex(0))
	assert.NoError(t, s.manager.RetryItem(videoUrl(1)))
	s.settle()
	assert.False(t, s.capability.IsDiscarded(h))
	assert.Equal(t, preload_cache.StateNotLoaded, s.state(videoUrl(8)))
	_, ok := s.manager.GetPreloadedHandle(videoUrl(8))
	assert.False(t, ok)

	// A second caller gets its own handle
	other, releaseOther, err := s.manager.LoadOnDemand(videoUrl(8))
	assert.NoError(t, err)
	assert.NotSame(t, h, other)

	release()
	assert.True(t, s.capability.IsDiscarded(h))
	assert.False(t, s.capability.IsDiscarded(other))
	releaseOther()
	release()
	assert.True(t, s.capability.IsDiscarded(other))
	s.assertWindow()
}

func (s *ManagerSuite) TestLoadOnDemandWaitsForPreload() {
	t := s.T()

	s.capability.Script(videoUrl(0), playback.Outcome{Delay: 12 * time.Millisecond})

	assert.NoError(t, s.manager.SetFeedItems(makeFeed(3)))
	assert.Equal(t, preload_cache.StateLoading, s.state(videoUrl(0)))

	h, release, err := s.manager.LoadOnDemand(videoUrl(0))
	assert.NoError(t, err)
	defer release()

	preloaded, ok := s.manager.GetPreloadedHandle(videoUrl(0))
	assert.True(t, ok)
	assert.Same(t, preloaded, h)
	assert.Equal(t, 1, s.capability.Opens(videoUrl(0)))
	assert.Equal(t, 1, s.capability.MaxInFlightPerUrl())
}

func (s *ManagerSuite) TestRetryingItemsAreReported() {
	t := s.T()

	opts := testOptions()
	opts.Retry.BaseDelay = 200 * time.Millisecond
	opts.Retry.MaxDelay = 400 * time.Millisecond
	s.useOptions(opts)

	fail := playback.Outcome{Delay: time.Millisecond, Err: playback.ErrSimulatedFailure}
	s.capability.Script(videoUrl(0), fail, fail, fail)

	assert.NoError(t, s.manager.SetFeedItems(makeFeed(1)))

	assert.Eventually(t, func() bool {
		statuses := s.manager.GetItemStatuses()
		return len(statuses) == 1 && statuses[0].State == StateRetrying
	}, waitFor, tick)

	st := s.manager.GetItemStatuses()[0]
	assert.Equal(t, 1, st.RetryCount)
	assert.Contains(t, st.LastError, playback.ErrSimulatedFailure.Error())
	// Still counted against the concurrency limit
	assert.Equal(t, 1, s.manager.GetStats().Loading)
}

func (s *ManagerSuite) TestEvents() {
	t := s.T()

	ch := s.manager.Subscribe()
	assert.NoError(t, s.manager.SetFeedItems(makeFeed(1)))

	seen := make(map[string]string)
	timeout := time.After(waitFor)
	for len(seen) < 3 {
		select {
		case ev := <-ch:
			seen[ev.OriginalTopic] = ev.Args[0].(string)
		case <-timeout:
			t.Fatalf("only saw %v", seen)
		}
	}
	assert.Equal(t, map[string]string{
		EventQueued:  "item-0",
		EventLoading: "item-0",
		EventLoaded:  "item-0",
	}, seen)

	s.manager.Teardown()
	assert.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, waitFor, tick)
}

func (s *ManagerSuite) TestSubscribeAfterTeardown() {
	t := s.T()

	s.manager.Teardown()
	var ch <-chan emitter.Event = s.manager.Subscribe()
	_, ok := <-ch
	assert.False(t, ok)
}

func (s *ManagerSuite) TestLastErrorSurvivesEviction() {
	t := s.T()

	fail := playback.Outcome{Delay: time.Millisecond, Err: playback.ErrSimulatedFailure}
	s.capability.Script(videoUrl(1), fail, fail, fail)

	assert.NoError(t, s.manager.SetFeedItems(makeFeed(10)))
	s.settle()

	assert.NoError(t, s.manager.SetCurrentIndex(7))
	s.settle()
	assert.Equal(t, preload_cache.StateNotLoaded, s.state(videoUrl(1)))
	assert.ErrorIs(t, s.manager.GetLastError(videoUrl(1)), playback.ErrSimulatedFailure)

	statuses := s.manager.GetItemStatuses()
	assert.Len(t, statuses, 10)
	assert.Equal(t, "not_loaded", statuses[1].State)
	assert.NotEmpty(t, statuses[1].LastError)
	assert.Equal(t, "loaded", statuses[7].State)
}

func (s *ManagerSuite) TestApplyConfig() {
	t := s.T()

	opts := testOptions()
	opts.MaxConcurrentLoads = 1
	opts.PreloadCount = 1
	s.useOptions(opts)

	assert.NoError(t, s.manager.SetFeedItems(makeFeed(8)))
	s.settle()
	assert.Equal(t, 0, s.capability.Opens(videoUrl(2)))

	opts.MaxConcurrentLoads = 3
	opts.PreloadCount = 4
	opts.UnloadDistance = 5
	s.manager.ApplyConfig(opts)
	s.settle()

	for i := 0; i <= 4; i++ {
		assert.Equal(t, preload_cache.StateLoaded, s.state(videoUrl(i)), i)
	}
	assert.Equal(t, 3, s.manager.CurrentOptions().MaxConcurrentLoads)
	assert.LessOrEqual(t, s.capability.MaxInFlight(), 3)
	s.assertWindow()
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}
