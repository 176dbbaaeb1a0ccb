package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/t2bot/feed-preloader/common"
	"github.com/t2bot/feed-preloader/feed_position"
	"github.com/t2bot/feed-preloader/types"
)

const pageSize = 20

// buildFeed makes a feed of mostly videos with an image every few items.
func buildFeed(start int, count int, cdnHost string) []types.FeedItem {
	items := make([]types.FeedItem, 0, count)
	for i := start; i < start+count; i++ {
		kind := common.KindVideo
		ext := "mp4"
		if i%4 == 3 {
			kind = common.KindImage
			ext = "jpg"
		}
		items = append(items, types.FeedItem{
			Id:   fmt.Sprintf("post-%d", i),
			Url:  fmt.Sprintf("https://%s/media/%d.%s", cdnHost, i, ext),
			Kind: kind,
		})
	}
	return items
}

// scroller drives the position tracker like a person flicking through a feed:
// mostly forwards, sometimes lingering, occasionally jumping back.
type scroller struct {
	tracker  *feed_position.Tracker
	extent   float64
	interval time.Duration
	maxItems int
	rnd      *rand.Rand

	offset float64
}

func newScroller(tracker *feed_position.Tracker, extent float64, interval time.Duration, maxItems int) *scroller {
	return &scroller{
		tracker:  tracker,
		extent:   extent,
		interval: interval,
		maxItems: maxItems,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *scroller) step() {
	switch r := s.rnd.Float64(); {
	case r < 0.1:
		s.offset -= s.extent * float64(1+s.rnd.Intn(3))
	case r < 0.3:
		// lingering, just a small wobble
		s.offset += s.extent * (s.rnd.Float64() - 0.5) * 0.4
	default:
		s.offset += s.extent * (0.6 + s.rnd.Float64())
	}

	limit := s.extent * float64(s.maxItems-1)
	if s.offset < 0 {
		s.offset = 0
	} else if s.offset > limit {
		s.offset = limit
	}
}

// run emits a burst of raw offsets per step until stop is closed.
func (s *scroller) run(stop <-chan bool) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			from := s.offset
			s.step()
			for i := 1; i <= 5; i++ {
				s.tracker.Observe(from + (s.offset-from)*float64(i)/5)
			}
		}
	}
}
