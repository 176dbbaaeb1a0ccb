package resource_loader

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rubyist/circuitbreaker"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/feed-preloader/common"
	"github.com/t2bot/feed-preloader/common/rcontext"
	"github.com/t2bot/feed-preloader/metrics"
	"github.com/t2bot/feed-preloader/playback"
	"github.com/t2bot/feed-preloader/types"
	"github.com/t2bot/feed-preloader/util/sfcache"
)

const DefaultTimeout = 30 * time.Second

type Options struct {
	Timeout          time.Duration
	BreakerThreshold int // consecutive failures per host before failing fast, 0 disables
}

// Loader opens media resources through a playback capability and turns the
// capability's callbacks into a single blocking call per load.
type Loader struct {
	capability playback.Capability
	opts       Options

	breakers *sync.Map
	onDemand *sfcache.Group[playback.Handle]

	liveLock *sync.Mutex
	live     map[playback.Handle]bool
}

func New(capability playback.Capability, opts Options) *Loader {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Loader{
		capability: capability,
		opts:       opts,
		breakers:   &sync.Map{},
		onDemand:   sfcache.NewGroup[playback.Handle](),
		liveLock:   &sync.Mutex{},
		live:       make(map[playback.Handle]bool),
	}
}

// ValidateUrl rejects obviously empty or malformed URLs. Anything else is
// assumed to have been corrected upstream.
func ValidateUrl(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: empty url", common.ErrInvalidResource)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidResource, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("%w: url is not absolute: %s", common.ErrInvalidResource, raw)
	}
	if u.Host == "" && (u.Scheme != "file" || u.Path == "") {
		return fmt.Errorf("%w: url has no host: %s", common.ErrInvalidResource, raw)
	}
	return nil
}

// HostOf is the metrics and breaker key for a resource url.
func HostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "local"
	}
	return u.Host
}

func (l *Loader) getBreaker(host string) *circuit.Breaker {
	if l.opts.BreakerThreshold <= 0 {
		return nil
	}
	if cb, ok := l.breakers.Load(host); ok {
		return cb.(*circuit.Breaker)
	}
	cb, _ := l.breakers.LoadOrStore(host, circuit.NewConsecutiveBreaker(int64(l.opts.BreakerThreshold)))
	return cb.(*circuit.Breaker)
}

// Load opens the item's resource and waits until the capability reports it can
// play without stalling. Malformed URLs fail with common.ErrInvalidResource,
// capability failures with *common.LoadError, and loads which are not ready
// within the timeout with common.ErrLoadTimeout. Failed handles are released
// before returning.
func (l *Loader) Load(ctx rcontext.RequestContext, item types.FeedItem) (playback.Handle, error) {
	if err := ValidateUrl(item.Url); err != nil {
		return nil, err
	}

	host := HostOf(item.Url)
	metrics.LoadsStarted.With(prometheus.Labels{"host": host}).Inc()
	start := time.Now()

	var h playback.Handle
	var err error
	if cb := l.getBreaker(host); cb != nil {
		err = cb.CallContext(ctx, func() error {
			var openErr error
			h, openErr = l.open(ctx, item)
			return openErr
		}, 0)
		if errors.Is(err, circuit.ErrBreakerOpen) {
			err = &common.LoadError{Url: item.Url, Reason: err}
		}
	} else {
		h, err = l.open(ctx, item)
	}

	if err != nil {
		reason := "error"
		if errors.Is(err, common.ErrLoadTimeout) {
			reason = "timeout"
		} else if errors.Is(err, circuit.ErrBreakerOpen) {
			reason = "breaker_open"
		} else if ctx.Err() != nil {
			reason = "cancelled"
		}
		metrics.LoadsFailed.With(prometheus.Labels{"host": host, "reason": reason}).Inc()
		return nil, err
	}

	metrics.LoadsSucceeded.With(prometheus.Labels{"host": host}).Inc()
	metrics.LoadTime.With(prometheus.Labels{"host": host}).Observe(time.Since(start).Seconds())
	return h, nil
}

func (l *Loader) open(ctx rcontext.RequestContext, item types.FeedItem) (playback.Handle, error) {
	done := make(chan error, 1)
	signal := &sync.Once{}
	listener := playback.ListenerFuncs{
		Ready: func(h playback.Handle) {
			signal.Do(func() { done <- nil })
		},
		Error: func(h playback.Handle, reason error) {
			if reason == nil {
				reason = errors.New("unknown playback error")
			}
			signal.Do(func() { done <- reason })
		},
	}

	h, err := l.capability.Open(item.Url, listener)
	if err != nil {
		return nil, &common.LoadError{Url: item.Url, Reason: err}
	}
	l.track(h)

	timer := time.NewTimer(l.opts.Timeout)
	defer timer.Stop()

	select {
	case reason := <-done:
		if reason != nil {
			ctx.Log.Debug("Playback capability reported an error: ", reason)
			l.Release(h)
			return nil, &common.LoadError{Url: item.Url, Reason: reason}
		}
		return h, nil
	case <-timer.C:
		ctx.Log.Warnf("Resource did not become ready within %s", l.opts.Timeout)
		l.Release(h)
		return nil, fmt.Errorf("%w (%s): %s", common.ErrLoadTimeout, l.opts.Timeout, item.Url)
	case <-ctx.Done():
		l.Release(h)
		return nil, ctx.Err()
	}
}

func (l *Loader) track(h playback.Handle) {
	l.liveLock.Lock()
	l.live[h] = true
	l.liveLock.Unlock()
}

// Release stops and discards the handle. Releasing nil, an unknown handle, or
// an already released handle does nothing.
func (l *Loader) Release(h playback.Handle) {
	if h == nil {
		return
	}

	l.liveLock.Lock()
	_, isLive := l.live[h]
	delete(l.live, h)
	l.liveLock.Unlock()
	if !isLive {
		return
	}

	l.capability.Stop(h)
	l.capability.Discard(h)
}

// LiveHandles counts handles opened by this loader and not yet released.
func (l *Loader) LiveHandles() int {
	l.liveLock.Lock()
	defer l.liveLock.Unlock()
	return len(l.live)
}

// LoadOnDemand is the fallback for readers which missed the preload cache.
// Concurrent misses for the same URL share one load and one handle; the
// caller owns the handle and must Release it.
func (l *Loader) LoadOnDemand(ctx rcontext.RequestContext, item types.FeedItem) (playback.Handle, error) {
	metrics.CacheMisses.With(prometheus.Labels{"cache": "preload"}).Inc()
	h, err, shared := l.onDemand.Do(item.Url, func() (playback.Handle, error) {
		return l.Load(ctx, item)
	})
	if shared {
		ctx.Log.WithFields(logrus.Fields{"url": item.Url}).Debug("Shared an on-demand load with another caller")
	}
	return h, err
}
