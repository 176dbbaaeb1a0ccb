package playback

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

var ErrSimulatedFailure = errors.New("simulated network failure")
var ErrSimulatedOpen = errors.New("simulated open failure")

// Outcome scripts a single Open call on a SimulatedCapability.
type Outcome struct {
	Delay   time.Duration
	Err     error // reported through OnError after Delay
	OpenErr error // returned directly from Open
	Hang    bool  // never becomes ready
}

type simHandle struct {
	id  uint64
	url string

	timer     *time.Timer
	pending   bool
	stopped   bool
	discarded bool
}

func (h *simHandle) Url() string {
	return h.url
}

// SimulatedCapability is an in-process Capability with scripted or random
// outcomes. It records how many loads were in flight so callers can verify
// their concurrency limits.
type SimulatedCapability struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	FailureRate float64

	mu            sync.Mutex
	nextId        uint64
	scripts       map[string][]Outcome
	opens         map[string]int
	live          map[*simHandle]bool
	inFlight      int
	inFlightByUrl map[string]int
	maxInFlight   int
	maxPerUrl     int
	rnd           *rand.Rand

	stops    atomic.Int64
	discards atomic.Int64
}

func NewSimulatedCapability(minDelay time.Duration, maxDelay time.Duration, failureRate float64) *SimulatedCapability {
	return &SimulatedCapability{
		MinDelay:      minDelay,
		MaxDelay:      maxDelay,
		FailureRate:   failureRate,
		scripts:       make(map[string][]Outcome),
		opens:         make(map[string]int),
		live:          make(map[*simHandle]bool),
		inFlightByUrl: make(map[string]int),
		rnd:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Script queues outcomes for the next Open calls on url. Once the script runs
// out the random behaviour applies again.
func (c *SimulatedCapability) Script(url string, outcomes ...Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts[url] = append(c.scripts[url], outcomes...)
}

func (c *SimulatedCapability) nextOutcome(url string) Outcome {
	if s, ok := c.scripts[url]; ok && len(s) > 0 {
		c.scripts[url] = s[1:]
		return s[0]
	}

	delay := c.MinDelay
	if c.MaxDelay > c.MinDelay {
		delay += time.Duration(c.rnd.Int63n(int64(c.MaxDelay - c.MinDelay)))
	}
	o := Outcome{Delay: delay}
	if c.FailureRate > 0 && c.rnd.Float64() < c.FailureRate {
		o.Err = ErrSimulatedFailure
	}
	return o
}

func (c *SimulatedCapability) Open(url string, l Listener) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.opens[url]++
	o := c.nextOutcome(url)
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}

	c.nextId++
	h := &simHandle{id: c.nextId, url: url, pending: true}
	c.live[h] = true
	c.inFlight++
	c.inFlightByUrl[url]++
	if c.inFlight > c.maxInFlight {
		c.maxInFlight = c.inFlight
	}
	if c.inFlightByUrl[url] > c.maxPerUrl {
		c.maxPerUrl = c.inFlightByUrl[url]
	}

	if !o.Hang {
		h.timer = time.AfterFunc(o.Delay, func() {
			c.mu.Lock()
			if !h.pending {
				c.mu.Unlock()
				return
			}
			c.finishLocked(h)
			c.mu.Unlock()

			if o.Err != nil {
				l.OnError(h, o.Err)
			} else {
				l.OnReady(h)
			}
		})
	}

	return h, nil
}

func (c *SimulatedCapability) finishLocked(h *simHandle) {
	if !h.pending {
		return
	}
	h.pending = false
	c.inFlight--
	c.inFlightByUrl[h.url]--
}

func (c *SimulatedCapability) Stop(h Handle) {
	sh, ok := h.(*simHandle)
	if !ok {
		return
	}
	c.stops.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	sh.stopped = true
	if sh.timer != nil {
		sh.timer.Stop()
	}
	c.finishLocked(sh)
}

func (c *SimulatedCapability) Discard(h Handle) {
	sh, ok := h.(*simHandle)
	if !ok {
		return
	}
	c.discards.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	sh.discarded = true
	delete(c.live, sh)
}

func (c *SimulatedCapability) Opens(url string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens[url]
}

func (c *SimulatedCapability) TotalOpens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.opens {
		total += n
	}
	return total
}

// Live counts handles which were opened and not yet discarded.
func (c *SimulatedCapability) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

func (c *SimulatedCapability) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

func (c *SimulatedCapability) MaxInFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxInFlight
}

func (c *SimulatedCapability) MaxInFlightPerUrl() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxPerUrl
}

func (c *SimulatedCapability) Stops() int64 {
	return c.stops.Load()
}

func (c *SimulatedCapability) Discards() int64 {
	return c.discards.Load()
}

// IsDiscarded reports whether h was handed to Discard.
func (c *SimulatedCapability) IsDiscarded(h Handle) bool {
	sh, ok := h.(*simHandle)
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return sh.discarded
}
