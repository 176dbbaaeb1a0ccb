package preload_cache

import (
	"github.com/t2bot/feed-preloader/playback"
)

type EntryState int

const (
	StateNotLoaded EntryState = iota
	StateQueued
	StateLoading
	StateLoaded
	StateFailed
)

var AllStates = []EntryState{StateNotLoaded, StateQueued, StateLoading, StateLoaded, StateFailed}

func (s EntryState) String() string {
	switch s {
	case StateNotLoaded:
		return "not_loaded"
	case StateQueued:
		return "queued"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type CacheEntry struct {
	Url      string
	ItemId   string
	Position int

	Handle     playback.Handle // only set while Loaded
	State      EntryState
	RetryCount int
	LastError  error
	UpdatedTs  int64
}

func (e *CacheEntry) IsActive() bool {
	return e.State == StateLoading || e.State == StateLoaded
}
