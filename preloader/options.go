package preloader

import (
	"time"

	"github.com/t2bot/feed-preloader/common/config"
	"github.com/t2bot/feed-preloader/util/retry"
)

type Options struct {
	MaxConcurrentLoads int
	PreloadCount       int
	UnloadDistance     int
	FailureTtl         time.Duration // how long a failure stays visible after eviction
	Retry              retry.Options
}

func DefaultOptions() Options {
	return Options{
		MaxConcurrentLoads: 2,
		PreloadCount:       2,
		UnloadDistance:     3,
		FailureTtl:         15 * time.Minute,
		Retry:              retry.DefaultOptions(),
	}
}

func OptionsFromConfig(c config.MainConfig) Options {
	return Options{
		MaxConcurrentLoads: c.Preload.MaxConcurrentLoads,
		PreloadCount:       c.Preload.PreloadCount,
		UnloadDistance:     c.Preload.UnloadDistance,
		FailureTtl:         time.Duration(c.Preload.FailureCacheMinutes) * time.Minute,
		Retry:              retry.FromConfig(c.Retry),
	}
}

func (o Options) normalized() Options {
	if o.MaxConcurrentLoads < 1 {
		o.MaxConcurrentLoads = 1
	}
	if o.PreloadCount < 0 {
		o.PreloadCount = 0
	}
	if o.UnloadDistance < 0 {
		o.UnloadDistance = 0
	}
	if o.FailureTtl <= 0 {
		o.FailureTtl = 15 * time.Minute
	}
	if o.Retry.MaxRetries < 1 {
		o.Retry.MaxRetries = 1
	}
	return o
}
