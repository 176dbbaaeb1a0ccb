package preloader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/t2bot/feed-preloader/common/config"
)

func TestOptionsFromConfig(t *testing.T) {
	c := config.NewDefaultMainConfig()
	c.Preload.PreloadCount = 4
	c.Retry.BaseDelayMs = 250

	opts := OptionsFromConfig(c)
	assert.Equal(t, 2, opts.MaxConcurrentLoads)
	assert.Equal(t, 4, opts.PreloadCount)
	assert.Equal(t, 3, opts.UnloadDistance)
	assert.Equal(t, 15*time.Minute, opts.FailureTtl)
	assert.Equal(t, 3, opts.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, opts.Retry.BaseDelay)
}

func TestOptionsNormalized(t *testing.T) {
	opts := Options{MaxConcurrentLoads: 0, PreloadCount: -1, UnloadDistance: -5}.normalized()
	assert.Equal(t, 1, opts.MaxConcurrentLoads)
	assert.Equal(t, 0, opts.PreloadCount)
	assert.Equal(t, 0, opts.UnloadDistance)
	assert.Equal(t, 15*time.Minute, opts.FailureTtl)
	assert.Equal(t, 1, opts.Retry.MaxRetries)
}
