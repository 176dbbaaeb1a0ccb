package config

import (
	"os"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func withPath(t *testing.T, p string) {
	old := Path
	Path = p
	t.Cleanup(func() {
		Path = old
	})
}

func TestReloadConfigWritesDefaults(t *testing.T) {
	withPath(t, path.Join(t.TempDir(), "preloader.yaml"))

	c, err := reloadConfig()
	assert.NoError(t, err)
	assert.Equal(t, NewDefaultMainConfig(), *c)

	_, err = os.Stat(Path)
	assert.NoError(t, err)
}

func TestReloadConfigOverlaysDirectory(t *testing.T) {
	dir := t.TempDir()
	withPath(t, dir)

	assert.NoError(t, os.WriteFile(path.Join(dir, "00-base.yaml"), []byte("preload:\n  maxConcurrentLoads: 4\n  preloadCount: 5\n"), 0644))
	assert.NoError(t, os.WriteFile(path.Join(dir, "10-override.yaml"), []byte("preload:\n  preloadCount: 1\nretry:\n  maxRetries: 7\n"), 0644))

	c, err := reloadConfig()
	assert.NoError(t, err)
	assert.Equal(t, 4, c.Preload.MaxConcurrentLoads)
	assert.Equal(t, 1, c.Preload.PreloadCount)
	assert.Equal(t, 7, c.Retry.MaxRetries)
	assert.Equal(t, 3, c.Preload.UnloadDistance)
}

func TestReloadConfigSanitizes(t *testing.T) {
	withPath(t, path.Join(t.TempDir(), "preloader.yaml"))

	bad := NewDefaultMainConfig()
	bad.Preload.MaxConcurrentLoads = 0
	bad.Preload.LoadTimeoutSeconds = -1
	bad.Retry.Multiplier = 0.5
	bad.Position.ItemExtent = 0
	b, err := yaml.Marshal(bad)
	assert.NoError(t, err)
	assert.NoError(t, os.WriteFile(Path, b, 0644))

	c, err := reloadConfig()
	assert.NoError(t, err)
	assert.Equal(t, 2, c.Preload.MaxConcurrentLoads)
	assert.Equal(t, 30*time.Second, c.Preload.LoadTimeout())
	assert.Equal(t, float64(2), c.Retry.Multiplier)
	assert.Equal(t, float64(800), c.Position.ItemExtent)
}

func TestReloadConfigRejectsGarbage(t *testing.T) {
	withPath(t, path.Join(t.TempDir(), "preloader.yaml"))
	assert.NoError(t, os.WriteFile(Path, []byte("preload: [this is not a map"), 0644))

	_, err := reloadConfig()
	assert.Error(t, err)
}

func TestDurations(t *testing.T) {
	c := NewDefaultMainConfig()
	assert.Equal(t, time.Second, c.Retry.BaseDelay())
	assert.Equal(t, 10*time.Second, c.Retry.MaxDelay())
	assert.Equal(t, 150*time.Millisecond, c.Position.Debounce())
}

func TestReloadConfigReportsParseErrors(t *testing.T) {
	p := path.Join(t.TempDir(), "broken.yaml")
	withPath(t, p)

	assert.NoError(t, os.WriteFile(p, []byte("preload: [not, a, map\n"), 0644))

	c, err := reloadConfig()
	assert.Nil(t, c)
	assert.ErrorContains(t, err, "error parsing "+p)
}
