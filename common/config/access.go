package config

import (
	"fmt"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var Path = "feed-preloader.yaml"

var instance *MainConfig
var singletonLock = &sync.Once{}
var instanceLock = &sync.RWMutex{}

func reloadConfig() (*MainConfig, error) {
	c := NewDefaultMainConfig()

	// Write a default config if the one given doesn't exist
	_, err := os.Stat(Path)
	exists := err == nil || !os.IsNotExist(err)
	if !exists {
		fmt.Println("Generating new configuration...")
		configBytes, err := yaml.Marshal(c)
		if err != nil {
			return nil, err
		}
		if err = os.WriteFile(Path, configBytes, 0644); err != nil {
			return nil, errors.Wrap(err, "error writing default config")
		}
	}

	info, err := os.Stat(Path)
	if err != nil {
		return nil, err
	}

	pathsOrdered := make([]string, 0)
	if info.IsDir() {
		logrus.Info("Config is a directory - loading all files over top of each other")

		files, err := os.ReadDir(Path)
		if err != nil {
			return nil, errors.Wrap(err, "error listing config directory")
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			pathsOrdered = append(pathsOrdered, path.Join(Path, f.Name()))
		}
		sort.Strings(pathsOrdered)
	} else {
		pathsOrdered = append(pathsOrdered, Path)
	}

	for _, p := range pathsOrdered {
		logrus.Info("Loading config file: ", p)
		buffer, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading %s", p)
		}
		if err = yaml.Unmarshal(buffer, &c); err != nil {
			return nil, errors.Wrapf(err, "error parsing %s", p)
		}
	}

	c.sanitize()
	return &c, nil
}

// sanitize replaces nonsensical values with the defaults so a bad edit cannot
// stall the preloader entirely.
func (c *MainConfig) sanitize() {
	def := NewDefaultMainConfig()
	if c.Preload.MaxConcurrentLoads <= 0 {
		logrus.Warnf("preload.maxConcurrentLoads must be positive - using %d", def.Preload.MaxConcurrentLoads)
		c.Preload.MaxConcurrentLoads = def.Preload.MaxConcurrentLoads
	}
	if c.Preload.PreloadCount < 0 {
		c.Preload.PreloadCount = def.Preload.PreloadCount
	}
	if c.Preload.UnloadDistance < 0 {
		c.Preload.UnloadDistance = def.Preload.UnloadDistance
	}
	if c.Preload.LoadTimeoutSeconds <= 0 {
		c.Preload.LoadTimeoutSeconds = def.Preload.LoadTimeoutSeconds
	}
	if c.Retry.MaxRetries <= 0 {
		c.Retry.MaxRetries = 1
	}
	if c.Retry.Multiplier < 1 {
		c.Retry.Multiplier = def.Retry.Multiplier
	}
	if c.Position.ItemExtent <= 0 {
		c.Position.ItemExtent = def.Position.ItemExtent
	}
}

func Get() *MainConfig {
	singletonLock.Do(func() {
		instanceLock.RLock()
		set := instance != nil
		instanceLock.RUnlock()
		if set {
			return
		}

		c, err := reloadConfig()
		if err != nil {
			logrus.Fatal(err)
		}
		instanceLock.Lock()
		instance = c
		instanceLock.Unlock()
	})

	instanceLock.RLock()
	defer instanceLock.RUnlock()
	return instance
}

// Set replaces the active configuration without touching the disk. Used by
// tests and by embedders which manage configuration themselves.
func Set(c MainConfig) {
	c.sanitize()
	instanceLock.Lock()
	instance = &c
	instanceLock.Unlock()
}

func (c PreloadConfig) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutSeconds) * time.Second
}

func (c RetryConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMs) * time.Millisecond
}

func (c RetryConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMs) * time.Millisecond
}

func (c PositionConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}
