package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/feed-preloader/api/debug"
	"github.com/t2bot/feed-preloader/common"
	"github.com/t2bot/feed-preloader/common/config"
	"github.com/t2bot/feed-preloader/common/logging"
	"github.com/t2bot/feed-preloader/common/rcontext"
	"github.com/t2bot/feed-preloader/common/runtime"
	"github.com/t2bot/feed-preloader/common/version"
	"github.com/t2bot/feed-preloader/feed_position"
	"github.com/t2bot/feed-preloader/metrics"
	"github.com/t2bot/feed-preloader/playback"
	"github.com/t2bot/feed-preloader/preloader"
	"github.com/t2bot/feed-preloader/resource_loader"
)

func main() {
	configPath := flag.String("config", "feed-preloader.yaml", "The path to the configuration")
	itemCount := flag.Int("items", 100, "The number of posts in the simulated feed")
	scrollMs := flag.Int("scroll-ms", 700, "Milliseconds between simulated scroll gestures")
	versionFlag := flag.Bool("version", false, "Prints the version and exits")
	flag.Parse()

	if *versionFlag {
		version.Print(false)
		return // exit 0
	}

	// Override config path with config for Docker users
	configEnv := os.Getenv("FEED_PRELOADER_CONFIG")
	if configEnv != "" {
		configPath = &configEnv
	}
	config.Path = *configPath
	cfg := config.Get()

	err := logging.Setup(cfg.General.LogDirectory, cfg.General.LogColors, cfg.General.JsonLogs, cfg.General.LogLevel)
	if err != nil {
		panic(err)
	}

	logrus.Info("Starting up...")
	runtime.RunStartupSequence()

	sim := cfg.Simulation
	capability := playback.NewSimulatedCapability(
		time.Duration(sim.MinLatencyMs)*time.Millisecond,
		time.Duration(sim.MaxLatencyMs)*time.Millisecond,
		sim.FailureRate,
	)
	loader := resource_loader.New(capability, resource_loader.Options{
		Timeout:          cfg.Preload.LoadTimeout(),
		BreakerThreshold: cfg.Preload.BreakerThreshold,
	})

	ctx := rcontext.Initial()
	ctx = ctx.WithContext(context.WithValue(ctx.Context, common.ContextFeedId, "demo"))
	manager, err := preloader.NewManager(ctx, loader, preloader.OptionsFromConfig(*cfg))
	if err != nil {
		logrus.Fatal(err)
	}

	tracker := feed_position.NewTracker(cfg.Position.ItemExtent, cfg.Position.Debounce(), func(index int) {
		if err := manager.SetCurrentIndex(index); err != nil {
			logrus.Warn("Unable to move preload window: ", err)
		}
	})

	logrus.Info("Starting metrics and debug listeners...")
	metrics.Init()
	debugApi := debug.NewServer(manager, *cfg)
	debugApi.Start()

	logrus.Info("Starting config watcher...")
	watcher, err := config.Watch(func(previous *config.MainConfig, current *config.MainConfig) {
		manager.ApplyConfig(preloader.OptionsFromConfig(*current))
		tracker.SetItemExtent(current.Position.ItemExtent)
		if previous.Metrics != current.Metrics {
			metrics.Reload()
		}
	})
	if err != nil {
		logrus.Warn("Config watcher unavailable, changes need a restart: ", err)
	}

	go logEvents(manager)

	total := *itemCount
	if err = manager.SetFeedItems(buildFeed(0, minInt(pageSize, total), sim.CdnHost)); err != nil {
		logrus.Fatal(err)
	}
	tracker.Observe(0)

	stopScroll := make(chan bool)
	scroll := newScroller(tracker, cfg.Position.ItemExtent, time.Duration(*scrollMs)*time.Millisecond, total)
	go scroll.run(stopScroll)

	stopStats := make(chan bool)
	go printStats(manager, capability, sim.CdnHost, total, stopStats)

	// Set up a listener for SIGINT
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logrus.Warn("Stop signal received")

	logrus.Info("Stopping simulation...")
	close(stopScroll)
	close(stopStats)
	tracker.Stop()

	if watcher != nil {
		logrus.Info("Stopping config watcher...")
		_ = watcher.Close()
	}

	logrus.Info("Tearing down preloader...")
	manager.Teardown()

	logrus.Info("Stopping metrics and debug listeners...")
	debugApi.Stop()
	metrics.Stop()

	logrus.Infof("%s handles still open after teardown", humanize.Comma(int64(loader.LiveHandles())))
	logrus.Info("Goodbye!")
}

func logEvents(manager *preloader.Manager) {
	for ev := range manager.Subscribe() {
		if len(ev.Args) < 2 {
			continue
		}
		logrus.WithFields(logrus.Fields{
			"itemId": ev.Args[0],
			"url":    ev.Args[1],
		}).Debug("Preloader event: ", ev.OriginalTopic)
	}
}

// printStats logs a summary every few seconds and pages more posts into the
// feed as the viewer nears the end of what has been loaded.
func printStats(manager *preloader.Manager, capability *playback.SimulatedCapability, cdnHost string, total int, stop <-chan bool) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	loadedItems := minInt(pageSize, total)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		index := manager.CurrentIndex()
		if index >= loadedItems-5 && loadedItems < total {
			next := minInt(pageSize, total-loadedItems)
			if err := manager.AppendFeedItems(buildFeed(loadedItems, next, cdnHost)); err != nil {
				logrus.Warn("Unable to append page: ", err)
			} else {
				loadedItems += next
				logrus.Infof("Paged in %d more posts (%d of %d)", next, loadedItems, total)
			}
		}

		stats := manager.GetStats()
		logrus.Info(fmt.Sprintf("Viewing the %s post: %d/%d videos ready, %d loading, %d queued, %d failed, %s opens so far",
			humanize.Ordinal(index+1), stats.Loaded, stats.Total, stats.Loading, stats.Queued, stats.Failed,
			humanize.Comma(int64(capability.TotalOpens()))))
	}
}

func minInt(a int, b int) int {
	if a < b {
		return a
	}
	return b
}
