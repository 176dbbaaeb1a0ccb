package config

import (
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

type ChangeFunc func(previous *MainConfig, current *MainConfig)

func Watch(onChange ChangeFunc) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	err = watcher.Add(Path)
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}

	go func() {
		debounced := debounce.New(1 * time.Second)
		for {
			select {
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				debounced(func() {
					onFileChanged(onChange)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logrus.Error("error in config watcher: ", err)
			}
		}
	}()

	return watcher, nil
}

func onFileChanged(onChange ChangeFunc) {
	logrus.Info("Config file change detected - reloading")
	configNow := Get()
	configNew, err := reloadConfig()
	if err != nil {
		logrus.Error("Error reloading configuration - ignoring")
		logrus.Error(err)
		return
	}

	logrus.Info("Applying reloaded config live")
	instanceLock.Lock()
	instance = configNew
	instanceLock.Unlock()

	if configNew.General.LogDirectory != configNow.General.LogDirectory {
		logrus.Warn("Log configuration changed - restart the preloader to apply changes")
	}
	if configNew.Metrics != configNow.Metrics {
		logrus.Warn("Metrics configuration changed - remounting")
	}
	if configNew.Preload != configNow.Preload || configNew.Retry != configNow.Retry {
		logrus.Warn("Preload configuration changed - applying to active feeds")
	}

	if onChange != nil {
		onChange(configNow, configNew)
	}
}
