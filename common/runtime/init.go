package runtime

import (
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/feed-preloader/common/config"
	"github.com/t2bot/feed-preloader/common/version"
)

func RunStartupSequence() {
	version.Print(true)
	SetupSentry()
	logrus.Infof("Preloading %d items ahead with at most %d concurrent loads", config.Get().Preload.PreloadCount, config.Get().Preload.MaxConcurrentLoads)
}

func SetupSentry() {
	if !config.Get().Sentry.Enabled {
		return
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         config.Get().Sentry.Dsn,
		Environment: config.Get().Sentry.Environment,
		Debug:       config.Get().Sentry.Debug,
		Release:     version.Version,
	})
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.Info("Sentry reporting enabled")
}
