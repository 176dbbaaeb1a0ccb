package version

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

var GitCommit string
var Version string

func SetDefaults() {
	if GitCommit == "" {
		GitCommit = ".dev"
		if build, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range build.Settings {
				if setting.Key == "vcs.revision" {
					GitCommit = setting.Value
					break
				}
			}
		}
	}

	if Version == "" {
		Version = "unknown"
	}
}

func String() string {
	SetDefaults()
	return Version + " (" + GitCommit + ")"
}

func Print(usingLogger bool) {
	if usingLogger {
		logrus.Info("feed-preloader " + String())
	} else {
		fmt.Println("feed-preloader " + String())
	}
}
