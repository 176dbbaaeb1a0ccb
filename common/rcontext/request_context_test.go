package rcontext

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/t2bot/feed-preloader/common"
	"github.com/t2bot/feed-preloader/common/config"
)

func TestFromCarriesValues(t *testing.T) {
	cfg := config.NewDefaultMainConfig()
	cfg.Preload.PreloadCount = 9
	ctx := From(context.Background(), logrus.WithField("feed", "home"), cfg)

	assert.Equal(t, 9, ctx.Config.Preload.PreloadCount)
	assert.Equal(t, ctx.Log, ctx.Value(common.ContextLogger))
	assert.Equal(t, cfg, ctx.Value(common.ContextServerConfig))
}

func TestLogWithFieldsKeepsConfig(t *testing.T) {
	cfg := config.NewDefaultMainConfig()
	ctx := From(context.Background(), logrus.WithField("feed", "home"), cfg).LogWithFields(logrus.Fields{"url": "https://cdn.example.org/a.mp4"})

	assert.Equal(t, "https://cdn.example.org/a.mp4", ctx.Log.Data["url"])
	assert.Equal(t, "home", ctx.Log.Data["feed"])
	assert.Equal(t, cfg, ctx.Config)
}

func TestWithContextCancels(t *testing.T) {
	base := From(context.Background(), logrus.WithField("feed", "home"), config.NewDefaultMainConfig())
	cctx, cancel := context.WithCancel(context.Background())
	derived := base.WithContext(cctx)
	cancel()

	assert.Error(t, derived.Err())
	assert.NoError(t, base.Err())
	assert.Equal(t, base.Log, derived.Log)
}
