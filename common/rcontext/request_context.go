package rcontext

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/t2bot/feed-preloader/common"
	"github.com/t2bot/feed-preloader/common/config"
)

func Initial() RequestContext {
	return RequestContext{
		Context: context.Background(),
		Log:     logrus.WithFields(logrus.Fields{"nocontext": true}),
		Config:  *config.Get(),
	}.populate()
}

// From builds a context carrying an explicit configuration, for callers which
// do not use the global config file (tests, embedders).
func From(ctx context.Context, log *logrus.Entry, cfg config.MainConfig) RequestContext {
	return RequestContext{
		Context: ctx,
		Log:     log,
		Config:  cfg,
	}.populate()
}

type RequestContext struct {
	context.Context

	// These are also stored on the context object itself
	Log    *logrus.Entry     // fp.logger
	Config config.MainConfig // fp.serverConfig
}

func (c RequestContext) populate() RequestContext {
	c.Context = context.WithValue(c.Context, common.ContextLogger, c.Log)
	c.Context = context.WithValue(c.Context, common.ContextServerConfig, c.Config)
	return c
}

func (c RequestContext) ReplaceLogger(log *logrus.Entry) RequestContext {
	ctx := context.WithValue(c.Context, common.ContextLogger, log)
	return RequestContext{
		Context: ctx,
		Log:     log,
		Config:  c.Config,
	}
}

func (c RequestContext) LogWithFields(fields logrus.Fields) RequestContext {
	return c.ReplaceLogger(c.Log.WithFields(fields))
}

// WithContext swaps the underlying context (cancellation, deadlines) while
// keeping the logger and configuration.
func (c RequestContext) WithContext(ctx context.Context) RequestContext {
	return RequestContext{
		Context: ctx,
		Log:     c.Log,
		Config:  c.Config,
	}.populate()
}
