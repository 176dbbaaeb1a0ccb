package common

type PreloaderContextKey string

const (
	ContextLogger       PreloaderContextKey = "fp.logger"
	ContextServerConfig PreloaderContextKey = "fp.serverConfig"
	ContextFeedId       PreloaderContextKey = "fp.feed_id"
)
