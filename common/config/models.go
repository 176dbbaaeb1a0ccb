package config

type GeneralConfig struct {
	LogDirectory string `yaml:"logDirectory"`
	LogColors    bool   `yaml:"logColors"`
	JsonLogs     bool   `yaml:"jsonLogs"`
	LogLevel     string `yaml:"logLevel"`
}

type PreloadConfig struct {
	MaxConcurrentLoads  int `yaml:"maxConcurrentLoads"`
	PreloadCount        int `yaml:"preloadCount"`
	UnloadDistance      int `yaml:"unloadDistance"`
	LoadTimeoutSeconds  int `yaml:"loadTimeoutSeconds"`
	BreakerThreshold    int `yaml:"breakerThreshold"` // consecutive failures per host, 0 to disable
	FailureCacheMinutes int `yaml:"failureCacheMinutes"`
}

type RetryConfig struct {
	MaxRetries  int     `yaml:"maxRetries"`
	BaseDelayMs int     `yaml:"baseDelayMs"`
	MaxDelayMs  int     `yaml:"maxDelayMs"`
	Multiplier  float64 `yaml:"multiplier"`
}

type PositionConfig struct {
	ItemExtent float64 `yaml:"itemExtent"`
	DebounceMs int     `yaml:"debounceMs"`
}

type MetricsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BindAddress string `yaml:"bind"`
	Port        int    `yaml:"port"`
}

type DebugApiConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BindAddress string `yaml:"bind"`
	Port        int    `yaml:"port"`
}

type SentryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Dsn         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
	Debug       bool   `yaml:"debug"`
}

type SimulationConfig struct {
	MinLatencyMs int     `yaml:"minLatencyMs"`
	MaxLatencyMs int     `yaml:"maxLatencyMs"`
	FailureRate  float64 `yaml:"failureRate"`
	CdnHost      string  `yaml:"cdnHost"`
}

type MainConfig struct {
	General    GeneralConfig    `yaml:"repo"`
	Preload    PreloadConfig    `yaml:"preload"`
	Retry      RetryConfig      `yaml:"retry"`
	Position   PositionConfig   `yaml:"position"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	DebugApi   DebugApiConfig   `yaml:"debugApi"`
	Sentry     SentryConfig     `yaml:"sentry"`
	Simulation SimulationConfig `yaml:"simulation"`
}
