package config

func NewDefaultMainConfig() MainConfig {
	return MainConfig{
		General: GeneralConfig{
			LogDirectory: "logs",
			LogColors:    false,
			JsonLogs:     false,
			LogLevel:     "info",
		},
		Preload: PreloadConfig{
			MaxConcurrentLoads:  2,
			PreloadCount:        2,
			UnloadDistance:      3,
			LoadTimeoutSeconds:  30,
			BreakerThreshold:    10,
			FailureCacheMinutes: 15,
		},
		Retry: RetryConfig{
			MaxRetries:  3,
			BaseDelayMs: 1000,
			MaxDelayMs:  10000,
			Multiplier:  2,
		},
		Position: PositionConfig{
			ItemExtent: 800, // one full-height item, in pixels
			DebounceMs: 150,
		},
		Metrics: MetricsConfig{
			Enabled:     false,
			BindAddress: "localhost",
			Port:        9000,
		},
		DebugApi: DebugApiConfig{
			Enabled:     false,
			BindAddress: "localhost",
			Port:        9001,
		},
		Sentry: SentryConfig{
			Enabled:     false,
			Dsn:         "not supplied",
			Environment: "",
			Debug:       false,
		},
		Simulation: SimulationConfig{
			MinLatencyMs: 200,
			MaxLatencyMs: 1500,
			FailureRate:  0.1,
			CdnHost:      "cdn.example.org",
		},
	}
}
