package config

import "time"

// ApplyDefaults sets default values for any unspecified configuration
// fields. It runs after loading from file and environment so that zero
// values (0, "", false, nil) get sensible defaults while explicit values
// are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyOptimizerDefaults(&cfg.Optimizer)
	applyDispatcherDefaults(&cfg.Dispatcher)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "jitcore"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

// applyOptimizerDefaults mirrors the unbounded-range convention: a
// LastOptIndex of -1 means "run to the end of the strategy".
func applyOptimizerDefaults(cfg *OptimizerConfig) {
	if cfg.LastOptIndex == 0 {
		cfg.LastOptIndex = -1
	}
	if cfg.MaxBlocksHotTier == 0 {
		cfg.MaxBlocksHotTier = 1500
	}
	if cfg.MaxBlocksColdTier == 0 {
		cfg.MaxBlocksColdTier = 6000
	}
	if cfg.MaxLoopsHotTier == 0 {
		cfg.MaxLoopsHotTier = 200
	}
	if cfg.MaxLoopsColdTier == 0 {
		cfg.MaxLoopsColdTier = 800
	}
}

func applyDispatcherDefaults(cfg *DispatcherConfig) {
	if cfg.ReporterQueueWarnThreshold == 0 {
		cfg.ReporterQueueWarnThreshold = 64
	}
	if cfg.ReporterShutdownTimeout == 0 {
		cfg.ReporterShutdownTimeout = 5 * time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Addr == "" {
		cfg.Addr = ":9090"
	}
}
