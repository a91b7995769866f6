// Package config loads and validates jitcore's static configuration: the
// logging, telemetry, and metrics surfaces, plus the orchestrator's and
// dispatcher's tunables. Dynamic, per-compilation settings (strategy
// overrides, break-on-opt points) travel through their respective engine
// APIs instead and never touch this package.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (JITCORE_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the top-level jitcore configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry tracing export.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Optimizer tunes the optimization orchestrator.
	Optimizer OptimizerConfig `mapstructure:"optimizer" yaml:"optimizer"`

	// Dispatcher tunes the signal dispatcher.
	Dispatcher DispatcherConfig `mapstructure:"dispatcher" yaml:"dispatcher"`

	// Metrics controls the Prometheus exposition endpoint.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" validate:"required_if=Enabled true" yaml:"endpoint"`
	Insecure    bool    `mapstructure:"insecure" yaml:"insecure"`
	ServiceName string  `mapstructure:"service_name" validate:"required" yaml:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// OptimizerConfig tunes the optimization orchestrator. It feeds
// performOptimization's index-range gate, the enabled/disabled regex
// consultation, and the complexity gate.
type OptimizerConfig struct {
	FirstOptIndex   int    `mapstructure:"first_opt_index" validate:"gte=0" yaml:"first_opt_index"`
	LastOptIndex    int    `mapstructure:"last_opt_index" validate:"gte=-1" yaml:"last_opt_index"`
	EnabledRegex    string `mapstructure:"enabled_regex" yaml:"enabled_regex"`
	DisabledRegex   string `mapstructure:"disabled_regex" yaml:"disabled_regex"`
	BreakOnOptRegex string `mapstructure:"break_on_opt_regex" yaml:"break_on_opt_regex"`

	MaxBlocksHotTier  int `mapstructure:"max_blocks_hot_tier" validate:"gt=0" yaml:"max_blocks_hot_tier"`
	MaxBlocksColdTier int `mapstructure:"max_blocks_cold_tier" validate:"gt=0" yaml:"max_blocks_cold_tier"`
	MaxLoopsHotTier   int `mapstructure:"max_loops_hot_tier" validate:"gt=0" yaml:"max_loops_hot_tier"`
	MaxLoopsColdTier  int `mapstructure:"max_loops_cold_tier" validate:"gt=0" yaml:"max_loops_cold_tier"`

	OverrideComplexityLimit bool `mapstructure:"override_complexity_limit" yaml:"override_complexity_limit"`
	TraceAll                bool `mapstructure:"trace_all" yaml:"trace_all"`
}

// DispatcherConfig tunes the signal dispatcher. Options decodes to the
// SetOptions bitmask names the dispatcher understands.
type DispatcherConfig struct {
	Options                    []string      `mapstructure:"options" validate:"dive,oneof=REDUCED_SIGNALS_SYNCHRONOUS REDUCED_SIGNALS_ASYNCHRONOUS SIGXFSZ OMRSIG_NO_CHAIN COOPERATIVE_SHUTDOWN" yaml:"options"`
	ReporterQueueWarnThreshold int           `mapstructure:"reporter_queue_warn_threshold" validate:"gt=0" yaml:"reporter_queue_warn_threshold"`
	ReporterShutdownTimeout    time.Duration `mapstructure:"reporter_shutdown_timeout" validate:"gt=0" yaml:"reporter_shutdown_timeout"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true" yaml:"addr"`
}

// Load reads configuration from the given path (or the default search
// path, if empty), merges in JITCORE_* environment overrides, applies
// defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	v.SetEnvPrefix("JITCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(durationDecodeHook())
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, exiting the process on failure. It is used
// only by cmd/jitcore; library entry points always return error instead.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jitcore: failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures the config file search path.
func setupViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

// readConfigFile reads the configuration file if it exists. Returns
// (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// durationDecodeHook converts strings like "30s" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "jitcore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "jitcore")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
