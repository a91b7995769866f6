package config

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks cfg against its struct tags and the cross-field
// invariants the orchestrator and dispatcher rely on.
func Validate(cfg *Config) error {
	if err := getValidator().Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if cfg.Optimizer.LastOptIndex != -1 && cfg.Optimizer.LastOptIndex < cfg.Optimizer.FirstOptIndex {
		return fmt.Errorf("optimizer.last_opt_index (%d) must be -1 or >= optimizer.first_opt_index (%d)",
			cfg.Optimizer.LastOptIndex, cfg.Optimizer.FirstOptIndex)
	}

	if cfg.Optimizer.MaxBlocksHotTier > cfg.Optimizer.MaxBlocksColdTier {
		return fmt.Errorf("optimizer.max_blocks_hot_tier (%d) must not exceed max_blocks_cold_tier (%d)",
			cfg.Optimizer.MaxBlocksHotTier, cfg.Optimizer.MaxBlocksColdTier)
	}

	if cfg.Optimizer.MaxLoopsHotTier > cfg.Optimizer.MaxLoopsColdTier {
		return fmt.Errorf("optimizer.max_loops_hot_tier (%d) must not exceed max_loops_cold_tier (%d)",
			cfg.Optimizer.MaxLoopsHotTier, cfg.Optimizer.MaxLoopsColdTier)
	}

	seen := make(map[string]bool, len(cfg.Dispatcher.Options))
	hasSync := false
	hasAsync := false
	for _, opt := range cfg.Dispatcher.Options {
		if seen[opt] {
			return fmt.Errorf("dispatcher.options contains duplicate entry %q", opt)
		}
		seen[opt] = true
		switch opt {
		case "REDUCED_SIGNALS_SYNCHRONOUS":
			hasSync = true
		case "REDUCED_SIGNALS_ASYNCHRONOUS":
			hasAsync = true
		}
	}
	if hasSync && hasAsync {
		return fmt.Errorf("dispatcher.options must not request both REDUCED_SIGNALS_SYNCHRONOUS and REDUCED_SIGNALS_ASYNCHRONOUS")
	}

	return nil
}
