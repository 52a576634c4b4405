package queryengine

import (
	"fmt"
)

// Config holds the token-budget calibration for the context optimizer.
// The defaults are tuned for a model with a ~1M token context window while
// staying well under it; deployments targeting smaller models should lower
// MaxContextTokens accordingly.
type Config struct {
	// MaxContextTokens is the overall context budget in estimated tokens.
	MaxContextTokens int `json:"maxContextTokens" yaml:"maxContextTokens"`
	// TokenOverhead accounts for the fixed prompt scaffolding.
	TokenOverhead int `json:"tokenOverhead" yaml:"tokenOverhead"`
	// TokensPerActivity is the estimated cost of one condensed record.
	TokensPerActivity int `json:"tokensPerActivity" yaml:"tokensPerActivity"`
	// RecentDetailDays is how many distinct recent dates keep full detail
	// when no date range narrows an over-budget history.
	RecentDetailDays int `json:"recentDetailDays" yaml:"recentDetailDays"`
}

// DefaultConfig returns the default optimizer configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxContextTokens:  500000,
		TokenOverhead:     500,
		TokensPerActivity: 50,
		RecentDetailDays:  30,
	}
}

// ValidateConfig checks configuration sanity.
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}
	if config.MaxContextTokens <= 0 {
		return fmt.Errorf("maxContextTokens must be positive, got %d", config.MaxContextTokens)
	}
	if config.TokensPerActivity <= 0 {
		return fmt.Errorf("tokensPerActivity must be positive, got %d", config.TokensPerActivity)
	}
	if config.TokenOverhead < 0 {
		return fmt.Errorf("tokenOverhead must not be negative, got %d", config.TokenOverhead)
	}
	if config.RecentDetailDays <= 0 {
		return fmt.Errorf("recentDetailDays must be positive, got %d", config.RecentDetailDays)
	}
	return nil
}
