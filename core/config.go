package core

import (
	"fmt"
	"strings"
)

type LimitsConfig struct {
	MaxDescriptionLength int `koanf:"max_description_length" mapstructure:"max_description_length"`
	MaxCategoryLength    int `koanf:"max_category_length" mapstructure:"max_category_length"`
	MaxAccessKeyLength   int `koanf:"max_access_key_length" mapstructure:"max_access_key_length"`
}

type Config struct {
	ServiceName string `koanf:"service_name" mapstructure:"service_name"`
	// Administrator is the principal that collects marketplace fees and
	// is the only caller allowed to change the fee. Captured once at
	// construction and immutable for the service lifetime.
	Administrator string       `koanf:"administrator" mapstructure:"administrator"`
	FeePercent    uint64       `koanf:"fee_percent" mapstructure:"fee_percent"`
	Limits        LimitsConfig `koanf:"limits" mapstructure:"limits"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "marketplace",
		FeePercent:  DefaultFeePercent,
		Limits: LimitsConfig{
			MaxDescriptionLength: DefaultMaxDescriptionLength,
			MaxCategoryLength:    DefaultMaxCategoryLength,
			MaxAccessKeyLength:   DefaultMaxAccessKeyLength,
		},
	}
}

// Validate checks structural bounds. The administrator principal is
// enforced by NewService once every config layer has been merged, so a
// defaults-only config still loads cleanly.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.FeePercent > MaxFeePercent {
		return fmt.Errorf("core: fee_percent must be at most %d", MaxFeePercent)
	}
	if c.Limits.MaxDescriptionLength <= 0 {
		return fmt.Errorf("core: limits.max_description_length must be positive")
	}
	if c.Limits.MaxCategoryLength <= 0 {
		return fmt.Errorf("core: limits.max_category_length must be positive")
	}
	if c.Limits.MaxAccessKeyLength <= 0 {
		return fmt.Errorf("core: limits.max_access_key_length must be positive")
	}
	return nil
}
