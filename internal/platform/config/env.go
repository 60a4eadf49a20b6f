// Package config loads Mathly process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every variable read by Mathly commands. Struct tags omit
// it, so `env:"PRACTICE_PORT"` reads MATHLY_PRACTICE_PORT.
const EnvPrefix = "MATHLY_"

// ParseEnv loads configuration from prefixed environment variables.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// PositiveDuration returns value when it is positive and fallback otherwise.
// Zero or negative durations in the environment mean "use the default".
func PositiveDuration(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}
