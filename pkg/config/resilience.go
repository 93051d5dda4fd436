package config

import (
	"fmt"
	"strings"
	"time"
)

// CircuitBreakerConfig controls when calls to an upstream service stop being attempted.
type CircuitBreakerConfig struct {
	ConsecutiveFailures uint32        `koanf:"consecutivefailures"`
	ErrorRatePercent    int           `koanf:"errorratepercent"`
	MaxRequests         uint32        `koanf:"maxrequests"`
	OpenTimeout         time.Duration `koanf:"opentimeout"`
}

const (
	defaultConsecutiveFailures = 5
	defaultErrorRatePercent    = 50
	defaultHalfOpenRequests    = 3
	defaultOpenTimeout         = 5 * time.Second
)

// String returns a string representation of the CircuitBreakerConfig.
func (c *CircuitBreakerConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Circuit Breaker ---\n")
	b.WriteString(fmt.Sprintf("  consecutivefailures: %d\n", c.ConsecutiveFailures))
	b.WriteString(fmt.Sprintf("  errorratepercent: %d\n", c.ErrorRatePercent))
	b.WriteString(fmt.Sprintf("  maxrequests: %d\n", c.MaxRequests))
	b.WriteString(fmt.Sprintf("  opentimeout: %v\n", c.OpenTimeout))
	return b.String()
}

// Validate fills unset values with defaults and rejects out-of-range ones.
func (c *CircuitBreakerConfig) Validate() error {
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = defaultConsecutiveFailures
	}
	if c.ErrorRatePercent == 0 {
		c.ErrorRatePercent = defaultErrorRatePercent
	}
	if c.ErrorRatePercent < 0 || c.ErrorRatePercent > 100 {
		return fmt.Errorf("circuitbreaker.errorratepercent must be between 0 and 100")
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = defaultHalfOpenRequests
	}
	if c.OpenTimeout < 0 {
		return fmt.Errorf("circuitbreaker.opentimeout must not be negative")
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = defaultOpenTimeout
	}
	return nil
}
