package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ProductAPIConfig points the admin panel at the Product API.
type ProductAPIConfig struct {
	URL            string               `koanf:"url"`
	Timeout        time.Duration        `koanf:"timeout"`
	HealthPath     string               `koanf:"healthpath"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuitbreaker"`
}

const (
	defaultProductAPITimeout = 10 * time.Second
	defaultHealthPath        = "/api/products"
)

// String returns a string representation of the Product API configuration.
func (c *ProductAPIConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Product API ---\n")
	b.WriteString(fmt.Sprintf("  url: %s\n", maskURL(c.URL)))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  healthpath: %s\n", c.HealthPath))
	b.WriteString(c.CircuitBreaker.String())
	return b.String()
}

func (c *ProductAPIConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("product API URL is not configured")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid product API URL %q: %w", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("product API URL must start with 'http://' or 'https://': %s", c.URL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid product API timeout: %v", c.Timeout)
	}
	if c.Timeout == 0 {
		c.Timeout = defaultProductAPITimeout
	}
	if c.HealthPath == "" {
		c.HealthPath = defaultHealthPath
	}
	return c.CircuitBreaker.Validate()
}

func maskURL(url string) string {
	if url == "" {
		return "<not configured>"
	}
	// Mask the credentials, if any, by replacing them with "****"
	scheme, rest, found := strings.Cut(url, "://")
	if !found {
		rest, scheme = url, ""
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "****@" + rest[at+1:]
	}
	if scheme == "" {
		return rest
	}
	return scheme + "://" + rest
}
