package config

import (
	"fmt"
	"strings"
	"time"
)

// HTTPConfig configures the admin panel HTTP server.
type HTTPConfig struct {
	Port           int `koanf:"port"`
	MaxHeaderBytes int `koanf:"maxHeaderBytes"`
	// SecureCookie marks the session cookie Secure. Enable it when the panel is served over HTTPS.
	SecureCookie bool `koanf:"securecookie"`
	Timeout        struct {
		Read       time.Duration `koanf:"read"`
		Write      time.Duration `koanf:"write"`
		Idle       time.Duration `koanf:"idle"`
		ReadHeader time.Duration `koanf:"readHeader"`
	} `koanf:"timeout"`
}

// String returns a string representation of the HTTP server configuration.
func (c *HTTPConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Server ---\n")
	b.WriteString(fmt.Sprintf("  server.port: %d\n", c.Port))
	b.WriteString(fmt.Sprintf("  server.maxHeaderBytes: %d\n", c.MaxHeaderBytes))
	b.WriteString(fmt.Sprintf("  server.securecookie: %t\n", c.SecureCookie))
	b.WriteString(fmt.Sprintf("  server.timeout.read: %v\n", c.Timeout.Read))
	b.WriteString(fmt.Sprintf("  server.timeout.write: %v\n", c.Timeout.Write))
	b.WriteString(fmt.Sprintf("  server.timeout.idle: %v\n", c.Timeout.Idle))
	b.WriteString(fmt.Sprintf("  server.timeout.readHeader: %v\n", c.Timeout.ReadHeader))
	return b.String()
}

func (c *HTTPConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid HTTP server port: %d", c.Port)
	}
	if c.MaxHeaderBytes < 0 {
		return fmt.Errorf("invalid HTTP server max header bytes: %d", c.MaxHeaderBytes)
	}
	if c.Timeout.Read <= 0 {
		return fmt.Errorf("invalid HTTP server read timeout: %v", c.Timeout.Read)
	}
	if c.Timeout.Write <= 0 {
		return fmt.Errorf("invalid HTTP server write timeout: %v", c.Timeout.Write)
	}
	if c.Timeout.Idle <= 0 {
		return fmt.Errorf("invalid HTTP server idle timeout: %v", c.Timeout.Idle)
	}
	if c.Timeout.ReadHeader <= 0 {
		return fmt.Errorf("invalid HTTP server read header timeout: %v", c.Timeout.ReadHeader)
	}
	return nil
}
