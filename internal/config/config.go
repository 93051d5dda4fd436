package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/abgdnv/catalogadmin/pkg/config"
	"github.com/abgdnv/catalogadmin/pkg/config/configloader"
	"github.com/go-playground/validator/v10"
)

var (
	_ configloader.Validator = (*Config)(nil)
	_ configloader.Validator = (*CLIConfig)(nil)
)

// Config is the configuration of the admin panel server.
type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	ProductAPI config.ProductAPIConfig `koanf:"productapi"`
	View       ViewConfig              `koanf:"view"`
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.ProductAPI.String())
	b.WriteString(c.View.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.ProductAPI.Validate(); err != nil {
		return err
	}
	return c.View.Validate()
}

// CLIConfig is the configuration of productctl. It shares the ADMIN_ environment keys of
// the server for the sections it needs.
type CLIConfig struct {
	Log        config.LogConfig        `koanf:"log"`
	ProductAPI config.ProductAPIConfig `koanf:"productapi"`
	View       ViewConfig              `koanf:"view"`
}

func (c *CLIConfig) String() string {
	return c.ProductAPI.String() + c.View.String() + c.Log.String()
}

func (c *CLIConfig) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.ProductAPI.Validate(); err != nil {
		return err
	}
	return c.View.Validate()
}

// ViewConfig holds the defaults of the product list view.
type ViewConfig struct {
	PageSize int `koanf:"pagesize" validate:"omitempty,oneof=10 20 50 100"`
	// SessionTTL is how long an idle browser session keeps its view state and cache.
	SessionTTL time.Duration `koanf:"sessionttl" validate:"gte=0"`
	// MaxSessions caps the browser sessions kept in memory. The least recently used one
	// is dropped when a new session would exceed it.
	MaxSessions int `koanf:"maxsessions" validate:"gte=0"`
}

const (
	defaultPageSize    = 20
	defaultSessionTTL  = 30 * time.Minute
	defaultMaxSessions = 1000
)

var configValidator = validator.New()

func (c *ViewConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- View ---\n")
	b.WriteString(fmt.Sprintf("  pagesize: %d\n", c.PageSize))
	b.WriteString(fmt.Sprintf("  sessionttl: %s\n", c.SessionTTL))
	b.WriteString(fmt.Sprintf("  maxsessions: %d\n", c.MaxSessions))
	return b.String()
}

func (c *ViewConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid view configuration: %w", err)
	}
	if c.PageSize == 0 {
		c.PageSize = defaultPageSize
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = defaultSessionTTL
	}
	if c.MaxSessions == 0 {
		c.MaxSessions = defaultMaxSessions
	}
	return nil
}
