package config

import (
	"fmt"
	"net"
	"strings"
)

// PProfConfig configures the profiling listener. It serves the default mux, so the
// address must stay on the loopback interface unless Public is set.
type PProfConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	Public  bool   `koanf:"public"`
}

func (c *PProfConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- PProf ---\n")
	b.WriteString(fmt.Sprintf("  pprof.enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  pprof.addr: %s\n", c.Addr))
	b.WriteString(fmt.Sprintf("  pprof.public: %t\n", c.Public))
	return b.String()
}

func (c *PProfConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("pprof is enabled but address is not configured")
	}
	host, _, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return fmt.Errorf("invalid pprof address %q: %w", c.Addr, err)
	}
	if !c.Public && !isLoopback(host) {
		return fmt.Errorf("pprof address %q is not a loopback address, set pprof.public to expose it", c.Addr)
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
