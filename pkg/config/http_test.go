package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHTTPConfig_Validate(t *testing.T) {
	valid := func() HTTPConfig {
		c := HTTPConfig{Port: 8080}
		c.Timeout.Read, c.Timeout.Write, c.Timeout.Idle, c.Timeout.ReadHeader = time.Second, time.Second, time.Second, time.Second
		return c
	}
	tests := []struct {
		name    string
		mutate  func(c *HTTPConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*HTTPConfig) {}},
		{name: "secure cookie", mutate: func(c *HTTPConfig) { c.SecureCookie = true }},
		{name: "bad port", mutate: func(c *HTTPConfig) { c.Port = 70000 }, wantErr: "invalid HTTP server port"},
		{name: "negative header limit", mutate: func(c *HTTPConfig) { c.MaxHeaderBytes = -1 }, wantErr: "max header bytes"},
		{name: "no read timeout", mutate: func(c *HTTPConfig) { c.Timeout.Read = 0 }, wantErr: "read timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			cfg := valid()
			tt.mutate(&cfg)

			// when
			err := cfg.Validate()

			// then
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestHTTPConfig_String(t *testing.T) {
	// given
	cfg := HTTPConfig{Port: 8080, SecureCookie: true}

	// when
	s := cfg.String()

	// then
	assert.Contains(t, s, "server.port: 8080")
	assert.Contains(t, s, "server.securecookie: true")
}
