package configloader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name string `koanf:"name"`
	Port int    `koanf:"port"`
	Sub  struct {
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"sub"`
}

func (c *testConfig) Validate() error {
	if c.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFiles_Precedence(t *testing.T) {
	// given
	dir := t.TempDir()
	yamlFile := writeFile(t, dir, "config.yaml", "name: from-yaml\nport: 8080\nsub:\n  timeout: 5s\n")
	envFile := writeFile(t, dir, ".env", "TESTAPP_PORT=9090\nOTHER_PORT=1\n")
	t.Setenv("TESTAPP_SUB_TIMEOUT", "7s")

	// when
	cfg, err := LoadFiles[testConfig]("testapp", yamlFile, envFile)

	// then
	require.NoError(t, err)
	assert.Equal(t, "from-yaml", cfg.Name)
	assert.Equal(t, 9090, cfg.Port, ".env overrides yaml")
	assert.Equal(t, 7*time.Second, cfg.Sub.Timeout, "process env overrides everything")
}

func TestLoadFiles_MissingFilesAreSkipped(t *testing.T) {
	// given
	dir := t.TempDir()
	t.Setenv("TESTAPP_PORT", "1234")

	// when
	cfg, err := LoadFiles[testConfig]("testapp", filepath.Join(dir, "none.yaml"), filepath.Join(dir, ".env"))

	// then
	require.NoError(t, err)
	assert.Equal(t, 1234, cfg.Port)
}

func TestLoadFiles_ValidationFails(t *testing.T) {
	// given
	dir := t.TempDir()
	yamlFile := writeFile(t, dir, "config.yaml", "name: no-port\n")

	// when
	cfg, err := LoadFiles[testConfig]("testapp", yamlFile, filepath.Join(dir, ".env"))

	// then
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "port is required")
}

func TestLoad_ConfigFileFromEnv(t *testing.T) {
	// given
	dir := t.TempDir()
	yamlFile := writeFile(t, dir, "custom.yaml", "port: 4242\n")
	t.Setenv("TESTAPP_CONFIG_FILE", yamlFile)

	// when
	cfg, err := Load[testConfig]("testapp")

	// then
	require.NoError(t, err)
	assert.Equal(t, 4242, cfg.Port)
}
