package configloader

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Validator interface {
	Validate() error
}

const (
	defaultConfigFile = "config.yaml"
	defaultEnvFile    = ".env"
)

// Load reads the configuration of the named application.
// Sources, lowest priority first: config.yaml (or the file named by <NAME>_CONFIG_FILE),
// the .env file, then the process environment. Environment keys are <NAME>_SECTION_KEY,
// e.g. ADMIN_PRODUCTAPI_URL for productapi.url.
func Load[T any, PT interface {
	*T
	Validator
}](serviceName string) (PT, error) {
	envPrefix := fmt.Sprintf("%s_", strings.ToUpper(serviceName))
	configFile := os.Getenv(envPrefix + "CONFIG_FILE")
	if configFile == "" {
		configFile = defaultConfigFile
	}
	return LoadFiles[T, PT](serviceName, configFile, defaultEnvFile)
}

// LoadFiles is Load with explicit YAML and .env file paths. Missing files are skipped.
func LoadFiles[T any, PT interface {
	*T
	Validator
}](serviceName, configFile, envFile string) (PT, error) {
	cfg := PT(new(T))
	k := koanf.New(".")
	envPrefix := fmt.Sprintf("%s_", strings.ToUpper(serviceName))

	// 1. Load configuration from yaml file
	if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARN: error loading YAML config file '%s': %v", configFile, err)
		}
	}

	// 2. Load environment variables from .env file
	envTransformer := func(key string) string {
		key = strings.ToLower(key)
		key = strings.TrimPrefix(key, strings.ToLower(envPrefix))
		return strings.ReplaceAll(key, "_", ".")
	}
	if envFileMap, err := godotenv.Read(envFile); err == nil {
		envMap := make(map[string]any)
		for key, value := range envFileMap {
			if !strings.HasPrefix(strings.ToUpper(key), envPrefix) {
				continue
			}
			envMap[envTransformer(key)] = value
		}
		if err := k.Load(confmap.Provider(envMap, "."), nil); err != nil {
			log.Printf("WARN: error loading .env config: %v", err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("WARN: error reading .env file: %v", err)
	}

	// 3. Load environment variables from the system, the highest priority
	if err := k.Load(env.Provider(envPrefix, ".", envTransformer), nil); err != nil {
		log.Printf("WARN: error loading system env vars: %v", err)
	}

	// 4. Unmarshal the configuration into the Config struct
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// 5. Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}
