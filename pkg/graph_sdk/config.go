package graph_sdk

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the file form of the SDK settings.
type Config struct {
	API     APIConfig     `yaml:"api" toml:"api"`
	Runtime RuntimeConfig `yaml:"runtime" toml:"runtime"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// APIConfig describes how to reach the graph service.
type APIConfig struct {
	URL     string            `yaml:"url" toml:"url"`
	Key     string            `yaml:"key" toml:"key"`
	Headers map[string]string `yaml:"headers" toml:"headers"`

	// Timeout bounds each HTTP round trip. Zero leaves requests unbounded.
	Timeout    time.Duration `yaml:"-" toml:"-"`
	TimeoutRaw string        `yaml:"timeout" toml:"timeout"`
}

// RuntimeConfig selects the backend mode and mock seed files.
type RuntimeConfig struct {
	Mode        string `yaml:"mode" toml:"mode"`
	StoreSeed   string `yaml:"store_seed" toml:"store_seed"`
	ThreadsSeed string `yaml:"threads_seed" toml:"threads_seed"`
}

// LoggingConfig holds the logger settings used by the command-line tools.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// LoadConfig reads a YAML, JSON or TOML file (chosen by extension), expands
// ${VAR} references from the environment and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("graph_sdk: reading config file: %w", err)
	}
	expanded := expandEnvVars(string(data))

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("graph_sdk: parsing config file: %w", err)
		}
	case ".yaml", ".yml", ".json", "":
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("graph_sdk: parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("graph_sdk: unsupported config extension %q", filepath.Ext(path))
	}

	if err := cfg.parseDurations(); err != nil {
		return nil, fmt.Errorf("graph_sdk: parsing durations: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("graph_sdk: validating config: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch normalizeMode(c.Runtime.Mode) {
	case ModeAuto, ModeMock:
	case ModeHTTP:
		if strings.TrimSpace(c.API.URL) == "" {
			return fmt.Errorf("api.url is required when runtime.mode is %q", ModeHTTP)
		}
	default:
		return fmt.Errorf("runtime.mode %q is not one of auto, http, mock", c.Runtime.Mode)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format %q is not one of json, console", c.Logging.Format)
	}
	return nil
}

func (c *Config) parseDurations() error {
	if c.API.TimeoutRaw == "" {
		return nil
	}
	timeout, err := time.ParseDuration(c.API.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("parsing api.timeout %q: %w", c.API.TimeoutRaw, err)
	}
	c.API.Timeout = timeout
	return nil
}

// applyEnv overlays non-empty environment variables onto c.
func (c *Config) applyEnv() {
	for env, field := range map[string]*string{
		envMode:            &c.Runtime.Mode,
		envAPIURL:          &c.API.URL,
		envAPIKey:          &c.API.Key,
		envMockStoreSeed:   &c.Runtime.StoreSeed,
		envMockThreadsSeed: &c.Runtime.ThreadsSeed,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*field = v
		}
	}
}

func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}
