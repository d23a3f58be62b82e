package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/argie33/algo-sub006/internal/logger"
	"github.com/argie33/algo-sub006/internal/quality"
)

// Config is the application configuration.
type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Logging    logger.Config    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Quality    quality.Config   `yaml:"quality"`
}

// AppConfig identifies the running service.
type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

// ServerConfig configures the read-only HTTP surface.
type ServerConfig struct {
	Host         string           `yaml:"host"`
	Port         int              `yaml:"port"`
	ReadTimeout  quality.Duration `yaml:"read_timeout"`
	WriteTimeout quality.Duration `yaml:"write_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MonitoringConfig configures metrics exposure.
type MonitoringConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// envPattern matches ${VAR} and ${VAR:default} placeholders.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([^}]*))?\}`)

// expandEnv substitutes environment placeholders in the raw config text.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		groups := envPattern.FindSubmatch(match)
		name := string(groups[1])
		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		return groups[2]
	})
}

// Load reads, expands and parses a YAML config file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(expandEnv(data), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns a runnable configuration without a config file.
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "quality-engine"
	}
	if c.App.Env == "" {
		c.App.Env = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8085
	}
	if c.Logging.Level == "" {
		c.Logging = logger.DefaultConfig
	}
	if c.Monitoring.Path == "" {
		c.Monitoring.Path = "/metrics"
		c.Monitoring.Enabled = true
	}
	c.Quality.ApplyDefaults()
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Monitoring.Enabled && !strings.HasPrefix(c.Monitoring.Path, "/") {
		return fmt.Errorf("monitoring path must start with /: %s", c.Monitoring.Path)
	}
	if err := c.Quality.Validate(); err != nil {
		return fmt.Errorf("quality config: %w", err)
	}
	return nil
}
