// Package config loads the application configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/erenbertr/op3-sub001/pkg/storage"
)

type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Storage storage.Config `yaml:"storage"`
	Logging LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Set defaults
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 30 * time.Second
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	// Validate required configuration
	if err := config.Storage.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage configuration: %w", err)
	}

	return &config, nil
}

// Flatten renders the configuration as dotted key/value pairs for the
// runtime settings store. Credentials are left out.
func (c *Config) Flatten() map[string]string {
	return map[string]string{
		"server.host":       c.Server.Host,
		"server.port":       fmt.Sprintf("%d", c.Server.Port),
		"storage.kind":      string(c.Storage.Kind),
		"storage.host":      c.Storage.Host,
		"storage.port":      fmt.Sprintf("%d", c.Storage.Port),
		"storage.database":  c.Storage.Database,
		"storage.file_path": c.Storage.FilePath,
		"logging.level":     c.Logging.Level,
	}
}
