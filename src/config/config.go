package config

import (
	"fmt"
	"os"
	"strings"

	"wwasd-relay/src/helpers"
	"wwasd-relay/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

const (
	defaultStateFreshSeconds = 5400 // 90 minutes
	defaultPortFreshSeconds  = 600  // 10 minutes

	secretFileName = ".auth_shared_secret"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()
	config.resolveSharedSecret()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.StateFreshSeconds <= 0 {
		c.StateFreshSeconds = defaultStateFreshSeconds
	}
	if c.PortFreshSeconds <= 0 {
		c.PortFreshSeconds = defaultPortFreshSeconds
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Lists == nil {
		c.Lists = map[string][]string{}
	}
}

// -----------------------------------------------------------------------------

// resolveSharedSecret fills the ingestion token in precedence order:
// AUTH_SHARED_SECRET env var, then the YAML value, then a local secret file.
func (c *Config) resolveSharedSecret() {
	if env := strings.TrimSpace(os.Getenv("AUTH_SHARED_SECRET")); env != "" {
		c.AuthSharedSecret = env
		return
	}
	if strings.TrimSpace(c.AuthSharedSecret) != "" {
		c.AuthSharedSecret = strings.TrimSpace(c.AuthSharedSecret)
		return
	}
	if data, err := os.ReadFile(secretFileName); err == nil {
		c.AuthSharedSecret = strings.TrimSpace(string(data))
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return helpers.NewConfiguration("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return helpers.NewConfiguration("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return helpers.NewConfiguration("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return helpers.NewConfiguration("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return helpers.NewConfiguration("connection string cannot be empty for postgres")
		}
	default:
		return helpers.NewConfiguration("unsupported db_type: %s", c.Storage.DBType)
	}

	// Validate freshness windows
	if c.StateFreshSeconds <= 0 {
		return helpers.NewConfiguration("state fresh window must be greater than 0")
	}
	if c.PortFreshSeconds <= 0 {
		return helpers.NewConfiguration("port fresh window must be greater than 0")
	}

	// Validate list membership
	for name, symbols := range c.Lists {
		if strings.TrimSpace(name) == "" {
			return helpers.NewConfiguration("list name cannot be empty")
		}
		for i, sym := range symbols {
			if strings.TrimSpace(sym) == "" {
				return helpers.NewConfiguration("list '%s' has an empty symbol at index %d", name, i)
			}
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
