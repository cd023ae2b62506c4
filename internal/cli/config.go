package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment variables read by the CLI.
const (
	EnvConfigPath = "RULECTL_CONFIG"
	EnvBaseURL    = "RULECTL_BASE_URL"
	EnvAPIKey     = "RULECTL_API_KEY"
)

// Config represents the CLI configuration
type Config struct {
	DefaultEnv   string               `yaml:"default_env"`
	Environments map[string]EnvConfig `yaml:"environments"`
}

// EnvConfig points the CLI at one rule service deployment. APIKey is only
// needed for commands that change rules.
type EnvConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// GetConfigPath returns the path to the config file. RULECTL_CONFIG
// overrides the default of ~/.rulectl/config.yaml.
func GetConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".rulectl", "config.yaml"), nil
}

// LoadConfig loads the configuration file. A missing file yields an empty
// configuration with "dev" as the default environment.
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{
				DefaultEnv:   "dev",
				Environments: make(map[string]EnvConfig),
			}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Environments == nil {
		cfg.Environments = make(map[string]EnvConfig)
	}
	return &cfg, nil
}

// SaveConfig writes cfg with owner-only permissions.
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetEnvConfig resolves where to send requests.
// Priority: command flags > environment variables > config file.
// A base URL given by flag or environment variable needs no config file.
func GetEnvConfig(envName, baseURLFlag, apiKeyFlag string) (*EnvConfig, error) {
	envBaseURL := os.Getenv(EnvBaseURL)
	envAPIKey := os.Getenv(EnvAPIKey)

	resolved := EnvConfig{}
	if envName != "" || (baseURLFlag == "" && envBaseURL == "") {
		cfg, err := LoadConfig()
		if err != nil {
			return nil, err
		}
		if envName == "" {
			envName = cfg.DefaultEnv
		}
		envCfg, ok := cfg.Environments[envName]
		if !ok && baseURLFlag == "" && envBaseURL == "" {
			return nil, fmt.Errorf("environment '%s' not found in config", envName)
		}
		resolved = envCfg
	}

	switch {
	case baseURLFlag != "":
		resolved.BaseURL = baseURLFlag
	case envBaseURL != "":
		resolved.BaseURL = envBaseURL
	}
	switch {
	case apiKeyFlag != "":
		resolved.APIKey = apiKeyFlag
	case envAPIKey != "":
		resolved.APIKey = envAPIKey
	}

	if resolved.BaseURL == "" {
		return nil, fmt.Errorf("base_url must be configured for environment '%s'", envName)
	}
	return &resolved, nil
}

// InitConfig creates a default config file
func InitConfig() error {
	cfg := &Config{
		DefaultEnv: "dev",
		Environments: map[string]EnvConfig{
			"dev": {
				BaseURL: "http://localhost:8080",
				APIKey:  "admin-123",
			},
			"prod": {
				BaseURL: "https://rules.example.com",
			},
		},
	}
	return SaveConfig(cfg)
}
