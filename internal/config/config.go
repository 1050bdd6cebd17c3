package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EngineConfig holds overrides for the scheduling engine's hard limits
type EngineConfig struct {
	MinRestHours       float64 `yaml:"minRestHours,omitempty" validate:"omitempty,min=0"`
	MaxConsecutiveDays int     `yaml:"maxConsecutiveDays,omitempty" validate:"omitempty,min=1"`
}

// Config represents the application configuration
type Config struct {
	ListenAddr  string       `yaml:"listenAddr,omitempty"`
	DatabaseURL string       `yaml:"databaseURL,omitempty"`
	Engine      EngineConfig `yaml:"engine,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from roster_config.yaml.
// It looks for the config file in the current directory first, then in the
// user's home directory. A missing file yields a zero config; environment
// overrides still apply.
func Load() (*Config, error) {
	configPath, err := findConfigFile()
	if err != nil {
		cfg := &Config{}
		applyEnvOverrides(cfg)
		applyDefaults(cfg)
		return cfg, nil
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// applyEnvOverrides lets the environment win over the config file.
// A .env file in the working directory is loaded first if present.
func applyEnvOverrides(cfg *Config) {
	godotenv.Load()

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
}

// findConfigFile searches for roster_config.yaml in the current directory and home directory
func findConfigFile() (string, error) {
	configFileName := "roster_config.yaml"

	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
