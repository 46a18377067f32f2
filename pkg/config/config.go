package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML configs can use values like "30s".
type Duration time.Duration

// UnmarshalYAML parses a duration from a YAML scalar.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in time.Duration string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the eobench configuration
type Config struct {
	OutputDir       string            `yaml:"output_dir"`
	RecordsDir      string            `yaml:"records_dir"`
	ProbeTimeout    Duration          `yaml:"probe_timeout"`
	RequestTimeout  Duration          `yaml:"request_timeout"`
	PollInterval    Duration          `yaml:"poll_interval"`
	PollMaxInterval Duration          `yaml:"poll_max_interval"`
	PollBudget      Duration          `yaml:"poll_budget"`
	PollRetries     int               `yaml:"poll_retries"`
	LogLevel        string            `yaml:"log_level"`
	Headers         map[string]string `yaml:"headers"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	baseDir := "eobench"
	if homeDir, err := os.UserHomeDir(); err == nil {
		baseDir = filepath.Join(homeDir, "eobench")
	}
	return &Config{
		OutputDir:       filepath.Join(baseDir, "results"),
		RecordsDir:      filepath.Join(baseDir, "records"),
		ProbeTimeout:    Duration(10 * time.Second),
		RequestTimeout:  Duration(30 * time.Second),
		PollInterval:    Duration(2 * time.Second),
		PollMaxInterval: Duration(30 * time.Second),
		PollBudget:      Duration(30 * time.Minute),
		PollRetries:     3,
		LogLevel:        "info",
	}
}

// Load loads configuration from file and environment variables
// Priority: environment variables > config file > defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := GetConfigPath()
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			// Config file is optional, so we just skip if not found
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	// Override with environment variables
	if dir := os.Getenv("EOBENCH_OUTPUT_DIR"); dir != "" {
		cfg.OutputDir = dir
	}
	if dir := os.Getenv("EOBENCH_RECORDS_DIR"); dir != "" {
		cfg.RecordsDir = dir
	}
	if level := os.Getenv("EOBENCH_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if budget := os.Getenv("EOBENCH_POLL_BUDGET"); budget != "" {
		if d, err := time.ParseDuration(budget); err == nil {
			cfg.PollBudget = Duration(d)
		}
	}
	if interval := os.Getenv("EOBENCH_POLL_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			cfg.PollInterval = Duration(d)
		}
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// Save saves the configuration to a file
func (cfg *Config) Save(path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	configPath := os.Getenv("EOBENCH_CONFIG")
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(homeDir, ".eobench.yaml")
		} else {
			configPath = ".eobench.yaml"
		}
	}
	return configPath
}

// ExpandPath expands a leading ~/ in a path to the user home directory
func ExpandPath(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
