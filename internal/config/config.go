package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Account is one GitHub server and token whose repositories are shown on
// the dashboard. Accounts sharing a token share a rate budget.
type Account struct {
	Name     string   `json:"name"`
	BaseURL  string   `json:"baseUrl,omitempty"` // empty for github.com
	TokenEnv string   `json:"tokenEnv"`
	Repos    []string `json:"repos"`
}

// Config holds application configuration.
type Config struct {
	Accounts          []Account `json:"accounts"`
	Concurrency       int       `json:"concurrency"`
	MaxAttempts       int       `json:"maxAttempts"`
	SafetyMargin      int       `json:"safetyMargin"`
	RequestsPerSecond float64   `json:"requestsPerSecond,omitempty"`
	RequiredApprovals int       `json:"requiredApprovals"`
	PollInterval      int       `json:"pollIntervalMs"`
}

// Defaults
const (
	DefaultTokenEnv          = "GITHUB_TOKEN"
	DefaultConcurrency       = 2
	DefaultMaxAttempts       = 4
	DefaultSafetyMargin      = 10
	DefaultRequiredApprovals = 2
	DefaultPollIntervalMs    = 10000
)

// DefaultConfigDir returns the platform-appropriate config directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "prboard")
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, ".config", "prboard")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "prboard")
		}
		return filepath.Join(home, ".config", "prboard")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "prboard")
		}
		return filepath.Join(home, ".config", "prboard")
	}
}

// DefaultPath returns the path of the config file.
func DefaultPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads the config file at path, returning defaults for missing
// fields. An empty path means DefaultPath. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path, or DefaultPath when path is empty.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename config: %w", err)
	}

	return nil
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	if c.Concurrency < 0 || c.MaxAttempts < 0 || c.SafetyMargin < 0 || c.RequiredApprovals < 0 {
		return fmt.Errorf("invalid config: negative limits are not allowed")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid config: requestsPerSecond must not be negative")
	}
	seen := make(map[string]bool, len(c.Accounts))
	for _, a := range c.Accounts {
		if seen[a.Name] {
			return fmt.Errorf("invalid config: duplicate account %q", a.Name)
		}
		seen[a.Name] = true
	}
	return nil
}

// PollIntervalDuration returns the configured poll interval as a time.Duration.
func (c *Config) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Millisecond
}

// Account returns the account called name, or the first account when name
// is empty.
func (c *Config) Account(name string) (*Account, error) {
	for i := range c.Accounts {
		if name == "" || c.Accounts[i].Name == name {
			return &c.Accounts[i], nil
		}
	}
	return nil, fmt.Errorf("no account named %q in config", name)
}

// Token reads the account's token from its environment variable.
func (a *Account) Token() (string, error) {
	token := os.Getenv(a.TokenEnv)
	if token == "" {
		return "", fmt.Errorf("account %q: $%s is not set", a.Name, a.TokenEnv)
	}
	return token, nil
}

// BudgetKey identifies the rate budget the account draws from. GitHub
// limits per token and server.
func (a *Account) BudgetKey() string {
	return a.BaseURL + "|" + a.TokenEnv
}

func defaults() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if len(cfg.Accounts) == 0 {
		cfg.Accounts = []Account{{Name: "github", TokenEnv: DefaultTokenEnv}}
	}
	for i := range cfg.Accounts {
		a := &cfg.Accounts[i]
		if a.TokenEnv == "" {
			a.TokenEnv = DefaultTokenEnv
		}
		if a.Name == "" {
			a.Name = fmt.Sprintf("account-%d", i+1)
		}
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.SafetyMargin == 0 {
		cfg.SafetyMargin = DefaultSafetyMargin
	}
	if cfg.RequiredApprovals == 0 {
		cfg.RequiredApprovals = DefaultRequiredApprovals
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollIntervalMs
	}
}
