package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API     APIConfig     `yaml:"api"`
	Token   TokenConfig   `yaml:"token"`
	Polling PollingConfig `yaml:"polling"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type TokenConfig struct {
	Path         string `yaml:"path"`
	CipherKeyHex string `yaml:"cipher_key_hex"` // empty: token stored in plaintext
}

type PollingConfig struct {
	UnreadInterval      time.Duration `yaml:"unread_interval"`
	LeaderboardInterval time.Duration `yaml:"leaderboard_interval"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // debug listen address for watch commands; empty disables it
}

func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 10 * time.Second,
		},
		Token: TokenConfig{
			Path: defaultTokenPath(),
		},
		Polling: PollingConfig{
			UnreadInterval:      30 * time.Second,
			LeaderboardInterval: 5 * time.Minute,
		},
	}
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rootyou/token"
	}
	return filepath.Join(home, ".rootyou", "token")
}

func expandEnvVars(s string) string {
	return os.ExpandEnv(s)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ROOTYOU_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("ROOTYOU_TOKEN_PATH"); v != "" {
		cfg.Token.Path = v
	}
	if v := os.Getenv("ROOTYOU_TOKEN_KEY"); v != "" {
		cfg.Token.CipherKeyHex = v
	}
	if v := os.Getenv("ROOTYOU_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.Polling.UnreadInterval < time.Second {
		return fmt.Errorf("polling.unread_interval must be at least 1s, got %s", c.Polling.UnreadInterval)
	}
	if c.Polling.LeaderboardInterval < time.Second {
		return fmt.Errorf("polling.leaderboard_interval must be at least 1s, got %s", c.Polling.LeaderboardInterval)
	}
	return nil
}
