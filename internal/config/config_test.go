package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := defaults()

	if cfg.API.BaseURL != "http://localhost:8080" {
		t.Errorf("expected default base URL http://localhost:8080, got %s", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("expected default timeout 10s, got %v", cfg.API.Timeout)
	}
	if cfg.Polling.UnreadInterval != 30*time.Second {
		t.Errorf("expected default unread interval 30s, got %v", cfg.Polling.UnreadInterval)
	}
	if cfg.Polling.LeaderboardInterval != 5*time.Minute {
		t.Errorf("expected default leaderboard interval 5m, got %v", cfg.Polling.LeaderboardInterval)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
api:
  base_url: "https://ctf.rootyou.example"
  timeout: 5s
token:
  path: "/tmp/rootyou-token"
polling:
  unread_interval: 10s
  leaderboard_interval: 2m
metrics:
  addr: "127.0.0.1:9095"
`
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BaseURL != "https://ctf.rootyou.example" {
		t.Errorf("expected base URL https://ctf.rootyou.example, got %s", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.API.Timeout)
	}
	if cfg.Token.Path != "/tmp/rootyou-token" {
		t.Errorf("expected token path /tmp/rootyou-token, got %s", cfg.Token.Path)
	}
	if cfg.Polling.UnreadInterval != 10*time.Second {
		t.Errorf("expected unread interval 10s, got %v", cfg.Polling.UnreadInterval)
	}
	if cfg.Metrics.Addr != "127.0.0.1:9095" {
		t.Errorf("expected metrics addr 127.0.0.1:9095, got %s", cfg.Metrics.Addr)
	}
}

func TestLoadNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with empty path should use defaults: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8080" {
		t.Errorf("expected default base URL, got %s", cfg.API.BaseURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ROOTYOU_API_URL", "https://env.rootyou.example")
	t.Setenv("ROOTYOU_TOKEN_PATH", "/tmp/env-token")
	t.Setenv("ROOTYOU_TOKEN_KEY", "abc123")
	t.Setenv("ROOTYOU_METRICS_ADDR", "127.0.0.1:9999")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BaseURL != "https://env.rootyou.example" {
		t.Errorf("expected env base URL, got %s", cfg.API.BaseURL)
	}
	if cfg.Token.Path != "/tmp/env-token" {
		t.Errorf("expected token path /tmp/env-token, got %s", cfg.Token.Path)
	}
	if cfg.Token.CipherKeyHex != "abc123" {
		t.Errorf("expected cipher key abc123, got %s", cfg.Token.CipherKeyHex)
	}
	if cfg.Metrics.Addr != "127.0.0.1:9999" {
		t.Errorf("expected metrics addr 127.0.0.1:9999, got %s", cfg.Metrics.Addr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"empty base url", func(c *Config) { c.API.BaseURL = "" }, true},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }, true},
		{"negative timeout", func(c *Config) { c.API.Timeout = -time.Second }, true},
		{"sub-second unread interval", func(c *Config) { c.Polling.UnreadInterval = 100 * time.Millisecond }, true},
		{"sub-second leaderboard interval", func(c *Config) { c.Polling.LeaderboardInterval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.modify(cfg)
			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_ROOTYOU_VAR", "hello")
	result := expandEnvVars("value: ${TEST_ROOTYOU_VAR}")
	if result != "value: hello" {
		t.Errorf("expected 'value: hello', got %s", result)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}
