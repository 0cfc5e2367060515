package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Server.Host = "localhost"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_Validate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too low", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 65536 }},
		{"negative admin port", func(c *Config) { c.Server.AdminPort = -1 }},
		{"missing sub context", func(c *Config) { c.Server.SubContext = "/" }},
		{"invalid storage type", func(c *Config) { c.Storage.Type = "sqlite" }},
		{"mongodb without uri", func(c *Config) {
			c.Storage.Type = "mongodb"
			c.Storage.MongoDB.URI = ""
		}},
		{"unknown authorizer", func(c *Config) { c.Auth.Authorizer = "liferay" }},
		{"remote user without header", func(c *Config) {
			c.Auth.Authorizer = AuthorizerRemoteUser
			c.Auth.RemoteUserHeader = ""
		}},
		{"bearer without secret", func(c *Config) { c.Auth.BearerToken = true }},
		{"bad parse failure status", func(c *Config) { c.Marshaller.ParseFailureStatus = 42 }},
		{"zero session ttl", func(c *Config) { c.Session.TTLMinutes = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestConfig_Validate_Accepts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"mongodb with uri", func(c *Config) { c.Storage.Type = "mongodb" }},
		{"bearer with secret", func(c *Config) {
			c.Auth.BearerToken = true
			c.JWT.Secret = "s3cret"
		}},
		{"remote user", func(c *Config) { c.Auth.Authorizer = AuthorizerRemoteUser }},
		{"null authorizer", func(c *Config) { c.Auth.Authorizer = AuthorizerNone }},
		{"admin disabled", func(c *Config) { c.Server.AdminPort = 0 }},
		{"unset parse failure status", func(c *Config) { c.Marshaller.ParseFailureStatus = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	tests := []struct {
		host     string
		port     int
		expected string
	}{
		{"0.0.0.0", 80, "0.0.0.0:80"},
		{"127.0.0.1", 3000, "127.0.0.1:3000"},
		{"example.com", 443, "example.com:443"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			cfg := ServerConfig{Host: tt.host, Port: tt.port}
			if cfg.Address() != tt.expected {
				t.Errorf("Address() = %q, want %q", cfg.Address(), tt.expected)
			}
		})
	}
}

func TestServerConfig_Prefix(t *testing.T) {
	tests := []struct {
		sub  string
		want string
	}{
		{"xsf", "/xsf"},
		{"/xsf", "/xsf"},
		{"/api/", "/api"},
	}

	for _, tt := range tests {
		cfg := ServerConfig{SubContext: tt.sub}
		if got := cfg.Prefix(); got != tt.want {
			t.Errorf("Prefix(%q) = %q, want %q", tt.sub, got, tt.want)
		}
	}
}

func TestDurations(t *testing.T) {
	cfg := defaultConfig()
	if cfg.Session.TTL() != 30*time.Minute {
		t.Errorf("TTL() = %v", cfg.Session.TTL())
	}
	if cfg.Session.CleanupInterval() != 5*time.Minute {
		t.Errorf("CleanupInterval() = %v", cfg.Session.CleanupInterval())
	}
	if cfg.JWT.Expiry() != 24*time.Hour {
		t.Errorf("Expiry() = %v", cfg.JWT.Expiry())
	}
}

func TestSessionConfig_CleanupSchedule(t *testing.T) {
	tests := []struct {
		name string
		cfg  SessionConfig
		want string
	}{
		{"interval", SessionConfig{CleanupIntervalSeconds: 300}, "@every 5m0s"},
		{"cron wins", SessionConfig{CleanupIntervalSeconds: 300, CleanupCron: "0 0 * * * *"}, "0 0 * * * *"},
		{"disabled", SessionConfig{}, ""},
		{"negative", SessionConfig{CleanupIntervalSeconds: -1}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.CleanupSchedule(); got != tt.want {
				t.Errorf("CleanupSchedule() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.SubContext != "xsf" {
		t.Errorf("Expected default sub_context 'xsf', got %q", cfg.Server.SubContext)
	}
	if cfg.Marshaller.ParseFailureStatus != 200 {
		t.Errorf("Expected default parse failure status 200, got %d", cfg.Marshaller.ParseFailureStatus)
	}
}

func TestLoad_ValidYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
server:
  host: localhost
  port: 9090
  sub_context: services
storage:
  type: memory
jwt:
  secret: test-secret
auth:
  bearer_token: true
marshaller:
  raw_json: true
routes_file: routes.yaml
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.Prefix() != "/services" {
		t.Errorf("Expected prefix /services, got %q", cfg.Server.Prefix())
	}
	if !cfg.Marshaller.RawJSON {
		t.Error("Expected raw_json to be enabled")
	}
	if cfg.RoutesFile != "routes.yaml" {
		t.Errorf("Expected routes_file routes.yaml, got %q", cfg.RoutesFile)
	}
	if cfg.Session.CookieName != "XSFSESSIONID" {
		t.Errorf("Expected default cookie name to survive partial YAML, got %q", cfg.Session.CookieName)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	content := `
server:
  port: "invalid"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Expected error for invalid configuration")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("XSF_SERVER_PORT", "7070")
	t.Setenv("XSF_MARSHALLER_LOG_IN_OUT", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Expected env port 7070, got %d", cfg.Server.Port)
	}
	if !cfg.Marshaller.LogInOut {
		t.Error("Expected log_in_out from environment")
	}
}

func TestLoad_BaseURLGeneration(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expected := "http://0.0.0.0:8080"
	if cfg.Server.BaseURL != expected {
		t.Errorf("Expected BaseURL %q, got %q", expected, cfg.Server.BaseURL)
	}
}

func TestRateLimitConfig_SetDefaults(t *testing.T) {
	cfg := RateLimitConfig{Enabled: true}
	cfg.SetDefaults()

	if cfg.MaxAttempts != 10 || cfg.WindowSeconds != 60 || cfg.LockoutSeconds != 300 {
		t.Errorf("SetDefaults() = %+v", cfg)
	}

	custom := RateLimitConfig{MaxAttempts: 3, WindowSeconds: 5, LockoutSeconds: 1}
	custom.SetDefaults()
	if custom.MaxAttempts != 3 || custom.WindowSeconds != 5 || custom.LockoutSeconds != 1 {
		t.Errorf("SetDefaults() overwrote explicit values: %+v", custom)
	}
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.Server.Prefix(); got != "/xsf" {
		t.Errorf("Prefix() = %q, want /xsf", got)
	}
	if cfg.Session.CookieName != "XSFSESSIONID" {
		t.Errorf("CookieName = %q", cfg.Session.CookieName)
	}
	if cfg.Auth.Authorizer != AuthorizerDefault {
		t.Errorf("Authorizer = %q", cfg.Auth.Authorizer)
	}
}
