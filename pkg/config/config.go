package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override, e.g. XSF_SERVER_PORT.
const EnvPrefix = "XSF"

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	CORS       CORSConfig       `yaml:"cors" envconfig:"CORS"`
	Storage    StorageConfig    `yaml:"storage" envconfig:"STORAGE"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Tracing    TracingConfig    `yaml:"tracing" envconfig:"TRACING"`
	JWT        JWTConfig        `yaml:"jwt" envconfig:"JWT"`
	Auth       AuthConfig       `yaml:"auth" envconfig:"AUTH"`
	Marshaller MarshallerConfig `yaml:"marshaller" envconfig:"MARSHALLER"`
	Session    SessionConfig    `yaml:"session" envconfig:"SESSION"`
	// RoutesFile optionally names a YAML file of route declarations
	RoutesFile string `yaml:"routes_file" envconfig:"ROUTES_FILE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host       string `yaml:"host" envconfig:"HOST"`
	Port       int    `yaml:"port" envconfig:"PORT"`
	AdminPort  int    `yaml:"admin_port" envconfig:"ADMIN_PORT"`   // Internal admin API port (0 to disable)
	AdminToken string `yaml:"admin_token" envconfig:"ADMIN_TOKEN"` // Bearer token for admin API (auto-generated if empty)
	// SubContext is the path segment the dispatcher is mounted under
	SubContext string `yaml:"sub_context" envconfig:"SUB_CONTEXT"`
	BaseURL    string `yaml:"base_url" envconfig:"BASE_URL"`
}

// CORSConfig contains cross-origin settings for the public listener
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `yaml:"allowed_methods" envconfig:"ALLOWED_METHODS"`
	AllowedHeaders   []string `yaml:"allowed_headers" envconfig:"ALLOWED_HEADERS"`
	ExposedHeaders   []string `yaml:"exposed_headers" envconfig:"EXPOSED_HEADERS"`
	AllowCredentials bool     `yaml:"allow_credentials" envconfig:"ALLOW_CREDENTIALS"`
	MaxAge           int      `yaml:"max_age" envconfig:"MAX_AGE"` // seconds
}

// StorageConfig contains storage configuration
type StorageConfig struct {
	Type string `yaml:"type" envconfig:"TYPE"` // memory, mongodb
	// SeedPeople loads the sample people records into an empty store
	SeedPeople bool          `yaml:"seed_people" envconfig:"SEED_PEOPLE"`
	MongoDB    MongoDBConfig `yaml:"mongodb" envconfig:"MONGODB"`
	// Redis, when an address is set, holds sessions instead of the main store
	Redis RedisConfig `yaml:"redis" envconfig:"REDIS"`
}

// RedisConfig contains Redis connection settings for the session store
type RedisConfig struct {
	Address   string `yaml:"address" envconfig:"ADDRESS"`
	Password  string `yaml:"password" envconfig:"PASSWORD"`
	DB        int    `yaml:"db" envconfig:"DB"`
	KeyPrefix string `yaml:"key_prefix" envconfig:"KEY_PREFIX"`
}

// MongoDBConfig contains MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string `yaml:"uri" envconfig:"URI"`
	Database string `yaml:"database" envconfig:"DATABASE"`
	Timeout  int    `yaml:"timeout" envconfig:"TIMEOUT"` // seconds
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" envconfig:"FORMAT"` // json, text
}

// TracingConfig contains OpenTelemetry export settings. Tracing is disabled
// unless an endpoint is configured.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint" envconfig:"ENDPOINT"`
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Insecure    bool   `yaml:"insecure" envconfig:"INSECURE"`
}

// JWTConfig contains JWT configuration
type JWTConfig struct {
	Secret      string `yaml:"secret" envconfig:"SECRET"`
	ExpiryHours int    `yaml:"expiry_hours" envconfig:"EXPIRY_HOURS"`
	Issuer      string `yaml:"issuer" envconfig:"ISSUER"`
}

// Expiry returns the token lifetime
func (c *JWTConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryHours) * time.Hour
}

// Authorizer names accepted by AuthConfig.Authorizer
const (
	AuthorizerDefault    = "default"
	AuthorizerRemoteUser = "remote_user"
	AuthorizerNone       = "none"
)

// AuthConfig selects the authorizer and the decorators that establish a principal
type AuthConfig struct {
	Authorizer       string `yaml:"authorizer" envconfig:"AUTHORIZER"` // default, remote_user, none
	RemoteUserHeader string `yaml:"remote_user_header" envconfig:"REMOTE_USER_HEADER"`
	BasicAuth        bool   `yaml:"basic_auth" envconfig:"BASIC_AUTH"`
	BearerToken      bool   `yaml:"bearer_token" envconfig:"BEARER_TOKEN"`
	// RateLimit throttles credential checks per login identifier
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig bounds repeated authentication attempts
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled" envconfig:"ENABLED"`
	MaxAttempts    int  `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS"`
	WindowSeconds  int  `yaml:"window_seconds" envconfig:"WINDOW_SECONDS"`
	LockoutSeconds int  `yaml:"lockout_seconds" envconfig:"LOCKOUT_SECONDS"`
}

// SetDefaults fills in zero values
func (c *RateLimitConfig) SetDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.WindowSeconds <= 0 {
		c.WindowSeconds = 60
	}
	if c.LockoutSeconds <= 0 {
		c.LockoutSeconds = 300
	}
}

// MarshallerConfig contains response marshalling switches
type MarshallerConfig struct {
	// RawJSON writes the result data only and status-only failure responses
	RawJSON bool `yaml:"raw_json" envconfig:"RAW_JSON"`
	// LogInOut logs request and response bodies at debug level
	LogInOut bool `yaml:"log_in_out" envconfig:"LOG_IN_OUT"`
	// ParseFailureStatus is the HTTP status used when the request body cannot be decoded
	ParseFailureStatus int `yaml:"parse_failure_status" envconfig:"PARSE_FAILURE_STATUS"`
}

// SessionConfig contains server-side session settings
type SessionConfig struct {
	CookieName             string `yaml:"cookie_name" envconfig:"COOKIE_NAME"`
	TTLMinutes             int    `yaml:"ttl_minutes" envconfig:"TTL_MINUTES"`
	CleanupIntervalSeconds int    `yaml:"cleanup_interval_seconds" envconfig:"CLEANUP_INTERVAL_SECONDS"`
	CleanupCron            string `yaml:"cleanup_cron" envconfig:"CLEANUP_CRON"`
	SecureCookie           bool   `yaml:"secure_cookie" envconfig:"SECURE_COOKIE"`
}

// TTL returns the session lifetime
func (c *SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// CleanupInterval returns the interval between expired-session sweeps
func (c *SessionConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSeconds) * time.Second
}

// CleanupSchedule returns the cron schedule for expired-session sweeps.
// An explicit cleanup_cron wins over the interval; empty disables sweeps.
func (c *SessionConfig) CleanupSchedule() string {
	if c.CleanupCron != "" {
		return c.CleanupCron
	}
	if c.CleanupIntervalSeconds <= 0 {
		return ""
	}
	return fmt.Sprintf("@every %s", c.CleanupInterval())
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Load from YAML file if provided (overrides defaults)
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// File doesn't exist, that's ok - we'll use defaults and env vars
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible default values
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8080,
			AdminPort:  8081, // Internal admin API port
			SubContext: "xsf",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
			MaxAge:         3600,
		},
		Storage: StorageConfig{
			Type:       "memory",
			SeedPeople: true,
			MongoDB: MongoDBConfig{
				URI:      "mongodb://localhost:27017",
				Database: "xsf",
				Timeout:  10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			ServiceName: "xsf",
		},
		JWT: JWTConfig{
			ExpiryHours: 24,
			Issuer:      "xsf",
		},
		Auth: AuthConfig{
			Authorizer:       AuthorizerDefault,
			RemoteUserHeader: "X-Remote-User",
			BasicAuth:        true,
			RateLimit: RateLimitConfig{
				Enabled:        true,
				MaxAttempts:    10,
				WindowSeconds:  60,
				LockoutSeconds: 300,
			},
		},
		Marshaller: MarshallerConfig{
			ParseFailureStatus: 200,
		},
		Session: SessionConfig{
			CookieName:             "XSFSESSIONID",
			TTLMinutes:             30,
			CleanupIntervalSeconds: 300,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.AdminPort < 0 || c.Server.AdminPort > 65535 {
		return fmt.Errorf("invalid admin port: %d", c.Server.AdminPort)
	}

	if strings.Trim(c.Server.SubContext, "/") == "" {
		return fmt.Errorf("sub_context is required")
	}

	if c.Storage.Type != "memory" && c.Storage.Type != "mongodb" {
		return fmt.Errorf("invalid storage type: %s (must be memory or mongodb)", c.Storage.Type)
	}

	if c.Storage.Type == "mongodb" && c.Storage.MongoDB.URI == "" {
		return fmt.Errorf("mongodb uri is required when using mongodb storage")
	}

	switch c.Auth.Authorizer {
	case AuthorizerDefault, AuthorizerNone:
	case AuthorizerRemoteUser:
		if c.Auth.RemoteUserHeader == "" {
			return fmt.Errorf("remote_user_header is required for the remote_user authorizer")
		}
	default:
		return fmt.Errorf("invalid authorizer: %s (must be default, remote_user, or none)", c.Auth.Authorizer)
	}

	if c.Auth.BearerToken && c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required when bearer_token authentication is enabled")
	}

	if s := c.Marshaller.ParseFailureStatus; s != 0 && (s < 100 || s > 599) {
		return fmt.Errorf("invalid parse_failure_status: %d", s)
	}

	if c.Session.TTLMinutes < 1 {
		return fmt.Errorf("session ttl_minutes must be positive")
	}

	return nil
}

// Address returns the server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AdminAddress returns the admin server address
func (c *ServerConfig) AdminAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.AdminPort)
}

// Prefix returns the URI prefix the dispatcher strips before route lookup
func (c *ServerConfig) Prefix() string {
	return "/" + strings.Trim(c.SubContext, "/")
}
