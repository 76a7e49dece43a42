// ABOUTME: Configuration loading and parsing for snowgate
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete snowgate configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	ServiceNow ServiceNowConfig `yaml:"servicenow"`
	Auth       AuthConfig       `yaml:"auth"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// ServiceNowConfig holds the backend instance credentials.
// Either username/password (basic auth) or token (bearer) must be set.
type ServiceNowConfig struct {
	InstanceURL string `yaml:"instance_url"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	Token       string `yaml:"token"`

	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// AuthConfig holds gateway authentication configuration.
// An empty APIKey disables enforcement entirely (documented unauthenticated mode).
type AuthConfig struct {
	APIKey              string `yaml:"api_key"`
	JWTSecret           string `yaml:"jwt_secret"`
	RequireAuthOnStream bool   `yaml:"require_auth_on_stream"`
}

// SessionsConfig bounds the in-memory session table.
type SessionsConfig struct {
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TTLRaw string `yaml:"ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied by Load when fields are unset.
const (
	DefaultHTTPAddr          = "localhost:8080"
	DefaultSessionMaxEntries = 1024
	DefaultSessionTTL        = 24 * time.Hour
	DefaultBackendTimeout    = 30 * time.Second
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Sessions.MaxEntries == 0 {
		c.Sessions.MaxEntries = DefaultSessionMaxEntries
	}
	if c.Sessions.TTL == 0 {
		c.Sessions.TTL = DefaultSessionTTL
	}
	if c.ServiceNow.Timeout == 0 {
		c.ServiceNow.Timeout = DefaultBackendTimeout
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.ServiceNow.InstanceURL == "" {
		return fmt.Errorf("servicenow.instance_url is required")
	}
	if _, err := url.ParseRequestURI(c.ServiceNow.InstanceURL); err != nil {
		return fmt.Errorf("servicenow.instance_url is not a valid URL: %w", err)
	}

	// One credential mode for the backend is required
	hasBasic := c.ServiceNow.Username != "" && c.ServiceNow.Password != ""
	hasToken := c.ServiceNow.Token != ""
	if !hasBasic && !hasToken {
		return fmt.Errorf("servicenow credentials required: set username/password or token")
	}

	if c.Sessions.MaxEntries < 0 {
		return fmt.Errorf("sessions.max_entries must not be negative")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Sessions.TTLRaw != "" {
		cfg.Sessions.TTL, err = time.ParseDuration(cfg.Sessions.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing sessions.ttl %q: %w", cfg.Sessions.TTLRaw, err)
		}
	}

	if cfg.ServiceNow.TimeoutRaw != "" {
		cfg.ServiceNow.Timeout, err = time.ParseDuration(cfg.ServiceNow.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing servicenow.timeout %q: %w", cfg.ServiceNow.TimeoutRaw, err)
		}
	}

	return nil
}
