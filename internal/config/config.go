package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Identity provider types
const (
	ProviderFirebase = "firebase"
	ProviderLocal    = "local"
)

// Defaults applied when neither the config file nor the environment sets a value
const (
	DefaultAddr      = ":5000"
	DefaultTimeout   = 5 * time.Second
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config represents the application configuration
type Config struct {
	API APIConfig `yaml:"api"`
	IdP IdPConfig `yaml:"idp"`
	Log LogConfig `yaml:"log"`
}

// APIConfig represents the HTTP server configuration
type APIConfig struct {
	Addr               string   `yaml:"addr"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins,omitempty"`
}

// IdPConfig represents the identity provider configuration
type IdPConfig struct {
	Provider        string        `yaml:"provider"`              // "firebase" | "local"
	Credentials     string        `yaml:"credentials,omitempty"` // service account JSON path
	ProjectID       string        `yaml:"project_id,omitempty"`
	TenantID        string        `yaml:"tenant_id,omitempty"` // multi-tenant Identity Platform
	Timeout         time.Duration `yaml:"timeout,omitempty"`
	CheckRevoked    bool          `yaml:"check_revoked,omitempty"`
	LocalSigningKey string        `yaml:"local_signing_key,omitempty"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" | "json"
}

// Load reads configuration from the specified YAML file.
// An empty path delegates to LoadFromEnv.
// Environment variables override file values (see applyEnv).
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromEnv()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return finish(&cfg)
}

// LoadFromEnv builds the configuration entirely from environment variables
func LoadFromEnv() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides file values with OVAI_* environment variables
func (c *Config) applyEnv() error {
	if v := os.Getenv("OVAI_API_ADDR"); v != "" {
		c.API.Addr = v
	}
	if v := os.Getenv("OVAI_CORS_ALLOWED_ORIGINS"); v != "" {
		c.API.CORSAllowedOrigins = splitList(v)
	}
	if v := os.Getenv("OVAI_IDP_PROVIDER"); v != "" {
		c.IdP.Provider = v
	}
	if v := os.Getenv("OVAI_FIREBASE_CREDENTIALS"); v != "" {
		c.IdP.Credentials = v
	}
	if v := os.Getenv("OVAI_FIREBASE_PROJECT_ID"); v != "" {
		c.IdP.ProjectID = v
	}
	if v := os.Getenv("OVAI_FIREBASE_TENANT_ID"); v != "" {
		c.IdP.TenantID = v
	}
	if v := os.Getenv("OVAI_IDP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("OVAI_IDP_TIMEOUT: %w", err)
		}
		c.IdP.Timeout = d
	}
	if v := os.Getenv("OVAI_VERIFY_CHECK_REVOKED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("OVAI_VERIFY_CHECK_REVOKED: %w", err)
		}
		c.IdP.CheckRevoked = b
	}
	if v := os.Getenv("OVAI_LOCAL_SIGNING_KEY"); v != "" {
		c.IdP.LocalSigningKey = v
	}
	if v := os.Getenv("OVAI_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("OVAI_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Addr == "" {
		c.API.Addr = DefaultAddr
	}
	if c.IdP.Provider == "" {
		c.IdP.Provider = ProviderFirebase
	}
	if c.IdP.Timeout == 0 {
		c.IdP.Timeout = DefaultTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.API.Addr == "" {
		return fmt.Errorf("api.addr is required")
	}

	if err := c.IdP.Validate(); err != nil {
		return err
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q is not supported (supported: text, json)", c.Log.Format)
	}

	return nil
}

// Validate checks the identity provider settings
func (c *IdPConfig) Validate() error {
	switch c.Provider {
	case ProviderFirebase:
		if c.Credentials == "" {
			return fmt.Errorf("idp.credentials is required for firebase (set OVAI_FIREBASE_CREDENTIALS to the service account JSON path)")
		}
	case ProviderLocal:
	default:
		return fmt.Errorf("idp.provider %q is not supported (supported: firebase, local)", c.Provider)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("idp.timeout must not be negative")
	}

	return nil
}

// GetCORSAllowedOrigins returns the allowed origins, "*" when none are configured
func (c *APIConfig) GetCORSAllowedOrigins() []string {
	if len(c.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return c.CORSAllowedOrigins
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
