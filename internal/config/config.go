package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	APIBaseURL       string        `mapstructure:"API_BASE_URL"`
	APITimeout       time.Duration `mapstructure:"API_TIMEOUT"`
	APISigningKey    string        `mapstructure:"API_SIGNING_KEY"`
	APITokenIssuer   string        `mapstructure:"API_TOKEN_ISSUER"`
	APITokenAudience string        `mapstructure:"API_TOKEN_AUDIENCE"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RateLimitRPS     float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int           `mapstructure:"RATE_LIMIT_BURST"`
	SnapshotTTL      time.Duration `mapstructure:"SNAPSHOT_TTL"`
	AddRedirectDelay time.Duration `mapstructure:"ADD_REDIRECT_DELAY"`
	ReferenceFile    string        `mapstructure:"REFERENCE_FILE"`
	SandboxPort      string        `mapstructure:"SANDBOX_PORT"`
	SandboxSeed      int64         `mapstructure:"SANDBOX_SEED"`
	TLSEnabled       bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile      string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile       string        `mapstructure:"TLS_KEY_FILE"`
}

var keys = []string{
	"PORT",
	"ENV",
	"API_BASE_URL",
	"API_TIMEOUT",
	"API_SIGNING_KEY",
	"API_TOKEN_ISSUER",
	"API_TOKEN_AUDIENCE",
	"CORS_ORIGINS",
	"REQUEST_TIMEOUT",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
	"SNAPSHOT_TTL",
	"ADD_REDIRECT_DELAY",
	"REFERENCE_FILE",
	"SANDBOX_PORT",
	"SANDBOX_SEED",
	"TLS_ENABLED",
	"TLS_CERT_FILE",
	"TLS_KEY_FILE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8081")
	v.SetDefault("ENV", "development")
	v.SetDefault("API_BASE_URL", "http://localhost:8080/api")
	v.SetDefault("API_TIMEOUT", "10s")
	v.SetDefault("API_TOKEN_ISSUER", "healthsphere-admin")
	v.SetDefault("CORS_ORIGINS", "http://localhost:8081")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("SNAPSHOT_TTL", "10m")
	v.SetDefault("ADD_REDIRECT_DELAY", "1500ms")
	v.SetDefault("SANDBOX_PORT", "8080")
	v.SetDefault("SANDBOX_SEED", 42)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the console is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Production consoles
// must sign their backend requests and the backend URL must be absolute.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL scheme must be http or https, got %q", u.Scheme)
	}

	if c.IsProduction() && c.APISigningKey == "" {
		return fmt.Errorf("API_SIGNING_KEY is required in production")
	}
	if c.APISigningKey != "" && len(c.APISigningKey) < 32 {
		return fmt.Errorf("API_SIGNING_KEY must be at least 32 characters, got %d", len(c.APISigningKey))
	}

	if c.APITimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}
	if c.AddRedirectDelay < 0 {
		return fmt.Errorf("ADD_REDIRECT_DELAY must not be negative")
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
