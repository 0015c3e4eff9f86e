// Package config loads the immutable startup configuration. The config
// is read once in main and passed explicitly to every constructor that
// needs it; nothing in the process mutates it afterwards.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no -config flag is given.
const DefaultConfigPath = "config.yml"

// Duration parses YAML values like "15m" or "24h".
type Duration time.Duration

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

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// AppConfig is the whole runtime configuration for both binaries.
type AppConfig struct {
	Env      string         `yaml:"env"` // "development" | "production"
	Server   ServerConfig   `yaml:"server"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Session  SessionConfig  `yaml:"session"`
	Identity IdentityConfig `yaml:"identity"`
	Geo      GeoConfig      `yaml:"geo"`
	Mail     MailConfig     `yaml:"mail"`

	AllowedOrigins []string `yaml:"allowed_origins"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// GatewayConfig drives the stateless edge: the proxy route table and the
// public path allow-list, both loaded once at startup.
type GatewayConfig struct {
	Port           int            `yaml:"port"`
	PublicPrefixes []string       `yaml:"public_prefixes"`
	Routes         []GatewayRoute `yaml:"routes"`
}

type GatewayRoute struct {
	Prefix   string `yaml:"prefix"`
	Upstream string `yaml:"upstream"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // MySQL DSN
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type JWTConfig struct {
	// Secret is the base64-encoded HMAC key shared with the gateway.
	Secret     string   `yaml:"secret"`
	AccessTTL  Duration `yaml:"access_ttl"`
	RefreshTTL Duration `yaml:"refresh_ttl"`
}

type SessionConfig struct {
	// MaxActive is the per-user quota of non-revoked session records.
	MaxActive int `yaml:"max_active"`
	// StrictLastLogin controls whether a failed remote last-login update
	// aborts the whole login (true) or is logged and ignored (false).
	StrictLastLogin *bool `yaml:"strict_last_login"`
}

// StrictLastLoginEnabled defaults to strict when the field is unset.
func (s SessionConfig) StrictLastLoginEnabled() bool {
	return s.StrictLastLogin == nil || *s.StrictLastLogin
}

type IdentityConfig struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
}

type GeoConfig struct {
	BaseURL  string   `yaml:"base_url"`
	CacheTTL Duration `yaml:"cache_ttl"`
}

type MailConfig struct {
	Enable  bool   `yaml:"enable"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	User    string `yaml:"user"`
	Pass    string `yaml:"pass"`
	From    string `yaml:"from"`
	ReplyTo string `yaml:"reply_to"`
	// SiteURL is the public base used to build activation and reset links.
	SiteURL string `yaml:"site_url"`
}

// IsDev reports whether the process runs in development mode.
func (c *AppConfig) IsDev() bool { return c.Env != "production" }

// DefaultPublicPrefixes is the startup allow-list applied when the config
// omits gateway.public_prefixes.
var DefaultPublicPrefixes = []string{
	"/api/auth/login",
	"/api/auth/logout",
	"/api/auth/validate",
	"/api/auth/activate",
	"/api/auth/refresh",
	"/api/auth/register",
	"/api/auth/reset-password/",
	"/healthz",
	"/docs",
}

// Load reads, defaults and validates the YAML config at path.
func Load(path string) (*AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &AppConfig{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8081
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 8080
	}
	if len(cfg.Gateway.PublicPrefixes) == 0 {
		cfg.Gateway.PublicPrefixes = DefaultPublicPrefixes
	}
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = "redis://localhost:6379/0"
	}
	if cfg.JWT.AccessTTL == 0 {
		cfg.JWT.AccessTTL = Duration(time.Hour)
	}
	if cfg.JWT.RefreshTTL == 0 {
		cfg.JWT.RefreshTTL = Duration(24 * time.Hour)
	}
	if cfg.Session.MaxActive == 0 {
		cfg.Session.MaxActive = 3
	}
	if cfg.Identity.Timeout == 0 {
		cfg.Identity.Timeout = Duration(5 * time.Second)
	}
	if cfg.Geo.BaseURL == "" {
		cfg.Geo.BaseURL = "http://ip-api.com"
	}
	if cfg.Geo.CacheTTL == 0 {
		cfg.Geo.CacheTTL = Duration(12 * time.Hour)
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}
}

func validate(cfg *AppConfig) error {
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("config: jwt.secret is required")
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("config: database.dsn is required")
	}
	if cfg.Identity.BaseURL == "" {
		return fmt.Errorf("config: identity.base_url is required")
	}
	return nil
}
