package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Provider  ProviderConfig  `yaml:"provider"`
	Sync      SyncConfig      `yaml:"sync"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey        string `yaml:"api_key"`
	SessionSecret string `yaml:"session_secret"`
	SessionIssuer string `yaml:"session_issuer"`
	TokenFile     string `yaml:"token_file"`
}

type ProviderConfig struct {
	URL            string        `yaml:"url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type SyncConfig struct {
	Interval time.Duration `yaml:"interval"`
	DaysBack int           `yaml:"days_back"`
	StateDir string        `yaml:"state_dir"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix VITALSYNC_ and underscore-separated paths:
//
//	VITALSYNC_SERVER_HOST, VITALSYNC_SERVER_PORT,
//	VITALSYNC_DB_HOST, VITALSYNC_DB_PORT, VITALSYNC_DB_NAME,
//	VITALSYNC_DB_USER, VITALSYNC_DB_PASSWORD, VITALSYNC_DB_SSLMODE,
//	VITALSYNC_AUTH_API_KEY, VITALSYNC_AUTH_SESSION_SECRET,
//	VITALSYNC_PROVIDER_URL, VITALSYNC_SYNC_STATE_DIR
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VITALSYNC_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("VITALSYNC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VITALSYNC_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("VITALSYNC_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("VITALSYNC_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("VITALSYNC_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("VITALSYNC_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("VITALSYNC_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("VITALSYNC_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("VITALSYNC_AUTH_SESSION_SECRET"); v != "" {
		cfg.Auth.SessionSecret = v
	}
	if v := os.Getenv("VITALSYNC_PROVIDER_URL"); v != "" {
		cfg.Provider.URL = v
	}
	if v := os.Getenv("VITALSYNC_SYNC_STATE_DIR"); v != "" {
		cfg.Sync.StateDir = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Provider.RequestTimeout == 0 {
		cfg.Provider.RequestTimeout = 15 * time.Second
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 5 * time.Minute
	}
	if cfg.Sync.DaysBack == 0 {
		cfg.Sync.DaysBack = 7
	}
	if cfg.Sync.StateDir == "" {
		cfg.Sync.StateDir = "."
	}
	if cfg.Auth.SessionIssuer == "" {
		cfg.Auth.SessionIssuer = "vitalsync"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Provider.URL == "" {
		return fmt.Errorf("provider.url is required")
	}
	if c.Sync.DaysBack < 0 {
		return fmt.Errorf("sync.days_back must not be negative")
	}
	return nil
}
