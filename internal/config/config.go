package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/claude/healthsync/internal/kv"
	"github.com/claude/healthsync/internal/widget"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Platform  PlatformConfig  `yaml:"platform"`
	Storage   kv.Config       `yaml:"storage"`
	Goals     widget.Goals    `yaml:"goals"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// PlatformConfig points at the device-local health bridge. Name is
// empty for runtime detection, or "android"/"ios" to force a platform.
type PlatformConfig struct {
	Name      string `yaml:"name"`
	BridgeURL string `yaml:"bridge_url"`
	BridgeKey string `yaml:"bridge_key"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix HEALTHSYNC_ and underscore-separated paths:
//
//	HEALTHSYNC_SERVER_HOST, HEALTHSYNC_SERVER_PORT,
//	HEALTHSYNC_PLATFORM, HEALTHSYNC_BRIDGE_URL, HEALTHSYNC_BRIDGE_KEY,
//	HEALTHSYNC_STORAGE_DRIVER, HEALTHSYNC_REDIS_ADDR,
//	HEALTHSYNC_DB_HOST, HEALTHSYNC_DB_PORT, HEALTHSYNC_DB_NAME,
//	HEALTHSYNC_DB_USER, HEALTHSYNC_DB_PASSWORD,
//	HEALTHSYNC_AUTH_API_KEY
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

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HEALTHSYNC_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("HEALTHSYNC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("HEALTHSYNC_PLATFORM"); v != "" {
		cfg.Platform.Name = v
	}
	if v := os.Getenv("HEALTHSYNC_BRIDGE_URL"); v != "" {
		cfg.Platform.BridgeURL = v
	}
	if v := os.Getenv("HEALTHSYNC_BRIDGE_KEY"); v != "" {
		cfg.Platform.BridgeKey = v
	}
	if v := os.Getenv("HEALTHSYNC_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("HEALTHSYNC_REDIS_ADDR"); v != "" {
		cfg.Storage.Redis.Addr = v
	}
	if v := os.Getenv("HEALTHSYNC_DB_HOST"); v != "" {
		cfg.Storage.Postgres.Host = v
	}
	if v := os.Getenv("HEALTHSYNC_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Storage.Postgres.Port = port
		}
	}
	if v := os.Getenv("HEALTHSYNC_DB_NAME"); v != "" {
		cfg.Storage.Postgres.Name = v
	}
	if v := os.Getenv("HEALTHSYNC_DB_USER"); v != "" {
		cfg.Storage.Postgres.User = v
	}
	if v := os.Getenv("HEALTHSYNC_DB_PASSWORD"); v != "" {
		cfg.Storage.Postgres.Password = v
	}
	if v := os.Getenv("HEALTHSYNC_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Platform.BridgeURL == "" {
		return fmt.Errorf("platform.bridge_url is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	switch c.Platform.Name {
	case "", "android", "ios":
	default:
		return fmt.Errorf("platform.name must be android or ios, got %q", c.Platform.Name)
	}
	if c.Storage.Driver == "postgres" {
		if c.Storage.Postgres.Host == "" {
			return fmt.Errorf("storage.postgres.host is required")
		}
		if c.Storage.Postgres.Name == "" {
			return fmt.Errorf("storage.postgres.name is required")
		}
	}
	if c.Storage.Driver == "redis" && c.Storage.Redis.Addr == "" {
		return fmt.Errorf("storage.redis.addr is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}
