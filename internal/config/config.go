package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is the server configuration read from the environment
type Config struct {
	HTTPPort int    `env:"HTTP_PORT, default=8080"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// StorageType selects the storage backend: memory, redis or mongo
	StorageType string `env:"STORAGE_TYPE, default=memory"`

	Redis RedisConfig
	Mongo MongoConfig
	Auth  AuthConfig
	Game  GameConfig
}

type RedisConfig struct {
	URL       string `env:"REDIS_URL, default=redis://localhost:6379/0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX, default=hvz"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=hvz"`
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET, default=dev-secret"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,  default=24h"`
}

type GameConfig struct {
	OzMaxTagsDefault int `env:"OZ_MAX_TAGS_DEFAULT, default=3"`
	// NotifyBuffer is the per-subscriber notification queue length
	NotifyBuffer int `env:"NOTIFY_BUFFER, default=64"`
}

// Load reads configuration from the process environment
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration from the given variables; used by tests
func LoadFrom(ctx context.Context, vars map[string]string) (*Config, error) {
	return load(ctx, envconfig.MapLookuper(vars))
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageType {
	case "memory", "redis", "mongo":
	default:
		return fmt.Errorf("load config: STORAGE_TYPE must be memory, redis or mongo, got %q", c.StorageType)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("load config: HTTP_PORT must be a valid port, got %d", c.HTTPPort)
	}
	if c.Game.OzMaxTagsDefault <= 0 {
		return fmt.Errorf("load config: OZ_MAX_TAGS_DEFAULT must be positive, got %d", c.Game.OzMaxTagsDefault)
	}
	return nil
}

// SlogLevel converts LogLevel to a slog.Level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
