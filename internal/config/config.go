// Package config loads process-wide configuration: defaults first, then an
// optional YAML file, then environment overrides. The loaded Config is
// immutable afterwards and safe for concurrent reads.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides where the optional config file is read from.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix namespaces the environment overrides, e.g.
// CATALOG_SERVER_PORT=9000 sets server.port.
const envPrefix = "CATALOG_"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	JWT      JWTConfig      `koanf:"jwt"`
	Cache    CacheConfig    `koanf:"cache"`
	API      APIConfig      `koanf:"api"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"readtimeout"`
	WriteTimeout    time.Duration `koanf:"writetimeout"`
	IdleTimeout     time.Duration `koanf:"idletimeout"`
	ShutdownTimeout time.Duration `koanf:"shutdowntimeout"`
}

// DatabaseConfig carries the PostgreSQL connection string.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// JWTConfig carries the token-signing material, bound once at startup.
type JWTConfig struct {
	Secret   string `koanf:"secret"`
	Issuer   string `koanf:"issuer"`
	Audience string `koanf:"audience"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// APIConfig configures pagination behavior.
type APIConfig struct {
	PageSize int `koanf:"pagesize"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			URL: "postgres://localhost:5432/movie_catalog?sslmode=disable",
		},
		JWT: JWTConfig{
			Issuer:   "movie-catalog",
			Audience: "movie-catalog",
		},
		Cache: CacheConfig{
			TTL: time.Hour,
		},
		API: APIConfig{
			PageSize: 10,
		},
	}
}

// Load builds the Config from defaults, the optional config file and the
// environment.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load config defaults: %w", err)
	}

	path := os.Getenv(ConfigPathEnvVar)
	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return errors.New("config: jwt.secret is required (set CATALOG_JWT_SECRET)")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("config: jwt.secret must be at least 32 bytes for HS256")
	}
	if c.Database.URL == "" {
		return errors.New("config: database.url is required (set CATALOG_DATABASE_URL)")
	}
	if c.API.PageSize < 1 {
		return errors.New("config: api.pagesize must be positive")
	}
	return nil
}
