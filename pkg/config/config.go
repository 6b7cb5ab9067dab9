// Package config loads recipeforge settings from TOML files and the
// environment. Lookup order: an explicit --config path, ./recipeforge.toml,
// then $XDG_CONFIG_HOME/recipeforge/config.toml (falling back to
// ~/.config). Environment variables override file values.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"recipeforge/pkg/errors"
)

const appName = "recipeforge"

// Config holds all recipeforge settings.
type Config struct {
	// Channel is the default Anaconda channel for index lookups.
	Channel string `toml:"channel"`

	// RegistryURL overrides the Anaconda API base URL.
	RegistryURL string `toml:"registry_url"`

	// Python is the interpreter used for smoke-test imports.
	Python string `toml:"python"`

	Cache CacheConfig `toml:"cache"`
	Graph GraphConfig `toml:"graph"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	// Backend is one of "file", "redis", "mongo", or "none".
	Backend string `toml:"backend"`

	// Dir overrides the file cache directory.
	Dir string `toml:"dir"`

	// TTL is how long index responses stay fresh.
	TTL duration `toml:"ttl"`

	// RedisAddr is the host:port of the Redis server.
	RedisAddr string `toml:"redis_addr"`

	// MongoURI is the MongoDB connection string.
	MongoURI string `toml:"mongo_uri"`
}

// GraphConfig bounds the dependency graph walk.
type GraphConfig struct {
	MaxDepth int `toml:"max_depth"`
	MaxNodes int `toml:"max_nodes"`
}

// duration wraps time.Duration so TOML can express TTLs as "24h".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Channel: "conda-forge",
		Python:  "python",
		Cache: CacheConfig{
			Backend:   "file",
			TTL:       duration{24 * time.Hour},
			RedisAddr: "localhost:6379",
			MongoURI:  "mongodb://localhost:27017",
		},
		Graph: GraphConfig{
			MaxDepth: 3,
			MaxNodes: 200,
		},
	}
}

// TTL returns the cache TTL as a plain time.Duration.
func (c *Config) TTL() time.Duration { return c.Cache.TTL.Duration }

// Load reads configuration. If path is non-empty the file must exist;
// otherwise the lookup order is tried and a missing file is not an error.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = discover()
	} else if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file not found: %s", path)
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config: %s", path)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// discover returns the first config file found in the lookup order,
// or "" when none exists.
func discover() string {
	candidates := []string{appName + ".toml"}
	if dir := configDir(); dir != "" {
		candidates = append(candidates, filepath.Join(dir, "config.toml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// configDir returns the per-user config directory using the XDG standard.
func configDir() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// applyEnv overrides file values with RECIPEFORGE_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("RECIPEFORGE_CHANNEL"); v != "" {
		cfg.Channel = v
	}
	if v := os.Getenv("RECIPEFORGE_REGISTRY_URL"); v != "" {
		cfg.RegistryURL = v
	}
	if v := os.Getenv("RECIPEFORGE_PYTHON"); v != "" {
		cfg.Python = v
	}
	if v := os.Getenv("RECIPEFORGE_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("RECIPEFORGE_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("RECIPEFORGE_MONGO_URI"); v != "" {
		cfg.Cache.MongoURI = v
	}
	if v := os.Getenv("RECIPEFORGE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = duration{d}
		}
	}
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "file", "redis", "mongo", "none":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend: %s", c.Cache.Backend)
	}
	if c.Graph.MaxDepth < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "graph.max_depth must not be negative")
	}
	if c.Graph.MaxNodes < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "graph.max_nodes must be at least 1")
	}
	return nil
}
