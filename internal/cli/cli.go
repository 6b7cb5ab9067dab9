package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"recipeforge/pkg/cache"
	"recipeforge/pkg/config"
	"recipeforge/pkg/errors"
	"recipeforge/pkg/recipe"
	"recipeforge/pkg/registry/anaconda"
	"recipeforge/pkg/rendertmpl"
)

// appName is the application name used for directories and display.
const appName = "recipeforge"

// withConfig returns a new context with the loaded configuration attached.
func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// configFromContext retrieves the configuration from ctx, falling back to
// defaults if command setup did not run (tests calling RunE directly).
func configFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

// newCacheBackend builds the cache backend selected by the configuration.
// Backend failures fall back to a null cache rather than failing the
// command; caching is an optimization, not a requirement.
func newCacheBackend(ctx context.Context, cfg *config.Config, noCache bool) cache.Cache {
	if noCache || cfg.Cache.Backend == "none" {
		return cache.NewNullCache()
	}

	logger := loggerFromContext(ctx)
	switch cfg.Cache.Backend {
	case "redis":
		c, err := cache.NewRedisCache(ctx, cfg.Cache.RedisAddr, "", 0)
		if err != nil {
			logger.Warnf("Redis cache unavailable, caching disabled: %v", err)
			return cache.NewNullCache()
		}
		return c
	case "mongo":
		c, err := cache.NewMongoCache(ctx, cfg.Cache.MongoURI, appName, "index_cache")
		if err != nil {
			logger.Warnf("MongoDB cache unavailable, caching disabled: %v", err)
			return cache.NewNullCache()
		}
		return c
	default:
		dir := cfg.Cache.Dir
		if dir == "" {
			var err error
			dir, err = cacheDir()
			if err != nil {
				return cache.NewNullCache()
			}
		}
		c, err := cache.NewFileCache(dir)
		if err != nil {
			logger.Warnf("File cache unavailable, caching disabled: %v", err)
			return cache.NewNullCache()
		}
		return c
	}
}

// newIndexClient builds the Anaconda index client from the configuration.
func newIndexClient(ctx context.Context, cfg *config.Config, channel string, noCache bool) *anaconda.Client {
	backend := newCacheBackend(ctx, cfg, noCache)
	client := anaconda.NewClient(backend, cfg.TTL())
	if channel == "" {
		channel = cfg.Channel
	}
	client = client.WithChannel(channel)
	if cfg.RegistryURL != "" {
		client = client.WithBaseURL(cfg.RegistryURL)
	}
	return client
}

// cacheDir returns the cache directory using the XDG standard
// (~/.cache/recipeforge/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// parseVars converts repeated KEY=VALUE flags into a map.
func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid variable %q (expected KEY=VALUE)", pair)
		}
		vars[key] = value
	}
	return vars, nil
}

// renderFile reads a templated recipe file and resolves its templates.
// Explicit --var values override the process environment.
func renderFile(path string, vars map[string]string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "read recipe: %s", path)
	}
	return rendertmpl.Render(string(data), rendertmpl.Overlay(rendertmpl.OSEnv(), vars))
}

// loadRecipe renders a recipe file and parses the result.
func loadRecipe(path string, vars map[string]string) (*recipe.Recipe, string, error) {
	rendered, err := renderFile(path, vars)
	if err != nil {
		return nil, "", err
	}
	r, err := recipe.Parse([]byte(rendered))
	if err != nil {
		return nil, "", err
	}
	return r, rendered, nil
}
