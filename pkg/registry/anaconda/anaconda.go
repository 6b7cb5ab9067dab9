// Package anaconda provides a client for the Anaconda.org package index.
//
// This is the external collaborator a recipe's dependency lists resolve
// against: each match spec names a package that must exist in some channel
// with at least one version satisfying the constraint.
package anaconda

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipeforge/pkg/cache"
	"recipeforge/pkg/registry"
)

const (
	// DefaultURL is the Anaconda.org API endpoint.
	DefaultURL = "https://api.anaconda.org"

	// DefaultChannel is used for unqualified package names.
	DefaultChannel = "conda-forge"
)

// PackageInfo holds metadata for a package from Anaconda.org.
type PackageInfo struct {
	Name          string   `json:"name"`
	Channel       string   `json:"channel"`
	Summary       string   `json:"summary"`
	License       string   `json:"license"`
	Home          string   `json:"home"`
	Versions      []string `json:"versions"`
	LatestVersion string   `json:"latest_version"`
	Owner         string   `json:"owner"`
}

// Dependency is a single "name constraint" entry from a package file's
// depends metadata.
type Dependency struct {
	Name         string `json:"name"`
	Requirements string `json:"requirements,omitempty"`
}

// Client provides access to the Anaconda.org API with caching and retries.
// All methods are safe for concurrent use.
type Client struct {
	*registry.Client
	baseURL string
	channel string
}

// NewClient creates an Anaconda.org client with the given cache backend.
// A zero cacheTTL falls back to registry.DefaultCacheTTL.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client:  registry.NewClient(backend, cacheTTL, nil),
		baseURL: DefaultURL,
		channel: DefaultChannel,
	}
}

// WithChannel returns a client that resolves unqualified names in channel.
func (c *Client) WithChannel(channel string) *Client {
	if channel == "" {
		return c
	}
	return &Client{Client: c.Client, baseURL: c.baseURL, channel: channel}
}

// WithBaseURL returns a client that talks to a different API endpoint.
// Useful for tests and on-prem mirrors.
func (c *Client) WithBaseURL(baseURL string) *Client {
	return &Client{
		Client:  c.Client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		channel: c.channel,
	}
}

// Channel returns the channel used for unqualified names.
func (c *Client) Channel() string { return c.channel }

// splitName splits a package name that may carry a channel qualifier,
// either "channel/name" or the match-spec form "channel::name".
func (c *Client) splitName(name string) (channel, pkg string) {
	if idx := strings.Index(name, "::"); idx >= 0 {
		return name[:idx], name[idx+2:]
	}
	if idx := strings.Index(name, "/"); idx >= 0 {
		return name[:idx], name[idx+1:]
	}
	return c.channel, name
}

// FetchPackage retrieves metadata for a package.
//
// If refresh is true, the cache is bypassed and a fresh API call is made.
// Returns [registry.ErrNotFound] (wrapped) if the package doesn't exist in
// the channel, [registry.ErrNetwork] for HTTP failures.
func (c *Client) FetchPackage(ctx context.Context, name string, refresh bool) (*PackageInfo, error) {
	channel, pkg := c.splitName(strings.ToLower(name))
	key := cache.Key("anaconda", channel, pkg)

	var info PackageInfo
	err := c.Cached(ctx, key, refresh, &info, func() error {
		return c.fetch(ctx, channel, pkg, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// FetchVersions retrieves the published version list for a package.
func (c *Client) FetchVersions(ctx context.Context, name string, refresh bool) ([]string, error) {
	info, err := c.FetchPackage(ctx, name, refresh)
	if err != nil {
		return nil, err
	}
	return info.Versions, nil
}

func (c *Client) fetch(ctx context.Context, channel, pkg string, info *PackageInfo) error {
	var data apiResponse
	url := fmt.Sprintf("%s/package/%s/%s", c.baseURL, channel, pkg)
	if err := c.Get(ctx, url, &data); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fmt.Errorf("%w: %s/%s", err, channel, pkg)
		}
		return err
	}

	*info = PackageInfo{
		Name:          data.Name,
		Channel:       channel,
		Summary:       data.Summary,
		License:       data.License,
		Home:          data.Home,
		Versions:      data.Versions,
		LatestVersion: data.LatestVersion,
		Owner:         data.Owner,
	}
	return nil
}

// FetchDependencies retrieves the depends list for a specific version.
// Entries are parsed from the conda "name constraint" format.
func (c *Client) FetchDependencies(ctx context.Context, name, version string, refresh bool) ([]Dependency, error) {
	channel, pkg := c.splitName(strings.ToLower(name))
	key := cache.Key("anaconda-deps", channel, pkg, version)

	var deps []Dependency
	err := c.Cached(ctx, key, refresh, &deps, func() error {
		return c.fetchDeps(ctx, channel, pkg, version, &deps)
	})
	if err != nil {
		return nil, err
	}
	return deps, nil
}

func (c *Client) fetchDeps(ctx context.Context, channel, pkg, version string, deps *[]Dependency) error {
	var data apiResponse
	url := fmt.Sprintf("%s/package/%s/%s", c.baseURL, channel, pkg)
	if err := c.Get(ctx, url, &data); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fmt.Errorf("%w: %s/%s", err, channel, pkg)
		}
		return err
	}

	seen := make(map[string]bool)
	for _, f := range data.Files {
		if f.Version != version {
			continue
		}
		for _, d := range f.Attrs.Depends {
			dep := parseDependency(d)
			if dep.Name == "" || seen[dep.Name] {
				continue
			}
			seen[dep.Name] = true
			*deps = append(*deps, dep)
		}
		break
	}
	return nil
}

// parseDependency splits a conda depends entry into name and constraint.
// Examples: "python >=3.8", "numpy", "pandas >=1.0,<2.0".
func parseDependency(s string) Dependency {
	parts := strings.SplitN(strings.TrimSpace(s), " ", 2)
	dep := Dependency{Name: parts[0]}
	if len(parts) > 1 {
		dep.Requirements = strings.TrimSpace(parts[1])
	}
	return dep
}

type apiResponse struct {
	Name          string    `json:"name"`
	Summary       string    `json:"summary"`
	License       string    `json:"license"`
	Home          string    `json:"home"`
	Versions      []string  `json:"versions"`
	LatestVersion string    `json:"latest_version"`
	Owner         string    `json:"owner"`
	Files         []apiFile `json:"files"`
}

type apiFile struct {
	Version string   `json:"version"`
	Attrs   apiAttrs `json:"attrs"`
}

type apiAttrs struct {
	Depends     []string `json:"depends"`
	BuildNumber int      `json:"build_number"`
}
