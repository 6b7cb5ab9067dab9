// Package recipe defines the conda-build recipe schema and its YAML codec.
//
// A recipe (meta.yaml) declares how to build, test, and package a piece of
// software: package identity, source location, build configuration,
// build/host/run requirement lists, a post-build smoke-test block, and
// about metadata. This package handles recipes whose template tokens have
// already been resolved; see package rendertmpl for token resolution.
package recipe

import (
	"bytes"
	"os"

	"gopkg.in/yaml.v3"

	"recipeforge/pkg/errors"
)

// Recipe is the top-level recipe document.
type Recipe struct {
	Package      Package      `yaml:"package"`
	Source       Source       `yaml:"source,omitempty"`
	Build        Build        `yaml:"build,omitempty"`
	Requirements Requirements `yaml:"requirements,omitempty"`
	Test         Test         `yaml:"test,omitempty"`
	About        About        `yaml:"about,omitempty"`
}

// Package identifies the package being built.
type Package struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
}

// Source points at the tree to build from: either a git repository
// (URL or relative path) or a tarball URL with a checksum.
type Source struct {
	GitURL string `yaml:"git_url,omitempty"`
	GitRev string `yaml:"git_rev,omitempty"`
	URL    string `yaml:"url,omitempty"`
	SHA256 string `yaml:"sha256,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

// Build holds build configuration. String encodes the interpreter and
// numeric-library versions of a specific artifact (e.g., "py311np126_0").
type Build struct {
	Number      int      `yaml:"number"`
	String      string   `yaml:"string,omitempty"`
	Script      string   `yaml:"script,omitempty"`
	Noarch      string   `yaml:"noarch,omitempty"`
	EntryPoints []string `yaml:"entry_points,omitempty"`
}

// Requirements partitions dependencies by phase. Each entry is a match
// spec string (see package matchspec).
type Requirements struct {
	Build []string `yaml:"build,omitempty"`
	Host  []string `yaml:"host,omitempty"`
	Run   []string `yaml:"run,omitempty"`
}

// Test describes the post-build smoke check: packages to install into the
// test environment and module paths that must import cleanly.
type Test struct {
	Requires []string `yaml:"requires,omitempty"`
	Imports  []string `yaml:"imports,omitempty"`
	Commands []string `yaml:"commands,omitempty"`
}

// About holds static package metadata.
type About struct {
	Home        string `yaml:"home,omitempty"`
	License     string `yaml:"license,omitempty"`
	LicenseFile string `yaml:"license_file,omitempty"`
	Summary     string `yaml:"summary,omitempty"`
}

// AllRequirements returns build, host, and run requirements concatenated,
// in that order.
func (r *Recipe) AllRequirements() []string {
	out := make([]string, 0, len(r.Requirements.Build)+len(r.Requirements.Host)+len(r.Requirements.Run))
	out = append(out, r.Requirements.Build...)
	out = append(out, r.Requirements.Host...)
	out = append(out, r.Requirements.Run...)
	return out
}

// Parse decodes a rendered recipe document.
// Unknown top-level keys are tolerated; use ParseStrict to reject them.
func Parse(data []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRecipe, err, "parse recipe")
	}
	return &r, nil
}

// ParseStrict decodes a rendered recipe document, rejecting unknown keys.
func ParseStrict(data []byte) (*Recipe, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var r Recipe
	if err := dec.Decode(&r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRecipe, err, "parse recipe")
	}
	return &r, nil
}

// Load reads and parses a rendered recipe file.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "recipe %s", path)
		}
		return nil, err
	}
	return Parse(data)
}

// Marshal serializes the recipe back to YAML.
// Parse(Marshal(r)) yields a structurally equal recipe.
func (r *Recipe) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
