package anaconda

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recipeforge/pkg/cache"
	"recipeforge/pkg/registry"
)

func testServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/package/conda-forge/numpy", func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			*hits++
		}
		json.NewEncoder(w).Encode(map[string]any{
			"name":           "numpy",
			"summary":        "Array processing for numbers, strings, records, and objects.",
			"license":        "BSD-3-Clause",
			"home":           "https://numpy.org",
			"versions":       []string{"1.24.0", "1.26.4", "2.0.1"},
			"latest_version": "2.0.1",
			"owner":          "conda-forge",
			"files": []map[string]any{
				{
					"version": "1.26.4",
					"attrs": map[string]any{
						"depends":      []string{"python >=3.9", "libblas >=3.9.0"},
						"build_number": 0,
					},
				},
			},
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server, backend cache.Cache) *Client {
	t.Helper()
	if backend == nil {
		backend = cache.NewNullCache()
	}
	return NewClient(backend, time.Hour).WithBaseURL(srv.URL)
}

func TestFetchPackage(t *testing.T) {
	srv := testServer(t, nil)
	c := newTestClient(t, srv, nil)

	info, err := c.FetchPackage(context.Background(), "numpy", false)
	if err != nil {
		t.Fatalf("FetchPackage: %v", err)
	}
	if info.Name != "numpy" {
		t.Errorf("Name = %q", info.Name)
	}
	if info.Channel != "conda-forge" {
		t.Errorf("Channel = %q", info.Channel)
	}
	if info.LatestVersion != "2.0.1" {
		t.Errorf("LatestVersion = %q", info.LatestVersion)
	}
	if len(info.Versions) != 3 {
		t.Errorf("len(Versions) = %d", len(info.Versions))
	}
}

func TestFetchVersions(t *testing.T) {
	srv := testServer(t, nil)
	c := newTestClient(t, srv, nil)

	versions, err := c.FetchVersions(context.Background(), "numpy", false)
	if err != nil {
		t.Fatalf("FetchVersions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("len(versions) = %d", len(versions))
	}
	if versions[len(versions)-1] != "2.0.1" {
		t.Errorf("versions = %v", versions)
	}
}

func TestFetchPackageNotFound(t *testing.T) {
	srv := testServer(t, nil)
	c := newTestClient(t, srv, nil)

	_, err := c.FetchPackage(context.Background(), "no-such-package", false)
	if !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFetchPackageCaching(t *testing.T) {
	hits := 0
	srv := testServer(t, &hits)

	backend, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := newTestClient(t, srv, backend)
	ctx := context.Background()

	if _, err := c.FetchPackage(ctx, "numpy", false); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := c.FetchPackage(ctx, "numpy", false); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if hits != 1 {
		t.Errorf("API hits = %d, want 1 (second call cached)", hits)
	}

	// refresh bypasses the cache
	if _, err := c.FetchPackage(ctx, "numpy", true); err != nil {
		t.Fatalf("refresh fetch: %v", err)
	}
	if hits != 2 {
		t.Errorf("API hits = %d, want 2 after refresh", hits)
	}
}

func TestSplitName(t *testing.T) {
	c := NewClient(nil, 0)
	tests := []struct {
		in      string
		channel string
		pkg     string
	}{
		{"numpy", "conda-forge", "numpy"},
		{"bioconda/samtools", "bioconda", "samtools"},
		{"nsls2::bluesky", "nsls2", "bluesky"},
	}
	for _, tt := range tests {
		channel, pkg := c.splitName(tt.in)
		if channel != tt.channel || pkg != tt.pkg {
			t.Errorf("splitName(%q) = %q, %q; want %q, %q", tt.in, channel, pkg, tt.channel, tt.pkg)
		}
	}
}

func TestFetchDependencies(t *testing.T) {
	srv := testServer(t, nil)
	c := newTestClient(t, srv, nil)

	deps, err := c.FetchDependencies(context.Background(), "numpy", "1.26.4", false)
	if err != nil {
		t.Fatalf("FetchDependencies: %v", err)
	}
	if len(deps) != 2 {
		t.Fatalf("len(deps) = %d, want 2", len(deps))
	}
	if deps[0].Name != "python" || deps[0].Requirements != ">=3.9" {
		t.Errorf("deps[0] = %+v", deps[0])
	}
	if deps[1].Name != "libblas" {
		t.Errorf("deps[1] = %+v", deps[1])
	}

	// Unknown version yields no dependencies, not an error.
	deps, err = c.FetchDependencies(context.Background(), "numpy", "9.9.9", false)
	if err != nil {
		t.Fatalf("FetchDependencies(unknown version): %v", err)
	}
	if len(deps) != 0 {
		t.Errorf("len(deps) = %d, want 0", len(deps))
	}
}

func TestResolverCheck(t *testing.T) {
	srv := testServer(t, nil)
	c := newTestClient(t, srv, nil)
	r := NewResolver(c)

	results := r.Check(context.Background(), []string{
		"numpy >=1.25",
		"numpy >=3.0",
		"no-such-package",
		"bad spec here extra",
	}, false)

	if len(results) != 4 {
		t.Fatalf("len(results) = %d, want 4", len(results))
	}

	if !results[0].Resolved {
		t.Errorf("numpy >=1.25 should resolve: %+v", results[0])
	}
	if results[0].Version != "2.0.1" {
		t.Errorf("resolved version = %q, want newest match 2.0.1", results[0].Version)
	}
	if results[0].PURL != "pkg:conda/conda-forge/numpy@2.0.1" {
		t.Errorf("PURL = %q", results[0].PURL)
	}

	if results[1].Resolved {
		t.Error("numpy >=3.0 should not resolve")
	}
	if !results[1].Found {
		t.Error("numpy >=3.0 should still be found")
	}

	if results[2].Found || results[2].Resolved {
		t.Errorf("missing package should not be found: %+v", results[2])
	}

	if results[3].Error == "" {
		t.Error("malformed spec should carry a parse error")
	}

	if AllResolved(results) {
		t.Error("AllResolved should be false")
	}
	if !AllResolved(results[:1]) {
		t.Error("AllResolved on the resolved subset should be true")
	}
}
