package anaconda

import (
	"context"
	"errors"

	packageurl "github.com/package-url/packageurl-go"

	"recipeforge/pkg/matchspec"
	"recipeforge/pkg/registry"
)

// CheckResult records the resolution outcome for one requirement.
type CheckResult struct {
	Spec     string `json:"spec"`              // the original match spec string
	Name     string `json:"name"`              // parsed package name
	Channel  string `json:"channel"`           // channel the package was found in
	Found    bool   `json:"found"`             // package exists in the index
	Version  string `json:"version,omitempty"` // newest version satisfying the constraint
	PURL     string `json:"purl,omitempty"`    // pkg:conda/<channel>/<name>@<version>
	Error    string `json:"error,omitempty"`   // parse or network failure, if any
	Resolved bool   `json:"resolved"`          // found with a satisfying version
}

// Resolver checks recipe requirements against the package index.
type Resolver struct {
	client *Client
}

// NewResolver creates a Resolver on top of the given client.
func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

// Check resolves each match spec string against the index.
// Every spec is checked even after failures, so one pass reports all
// unresolvable requirements. A spec resolves when its package exists and
// at least one published version satisfies the constraint; python-style
// virtual specs still hit the index like any other package.
func (r *Resolver) Check(ctx context.Context, specs []string, refresh bool) []CheckResult {
	results := make([]CheckResult, 0, len(specs))
	for _, s := range specs {
		results = append(results, r.checkOne(ctx, s, refresh))
	}
	return results
}

func (r *Resolver) checkOne(ctx context.Context, raw string, refresh bool) CheckResult {
	res := CheckResult{Spec: raw}

	spec, err := matchspec.Parse(raw)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Name = spec.Name

	name := spec.Name
	if spec.Channel != "" {
		name = spec.Channel + "::" + spec.Name
	}

	info, err := r.client.FetchPackage(ctx, name, refresh)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			res.Error = "not found in index"
			return res
		}
		res.Error = err.Error()
		return res
	}

	res.Found = true
	res.Channel = info.Channel
	if v, ok := bestMatch(spec, info.Versions); ok {
		res.Version = v
		res.Resolved = true
		res.PURL = packageurl.NewPackageURL(
			packageurl.TypeConda, info.Channel, spec.Name, v, nil, "",
		).ToString()
	} else {
		res.Error = "no published version satisfies constraint"
	}
	return res
}

// bestMatch returns the newest version satisfying the spec.
func bestMatch(spec *matchspec.MatchSpec, versions []string) (string, bool) {
	best := ""
	for _, v := range versions {
		if !spec.Matches(v) {
			continue
		}
		if best == "" || matchspec.Compare(v, best) > 0 {
			best = v
		}
	}
	return best, best != ""
}

// AllResolved reports whether every result resolved.
func AllResolved(results []CheckResult) bool {
	for _, r := range results {
		if !r.Resolved {
			return false
		}
	}
	return true
}
