package depgraph

import (
	"context"

	"recipeforge/pkg/matchspec"
	"recipeforge/pkg/recipe"
	"recipeforge/pkg/registry/anaconda"
)

// Default walk bounds. A conda run section commonly fans out into the
// python/numpy base ecosystem; without a ceiling the walk fetches most of
// the channel.
const (
	DefaultMaxDepth = 3
	DefaultMaxNodes = 200
)

// Index is the slice of the package index the builder needs.
// *anaconda.Client satisfies it.
type Index interface {
	FetchDependencies(ctx context.Context, name, version string, refresh bool) ([]anaconda.Dependency, error)
	FetchPackage(ctx context.Context, name string, refresh bool) (*anaconda.PackageInfo, error)
}

// Builder grows a Graph from a rendered recipe by walking the index.
type Builder struct {
	index    Index
	maxDepth int
	maxNodes int
	refresh  bool
}

// NewBuilder creates a Builder with default bounds.
func NewBuilder(index Index) *Builder {
	return &Builder{
		index:    index,
		maxDepth: DefaultMaxDepth,
		maxNodes: DefaultMaxNodes,
	}
}

// WithMaxDepth bounds how many dependency levels are walked below the root.
// Depth 0 means only the recipe's direct requirements.
func (b *Builder) WithMaxDepth(d int) *Builder {
	b.maxDepth = d
	return b
}

// WithMaxNodes bounds the total number of packages added to the graph.
func (b *Builder) WithMaxNodes(n int) *Builder {
	b.maxNodes = n
	return b
}

// WithRefresh bypasses the cache on index fetches.
func (b *Builder) WithRefresh(refresh bool) *Builder {
	b.refresh = refresh
	return b
}

// Build constructs the dependency graph for a rendered recipe. The root
// node is the recipe's package; its run requirements form the first level.
// Packages the index does not know are kept as leaf nodes so the graph
// still shows the full requirement list.
func (b *Builder) Build(ctx context.Context, r *recipe.Recipe) (*Graph, error) {
	g := New()
	root := r.Package.Name
	err := g.AddNode(Node{ID: root, Meta: Metadata{
		"version": r.Package.Version,
		"root":    true,
	}})
	if err != nil {
		return nil, err
	}

	type item struct {
		name  string
		depth int
	}
	queue := make([]item, 0, len(r.Requirements.Run))

	for _, raw := range r.Requirements.Run {
		name, meta := b.specNode(raw)
		if name == "" {
			continue
		}
		if !g.Has(name) {
			// At the ceiling, skip the new node but keep scanning: later
			// entries may still add edges to nodes already in the graph.
			if g.NodeCount() >= b.maxNodes {
				continue
			}
			if err := g.AddNode(Node{ID: name, Meta: meta}); err != nil {
				return nil, err
			}
			queue = append(queue, item{name: name, depth: 1})
		}
		if err := g.AddEdge(Edge{From: root, To: name}); err != nil {
			return nil, err
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth > b.maxDepth {
			continue
		}

		version := b.latestVersion(ctx, cur.name)
		if version == "" {
			continue
		}
		deps, err := b.index.FetchDependencies(ctx, cur.name, version, b.refresh)
		if err != nil {
			// Unknown or unreachable package: keep it as a leaf.
			continue
		}
		for _, dep := range deps {
			if !g.Has(dep.Name) {
				if g.NodeCount() >= b.maxNodes {
					continue
				}
				meta := Metadata{}
				if dep.Requirements != "" {
					meta["constraint"] = dep.Requirements
				}
				if err := g.AddNode(Node{ID: dep.Name, Meta: meta}); err != nil {
					return nil, err
				}
				queue = append(queue, item{name: dep.Name, depth: cur.depth + 1})
			}
			if err := g.AddEdge(Edge{From: cur.name, To: dep.Name}); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

// specNode parses a requirement line into a node ID and metadata.
// Unparseable lines yield an empty name and are skipped by the caller.
func (b *Builder) specNode(raw string) (string, Metadata) {
	spec, err := matchspec.Parse(raw)
	if err != nil {
		return "", nil
	}
	meta := Metadata{}
	if spec.Version != "" {
		meta["constraint"] = spec.Version
	}
	if spec.Channel != "" {
		meta["channel"] = spec.Channel
	}
	return spec.Name, meta
}

// latestVersion asks the index for the newest known version of a package.
func (b *Builder) latestVersion(ctx context.Context, name string) string {
	info, err := b.index.FetchPackage(ctx, name, b.refresh)
	if err != nil {
		return ""
	}
	return info.LatestVersion
}
