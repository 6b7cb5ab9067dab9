package depgraph

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"recipeforge/pkg/recipe"
	"recipeforge/pkg/registry"
	"recipeforge/pkg/registry/anaconda"
)

func TestAddNode(t *testing.T) {
	g := New()
	if err := g.AddNode(Node{ID: "numpy"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := g.AddNode(Node{ID: "numpy"}); err != ErrDuplicateNodeID {
		t.Errorf("duplicate: got %v, want ErrDuplicateNodeID", err)
	}
	if err := g.AddNode(Node{ID: ""}); err != ErrInvalidNodeID {
		t.Errorf("empty ID: got %v, want ErrInvalidNodeID", err)
	}
}

func TestAddEdge(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "a"})
	g.AddNode(Node{ID: "b"})

	if err := g.AddEdge(Edge{From: "a", To: "b"}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	// Duplicate edges collapse.
	if err := g.AddEdge(Edge{From: "a", To: "b"}); err != nil {
		t.Fatalf("duplicate AddEdge: %v", err)
	}
	if got := g.EdgeCount(); got != 1 {
		t.Errorf("EdgeCount = %d, want 1", got)
	}
	if err := g.AddEdge(Edge{From: "a", To: "missing"}); err != ErrUnknownNode {
		t.Errorf("unknown endpoint: got %v, want ErrUnknownNode", err)
	}
}

func TestTopoOrder(t *testing.T) {
	g := New()
	for _, id := range []string{"app", "numpy", "python", "libblas"} {
		g.AddNode(Node{ID: id})
	}
	g.AddEdge(Edge{From: "app", To: "numpy"})
	g.AddEdge(Edge{From: "app", To: "python"})
	g.AddEdge(Edge{From: "numpy", To: "python"})
	g.AddEdge(Edge{From: "numpy", To: "libblas"})

	order := g.TopoOrder()
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for _, e := range g.Edges() {
		if pos[e.From] > pos[e.To] {
			t.Errorf("order %v places %s after %s", order, e.From, e.To)
		}
	}

	// Deterministic across runs.
	if again := g.TopoOrder(); !slices.Equal(order, again) {
		t.Errorf("TopoOrder not deterministic: %v vs %v", order, again)
	}
}

func TestTopoOrderCycle(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "a"})
	g.AddNode(Node{ID: "b"})
	g.AddEdge(Edge{From: "a", To: "b"})
	g.AddEdge(Edge{From: "b", To: "a"})

	order := g.TopoOrder()
	if len(order) != 2 {
		t.Fatalf("cycle: got %d nodes, want 2", len(order))
	}
}

// fakeIndex serves a small static package index.
type fakeIndex struct {
	deps     map[string][]anaconda.Dependency
	versions map[string]string
	calls    int
}

func (f *fakeIndex) FetchDependencies(_ context.Context, name, version string, _ bool) ([]anaconda.Dependency, error) {
	f.calls++
	return f.deps[name+" "+version], nil
}

func (f *fakeIndex) FetchPackage(_ context.Context, name string, _ bool) (*anaconda.PackageInfo, error) {
	v, ok := f.versions[name]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return &anaconda.PackageInfo{Name: name, LatestVersion: v}, nil
}

func testRecipe() *recipe.Recipe {
	r := &recipe.Recipe{}
	r.Package.Name = "bluesky"
	r.Package.Version = "0.4.3"
	r.Requirements.Run = []string{"python", "numpy >=1.24", "not a spec at all extra"}
	return r
}

func TestBuild(t *testing.T) {
	index := &fakeIndex{
		versions: map[string]string{
			"python": "3.12.0",
			"numpy":  "2.0.1",
		},
		deps: map[string][]anaconda.Dependency{
			"numpy 2.0.1": {
				{Name: "python", Requirements: ">=3.9"},
				{Name: "libblas", Requirements: ">=3.9.0"},
			},
		},
	}

	g, err := NewBuilder(index).Build(context.Background(), testRecipe())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, id := range []string{"bluesky", "python", "numpy", "libblas"} {
		if !g.Has(id) {
			t.Errorf("missing node %q", id)
		}
	}
	// The malformed requirement line is skipped, not an error.
	if g.NodeCount() != 4 {
		t.Errorf("NodeCount = %d, want 4", g.NodeCount())
	}
	if got := g.Children("bluesky"); !slices.Equal(got, []string{"numpy", "python"}) {
		t.Errorf("Children(bluesky) = %v", got)
	}
	if got := g.Children("numpy"); !slices.Equal(got, []string{"libblas", "python"}) {
		t.Errorf("Children(numpy) = %v", got)
	}

	n, _ := g.Node("numpy")
	if n.Meta["constraint"] != ">=1.24" {
		t.Errorf("numpy constraint = %v", n.Meta["constraint"])
	}
}

func TestBuildMaxNodes(t *testing.T) {
	index := &fakeIndex{
		versions: map[string]string{"numpy": "2.0.1"},
		deps: map[string][]anaconda.Dependency{
			"numpy 2.0.1": {{Name: "python"}, {Name: "libblas"}, {Name: "mkl"}},
		},
	}

	r := &recipe.Recipe{}
	r.Package.Name = "app"
	r.Requirements.Run = []string{"numpy"}

	g, err := NewBuilder(index).WithMaxNodes(3).Build(context.Background(), r)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.NodeCount() != 3 {
		t.Errorf("NodeCount = %d, want 3", g.NodeCount())
	}
}

func TestBuildMaxNodesKeepsEdges(t *testing.T) {
	// mkl comes before python in numpy's depends list, so hitting the node
	// ceiling on mkl must not drop the numpy -> python edge.
	index := &fakeIndex{
		versions: map[string]string{"numpy": "2.0.1", "python": "3.12.0"},
		deps: map[string][]anaconda.Dependency{
			"numpy 2.0.1": {{Name: "mkl"}, {Name: "python"}},
		},
	}

	r := &recipe.Recipe{}
	r.Package.Name = "app"
	r.Requirements.Run = []string{"numpy", "python"}

	g, err := NewBuilder(index).WithMaxNodes(3).Build(context.Background(), r)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.Has("mkl") {
		t.Error("mkl should be over the node ceiling")
	}
	if got := g.Children("numpy"); !slices.Equal(got, []string{"python"}) {
		t.Errorf("Children(numpy) = %v, want [python]", got)
	}
}

func TestBuildMaxDepth(t *testing.T) {
	index := &fakeIndex{
		versions: map[string]string{"a": "1.0", "b": "1.0", "c": "1.0"},
		deps: map[string][]anaconda.Dependency{
			"a 1.0": {{Name: "b"}},
			"b 1.0": {{Name: "c"}},
		},
	}

	r := &recipe.Recipe{}
	r.Package.Name = "root"
	r.Requirements.Run = []string{"a"}

	g, err := NewBuilder(index).WithMaxDepth(1).Build(context.Background(), r)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.Has("c") {
		t.Error("depth 1 walk should not reach c")
	}
	if !g.Has("b") {
		t.Error("depth 1 walk should reach b")
	}
}

func TestToJSON(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "bluesky", Meta: Metadata{"version": "0.4.3"}})
	g.AddNode(Node{ID: "numpy"})
	g.AddEdge(Edge{From: "bluesky", To: "numpy"})

	data, err := ToJSON(g)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	for _, want := range []string{`"id": "bluesky"`, `"version": "0.4.3"`, `"from": "bluesky"`, `"to": "numpy"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("JSON missing %q:\n%s", want, data)
		}
	}

	var doc struct {
		Order []string `json:"order"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(doc.Order, []string{"bluesky", "numpy"}) {
		t.Errorf("order = %v, want [bluesky numpy]", doc.Order)
	}
}

func TestToDOT(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "bluesky", Meta: Metadata{"root": true, "version": "0.4.3"}})
	g.AddNode(Node{ID: "numpy", Meta: Metadata{"constraint": ">=1.24"}})
	g.AddEdge(Edge{From: "bluesky", To: "numpy"})

	dot := ToDOT(g, DOTOptions{})
	for _, want := range []string{"digraph deps", `"bluesky"`, `"numpy"`, `"bluesky" -> "numpy"`, "fillcolor=lightblue"} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}

	detailed := ToDOT(g, DOTOptions{Detailed: true})
	if !strings.Contains(detailed, "constraint: >=1.24") {
		t.Errorf("detailed DOT missing constraint:\n%s", detailed)
	}
	if strings.Contains(detailed, "root: true") {
		t.Error("detailed DOT should not label the root flag")
	}
}
