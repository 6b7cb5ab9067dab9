package depgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-graphviz"
)

// DOTOptions configures DOT output.
type DOTOptions struct {
	// Detailed includes node metadata (version constraints, channel) in labels.
	// When false, only the package name is shown.
	Detailed bool
}

// ToDOT converts a dependency graph to Graphviz DOT format. The root node
// is drawn filled so the recipe's own package stands out from its
// dependency closure. The resulting string can be rendered with [RenderSVG].
func ToDOT(g *Graph, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph deps {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		label := fmtLabel(*n, opts.Detailed)
		attrs := fmtAttrs(*n, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n Node, detailed bool) string {
	if !detailed {
		return n.ID
	}

	var parts []string
	for _, k := range slices.Sorted(maps.Keys(n.Meta)) {
		if k == "root" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Meta[k]))
	}
	if len(parts) == 0 {
		return n.ID
	}
	return n.ID + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if root, ok := n.Meta["root"].(bool); ok && root {
		attrs = append(attrs, "style=\"rounded,filled\"", "fillcolor=lightblue")
	}
	return attrs
}

// ToJSON serializes the graph as an indented JSON document: nodes and edges
// in insertion order, plus a topological ordering of node IDs (dependents
// before dependencies). Walking the ordering backwards gives an install
// order for the closure.
func ToJSON(g *Graph) ([]byte, error) {
	doc := struct {
		Nodes []*Node  `json:"nodes"`
		Edges []Edge   `json:"edges"`
		Order []string `json:"order"`
	}{
		Nodes: g.Nodes(),
		Edges: g.Edges(),
		Order: g.TopoOrder(),
	}
	return json.MarshalIndent(doc, "", "  ")
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
