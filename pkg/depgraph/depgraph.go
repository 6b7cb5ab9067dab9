// Package depgraph builds and renders recipe dependency graphs.
//
// The graph is rooted at the recipe's package and grown by walking the
// package index: each run requirement becomes an edge, and each resolved
// dependency's own depends list is fetched in turn, bounded by depth and
// node count so a deep ecosystem like numpy's doesn't explode the walk.
package depgraph

import (
	"errors"
	"slices"
)

var (
	// ErrInvalidNodeID is returned when a node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned when a node with the same ID already exists.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownNode is returned by AddEdge when an endpoint does not exist.
	ErrUnknownNode = errors.New("unknown node")
)

// Metadata stores arbitrary key-value pairs attached to nodes.
// Used for version, channel, and summary data from the index.
type Metadata map[string]any

// Node is a package in the dependency graph.
type Node struct {
	ID   string   `json:"id"`
	Meta Metadata `json:"meta,omitempty"`
}

// Edge is a directed dependency: From requires To.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is a directed graph of package dependencies.
// It is not safe for concurrent use without external synchronization.
type Graph struct {
	nodes    map[string]*Node
	order    []string // insertion order, for deterministic iteration
	edges    []Edge
	outgoing map[string][]string
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
	}
}

// AddNode adds a node to the graph.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	g.nodes[n.ID] = &n
	g.order = append(g.order, n.ID)
	return nil
}

// AddEdge adds a directed edge. Both endpoints must exist.
// Duplicate edges are ignored.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return ErrUnknownNode
	}
	if _, ok := g.nodes[e.To]; !ok {
		return ErrUnknownNode
	}
	if slices.Contains(g.outgoing[e.From], e.To) {
		return nil
	}
	g.edges = append(g.edges, e)
	g.outgoing[e.From] = append(g.outgoing[e.From], e.To)
	return nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Has reports whether a node with the given ID exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// Children returns the direct dependencies of a node, sorted.
func (g *Graph) Children(id string) []string {
	out := slices.Clone(g.outgoing[id])
	slices.Sort(out)
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// TopoOrder returns node IDs in a deterministic topological order
// (dependents before dependencies). Nodes on a cycle are appended at the
// end in insertion order rather than dropped; conda metadata does contain
// mutual depends pairs.
func (g *Graph) TopoOrder() []string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.nodes))
	var out []string

	var visit func(id string)
	visit = func(id string) {
		if color[id] != white {
			return
		}
		color[id] = gray
		children := slices.Clone(g.outgoing[id])
		slices.Sort(children)
		for _, c := range children {
			if color[c] == white {
				visit(c)
			}
		}
		color[id] = black
		out = append(out, id)
	}

	for _, id := range g.order {
		visit(id)
	}
	slices.Reverse(out)
	return out
}
