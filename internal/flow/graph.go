// Package flow draws the declared routines of a macro project as a directed
// graph. Edges only follow declaration order within each routine kind; they
// are a placeholder chain, not a call graph.
package flow

import (
	"fmt"
	"strings"

	"github.com/klytics/vbadoc/internal/analysis"
)

// Kind separates the two node sets of a graph.
type Kind string

const (
	KindFunction   Kind = "function"
	KindSubroutine Kind = "subroutine"
)

// Node is one routine. Within a kind the bare name is the identity, so a
// routine declared twice appears once.
type Node struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`
}

// Edge connects two node IDs.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is a directed graph of routine nodes.
type Graph struct {
	Comment string `json:"comment"`
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`

	index map[string]int
}

// New returns an empty graph.
func New(comment string) *Graph {
	return &Graph{Comment: comment, index: make(map[string]int)}
}

// Build creates one node per function and subroutine name and chains each
// set in declaration order. A set of n names yields n-1 edges, even when
// repeated names collapse into one node.
func Build(res analysis.Result) *Graph {
	g := New("VBA Macro Process Flow")
	g.chain(KindFunction, res.Functions)
	g.chain(KindSubroutine, res.Subroutines)
	return g
}

func (g *Graph) chain(kind Kind, names []string) {
	ids := make([]string, len(names))
	for i, name := range names {
		ids[i] = g.AddNode(kind, name)
	}
	for i := 0; i+1 < len(ids); i++ {
		g.AddEdge(ids[i], ids[i+1])
	}
}

func nodeID(kind Kind, name string) string {
	return string(kind) + ":" + name
}

// AddNode adds a node and returns its ID. Adding an existing node is a no-op.
func (g *Graph) AddNode(kind Kind, name string) string {
	id := nodeID(kind, name)
	if _, ok := g.index[id]; ok {
		return id
	}
	label := "Function: " + name
	if kind == KindSubroutine {
		label = "Subroutine: " + name
	}
	g.index[id] = len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{ID: id, Name: name, Kind: kind, Label: label})
	return id
}

// AddEdge connects two node IDs. Parallel edges and self loops are kept.
func (g *Graph) AddEdge(from, to string) {
	g.Edges = append(g.Edges, Edge{From: from, To: to})
}

// Lookup returns the node for a kind and name.
func (g *Graph) Lookup(kind Kind, name string) (Node, bool) {
	i, ok := g.index[nodeID(kind, name)]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// NodesOf returns the nodes of one kind in insertion order.
func (g *Graph) NodesOf(kind Kind) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// DOT encodes the graph in the graphviz dot language.
func (g *Graph) DOT() string {
	var b strings.Builder
	if g.Comment != "" {
		fmt.Fprintf(&b, "// %s\n", g.Comment)
	}
	b.WriteString("digraph {\n")
	for _, n := range g.Nodes {
		fmt.Fprintf(&b, "\t%s [label=%s]\n", quote(n.ID), quote(n.Label))
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "\t%s -> %s\n", quote(e.From), quote(e.To))
	}
	b.WriteString("}\n")
	return b.String()
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
