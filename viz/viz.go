// Package viz exports read-only rendering metadata for a graph: per node its
// display name and whether its worker is asynchronous, per edge whether the
// target port is reactive or passive. There is no execution-time coupling;
// a snapshot is plain data for an external renderer.
package viz

import (
	"fmt"
	"strings"

	"github.com/jsphon/node-process/graph"
)

// Node is the rendering view of one graph node.
type Node struct {
	Name  string `json:"name"`
	Async bool   `json:"async"`
}

// Edge is the rendering view of one output-port registration.
type Edge struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Passive bool   `json:"passive"`
}

// Graph is the rendering view of a whole graph.
type Graph struct {
	Name  string `json:"name"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Snapshot captures the current wiring of g. Wiring is static after
// construction, so a snapshot taken any time after build is complete.
func Snapshot(g *graph.Graph) Graph {
	names := displayNames(g.Nodes())

	out := Graph{Name: g.Name()}
	for _, n := range g.Nodes() {
		out.Nodes = append(out.Nodes, Node{Name: names[n], Async: n.Async()})
		for _, e := range n.OutEdges() {
			out.Edges = append(out.Edges, Edge{
				From:    names[n],
				To:      names[e.To],
				Passive: e.Passive,
			})
		}
	}
	return out
}

// displayNames assigns unique labels, falling back to positional names for
// unnamed nodes.
func displayNames(nodes []*graph.Node) map[*graph.Node]string {
	names := make(map[*graph.Node]string, len(nodes))
	seen := make(map[string]int, len(nodes))
	for i, n := range nodes {
		name := n.Name()
		if name == "" {
			name = fmt.Sprintf("node%d", i)
		}
		if dup := seen[name]; dup > 0 {
			name = fmt.Sprintf("%s#%d", name, dup)
		}
		seen[n.Name()]++
		names[n] = name
	}
	return names
}

// DOT renders the snapshot as Graphviz text: async nodes as filled
// doublecircles, reactive edges red, passive edges gray, edges into async
// nodes dashed.
func (g Graph) DOT() string {
	async := make(map[string]bool, len(g.Nodes))

	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", g.Name)
	b.WriteString("  rankdir=LR;\n")
	for _, n := range g.Nodes {
		async[n.Name] = n.Async
		shape, fill := "circle", "white"
		if n.Async {
			shape, fill = "doublecircle", "green"
		}
		fmt.Fprintf(&b, "  %q [shape=%s, fillcolor=%s, style=filled];\n", n.Name, shape, fill)
	}
	for _, e := range g.Edges {
		color := "red"
		if e.Passive {
			color = "gray"
		}
		style := "solid"
		if async[e.To] {
			style = "dashed"
		}
		fmt.Fprintf(&b, "  %q -> %q [color=%s, style=%s];\n", e.From, e.To, color, style)
	}
	b.WriteString("}\n")
	return b.String()
}
