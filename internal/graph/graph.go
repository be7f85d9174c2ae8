package graph

import (
	"sort"

	"factorylens/internal/model"
)

// Node is one entry of the bidirectional adjacency structure. DependsOn
// holds the nodes this one requires; UsedBy holds the mirrored references.
type Node struct {
	ID        model.NodeID
	DependsOn map[model.NodeID]bool
	UsedBy    map[model.NodeID]bool
}

// Graph is the merged dependency graph over all extracted edge categories.
// It is built once and read-only for every downstream analysis.
type Graph struct {
	Nodes map[model.NodeID]*Node
	// Edges keeps the raw records grouped by kind for analyses that need
	// edge attributes (conditions, stages).
	Edges map[model.EdgeKind][]model.Edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make(map[model.NodeID]*Node),
		Edges: make(map[model.EdgeKind][]model.Edge),
	}
}

func (g *Graph) node(id model.NodeID) *Node {
	n, ok := g.Nodes[id]
	if !ok {
		n = &Node{
			ID:        id,
			DependsOn: make(map[model.NodeID]bool),
			UsedBy:    make(map[model.NodeID]bool),
		}
		g.Nodes[id] = n
	}
	return n
}

// Build merges the typed edge lists into one graph. For every record the
// forward reference goes into the dependent's DependsOn and the mirror into
// the target's UsedBy. For activity-activity records the raw "X dependsOn Y"
// orientation already names Y (the record's To) as the node that must
// complete first, so insertion is dependsOn[From] += To, usedBy[To] += From
// for every kind uniformly; inverting this silently corrupts every cycle
// and impact result downstream.
func Build(edgeLists ...[]model.Edge) *Graph {
	g := NewGraph()
	for _, edges := range edgeLists {
		for _, e := range edges {
			g.Edges[e.Kind] = append(g.Edges[e.Kind], e)
			from := g.node(e.From)
			to := g.node(e.To)
			from.DependsOn[e.To] = true
			to.UsedBy[e.From] = true
		}
	}
	return g
}

// DependsOnSorted returns the sorted dependency list of a node, or nil when
// the node is unknown.
func (g *Graph) DependsOnSorted(id model.NodeID) []model.NodeID {
	n, ok := g.Nodes[id]
	if !ok {
		return nil
	}
	return sortedIDs(n.DependsOn)
}

// UsedBySorted returns the sorted user list of a node, or nil when the node
// is unknown.
func (g *Graph) UsedBySorted(id model.NodeID) []model.NodeID {
	n, ok := g.Nodes[id]
	if !ok {
		return nil
	}
	return sortedIDs(n.UsedBy)
}

func sortedIDs(set map[model.NodeID]bool) []model.NodeID {
	out := make([]model.NodeID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Stats summarizes the built graph.
type Stats struct {
	TotalNodes int
	TotalEdges int
	ByKind     map[model.EdgeKind]int
}

// Stats returns node and per-kind edge counts.
func (g *Graph) Stats() Stats {
	s := Stats{
		TotalNodes: len(g.Nodes),
		ByKind:     make(map[model.EdgeKind]int, len(g.Edges)),
	}
	for kind, edges := range g.Edges {
		s.ByKind[kind] = len(edges)
		s.TotalEdges += len(edges)
	}
	return s
}
