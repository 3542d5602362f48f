package memory

import (
	"cmp"
	"math"
	"slices"
)

const (
	// BaseStrength is the strength of a concept when it is first seen.
	BaseStrength = 1.0
	// DefaultStrengthGain scales the learning rate applied to node strength.
	DefaultStrengthGain = 0.1
)

// Neighbor is one weighted edge as seen from a concept.
type Neighbor struct {
	Concept string  `json:"concept" yaml:"concept"`
	Weight  float64 `json:"weight" yaml:"weight"`
}

type node struct {
	strength  float64
	neighbors map[string]float64
	order     []string
}

func newNode(strength float64) *node {
	return &node{strength: strength, neighbors: make(map[string]float64)}
}

func (n *node) addWeight(other string, w float64) {
	if _, ok := n.neighbors[other]; !ok {
		n.order = append(n.order, other)
	}
	n.neighbors[other] += w
}

// ConceptGraph is a symmetric weighted co-occurrence graph over concepts.
// Nodes are never evicted. Every A->B weight has an identical B->A weight.
//
// ConceptGraph is not safe for concurrent use.
type ConceptGraph struct {
	gain  float64
	nodes map[string]*node
	order []string
}

// NewConceptGraph creates an empty graph. A non-positive gain falls back to
// DefaultStrengthGain.
func NewConceptGraph(gain float64) *ConceptGraph {
	if gain <= 0 {
		gain = DefaultStrengthGain
	}
	return &ConceptGraph{gain: gain, nodes: make(map[string]*node)}
}

func (g *ConceptGraph) ensure(concept string) *node {
	n, ok := g.nodes[concept]
	if !ok {
		n = newNode(BaseStrength)
		g.nodes[concept] = n
		g.order = append(g.order, concept)
	}
	return n
}

// Reinforce strengthens every concept of the batch by learningRate*gain, creating
// missing nodes first, and adds learningRate to both directions of every pair in
// the batch. learningRate is expected to be positive.
func (g *ConceptGraph) Reinforce(concepts []string, learningRate float64) {
	batch := batchOf(concepts)
	for _, c := range batch {
		g.ensure(c).strength += learningRate * g.gain
	}
	for i := 0; i < len(batch); i++ {
		for j := i + 1; j < len(batch); j++ {
			g.link(batch[i], batch[j], learningRate)
		}
	}
}

// Strengthen raises the strength of concepts already in the graph by
// learningRate*gain. Unknown concepts are ignored and no edges change.
func (g *ConceptGraph) Strengthen(concepts []string, learningRate, gain float64) {
	for _, c := range batchOf(concepts) {
		if n, ok := g.nodes[c]; ok {
			n.strength += learningRate * gain
		}
	}
}

// Seed creates the given concepts at base strength and connects every pair with
// weight. Existing nodes and edges are left untouched.
func (g *ConceptGraph) Seed(concepts []string, weight float64) {
	batch := batchOf(concepts)
	for _, c := range batch {
		g.ensure(c)
	}
	for i := 0; i < len(batch); i++ {
		for j := i + 1; j < len(batch); j++ {
			if _, ok := g.nodes[batch[i]].neighbors[batch[j]]; ok {
				continue
			}
			g.link(batch[i], batch[j], weight)
		}
	}
}

func (g *ConceptGraph) link(a, b string, w float64) {
	g.ensure(a).addWeight(b, w)
	g.ensure(b).addWeight(a, w)
}

// NeighborsOf returns the edges of concept by descending weight, ties broken by
// concept ascending. Unknown concepts yield an empty slice.
func (g *ConceptGraph) NeighborsOf(concept string) []Neighbor {
	n, ok := g.nodes[concept]
	if !ok {
		return []Neighbor{}
	}
	out := make([]Neighbor, 0, len(n.order))
	for _, other := range n.order {
		out = append(out, Neighbor{Concept: other, Weight: n.neighbors[other]})
	}
	slices.SortFunc(out, func(a, b Neighbor) int {
		if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
			return c
		}
		return cmp.Compare(a.Concept, b.Concept)
	})
	return out
}

// Strength returns the strength of concept and whether it exists.
func (g *ConceptGraph) Strength(concept string) (float64, bool) {
	n, ok := g.nodes[concept]
	if !ok {
		return 0, false
	}
	return n.strength, true
}

// Concepts lists every node in creation order.
func (g *ConceptGraph) Concepts() []string { return slices.Clone(g.order) }

func (g *ConceptGraph) NodeCount() int { return len(g.nodes) }

// EdgeCount counts undirected edges once.
func (g *ConceptGraph) EdgeCount() int { return g.adjacency() / 2 }

func (g *ConceptGraph) Counts() (nodes, edges int) { return g.NodeCount(), g.EdgeCount() }

// adjacency is the total size of all neighbor maps. It is always even.
func (g *ConceptGraph) adjacency() int {
	total := 0
	for _, n := range g.nodes {
		total += len(n.neighbors)
	}
	return total
}

// Reset forgets every concept.
func (g *ConceptGraph) Reset() {
	g.nodes = make(map[string]*node)
	g.order = nil
}

// Export returns nodes in creation order with neighbors in first-link order.
func (g *ConceptGraph) Export() GraphData {
	out := GraphData{Nodes: make([]NodeData, 0, len(g.order))}
	for _, c := range g.order {
		n := g.nodes[c]
		nd := NodeData{Concept: c, Strength: n.strength, Neighbors: make([]Neighbor, 0, len(n.order))}
		for _, other := range n.order {
			nd.Neighbors = append(nd.Neighbors, Neighbor{Concept: other, Weight: n.neighbors[other]})
		}
		out.Nodes = append(out.Nodes, nd)
	}
	return out
}

// Import replaces the graph with data. Duplicate or empty concepts, negative
// or non-finite values, self edges and edges to unknown concepts are dropped. Edges listed in
// only one direction are mirrored, and when both directions disagree the larger
// weight wins, so the result is always symmetric.
func (g *ConceptGraph) Import(data GraphData) ImportStatus {
	var st ImportStatus
	g.Reset()
	for _, nd := range data.Nodes {
		if nd.Concept == "" {
			st.problem("graph: node without concept dropped")
			continue
		}
		if _, ok := g.nodes[nd.Concept]; ok {
			st.problem("graph: duplicate node %q dropped", nd.Concept)
			continue
		}
		s := nd.Strength
		if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			st.problem("graph: node %q has invalid strength %v, using %v", nd.Concept, s, BaseStrength)
			s = BaseStrength
		}
		g.ensure(nd.Concept).strength = s
	}

	done := make(map[string]bool, len(g.nodes))
	for _, nd := range data.Nodes {
		from, ok := g.nodes[nd.Concept]
		if !ok || done[nd.Concept] {
			continue
		}
		done[nd.Concept] = true
		for _, e := range nd.Neighbors {
			switch _, known := g.nodes[e.Concept]; {
			case !known:
				st.problem("graph: edge %q->%q to unknown concept dropped", nd.Concept, e.Concept)
				continue
			case e.Concept == nd.Concept:
				st.problem("graph: self edge on %q dropped", nd.Concept)
				continue
			case e.Weight < 0 || math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0):
				st.problem("graph: invalid weight %v on %q->%q dropped", e.Weight, nd.Concept, e.Concept)
				continue
			}
			if cur, dup := from.neighbors[e.Concept]; dup {
				st.problem("graph: duplicate edge %q->%q merged", nd.Concept, e.Concept)
				from.neighbors[e.Concept] = max(cur, e.Weight)
				continue
			}
			from.addWeight(e.Concept, e.Weight)
		}
	}

	for _, c := range g.order {
		n := g.nodes[c]
		for _, other := range n.order {
			w := n.neighbors[other]
			peer := g.nodes[other]
			back, ok := peer.neighbors[c]
			switch {
			case !ok:
				st.problem("graph: one-way edge %q->%q mirrored", c, other)
				peer.addWeight(c, w)
			case back != w:
				st.problem("graph: asymmetric edge %q<->%q repaired", c, other)
				w = max(w, back)
				n.neighbors[other] = w
				peer.neighbors[c] = w
			}
		}
	}
	return st
}

// batchOf deduplicates concepts and drops empty keys.
func batchOf(concepts []string) []string {
	out := make([]string, 0, len(concepts))
	for _, c := range uniq(concepts) {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
