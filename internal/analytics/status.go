// Package analytics turns memory state and the exchange journal into reports.
package analytics

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"concept-memory/internal/engine"
	"concept-memory/internal/memory"
)

// Graph is the read side of a concept graph.
type Graph interface {
	Concepts() []string
	Strength(concept string) (float64, bool)
	NeighborsOf(concept string) []memory.Neighbor
}

type ConceptStrength struct {
	Concept  string  `json:"concept"`
	Strength float64 `json:"strength"`
	Degree   int     `json:"degree"`
}

// TopConcepts ranks the nodes of g by strength, then degree, then name.
// n <= 0 returns every node.
func TopConcepts(g Graph, n int) []ConceptStrength {
	names := g.Concepts()
	out := make([]ConceptStrength, 0, len(names))
	for _, c := range names {
		s, _ := g.Strength(c)
		out = append(out, ConceptStrength{Concept: c, Strength: s, Degree: len(g.NeighborsOf(c))})
	}
	slices.SortFunc(out, func(a, b ConceptStrength) int {
		if c := cmp.Compare(b.Strength, a.Strength); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Degree, a.Degree); c != 0 {
			return c
		}
		return strings.Compare(a.Concept, b.Concept)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Summarize renders the status report of one memory.
func Summarize(st engine.Stats, top []ConceptStrength) string {
	var b strings.Builder
	b.WriteString("SYSTEM STATUS\n")
	fmt.Fprintf(&b, "session: %s\n", st.SessionID)
	fmt.Fprintf(&b, "memory: %d/%d records (%s)\n", st.Records, st.MaxSize, st.Density)
	fmt.Fprintf(&b, "unique concepts: %d\n", st.UniqueConcepts)
	fmt.Fprintf(&b, "network: %d nodes, %d links\n", st.Nodes, st.Edges)
	fmt.Fprintf(&b, "learning rate: %.2f\n", st.LearningRate)
	fmt.Fprintf(&b, "novelty: %.0f%%\n", st.Novelty*100)
	if len(top) > 0 {
		b.WriteString("strongest concepts:\n")
		for _, c := range top {
			fmt.Fprintf(&b, "- %s (%.2f, %d links)\n", c.Concept, c.Strength, c.Degree)
		}
	}
	return b.String()
}
