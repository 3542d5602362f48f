package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concept-memory/internal/engine"
	"concept-memory/internal/memory"
)

func TestTopConcepts(t *testing.T) {
	g := memory.NewConceptGraph(0)
	g.Reinforce([]string{"a", "b"}, 1)
	g.Reinforce([]string{"a", "c"}, 1)
	g.Reinforce([]string{"d"}, 1)

	top := TopConcepts(g, 0)
	require.Len(t, top, 4)
	assert.Equal(t, "a", top[0].Concept)
	assert.InDelta(t, 1.2, top[0].Strength, 1e-9)
	assert.Equal(t, 2, top[0].Degree)
	// b, c and d share a strength: more links first, then by name
	assert.Equal(t, []string{"b", "c", "d"}, []string{top[1].Concept, top[2].Concept, top[3].Concept})
	assert.Zero(t, top[3].Degree)

	assert.Len(t, TopConcepts(g, 2), 2)
	assert.Empty(t, TopConcepts(memory.NewConceptGraph(0), 5))
}

func TestSummarize(t *testing.T) {
	st := engine.Stats{
		SessionID:      "b7f7c8a2-0f0e-4f55-9d9a-0c1d1f6f2a11",
		Records:        12,
		MaxSize:        1000,
		UniqueConcepts: 9,
		Nodes:          9,
		Edges:          14,
		LearningRate:   1.24,
		Novelty:        0.5,
		Density:        "12",
	}
	out := Summarize(st, []ConceptStrength{{Concept: "grid", Strength: 1.5, Degree: 4}})

	for _, want := range []string{
		"SYSTEM STATUS",
		"session: b7f7c8a2",
		"memory: 12/1000 records (12)",
		"network: 9 nodes, 14 links",
		"learning rate: 1.24",
		"novelty: 50%",
		"- grid (1.50, 4 links)",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, Summarize(st, nil), "strongest concepts")
}
