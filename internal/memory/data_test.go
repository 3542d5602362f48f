package memory

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// viaText mimics a persistence shim: encode to text, then decode generically.
func viaText(t *testing.T, v any) any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func populated() (*InteractionLog, *ConceptGraph) {
	l := NewInteractionLog(4)
	g := NewConceptGraph(0)
	batches := [][]string{
		{"grid", "program"},
		{"grid", "user"},
		{"light", "cycle", "grid"},
		{},
		{"user", "user", "program"},
		{"disc"},
	}
	for i, b := range batches {
		l.Record(fmt.Sprintf("message %d", i), b, int64(1000+i))
		g.Reinforce(b, 1.24/float64(i+1))
	}
	return l, g
}

func TestRoundTrip_ThroughText(t *testing.T) {
	l, g := populated()

	logDoc := viaText(t, l.Export())
	graphDoc := viaText(t, g.Export())

	ld, st := ParseLogData(logDoc)
	require.True(t, st.OK(), st.Problems)
	gd, st := ParseGraphData(graphDoc)
	require.True(t, st.OK(), st.Problems)

	l2 := NewInteractionLog(1)
	g2 := NewConceptGraph(0)
	require.True(t, l2.Import(ld).OK())
	require.True(t, g2.Import(gd).OK())

	first, err := json.Marshal(struct {
		Log   LogData   `json:"log"`
		Graph GraphData `json:"graph"`
	}{l.Export(), g.Export()})
	require.NoError(t, err)
	second, err := json.Marshal(struct {
		Log   LogData   `json:"log"`
		Graph GraphData `json:"graph"`
	}{l2.Export(), g2.Export()})
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	for _, c := range []string{"grid", "user", "program", "disc", "light", "none"} {
		assert.Equal(t, texts(l.RelatedTo([]string{c})), texts(l2.RelatedTo([]string{c})), c)
		assert.Equal(t, g.NeighborsOf(c), g2.NeighborsOf(c), c)
	}
	assert.Equal(t, l.Recent(10), l2.Recent(10))
	assert.Equal(t, l.Stats(), l2.Stats())
	n1, e1 := g.Counts()
	n2, e2 := g2.Counts()
	assert.Equal(t, n1, n2)
	assert.Equal(t, e1, e2)
}

func TestRoundTrip_FloatPrecision(t *testing.T) {
	g := NewConceptGraph(0)
	g.Reinforce([]string{"a", "b"}, 0.1)
	g.Reinforce([]string{"a", "b"}, 0.2)
	g.Reinforce([]string{"a", "b"}, 1.0/3)

	gd, st := ParseGraphData(viaText(t, g.Export()))
	require.True(t, st.OK())
	h := NewConceptGraph(0)
	h.Import(gd)

	assert.Equal(t, g.NeighborsOf("a")[0].Weight, h.NeighborsOf("a")[0].Weight)
	s1, _ := g.Strength("b")
	s2, _ := h.Strength("b")
	assert.Equal(t, s1, s2)
}

func TestParseLogData_Malformed(t *testing.T) {
	cases := map[string]any{
		"nil":          nil,
		"string":       "memories",
		"list":         []any{1, 2},
		"records-map":  map[string]any{"records": map[string]any{}, "max_size": 10.0},
		"records-text": map[string]any{"records": "oops"},
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			data, st := ParseLogData(doc)
			assert.False(t, st.OK())
			assert.Empty(t, data.Records)

			l := NewInteractionLog(5)
			l.Record("old", []string{"x"}, 1)
			l.Import(data)
			assert.Zero(t, l.Size())
			assert.Empty(t, l.RelatedTo([]string{"x"}))
		})
	}
}

func TestParseLogData_PerFieldDefaults(t *testing.T) {
	doc := map[string]any{
		"records": []any{
			map[string]any{"text": "kept", "concepts": []any{"a", 7, "b"}, "timestamp": 5.0},
			"garbage",
			map[string]any{"concepts": []any{"c"}},
		},
	}
	data, st := ParseLogData(doc)
	// max_size, record 1 type, record 2 text and timestamp
	assert.Len(t, st.Problems, 4)
	require.Len(t, data.Records, 2)
	assert.Equal(t, []string{"a", "b"}, data.Records[0].Concepts)
	assert.Equal(t, int64(5), data.Records[0].Timestamp)
	assert.Equal(t, "", data.Records[1].Text)

	l := NewInteractionLog(1)
	l.Import(data)
	assert.Equal(t, DefaultMaxSize, l.MaxSize())
	assert.Equal(t, 2, l.Size())
	assert.Len(t, l.RelatedTo([]string{"c", "a"}), 2)
}

func TestParseLogData_AcceptsIntegerTypes(t *testing.T) {
	doc := map[any]any{
		"max_size": 3,
		"records": []any{
			map[any]any{"id": int64(7), "text": "t", "concepts": []any{"k"}, "timestamp": uint64(9)},
		},
	}
	data, st := ParseLogData(doc)
	require.True(t, st.OK(), st.Problems)
	assert.Equal(t, 3, data.MaxSize)
	assert.Equal(t, RecordID(7), data.Records[0].ID)
	assert.Equal(t, int64(9), data.Records[0].Timestamp)
}

func TestParseLogData_JSONNumbers(t *testing.T) {
	doc := map[string]any{
		"max_size": json.Number("1e1"),
		"records": []any{
			map[string]any{"id": json.Number("2"), "text": "t", "timestamp": json.Number("9007199254740993")},
		},
	}
	data, st := ParseLogData(doc)
	require.True(t, st.OK(), st.Problems)
	assert.Equal(t, 10, data.MaxSize)
	assert.Equal(t, RecordID(2), data.Records[0].ID)
	assert.Equal(t, int64(1<<53+1), data.Records[0].Timestamp)
}

func TestParseGraphData_NonFiniteValues(t *testing.T) {
	data, st := ParseGraphData(map[string]any{"nodes": []any{
		map[string]any{"concept": "a", "strength": float32(math.NaN()), "neighbors": []any{
			map[string]any{"concept": "b", "weight": float32(math.Inf(1))},
		}},
		map[string]any{"concept": "b", "strength": json.Number("NaN")},
	}})
	assert.Len(t, st.Problems, 3)
	require.Len(t, data.Nodes, 2)
	assert.Equal(t, BaseStrength, data.Nodes[0].Strength)
	assert.Equal(t, BaseStrength, data.Nodes[1].Strength)
	assert.Empty(t, data.Nodes[0].Neighbors)
}

func TestParseGraphData_Malformed(t *testing.T) {
	for _, doc := range []any{nil, 3.5, map[string]any{"nodes": "x"}} {
		data, st := ParseGraphData(doc)
		assert.False(t, st.OK())
		assert.Empty(t, data.Nodes)
	}

	data, st := ParseGraphData(map[string]any{"nodes": []any{
		map[string]any{"concept": "a", "neighbors": []any{
			map[string]any{"concept": "b", "weight": "heavy"},
			map[string]any{"concept": "b", "weight": 2.0},
		}},
		map[string]any{"concept": "b", "strength": 1.5},
		false,
	}})
	assert.Len(t, st.Problems, 3)
	require.Len(t, data.Nodes, 2)
	assert.Equal(t, BaseStrength, data.Nodes[0].Strength)
	assert.Equal(t, []Neighbor{{"b", 2}}, data.Nodes[0].Neighbors)

	g := NewConceptGraph(0)
	g.Import(data)
	assert.Equal(t, []Neighbor{{"a", 2}}, g.NeighborsOf("b"))
}
