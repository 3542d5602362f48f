package memory

import (
	"encoding/json"
	"fmt"
	"math"
)

// LogData is the persisted form of an InteractionLog.
type LogData struct {
	Records []Record `json:"records" yaml:"records"`
	MaxSize int      `json:"max_size" yaml:"max_size"`
}

// GraphData is the persisted form of a ConceptGraph. Nodes keep creation order and
// each neighbor list keeps first-link order.
type GraphData struct {
	Nodes []NodeData `json:"nodes" yaml:"nodes"`
}

type NodeData struct {
	Concept   string     `json:"concept" yaml:"concept"`
	Strength  float64    `json:"strength" yaml:"strength"`
	Neighbors []Neighbor `json:"neighbors" yaml:"neighbors"`
}

// ImportStatus lists what had to be dropped or defaulted while importing.
// An empty status means the data was taken verbatim.
type ImportStatus struct {
	Problems []string
}

func (s ImportStatus) OK() bool { return len(s.Problems) == 0 }

func (s *ImportStatus) problem(format string, args ...any) {
	s.Problems = append(s.Problems, fmt.Sprintf(format, args...))
}

// Merge appends the problems of o.
func (s *ImportStatus) Merge(o ImportStatus) {
	s.Problems = append(s.Problems, o.Problems...)
}

// ParseLogData converts a generically decoded document (JSON or YAML decoded into
// `any`) into LogData. A document that is not an object or whose records are not a
// list yields an empty log. Records that are not objects are skipped and missing
// record fields take their zero value.
func ParseLogData(v any) (LogData, ImportStatus) {
	var st ImportStatus
	m, ok := asMap(v)
	if !ok {
		st.problem("log: document is %T, not an object", v)
		return LogData{}, st
	}
	var data LogData
	if n, ok := asInt(m["max_size"]); ok {
		data.MaxSize = int(n)
	} else {
		st.problem("log: max_size missing or not a number")
	}
	raw, ok := m["records"].([]any)
	if !ok {
		if m["records"] != nil {
			st.problem("log: records is %T, not a list", m["records"])
		}
		return data, st
	}
	data.Records = make([]Record, 0, len(raw))
	for i, item := range raw {
		rm, ok := asMap(item)
		if !ok {
			st.problem("log: record %d is %T, skipped", i, item)
			continue
		}
		var rec Record
		if id, ok := asInt(rm["id"]); ok && id > 0 {
			rec.ID = RecordID(id)
		}
		if text, ok := rm["text"].(string); ok {
			rec.Text = text
		} else {
			st.problem("log: record %d has no text", i)
		}
		if ts, ok := asInt(rm["timestamp"]); ok {
			rec.Timestamp = ts
		} else {
			st.problem("log: record %d has no timestamp", i)
		}
		rec.Concepts = asStrings(rm["concepts"])
		data.Records = append(data.Records, rec)
	}
	return data, st
}

// ParseGraphData converts a generically decoded document into GraphData. Anything
// that is not an object with a list of nodes yields an empty graph.
func ParseGraphData(v any) (GraphData, ImportStatus) {
	var st ImportStatus
	m, ok := asMap(v)
	if !ok {
		st.problem("graph: document is %T, not an object", v)
		return GraphData{}, st
	}
	raw, ok := m["nodes"].([]any)
	if !ok {
		if m["nodes"] != nil {
			st.problem("graph: nodes is %T, not a list", m["nodes"])
		}
		return GraphData{}, st
	}
	data := GraphData{Nodes: make([]NodeData, 0, len(raw))}
	for i, item := range raw {
		nm, ok := asMap(item)
		if !ok {
			st.problem("graph: node %d is %T, skipped", i, item)
			continue
		}
		concept, _ := nm["concept"].(string)
		nd := NodeData{Concept: concept, Strength: BaseStrength}
		if s, ok := asFloat(nm["strength"]); ok {
			nd.Strength = s
		} else {
			st.problem("graph: node %q has no strength, using %v", concept, BaseStrength)
		}
		edges, _ := nm["neighbors"].([]any)
		for _, e := range edges {
			em, ok := asMap(e)
			if !ok {
				continue
			}
			other, _ := em["concept"].(string)
			w, ok := asFloat(em["weight"])
			if other == "" || !ok {
				st.problem("graph: malformed edge on %q skipped", concept)
				continue
			}
			nd.Neighbors = append(nd.Neighbors, Neighbor{Concept: other, Weight: w})
		}
		data.Nodes = append(data.Nodes, nd)
	}
	return data, st
}

// AsObject reports whether v is a decoded object and returns it with string keys.
// Both encoding/json (map[string]any) and YAML (map[any]any) shapes are accepted.
func AsObject(v any) (map[string]any, bool) { return asMap(v) }

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}

func asFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	return f, !math.IsNaN(f) && !math.IsInf(f, 0)
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	f, ok := asFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func asStrings(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
