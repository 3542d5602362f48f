package engine

import (
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"concept-memory/internal/memory"
)

// SnapshotVersion is written into every snapshot.
const SnapshotVersion = 1

// Snapshot is the persisted form of an Engine. It contains only ordered lists and
// scalars so it survives a trip through JSON or YAML unchanged.
type Snapshot struct {
	Version      int              `json:"version" yaml:"version"`
	SessionID    string           `json:"session_id" yaml:"session_id"`
	SavedAt      int64            `json:"saved_at" yaml:"saved_at"`
	LearningRate float64          `json:"learning_rate" yaml:"learning_rate"`
	Log          memory.LogData   `json:"log" yaml:"log"`
	Graph        memory.GraphData `json:"graph" yaml:"graph"`
}

func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Version:      SnapshotVersion,
		SessionID:    e.sessionID,
		SavedAt:      e.now().UnixMilli(),
		LearningRate: e.rate,
		Log:          e.log.Export(),
		Graph:        e.graph.Export(),
	}
}

// Restore replaces the engine state with a generically decoded snapshot. It never
// fails: malformed parts fall back to empty state or configured defaults and are
// reported in the returned status.
func (e *Engine) Restore(doc any) memory.ImportStatus {
	var st memory.ImportStatus
	m, ok := memory.AsObject(doc)
	if !ok {
		m = map[string]any{}
		st.Problems = append(st.Problems, "snapshot: document is not an object")
	}

	if v, ok := number(m["version"]); ok && int(v) != SnapshotVersion {
		st.Problems = append(st.Problems, "snapshot: unexpected version")
	}
	if id, ok := m["session_id"].(string); ok {
		if _, err := uuid.Parse(id); err == nil {
			e.sessionID = id
		} else {
			st.Problems = append(st.Problems, "snapshot: invalid session id")
		}
	}
	e.rate = e.opts.LearningRate
	if r, ok := number(m["learning_rate"]); ok && r > 0 {
		e.rate = r
	}

	logData, ls := memory.ParseLogData(m["log"])
	graphData, gs := memory.ParseGraphData(m["graph"])
	if logData.MaxSize <= 0 {
		logData.MaxSize = e.opts.MaxSize
	}
	st.Merge(ls)
	st.Merge(gs)
	st.Merge(e.log.Import(logData))
	st.Merge(e.graph.Import(graphData))

	e.lastTS = 0
	if recent := e.log.Recent(1); len(recent) > 0 {
		e.lastTS = recent[0].Timestamp
	}

	if !st.OK() {
		e.logger.Warn("snapshot restored with problems",
			zap.String("session", e.sessionID),
			zap.Strings("problems", st.Problems))
	}
	return st
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
