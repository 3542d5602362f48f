// Package engine binds one interaction log and one concept graph into the memory
// of a single conversation: it extracts concepts from incoming text, records the
// exchange, reinforces co-occurring concepts and answers the queries a reply
// builder needs.
package engine

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"concept-memory/internal/concepts"
	"concept-memory/internal/memory"
)

const (
	DefaultLearningRate = 1.24
	DefaultSeedWeight   = 0.5

	// replyGain is the strength gain used by Learn.
	replyGain = 0.01

	adaptiveBase  = 0.8
	adaptiveBoost = 0.3
	adaptiveMax   = 1.5

	noveltyWindow = 3
)

type Options struct {
	MaxSize      int
	LearningRate float64
	StrengthGain float64
	// Adaptive derives the learning rate from the novelty of recent records.
	Adaptive     bool
	StopWords    []string
	SeedConcepts []string
	SeedWeight   float64
}

func (o Options) withDefaults() Options {
	if o.MaxSize <= 0 {
		o.MaxSize = memory.DefaultMaxSize
	}
	if o.LearningRate <= 0 {
		o.LearningRate = DefaultLearningRate
	}
	if o.StrengthGain <= 0 {
		o.StrengthGain = memory.DefaultStrengthGain
	}
	if o.SeedWeight <= 0 {
		o.SeedWeight = DefaultSeedWeight
	}
	return o
}

// Engine is not safe for concurrent use; see sessions.Manager for a guarded pool.
type Engine struct {
	opts      Options
	log       *memory.InteractionLog
	graph     *memory.ConceptGraph
	extractor *concepts.Extractor
	logger    *zap.Logger
	now       func() time.Time

	sessionID string
	rate      float64
	lastTS    int64
}

func New(opts Options, logger *zap.Logger) *Engine {
	opts = opts.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		opts:      opts,
		log:       memory.NewInteractionLog(opts.MaxSize),
		graph:     memory.NewConceptGraph(opts.StrengthGain),
		extractor: concepts.New(opts.StopWords),
		logger:    logger,
		now:       time.Now,
		sessionID: uuid.NewString(),
		rate:      opts.LearningRate,
	}
	e.seed()
	return e
}

func (e *Engine) seed() {
	if len(e.opts.SeedConcepts) > 0 {
		e.graph.Seed(e.opts.SeedConcepts, e.opts.SeedWeight)
	}
}

func (e *Engine) SessionID() string { return e.sessionID }

func (e *Engine) Log() *memory.InteractionLog { return e.log }

func (e *Engine) Graph() *memory.ConceptGraph { return e.graph }

// Extract runs the concept extractor without touching memory.
func (e *Engine) Extract(text string) []string { return e.extractor.Extract(text) }

// Observation describes what Observe did with one input.
type Observation struct {
	ID           memory.RecordID
	Concepts     []string
	Links        []ConceptLink
	Relevance    float64
	LearningRate float64
}

// Observe records text with its concepts and reinforces them together.
func (e *Engine) Observe(text string) Observation {
	cs := e.extractor.Extract(text)
	rate := e.LearningRate()
	id := e.log.Record(text, cs, e.nextTimestamp())
	e.graph.Reinforce(cs, rate)
	return Observation{
		ID:           id,
		Concepts:     cs,
		Links:        e.ConceptLinks(cs, 0),
		Relevance:    e.ContextualStrength(cs),
		LearningRate: rate,
	}
}

// Learn slightly strengthens already known concepts, typically those of a reply.
func (e *Engine) Learn(cs []string) {
	e.graph.Strengthen(cs, e.LearningRate(), replyGain)
}

func (e *Engine) nextTimestamp() int64 {
	ts := e.now().UnixMilli()
	if ts <= e.lastTS {
		ts = e.lastTS + 1
	}
	e.lastTS = ts
	return ts
}

// LearningRate is the configured rate, or a novelty driven one in adaptive mode.
func (e *Engine) LearningRate() float64 {
	if !e.opts.Adaptive {
		return e.rate
	}
	return min(adaptiveMax, adaptiveBase+adaptiveBoost*e.NoveltyScore())
}

// ConceptLink groups the neighbors of one concept.
type ConceptLink struct {
	Concept     string
	Related     []string
	MaxStrength float64
}

// ConceptLinks returns, for each known concept with neighbors, its related
// concepts strongest first. Links are ordered by their strongest edge. limit caps
// the related list; zero or less keeps all.
func (e *Engine) ConceptLinks(cs []string, limit int) []ConceptLink {
	var links []ConceptLink
	seen := make(map[string]bool, len(cs))
	for _, c := range cs {
		if seen[c] {
			continue
		}
		seen[c] = true
		ns := e.graph.NeighborsOf(c)
		if len(ns) == 0 {
			continue
		}
		if limit > 0 && len(ns) > limit {
			ns = ns[:limit]
		}
		link := ConceptLink{Concept: c, MaxStrength: ns[0].Weight}
		for _, n := range ns {
			link.Related = append(link.Related, n.Concept)
		}
		links = append(links, link)
	}
	slices.SortStableFunc(links, func(a, b ConceptLink) int {
		return cmp.Compare(b.MaxStrength, a.MaxStrength)
	})
	return links
}

// ContextualStrength is the mean number of retained records mentioning each concept.
func (e *Engine) ContextualStrength(cs []string) float64 {
	if len(cs) == 0 {
		return 0
	}
	total := 0
	for _, c := range cs {
		total += e.log.Mentions(c)
	}
	return float64(total) / float64(len(cs))
}

// NoveltyScore is the share of concepts in the last few records that were
// mentioned at most once. With too little history everything is novel.
func (e *Engine) NoveltyScore() float64 {
	recent := e.log.Recent(noveltyWindow)
	if len(recent) < noveltyWindow {
		return 1
	}
	fresh, total := 0, 0
	for _, r := range recent {
		for _, c := range r.Concepts {
			total++
			if e.log.Mentions(c) <= 1 {
				fresh++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(fresh) / float64(total)
}

type Stats struct {
	SessionID      string
	Records        int
	MaxSize        int
	UniqueConcepts int
	Nodes          int
	Edges          int
	LearningRate   float64
	Novelty        float64
	Density        string
}

func (e *Engine) Stats() Stats {
	ls := e.log.Stats()
	nodes, edges := e.graph.Counts()
	return Stats{
		SessionID:      e.sessionID,
		Records:        ls.Count,
		MaxSize:        e.log.MaxSize(),
		UniqueConcepts: ls.UniqueConcepts,
		Nodes:          nodes,
		Edges:          edges,
		LearningRate:   e.LearningRate(),
		Novelty:        e.NoveltyScore(),
		Density:        Density(ls.Count),
	}
}

// Density renders a count as 950, 12K or 3M.
func Density(n int) string {
	switch {
	case n < 1000:
		return fmt.Sprintf("%d", n)
	case n < 1000000:
		return fmt.Sprintf("%dK", n/1000)
	default:
		return fmt.Sprintf("%dM", n/1000000)
	}
}

// Forget wipes the log and the graph, then applies the seed concepts again.
func (e *Engine) Forget() {
	e.log.Clear()
	e.graph.Reset()
	e.seed()
	e.logger.Info("memory wiped", zap.String("session", e.sessionID))
}
