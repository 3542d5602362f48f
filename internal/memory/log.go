package memory

import (
	"slices"
)

// DefaultMaxSize is the capacity used when a log is created with a non-positive size.
const DefaultMaxSize = 1000

// RecordID identifies a record for the lifetime of a log. IDs grow with every insertion.
type RecordID uint64

// Record is one logged exchange. Records are immutable once appended.
type Record struct {
	ID        RecordID `json:"id" yaml:"id"`
	Text      string   `json:"text" yaml:"text"`
	Concepts  []string `json:"concepts" yaml:"concepts"`
	Timestamp int64    `json:"timestamp" yaml:"timestamp"`
}

func (r Record) clone() Record {
	r.Concepts = append([]string{}, r.Concepts...)
	return r
}

// LogStats is the aggregate view returned by Stats.
type LogStats struct {
	Count          int `json:"count"`
	UniqueConcepts int `json:"unique_concepts"`
}

// InteractionLog keeps the most recent records up to maxSize together with an
// index from concept to the records that mention it.
//
// The index stores insertion ordinals rather than slice positions. The record at
// slice position p has ordinal base+p, so evicting the head only advances base and
// every remaining ordinal keeps pointing at the same record.
//
// InteractionLog is not safe for concurrent use.
type InteractionLog struct {
	maxSize int
	records []Record
	index   map[string][]uint64
	base    uint64
	nextID  RecordID
}

func NewInteractionLog(maxSize int) *InteractionLog {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &InteractionLog{
		maxSize: maxSize,
		index:   make(map[string][]uint64),
		nextID:  1,
	}
}

func (l *InteractionLog) MaxSize() int { return l.maxSize }

func (l *InteractionLog) Size() int { return len(l.records) }

// Record appends a new interaction and evicts the oldest one if the log is full.
// Concepts are stored as given; duplicates only count once in the index.
func (l *InteractionLog) Record(text string, concepts []string, timestamp int64) RecordID {
	rec := Record{
		ID:        l.nextID,
		Text:      text,
		Concepts:  append([]string{}, concepts...),
		Timestamp: timestamp,
	}
	l.nextID++
	l.append(rec)
	for len(l.records) > l.maxSize {
		l.evictOldest()
	}
	return rec.ID
}

func (l *InteractionLog) append(rec Record) {
	ord := l.base + uint64(len(l.records))
	l.records = append(l.records, rec)
	for _, c := range uniq(rec.Concepts) {
		l.index[c] = append(l.index[c], ord)
	}
}

func (l *InteractionLog) evictOldest() {
	old := l.records[0]
	for _, c := range uniq(old.Concepts) {
		ords := l.index[c]
		if i := slices.Index(ords, l.base); i >= 0 {
			ords = slices.Delete(ords, i, i+1)
		}
		if len(ords) == 0 {
			delete(l.index, c)
		} else {
			l.index[c] = ords
		}
	}
	l.records[0] = Record{}
	l.records = l.records[1:]
	l.base++
}

// RelatedTo returns every retained record mentioning at least one of the given
// concepts, most recent first and without duplicates.
func (l *InteractionLog) RelatedTo(concepts []string) []Record {
	seen := make(map[uint64]struct{})
	var ords []uint64
	for _, c := range concepts {
		for _, ord := range l.index[c] {
			if _, ok := seen[ord]; ok {
				continue
			}
			seen[ord] = struct{}{}
			ords = append(ords, ord)
		}
	}
	slices.Sort(ords)
	out := make([]Record, 0, len(ords))
	for i := len(ords) - 1; i >= 0; i-- {
		out = append(out, l.records[ords[i]-l.base].clone())
	}
	return out
}

// Recent returns up to n of the newest records, most recent first.
func (l *InteractionLog) Recent(n int) []Record {
	if n <= 0 {
		return []Record{}
	}
	n = min(n, len(l.records))
	out := make([]Record, 0, n)
	for i := len(l.records) - 1; i >= len(l.records)-n; i-- {
		out = append(out, l.records[i].clone())
	}
	return out
}

// Mentions reports how many retained records mention concept.
func (l *InteractionLog) Mentions(concept string) int { return len(l.index[concept]) }

func (l *InteractionLog) Stats() LogStats {
	return LogStats{Count: len(l.records), UniqueConcepts: len(l.index)}
}

// Clear drops every record and index entry. The capacity is kept.
func (l *InteractionLog) Clear() {
	l.records = nil
	l.index = make(map[string][]uint64)
	l.base = 0
}

// Export returns the retained records in insertion order. The index is not part of
// the exported form; Import rebuilds it.
func (l *InteractionLog) Export() LogData {
	recs := make([]Record, 0, len(l.records))
	for _, r := range l.records {
		recs = append(recs, r.clone())
	}
	return LogData{Records: recs, MaxSize: l.maxSize}
}

// Import replaces the whole state with data and rebuilds the concept index by
// replaying the records. A non-positive MaxSize falls back to DefaultMaxSize and
// records beyond capacity are dropped oldest first.
func (l *InteractionLog) Import(data LogData) ImportStatus {
	var st ImportStatus
	maxSize := data.MaxSize
	if maxSize <= 0 {
		st.problem("log: maxSize %d invalid, using %d", data.MaxSize, DefaultMaxSize)
		maxSize = DefaultMaxSize
	}
	recs := data.Records
	if over := len(recs) - maxSize; over > 0 {
		st.problem("log: %d records exceed capacity %d, dropping oldest", len(recs), maxSize)
		recs = recs[over:]
	}

	l.maxSize = maxSize
	l.Clear()
	l.nextID = 1
	for _, r := range recs {
		r = r.clone()
		if r.ID < l.nextID {
			r.ID = l.nextID
		}
		l.nextID = r.ID + 1
		l.append(r)
	}
	return st
}

// uniq returns the distinct values of in, keeping first occurrences.
func uniq(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
