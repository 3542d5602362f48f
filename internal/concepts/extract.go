package concepts

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultStopWords are dropped from concepts and break bigrams.
var DefaultStopWords = []string{"the", "and", "a", "an", "is", "are", "i", "you"}

// MinWordLength is the rune count a single word must exceed to become a concept.
const MinWordLength = 3

type Extractor struct {
	stop map[string]struct{}
}

// New builds an extractor. A nil list selects DefaultStopWords.
func New(stopWords []string) *Extractor {
	if stopWords == nil {
		stopWords = DefaultStopWords
	}
	stop := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		stop[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return &Extractor{stop: stop}
}

// Tokenize lowercases text, drops everything that is not a letter, digit,
// underscore or space, and splits on whitespace.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		}
		return -1
	}, text)
	return strings.Fields(cleaned)
}

// Extract returns the distinct concepts of text: long non-stopword tokens first,
// then bigrams of adjacent non-stopword tokens joined by an underscore.
func (e *Extractor) Extract(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens)*2)
	out := make([]string, 0, len(tokens)*2)
	add := func(c string) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	for _, t := range tokens {
		if utf8.RuneCountInString(t) > MinWordLength && !e.isStop(t) {
			add(t)
		}
	}
	for i := 0; i+1 < len(tokens); i++ {
		if !e.isStop(tokens[i]) && !e.isStop(tokens[i+1]) {
			add(tokens[i] + "_" + tokens[i+1])
		}
	}
	return out
}

func (e *Extractor) isStop(w string) bool {
	_, ok := e.stop[w]
	return ok
}
