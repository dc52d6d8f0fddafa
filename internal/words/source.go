// Package words supplies the secret word for each round and the hint list the
// impostor receives for it.
package words

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Entry is one dictionary word with optional hint metadata.
type Entry struct {
	Word          string   `json:"word"`
	Hints         []string `json:"hints,omitempty"`
	Hypernyms     []string `json:"hypernyms,omitempty"`
	Collocations  []string `json:"collocations,omitempty"`
	FuzzySynonyms []string `json:"fuzzy_synonyms,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
}

// Fallback is used when no dictionary file can be loaded.
var Fallback = []string{
	"cat", "dog", "house", "tree", "table", "chair", "flower",
	"book", "computer", "phone", "car", "bicycle", "guitar",
	"piano", "painting", "lamp", "window", "door", "wall", "floor",
}

// Source is an immutable dictionary. It is safe for concurrent use.
type Source struct {
	words []string
	hints map[string][]string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSource builds a source from entries. Empty words are skipped; an empty
// result falls back to the built-in list.
func NewSource(entries []Entry) *Source {
	s := &Source{
		hints: make(map[string][]string),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, e := range entries {
		if e.Word == "" {
			continue
		}
		s.words = append(s.words, e.Word)
		if hints := e.hintList(); len(hints) > 0 {
			s.hints[e.Word] = hints
		}
	}
	if len(s.words) == 0 {
		s.words = append([]string(nil), Fallback...)
	}
	return s
}

// FromWords builds a source without hint metadata.
func FromWords(list []string) *Source {
	entries := make([]Entry, 0, len(list))
	for _, w := range list {
		entries = append(entries, Entry{Word: w})
	}
	return NewSource(entries)
}

// RandomWord returns a uniformly drawn word.
func (s *Source) RandomWord() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.words[s.rng.Intn(len(s.words))]
}

// Hints returns the ordered hints for word, or nil.
func (s *Source) Hints(word string) []string {
	hints := s.hints[word]
	if hints == nil {
		return nil
	}
	return append([]string(nil), hints...)
}

// Len returns the number of words.
func (s *Source) Len() int {
	return len(s.words)
}

// hintList returns explicit hints, or derives them from the semantic fields:
// categories first, then collocates, then one near-synonym.
func (e Entry) hintList() []string {
	if len(e.Hints) > 0 {
		return e.Hints
	}

	var hints []string
	for _, h := range e.Hypernyms {
		hints = append(hints, "Category: "+h)
	}
	if len(e.Collocations) > 0 {
		colloc := e.Collocations
		if len(colloc) > 3 {
			colloc = colloc[:3]
		}
		hints = append(hints, "Often with: "+strings.Join(colloc, ", "))
	}
	if len(e.FuzzySynonyms) > 0 {
		hints = append(hints, "Similar to: "+e.FuzzySynonyms[0])
	}
	return hints
}
