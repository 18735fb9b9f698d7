package stopword

import (
	"sort"
	"strings"
)

// Set is an immutable, deduplicated set of lowercase stopwords.
type Set struct {
	words map[string]struct{}
}

// NewSet builds a Set from the given words, lowercasing and dropping empty entries.
func NewSet(words ...string) Set {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		m[w] = struct{}{}
	}
	return Set{words: m}
}

// Union returns a new Set containing the words of both sets.
func (s Set) Union(other Set) Set {
	m := make(map[string]struct{}, len(s.words)+len(other.words))
	for w := range s.words {
		m[w] = struct{}{}
	}
	for w := range other.words {
		m[w] = struct{}{}
	}
	return Set{words: m}
}

// Contains reports whether word is a stopword. The caller lowercases.
func (s Set) Contains(word string) bool {
	_, ok := s.words[word]
	return ok
}

// Len returns the number of stopwords.
func (s Set) Len() int { return len(s.words) }

// Sorted returns all stopwords in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
