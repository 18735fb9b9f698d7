// Package normalize turns raw document text into the lowercase, letters-only,
// stopword-free token stream the topic extractor consumes.
package normalize

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"

	"github.com/kailas-cloud/doctagger/internal/domain/stopword"
)

// clitics are split off the end of a word, longest first.
var clitics = []string{"n't", "'ll", "'re", "'ve", "'s", "'d", "'m"}

// Normalizer is safe for concurrent use; the stopword set is read-only.
type Normalizer struct {
	stop stopword.Set
}

// New creates a Normalizer with the given custom stopwords.
func New(stop stopword.Set) *Normalizer {
	return &Normalizer{stop: stop}
}

// Normalize tokenizes on Unicode word boundaries, splits English clitics,
// lowercases, strips punctuation and symbols, keeps alphabetic tokens that
// are not stopwords, and joins them with single spaces.
func (n *Normalizer) Normalize(text string) string {
	var out []string
	state := -1
	for len(text) > 0 {
		var word string
		word, text, state = uniseg.FirstWordInString(text, state)
		for _, tok := range splitClitic(strings.ToLower(word)) {
			tok = stripPunct(tok)
			if tok == "" || !isAlpha(tok) || n.stop.Contains(tok) {
				continue
			}
			out = append(out, tok)
		}
	}
	return strings.Join(out, " ")
}

// splitClitic splits a trailing clitic off a lowercased word. Typographic
// apostrophes are treated as ASCII ones.
func splitClitic(word string) []string {
	plain := strings.ReplaceAll(word, "’", "'")
	for _, c := range clitics {
		if len(plain) > len(c) && strings.HasSuffix(plain, c) {
			cut := len(plain) - len(c)
			return []string{plain[:cut], plain[cut:]}
		}
	}
	return []string{word}
}

func stripPunct(tok string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, tok)
}

func isAlpha(tok string) bool {
	for _, r := range tok {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
