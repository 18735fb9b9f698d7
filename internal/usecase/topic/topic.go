// Package topic extracts the top terms of a single-topic LDA model fitted to
// one normalized document.
package topic

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/james-bowman/nlp"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/kailas-cloud/doctagger/internal/domain"
	"github.com/kailas-cloud/doctagger/internal/domain/stopword"
	"github.com/kailas-cloud/doctagger/internal/domain/tagging"
)

//go:embed english_stopwords.txt
var englishStopwordList string

// EnglishStopwords is the generic English stopword list applied when counting terms.
var EnglishStopwords = stopword.NewSet(strings.Fields(englishStopwordList)...)

// minTermRunes drops single-character terms from the vocabulary.
const minTermRunes = 2

// Extractor fits a fresh model per call; it holds no state between documents.
type Extractor struct {
	params tagging.Params
}

// New validates params and creates an Extractor.
func New(params tagging.Params) (*Extractor, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{params: params}, nil
}

// Params returns the extraction parameters.
func (e *Extractor) Params() tagging.Params { return e.params }

// Extract returns up to TopWords terms of normalized text, highest weight first.
// Blank text yields [""]. Text without countable terms returns ErrEmptyVocabulary.
func (e *Extractor) Extract(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return tagging.NoTerms(), nil
	}

	vocab := e.vocabulary(strings.Fields(text))
	if len(vocab) == 0 {
		return nil, domain.ErrEmptyVocabulary
	}
	if e.params.TopWords == 0 {
		return []string{}, nil
	}

	vectoriser := nlp.NewCountVectoriser()
	vectoriser.Vocabulary = make(map[string]int, len(vocab))
	for i, term := range vocab {
		vectoriser.Vocabulary[term] = i
	}

	lda := nlp.NewLatentDirichletAllocation(1)
	lda.Iterations = e.params.MaxIter
	lda.RhoPhi.Tau = e.params.LearningOffset
	lda.Processes = 1
	lda.Rnd = rand.New(rand.NewSource(e.params.Seed))

	tdm, err := vectoriser.Transform(text)
	if err != nil {
		return nil, fmt.Errorf("count terms: %w", err)
	}
	if _, err := lda.FitTransform(tdm); err != nil {
		return nil, fmt.Errorf("fit lda: %w", err)
	}

	return topTerms(vocab, lda, e.params.TopWords)
}

// vocabulary keeps the MaxFeatures most frequent eligible terms (ties
// alphabetical) and returns them sorted alphabetically.
func (e *Extractor) vocabulary(tokens []string) []string {
	counts := make(map[string]int)
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) < minTermRunes || EnglishStopwords.Contains(tok) {
			continue
		}
		counts[tok]++
	}

	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > e.params.MaxFeatures {
		terms = terms[:e.params.MaxFeatures]
	}
	sort.Strings(terms)
	return terms
}

func topTerms(vocab []string, lda *nlp.LatentDirichletAllocation, n int) ([]string, error) {
	components := lda.Components()
	if components == nil {
		return nil, errors.New("lda produced no components")
	}
	rows, cols := components.Dims()
	if rows < 1 || cols != len(vocab) {
		return nil, fmt.Errorf("lda components %dx%d do not match vocabulary of %d", rows, cols, len(vocab))
	}

	weights := mat.Row(nil, 0, components)
	idx := make([]int, cols)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return weights[idx[a]] > weights[idx[b]]
	})

	n = min(n, len(idx))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = vocab[idx[i]]
	}
	return out, nil
}
