package tagging

import (
	"fmt"

	"github.com/kailas-cloud/doctagger/internal/domain"
)

// MaxTopWords bounds the number of topic terms kept per document.
const MaxTopWords = 30

// Default extraction parameters.
const (
	DefaultMaxFeatures    = 1000
	DefaultMaxIter        = 1000
	DefaultLearningOffset = 50
	DefaultTopWords       = 10
)

// Params configures topic extraction for a single document.
type Params struct {
	MaxFeatures    int     // vocabulary cap
	MaxIter        int     // iteration cap
	LearningOffset float64 // down-weights early online iterations
	TopWords       int     // number of terms returned
	Seed           uint64  // random seed; fixed seed gives deterministic tags
}

// DefaultParams returns the default extraction parameters.
func DefaultParams() Params {
	return Params{
		MaxFeatures:    DefaultMaxFeatures,
		MaxIter:        DefaultMaxIter,
		LearningOffset: DefaultLearningOffset,
		TopWords:       DefaultTopWords,
	}
}

// Validate checks parameter bounds.
func (p Params) Validate() error {
	if p.MaxFeatures <= 0 {
		return fmt.Errorf("max_features must be positive, got %d: %w", p.MaxFeatures, domain.ErrInvalidConfig)
	}
	if p.MaxIter <= 0 {
		return fmt.Errorf("max_iter must be positive, got %d: %w", p.MaxIter, domain.ErrInvalidConfig)
	}
	if p.LearningOffset <= 0 {
		return fmt.Errorf("learning_offset must be positive, got %g: %w", p.LearningOffset, domain.ErrInvalidConfig)
	}
	if p.TopWords < 0 || p.TopWords > MaxTopWords {
		return fmt.Errorf("top_words must be between 0 and %d, got %d: %w", MaxTopWords, p.TopWords, domain.ErrInvalidConfig)
	}
	return nil
}

// NoTerms is the tag result stored for documents without content.
// Kept as a single empty string for compatibility with existing readers.
func NoTerms() []string { return []string{""} }

// Update is a pending partial write of tags and lastTagged onto one document.
type Update struct {
	ID         string
	Index      string
	Tags       []string
	LastTagged int64
}

// Patch returns the partial document written by the update.
func (u Update) Patch() map[string]any {
	tags := u.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		domain.FieldTags:       tags,
		domain.FieldLastTagged: u.LastTagged,
	}
}
