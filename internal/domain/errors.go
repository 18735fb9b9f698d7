package domain

import "errors"

var (
	// ErrInvalidConfig signals a configuration problem detected at startup.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrConnectivity signals that the index backend could not be reached.
	ErrConnectivity = errors.New("index backend unreachable")
	// ErrEmptyVocabulary signals that a document produced no countable terms.
	ErrEmptyVocabulary = errors.New("empty vocabulary")
	// ErrNoProgress signals a batch in which no update could be written.
	ErrNoProgress = errors.New("no progress")
)

// Field names used on indexed documents.
const (
	FieldContent     = "content"
	FieldTags        = "tags"
	FieldLastTagged  = "lastTagged"
	FieldLastIndexed = "lastIndexed"
)
