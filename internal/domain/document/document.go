package document

import (
	"fmt"
	"strings"
)

// Document is an indexed document as seen by the tagger.
// The index owns it; the tagger only reads content and writes tags/lastTagged.
type Document struct {
	id          string
	content     string
	tags        []string
	lastTagged  *int64
	lastIndexed int64
}

// New validates and creates a Document that has never been tagged.
func New(id, content string, lastIndexed int64) (Document, error) {
	if strings.TrimSpace(id) == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	return Document{id: id, content: content, lastIndexed: lastIndexed}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
// A nil lastTagged means the document was never tagged.
func Reconstruct(id, content string, tags []string, lastTagged *int64, lastIndexed int64) Document {
	return Document{id: id, content: content, tags: tags, lastTagged: lastTagged, lastIndexed: lastIndexed}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Content returns the document text content.
func (d *Document) Content() string { return d.content }

// Tags returns the stored topic tags; nil when absent.
func (d *Document) Tags() []string { return d.tags }

// LastTagged returns the last tagging time and whether it is set.
func (d *Document) LastTagged() (int64, bool) {
	if d.lastTagged == nil {
		return 0, false
	}
	return *d.lastTagged, true
}

// LastIndexed returns the insertion/freshness timestamp.
func (d *Document) LastIndexed() int64 { return d.lastIndexed }

// IsUntagged reports whether the document has never been tagged.
func (d *Document) IsUntagged() bool { return d.lastTagged == nil }

// IsStale reports whether the document was tagged before the re-tag threshold.
func (d *Document) IsStale(retagBefore int64) bool {
	return d.lastTagged != nil && *d.lastTagged < retagBefore
}

// NeedsTagging reports whether the document is eligible for (re)processing.
func (d *Document) NeedsTagging(retagBefore int64) bool {
	return d.IsUntagged() || d.IsStale(retagBefore)
}

// Hit is a selected document: its ID and content projection.
type Hit struct {
	ID      string
	Content string
}

// IsBlank reports whether the hit content is empty or whitespace only.
func (h Hit) IsBlank() bool { return strings.TrimSpace(h.Content) == "" }
