package document

import (
	"github.com/kailas-cloud/doctagger/internal/db"
	"github.com/kailas-cloud/doctagger/internal/domain"
	domdoc "github.com/kailas-cloud/doctagger/internal/domain/document"
	"github.com/kailas-cloud/doctagger/internal/domain/selection"
	"github.com/kailas-cloud/doctagger/internal/domain/tagging"
)

func toSearchRequest(h selection.Half) db.SearchRequest {
	return db.SearchRequest{
		Index:      h.Index,
		Filter:     h.Filter,
		SortField:  h.SortField,
		Descending: h.Order == selection.Descending,
		Limit:      h.Limit(),
		Fields:     h.Fields,
	}
}

// toHits keeps entry order and returns at most h.Size hits, dropping IDs in
// h.Exclude. A missing content field reads as empty content.
func toHits(res db.SearchResult, h selection.Half) (hits []domdoc.Hit, skipped int) {
	excluded := make(map[string]struct{}, len(h.Exclude))
	for _, id := range h.Exclude {
		excluded[id] = struct{}{}
	}
	hits = make([]domdoc.Hit, 0, min(h.Size, len(res.Entries)))
	for _, e := range res.Entries {
		if len(hits) == h.Size {
			break
		}
		if _, ok := excluded[e.ID]; ok {
			skipped++
			continue
		}
		hits = append(hits, domdoc.Hit{ID: e.ID, Content: e.Fields[domain.FieldContent]})
	}
	return hits, skipped
}

func toUpdateItem(u tagging.Update) db.UpdateItem {
	return db.UpdateItem{Index: u.Index, ID: u.ID, Doc: u.Patch()}
}

// buildJSONDoc converts a domain Document into its stored JSON shape.
// Tags and lastTagged are omitted for never-tagged documents.
func buildJSONDoc(doc *domdoc.Document) map[string]any {
	m := map[string]any{
		domain.FieldContent:     doc.Content(),
		domain.FieldLastIndexed: doc.LastIndexed(),
	}
	if tags := doc.Tags(); tags != nil {
		m[domain.FieldTags] = tags
	}
	if ts, ok := doc.LastTagged(); ok {
		m[domain.FieldLastTagged] = ts
	}
	return m
}
