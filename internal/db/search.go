package db

import "github.com/kailas-cloud/doctagger/internal/domain/filter"

// SearchRequest is a filtered, sorted, size-limited search with a field projection.
type SearchRequest struct {
	Index      string
	Filter     filter.Expression
	SortField  string
	Descending bool
	Limit      int
	Fields     []string
}

// SearchResult is the output of a single search.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit. Fields holds only projected fields.
type SearchEntry struct {
	ID     string
	Fields map[string]string
}

// UpdateItem is a partial document update: fields in Doc are set, others kept.
type UpdateItem struct {
	Index string
	ID    string
	Doc   map[string]any
}

// ItemResult is the outcome of one bulk item.
type ItemResult struct {
	ID  string
	Err error
}

// BulkResult holds per-item outcomes in request order.
type BulkResult struct {
	Items []ItemResult
}

// Failed returns the number of items that were not applied.
func (r BulkResult) Failed() int {
	n := 0
	for _, it := range r.Items {
		if it.Err != nil {
			n++
		}
	}
	return n
}

// FailedIDs returns IDs of items that were not applied.
func (r BulkResult) FailedIDs() []string {
	var ids []string
	for _, it := range r.Items {
		if it.Err != nil {
			ids = append(ids, it.ID)
		}
	}
	return ids
}
