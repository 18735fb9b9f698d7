// Package selection describes which documents a tagging batch picks up.
package selection

import (
	"fmt"

	"github.com/kailas-cloud/doctagger/internal/domain"
	"github.com/kailas-cloud/doctagger/internal/domain/document"
	"github.com/kailas-cloud/doctagger/internal/domain/filter"
)

// MaxBatchSize bounds the total number of documents per batch.
const MaxBatchSize = 500

// Order is a sort direction on the freshness field.
type Order int

const (
	// Descending favours newly indexed documents.
	Descending Order = iota
	// Ascending favours the oldest backlog.
	Ascending
)

func (o Order) String() string {
	if o == Ascending {
		return "asc"
	}
	return "desc"
}

// Half is one of the two symmetric sub-queries of a batch.
type Half struct {
	Index     string
	Size      int
	Filter    filter.Expression
	SortField string
	Order     Order
	Fields    []string
	// Exclude lists document IDs the half must skip. The search fetches
	// Size+len(Exclude) hits so Size eligible documents remain after skipping.
	Exclude []string
}

// Limit is the number of hits to request from the index.
func (h Half) Limit() int { return h.Size + len(h.Exclude) }

// Query is a batch query: two halves with identical predicate and opposite sort.
type Query struct {
	Newest Half
	Oldest Half
}

// Excluding returns a copy of q whose halves skip the given document IDs.
func (q Query) Excluding(ids []string) Query {
	q.Newest.Exclude = ids
	q.Oldest.Exclude = ids
	return q
}

// Halves returns both halves in processing order.
func (q Query) Halves() []Half { return []Half{q.Newest, q.Oldest} }

// Predicate returns the eligibility filter: lastTagged missing OR lastTagged < retagBefore.
func Predicate(retagBefore int64) (filter.Expression, error) {
	missing, err := filter.NewMissing(domain.FieldLastTagged)
	if err != nil {
		return filter.Expression{}, err
	}
	stale, err := filter.NewRange(domain.FieldLastTagged, filter.LessThan(float64(retagBefore)))
	if err != nil {
		return filter.Expression{}, err
	}
	return filter.NewExpression(nil, []filter.Condition{missing, stale}, nil)
}

// HalfSize splits the batch size in two, rounding down.
func HalfSize(batchSize int) int { return batchSize / 2 }

// NewQuery builds the two-half query for the given index, batch size and threshold.
func NewQuery(index string, batchSize int, retagBefore int64) (Query, error) {
	if index == "" {
		return Query{}, fmt.Errorf("index name is required")
	}
	if batchSize < 0 || batchSize > MaxBatchSize {
		return Query{}, fmt.Errorf("batch size must be between 0 and %d, got %d", MaxBatchSize, batchSize)
	}
	pred, err := Predicate(retagBefore)
	if err != nil {
		return Query{}, fmt.Errorf("build predicate: %w", err)
	}
	half := Half{
		Index:     index,
		Size:      HalfSize(batchSize),
		Filter:    pred,
		SortField: domain.FieldLastIndexed,
		Fields:    []string{domain.FieldContent},
	}
	newest, oldest := half, half
	newest.Order = Descending
	oldest.Order = Ascending
	return Query{Newest: newest, Oldest: oldest}, nil
}

// Batch is the raw pair of result sets. Overlap between halves is not removed.
type Batch struct {
	Newest []document.Hit
	Oldest []document.Hit
	// Skipped counts excluded hits dropped from both halves.
	Skipped int
}

// Total is the sum of both halves' hit counts.
func (b Batch) Total() int { return len(b.Newest) + len(b.Oldest) }

// IsEmpty reports whether there is nothing to do.
func (b Batch) IsEmpty() bool { return b.Total() == 0 }

// Hits returns all hits, newest half first, each half in original order.
func (b Batch) Hits() []document.Hit {
	hits := make([]document.Hit, 0, b.Total())
	hits = append(hits, b.Newest...)
	return append(hits, b.Oldest...)
}
