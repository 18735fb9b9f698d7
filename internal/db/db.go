package db

import (
	"context"
	"time"
)

// Store is the main index facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	Counter
	Searcher
	BulkWriter
	Refresher
	IndexManager
	Putter
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Counter reports the number of documents stored in an index.
type Counter interface {
	Count(ctx context.Context, index string) (int, error)
}

// Searcher runs several independent searches in one round trip.
// Results are returned in request order.
type Searcher interface {
	MultiSearch(ctx context.Context, reqs []SearchRequest) ([]SearchResult, error)
}

// BulkWriter applies partial updates in one round trip.
// A returned error means the whole request failed; per-item failures are in BulkResult.
type BulkWriter interface {
	BulkUpdate(ctx context.Context, items []UpdateItem) (BulkResult, error)
}

// Refresher makes recent writes visible to subsequent searches.
type Refresher interface {
	Refresh(ctx context.Context, index string) error
}

// IndexManager creates the search schema for an index when it is missing.
type IndexManager interface {
	EnsureIndex(ctx context.Context, index string) error
}

// Putter stores whole documents, replacing any previous version.
// Used to load documents into local or test indexes.
type Putter interface {
	Put(ctx context.Context, items []UpdateItem) error
}
