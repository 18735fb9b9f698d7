package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/doctagger/internal/db"
	"github.com/kailas-cloud/doctagger/internal/domain"
	"github.com/kailas-cloud/doctagger/internal/domain/batch"
	domdoc "github.com/kailas-cloud/doctagger/internal/domain/document"
	"github.com/kailas-cloud/doctagger/internal/domain/selection"
	"github.com/kailas-cloud/doctagger/internal/domain/tagging"
)

// store is the consumer interface for documents (ISP).
type store interface {
	MultiSearch(ctx context.Context, reqs []db.SearchRequest) ([]db.SearchResult, error)
	BulkUpdate(ctx context.Context, items []db.UpdateItem) (db.BulkResult, error)
	Refresh(ctx context.Context, index string) error
	Count(ctx context.Context, index string) (int, error)
	Put(ctx context.Context, items []db.UpdateItem) error
}

// Repo implements the document repository used by the selector and tag writer.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SelectBatch runs both halves of the query in one round trip. Excluded
// documents are fetched past and dropped.
func (r *Repo) SelectBatch(ctx context.Context, q selection.Query) (selection.Batch, error) {
	halves := q.Halves()
	reqs := make([]db.SearchRequest, len(halves))
	for i, h := range halves {
		reqs[i] = toSearchRequest(h)
	}

	results, err := r.store.MultiSearch(ctx, reqs)
	if err != nil {
		return selection.Batch{}, fmt.Errorf("multi-search %s: %w", q.Newest.Index, classify(err))
	}
	if len(results) != len(reqs) {
		return selection.Batch{}, fmt.Errorf("multi-search %s: got %d results for %d queries",
			q.Newest.Index, len(results), len(reqs))
	}

	newest, skippedNewest := toHits(results[0], q.Newest)
	oldest, skippedOldest := toHits(results[1], q.Oldest)
	return selection.Batch{
		Newest:  newest,
		Oldest:  oldest,
		Skipped: skippedNewest + skippedOldest,
	}, nil
}

// ApplyUpdates writes all updates in one bulk call and reports per-document outcomes.
// The error is non-nil only when the bulk request as a whole failed.
func (r *Repo) ApplyUpdates(ctx context.Context, updates []tagging.Update) ([]batch.Result, error) {
	if len(updates) == 0 {
		return nil, nil
	}

	items := make([]db.UpdateItem, len(updates))
	for i, u := range updates {
		items[i] = toUpdateItem(u)
	}

	res, err := r.store.BulkUpdate(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("bulk update: %w", classify(err))
	}

	out := make([]batch.Result, len(updates))
	for i, u := range updates {
		if i < len(res.Items) && res.Items[i].Err != nil {
			out[i] = batch.NewError(u.ID, res.Items[i].Err)
			continue
		}
		if i >= len(res.Items) {
			out[i] = batch.NewError(u.ID, errors.New("missing bulk item result"))
			continue
		}
		out[i] = batch.NewOK(u.ID)
	}
	return out, nil
}

// Refresh makes written tags visible to the next selection.
func (r *Repo) Refresh(ctx context.Context, index string) error {
	if err := r.store.Refresh(ctx, index); err != nil {
		return fmt.Errorf("refresh %s: %w", index, classify(err))
	}
	return nil
}

// Count returns the number of documents in the index. A missing index is
// reported as a connectivity failure: there is nothing the tagger can work on.
func (r *Repo) Count(ctx context.Context, index string) (int, error) {
	n, err := r.store.Count(ctx, index)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, fmt.Errorf("index %s not found: %w", index, domain.ErrConnectivity)
		}
		return 0, fmt.Errorf("count %s: %w", index, classify(err))
	}
	return n, nil
}

// Import stores whole documents into the index, replacing earlier versions.
func (r *Repo) Import(ctx context.Context, index string, docs []domdoc.Document) error {
	if len(docs) == 0 {
		return nil
	}
	items := make([]db.UpdateItem, len(docs))
	for i := range docs {
		items[i] = db.UpdateItem{Index: index, ID: docs[i].ID(), Doc: buildJSONDoc(&docs[i])}
	}
	if err := r.store.Put(ctx, items); err != nil {
		return fmt.Errorf("import into %s: %w", index, classify(err))
	}
	return nil
}

// classify tags backend reachability failures with domain.ErrConnectivity.
func classify(err error) error {
	if db.IsUnavailable(err) {
		return fmt.Errorf("%w: %w", domain.ErrConnectivity, err)
	}
	return err
}
