package document

import (
	"context"
	"testing"

	"github.com/kailas-cloud/doctagger/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	multiSearchFn func(ctx context.Context, reqs []db.SearchRequest) ([]db.SearchResult, error)
	bulkUpdateFn  func(ctx context.Context, items []db.UpdateItem) (db.BulkResult, error)
	refreshFn     func(ctx context.Context, index string) error
	countFn       func(ctx context.Context, index string) (int, error)
	putFn         func(ctx context.Context, items []db.UpdateItem) error
}

func (m *mockStore) MultiSearch(ctx context.Context, reqs []db.SearchRequest) ([]db.SearchResult, error) {
	if m.multiSearchFn != nil {
		return m.multiSearchFn(ctx, reqs)
	}
	return make([]db.SearchResult, len(reqs)), nil
}

func (m *mockStore) BulkUpdate(ctx context.Context, items []db.UpdateItem) (db.BulkResult, error) {
	if m.bulkUpdateFn != nil {
		return m.bulkUpdateFn(ctx, items)
	}
	res := db.BulkResult{Items: make([]db.ItemResult, len(items))}
	for i, it := range items {
		res.Items[i].ID = it.ID
	}
	return res, nil
}

func (m *mockStore) Refresh(ctx context.Context, index string) error {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, index)
	}
	return nil
}

func (m *mockStore) Count(ctx context.Context, index string) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, index)
	}
	return 0, nil
}

func (m *mockStore) Put(ctx context.Context, items []db.UpdateItem) error {
	if m.putFn != nil {
		return m.putFn(ctx, items)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms)
	return repo, ms
}
