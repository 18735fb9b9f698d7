package elastic

import (
	"context"
	"fmt"

	"gopkg.in/olivere/elastic.v5"

	"github.com/kailas-cloud/doctagger/internal/db"
)

// BulkUpdate sends partial-document updates in one _bulk call.
func (s *Store) BulkUpdate(ctx context.Context, items []db.UpdateItem) (db.BulkResult, error) {
	if len(items) == 0 {
		return db.BulkResult{}, nil
	}

	svc := s.client.Bulk()
	for _, it := range items {
		svc = svc.Add(elastic.NewBulkUpdateRequest().
			Index(it.Index).
			Type(s.docType).
			Id(it.ID).
			Doc(it.Doc))
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return db.BulkResult{}, wrap(db.OpBulk, err)
	}
	return itemResults(items, resp, "update"), nil
}

// Put indexes whole documents in one _bulk call, replacing previous versions.
func (s *Store) Put(ctx context.Context, items []db.UpdateItem) error {
	if len(items) == 0 {
		return nil
	}

	svc := s.client.Bulk()
	for _, it := range items {
		svc = svc.Add(elastic.NewBulkIndexRequest().
			Index(it.Index).
			Type(s.docType).
			Id(it.ID).
			Doc(it.Doc))
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return wrap(db.OpBulk, err)
	}
	res := itemResults(items, resp, "index")
	if n := res.Failed(); n > 0 {
		return &db.Error{Op: db.OpPut, Err: fmt.Errorf("%d of %d documents rejected: %v", n, len(items), res.FailedIDs())}
	}
	return nil
}

// itemResults maps bulk response items back to request items by position.
func itemResults(items []db.UpdateItem, resp *elastic.BulkResponse, action string) db.BulkResult {
	out := db.BulkResult{Items: make([]db.ItemResult, len(items))}
	for i, it := range items {
		out.Items[i].ID = it.ID
		if i >= len(resp.Items) {
			out.Items[i].Err = fmt.Errorf("no response for item")
			continue
		}
		r := resp.Items[i][action]
		if r == nil {
			out.Items[i].Err = fmt.Errorf("no %s result for item", action)
			continue
		}
		if r.Error != nil {
			out.Items[i].Err = fmt.Errorf("%s: %s", r.Error.Type, r.Error.Reason)
			continue
		}
		if r.Status >= 300 {
			out.Items[i].Err = fmt.Errorf("status %d", r.Status)
		}
	}
	return out
}
