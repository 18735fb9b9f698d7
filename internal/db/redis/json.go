package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/doctagger/internal/db"
)

// BulkUpdate merges partial documents in a single DoMulti round-trip.
// Fields absent from an item's Doc are left untouched (JSON.MERGE semantics).
func (s *Store) BulkUpdate(ctx context.Context, items []db.UpdateItem) (db.BulkResult, error) {
	if len(items) == 0 {
		return db.BulkResult{}, nil
	}

	out := db.BulkResult{Items: make([]db.ItemResult, len(items))}
	cmds := make([]rueidis.Completed, 0, len(items))
	pos := make([]int, 0, len(items))

	for i, item := range items {
		out.Items[i].ID = item.ID
		data, err := json.Marshal(item.Doc)
		if err != nil {
			out.Items[i].Err = fmt.Errorf("encode %s: %w", item.ID, err)
			continue
		}
		key := docKey(item.Index, item.ID)
		cmds = append(cmds, s.b().Arbitrary("JSON.MERGE").Keys(key).Args("$", string(data)).Build())
		pos = append(pos, i)
	}
	if len(cmds) == 0 {
		return out, nil
	}

	results := s.client.DoMulti(ctx, cmds...)
	failed := 0
	for j, res := range results {
		if err := res.Error(); err != nil {
			out.Items[pos[j]].Err = &db.Error{Op: db.OpMerge, Err: err}
			failed++
		}
	}
	// Every command failing on a transport error means the request itself failed.
	if failed == len(results) {
		if err := results[0].Error(); err != nil {
			if _, isServer := rueidis.IsRedisErr(err); !isServer {
				return out, &db.Error{Op: db.OpBulk, Err: err}
			}
		}
	}
	return out, nil
}

// Put stores whole documents with JSON.SET, replacing previous values.
func (s *Store) Put(ctx context.Context, items []db.UpdateItem) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		data, err := json.Marshal(item.Doc)
		if err != nil {
			return fmt.Errorf("encode %s: %w", item.ID, err)
		}
		cmds[i] = s.b().Arbitrary("JSON.SET").Keys(docKey(item.Index, item.ID)).Args("$", string(data)).Build()
	}

	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpSet, Err: fmt.Errorf("key %s: %w", docKey(items[i].Index, items[i].ID), err)}
		}
	}
	return nil
}
