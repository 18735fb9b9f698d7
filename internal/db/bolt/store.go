// Package bolt implements db.Store on an embedded bbolt file: one bucket per
// index, documents stored as JSON objects keyed by ID. Searches scan the bucket,
// so it suits local runs and tests rather than large corpora.
package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"github.com/kailas-cloud/doctagger/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// errDocumentMissing mirrors the update-on-missing-document rejection of search servers.
var errDocumentMissing = errors.New("document missing")

// Config holds the bbolt file location.
type Config struct {
	Path    string
	Timeout time.Duration // file lock wait; zero waits forever
}

// Store implements db.Store on bbolt.
type Store struct {
	db *bbolt.DB
}

// NewStore opens (or creates) the bbolt file.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	bdb, err := bbolt.Open(cfg.Path, 0o600, &bbolt.Options{Timeout: cfg.Timeout})
	if errors.Is(err, bbolt.ErrTimeout) {
		return nil, fmt.Errorf("failed to open bolt db: %w: %w", db.ErrUnavailable, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	return &Store{db: bdb}, nil
}

// Ping fails once the file has been closed.
func (s *Store) Ping(_ context.Context) error {
	if err := s.db.View(func(*bbolt.Tx) error { return nil }); err != nil {
		return &db.Error{Op: db.OpPing, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	return nil
}

// Close releases the file lock.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady returns immediately: an open file is ready.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Refresh is a no-op: committed transactions are visible to the next read.
func (s *Store) Refresh(_ context.Context, _ string) error {
	return nil
}

// EnsureIndex creates the index bucket.
func (s *Store) EnsureIndex(_ context.Context, index string) error {
	if index == "" {
		return fmt.Errorf("index name is required")
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(index))
		return err
	})
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// Count returns the number of documents in the index bucket.
func (s *Store) Count(_ context.Context, index string) (int, error) {
	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(index))
		if b == nil {
			return db.ErrIndexNotFound
		}
		n = b.Stats().KeyN
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, err
		}
		return 0, &db.Error{Op: db.OpCount, Err: err}
	}
	return n, nil
}

// Put stores whole documents, creating the index bucket when needed.
func (s *Store) Put(_ context.Context, items []db.UpdateItem) error {
	if len(items) == 0 {
		return nil
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, it := range items {
			b, err := tx.CreateBucketIfNotExists([]byte(it.Index))
			if err != nil {
				return err
			}
			data, err := json.Marshal(it.Doc)
			if err != nil {
				return fmt.Errorf("encode %s: %w", it.ID, err)
			}
			if err := b.Put([]byte(it.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &db.Error{Op: db.OpPut, Err: err}
	}
	return nil
}

// BulkUpdate merges partial documents in one transaction. Updates of unknown
// documents fail per item and are not created.
func (s *Store) BulkUpdate(_ context.Context, items []db.UpdateItem) (db.BulkResult, error) {
	out := db.BulkResult{Items: make([]db.ItemResult, len(items))}
	if len(items) == 0 {
		return out, nil
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		for i, it := range items {
			out.Items[i].ID = it.ID
			out.Items[i].Err = mergeInto(tx, it)
		}
		return nil
	})
	if err != nil {
		return db.BulkResult{}, &db.Error{Op: db.OpBulk, Err: err}
	}
	return out, nil
}

func mergeInto(tx *bbolt.Tx, it db.UpdateItem) error {
	b := tx.Bucket([]byte(it.Index))
	if b == nil {
		return db.ErrIndexNotFound
	}
	raw := b.Get([]byte(it.ID))
	if raw == nil {
		return errDocumentMissing
	}
	doc := make(map[string]any)
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", it.ID, err)
	}
	for k, v := range it.Doc {
		doc[k] = v
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", it.ID, err)
	}
	return b.Put([]byte(it.ID), data)
}

// MultiSearch evaluates each request with a full bucket scan.
func (s *Store) MultiSearch(_ context.Context, reqs []db.SearchRequest) ([]db.SearchResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	out := make([]db.SearchResult, len(reqs))
	err := s.db.View(func(tx *bbolt.Tx) error {
		for i := range reqs {
			res, err := search(tx, &reqs[i])
			if err != nil {
				return err
			}
			out[i] = res
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, err
		}
		return nil, &db.Error{Op: db.OpMultiSearch, Err: err}
	}
	return out, nil
}

type candidate struct {
	id     string
	sortBy float64
	hasKey bool
	doc    map[string]any
}

func search(tx *bbolt.Tx, req *db.SearchRequest) (db.SearchResult, error) {
	if req.Limit < 0 {
		return db.SearchResult{}, fmt.Errorf("limit must not be negative")
	}
	b := tx.Bucket([]byte(req.Index))
	if b == nil {
		return db.SearchResult{}, db.ErrIndexNotFound
	}

	var matched []candidate
	err := b.ForEach(func(k, v []byte) error {
		doc, err := decode(v)
		if err != nil {
			return fmt.Errorf("decode %s: %w", k, err)
		}
		if !req.Filter.Matches(lookup(doc)) {
			return nil
		}
		c := candidate{id: string(k), doc: doc}
		if req.SortField != "" {
			c.sortBy, c.hasKey = number(doc[req.SortField])
		}
		matched = append(matched, c)
		return nil
	})
	if err != nil {
		return db.SearchResult{}, err
	}

	if req.SortField != "" {
		sortCandidates(matched, req.Descending)
	}

	limit := min(req.Limit, len(matched))
	res := db.SearchResult{Total: len(matched), Entries: make([]db.SearchEntry, 0, limit)}
	for _, c := range matched[:limit] {
		res.Entries = append(res.Entries, db.SearchEntry{ID: c.id, Fields: project(c.doc, req.Fields)})
	}
	return res, nil
}

// sortCandidates orders by the sort value, documents without one last, ties by ID.
func sortCandidates(cs []candidate, desc bool) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.hasKey != b.hasKey {
			return a.hasKey
		}
		if a.sortBy != b.sortBy {
			if desc {
				return a.sortBy > b.sortBy
			}
			return a.sortBy < b.sortBy
		}
		return a.id < b.id
	})
}

func decode(v []byte) (map[string]any, error) {
	doc := make(map[string]any)
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func lookup(doc map[string]any) func(string) (float64, bool) {
	return func(key string) (float64, bool) {
		v, ok := doc[key]
		if !ok || v == nil {
			return 0, false
		}
		return number(v)
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// project renders scalar fields as text and composite fields as JSON.
func project(doc map[string]any, fields []string) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		switch v := doc[f].(type) {
		case string:
			m[f] = v
		case json.Number:
			m[f] = v.String()
		case bool:
			m[f] = strconv.FormatBool(v)
		case []any, map[string]any:
			if raw, err := json.Marshal(v); err == nil {
				m[f] = string(raw)
			}
		}
	}
	return m
}
