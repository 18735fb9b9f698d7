// Package elastic implements db.Store on Elasticsearch through the olivere v5 client.
package elastic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gopkg.in/olivere/elastic.v5"

	"github.com/kailas-cloud/doctagger/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// DefaultDocType is the mapping type written by existing tagger deployments.
const DefaultDocType = "_doc"

// Config holds connection parameters for an Elasticsearch store.
type Config struct {
	URLs     []string
	Username string
	Password string
	DocType  string
}

// Store implements db.Store on Elasticsearch.
type Store struct {
	client  *elastic.Client
	url     string
	docType string
}

// NewStore creates an Elasticsearch store. Sniffing and health checks are
// disabled so single-node and proxied clusters work.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.URLs) == 0 {
		return nil, fmt.Errorf("urls is required")
	}

	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(cfg.URLs...),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	}
	if cfg.Username != "" {
		opts = append(opts, elastic.SetBasicAuth(cfg.Username, cfg.Password))
	}

	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	docType := cfg.DocType
	if docType == "" {
		docType = DefaultDocType
	}
	return &Store{client: client, url: cfg.URLs[0], docType: docType}, nil
}

// Ping checks connectivity against the first configured URL.
func (s *Store) Ping(ctx context.Context) error {
	if _, _, err := s.client.Ping(s.url).Do(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close stops the client's background goroutines.
func (s *Store) Close() {
	s.client.Stop()
}

// WaitForReady polls Ping until the cluster responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Count returns the number of documents in the index.
func (s *Store) Count(ctx context.Context, index string) (int, error) {
	n, err := s.client.Count(index).Do(ctx)
	if err != nil {
		return 0, wrap(db.OpCount, err)
	}
	return int(n), nil
}

// Refresh makes all writes to the index visible to search.
func (s *Store) Refresh(ctx context.Context, index string) error {
	if _, err := s.client.Refresh(index).Do(ctx); err != nil {
		return wrap(db.OpRefresh, err)
	}
	return nil
}

// EnsureIndex creates the index with the document mapping unless it exists.
func (s *Store) EnsureIndex(ctx context.Context, index string) error {
	exists, err := s.client.IndexExists(index).Do(ctx)
	if err != nil {
		return &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	if exists {
		return nil
	}
	_, err = s.client.CreateIndex(index).BodyJson(documentMapping(s.docType)).Do(ctx)
	if err != nil {
		if isErrType(err, "index_already_exists_exception", "resource_already_exists_exception") {
			return nil
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

func documentMapping(docType string) map[string]any {
	return map[string]any{
		"mappings": map[string]any{
			docType: map[string]any{
				"properties": map[string]any{
					"content":     map[string]any{"type": "text"},
					"tags":        map[string]any{"type": "keyword"},
					"lastTagged":  map[string]any{"type": "long"},
					"lastIndexed": map[string]any{"type": "long"},
				},
			},
		},
	}
}

func wrap(op string, err error) error {
	if elastic.IsNotFound(err) {
		return db.ErrIndexNotFound
	}
	if errors.Is(err, elastic.ErrNoClient) {
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	return &db.Error{Op: op, Err: err}
}

func isErrType(err error, types ...string) bool {
	var e *elastic.Error
	if !errors.As(err, &e) || e.Details == nil {
		return false
	}
	for _, t := range types {
		if e.Details.Type == t {
			return true
		}
	}
	return false
}
