package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/olivere/elastic.v5"

	"github.com/kailas-cloud/doctagger/internal/db"
	"github.com/kailas-cloud/doctagger/internal/domain/filter"
)

// MultiSearch runs all requests in one _msearch call. Results keep request order.
func (s *Store) MultiSearch(ctx context.Context, reqs []db.SearchRequest) ([]db.SearchResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	svc := s.client.MultiSearch()
	for i := range reqs {
		r := &reqs[i]
		if r.Index == "" {
			return nil, fmt.Errorf("index name is required")
		}
		svc = svc.Add(elastic.NewSearchRequest().Index(r.Index).SearchSource(buildSource(r)))
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return nil, wrap(db.OpMultiSearch, err)
	}
	if len(res.Responses) != len(reqs) {
		return nil, &db.Error{
			Op:  db.OpMultiSearch,
			Err: fmt.Errorf("got %d responses for %d requests", len(res.Responses), len(reqs)),
		}
	}

	out := make([]db.SearchResult, len(reqs))
	for i, r := range res.Responses {
		if r == nil {
			continue
		}
		if r.Error != nil {
			if r.Error.Type == "index_not_found_exception" {
				return nil, db.ErrIndexNotFound
			}
			return nil, &db.Error{Op: db.OpMultiSearch, Err: fmt.Errorf("%s: %s", r.Error.Type, r.Error.Reason)}
		}
		out[i] = parseResult(r, reqs[i].Fields)
	}
	return out, nil
}

func buildSource(r *db.SearchRequest) *elastic.SearchSource {
	src := elastic.NewSearchSource().
		Query(buildQuery(r.Filter)).
		Size(r.Limit)
	if r.SortField != "" {
		src = src.Sort(r.SortField, !r.Descending)
	}
	if len(r.Fields) > 0 {
		src = src.FetchSourceContext(elastic.NewFetchSourceContext(true).Include(r.Fields...))
	}
	return src
}

// buildQuery translates filter.Expression into a bool query.
func buildQuery(expr filter.Expression) elastic.Query {
	if expr.IsEmpty() {
		return elastic.NewMatchAllQuery()
	}
	q := elastic.NewBoolQuery()
	for _, c := range expr.Must() {
		q = q.Must(buildCondition(c))
	}
	for _, c := range expr.Should() {
		q = q.Should(buildCondition(c))
	}
	if len(expr.Should()) > 0 {
		q = q.MinimumNumberShouldMatch(1)
	}
	for _, c := range expr.MustNot() {
		q = q.MustNot(buildCondition(c))
	}
	return q
}

func buildCondition(c filter.Condition) elastic.Query {
	if c.IsMissing() {
		return elastic.NewBoolQuery().MustNot(elastic.NewExistsQuery(c.Key()))
	}
	rq := elastic.NewRangeQuery(c.Key())
	if r := c.Range(); r != nil {
		if r.GT() != nil {
			rq = rq.Gt(*r.GT())
		}
		if r.GTE() != nil {
			rq = rq.Gte(*r.GTE())
		}
		if r.LT() != nil {
			rq = rq.Lt(*r.LT())
		}
		if r.LTE() != nil {
			rq = rq.Lte(*r.LTE())
		}
	}
	return rq
}

func parseResult(r *elastic.SearchResult, fields []string) db.SearchResult {
	if r.Hits == nil {
		return db.SearchResult{}
	}
	out := db.SearchResult{
		Total:   int(r.Hits.TotalHits),
		Entries: make([]db.SearchEntry, 0, len(r.Hits.Hits)),
	}
	for _, hit := range r.Hits.Hits {
		out.Entries = append(out.Entries, db.SearchEntry{
			ID:     hit.Id,
			Fields: sourceFields(hit.Source, fields),
		})
	}
	return out
}

// sourceFields flattens the requested top-level _source fields to strings.
// Missing or null fields are omitted.
func sourceFields(raw *json.RawMessage, fields []string) map[string]string {
	m := make(map[string]string, len(fields))
	if raw == nil {
		return m
	}
	var src map[string]any
	if err := json.Unmarshal(*raw, &src); err != nil {
		return m
	}
	for _, f := range fields {
		switch v := src[f].(type) {
		case string:
			m[f] = v
		case float64:
			m[f] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			m[f] = strconv.FormatBool(v)
		}
	}
	return m
}
