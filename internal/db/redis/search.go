package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/doctagger/internal/db"
	"github.com/kailas-cloud/doctagger/internal/domain/filter"
)

// MultiSearch runs one FT.SEARCH per request in a single DoMulti round-trip.
func (s *Store) MultiSearch(ctx context.Context, reqs []db.SearchRequest) ([]db.SearchResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(reqs))
	for i := range reqs {
		args, err := buildSearchArgs(&reqs[i])
		if err != nil {
			return nil, err
		}
		cmds[i] = s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make([]db.SearchResult, len(results))
	for i, res := range results {
		raw, err := res.ToArray()
		if err != nil {
			if isUnknownIndex(err) {
				return nil, db.ErrIndexNotFound
			}
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		parsed, err := parseListResult(raw)
		if err != nil {
			return nil, err
		}
		for j := range parsed.Entries {
			parsed.Entries[j].ID = docID(reqs[i].Index, parsed.Entries[j].ID)
		}
		out[i] = *parsed
	}
	return out, nil
}

// Count returns the number of documents in the index via FT.SEARCH with LIMIT 0 0.
func (s *Store) Count(ctx context.Context, index string) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(searchIndexName(index), "*", "LIMIT", "0", "0").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndex(err) {
			return 0, db.ErrIndexNotFound
		}
		return 0, &db.Error{Op: db.OpSearch, Err: err}
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

func buildSearchArgs(req *db.SearchRequest) ([]string, error) {
	if req.Index == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if req.Limit < 0 {
		return nil, fmt.Errorf("limit must not be negative")
	}

	query := buildFilter(req.Filter)
	if query == "" {
		query = "*"
	}

	args := []string{searchIndexName(req.Index), query}

	if len(req.Fields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(req.Fields)))
		args = append(args, req.Fields...)
	}
	if req.SortField != "" {
		dir := "ASC"
		if req.Descending {
			dir = "DESC"
		}
		args = append(args, "SORTBY", req.SortField, dir)
	}

	args = append(args,
		"LIMIT", "0", strconv.Itoa(req.Limit),
		"DIALECT", "2",
	)
	return args, nil
}

// --- Result parsing ---

func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			ID:     key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Filter building ---

// buildFilter translates filter.Expression into an FT.SEARCH query string.
func buildFilter(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}

	var parts []string

	for _, cond := range expr.Must() {
		parts = append(parts, buildCondition(cond))
	}

	if shouldParts := buildShouldGroup(expr.Should()); shouldParts != "" {
		parts = append(parts, shouldParts)
	}

	for _, cond := range expr.MustNot() {
		parts = append(parts, "-"+buildCondition(cond))
	}

	return strings.Join(parts, " ")
}

func buildCondition(cond filter.Condition) string {
	if cond.IsMissing() {
		return fmt.Sprintf("ismissing(@%s)", cond.Key())
	}
	if cond.IsRange() {
		return buildNumericFilter(cond.Key(), *cond.Range())
	}
	return ""
}

func buildShouldGroup(conditions []filter.Condition) string {
	if len(conditions) == 0 {
		return ""
	}
	parts := make([]string, 0, len(conditions))
	for _, cond := range conditions {
		parts = append(parts, buildCondition(cond))
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

func buildNumericFilter(key string, r filter.Range) string {
	minBound := "-inf"
	maxBound := "+inf"

	if r.GT() != nil {
		minBound = "(" + formatNumber(*r.GT())
	} else if r.GTE() != nil {
		minBound = formatNumber(*r.GTE())
	}

	if r.LT() != nil {
		maxBound = "(" + formatNumber(*r.LT())
	} else if r.LTE() != nil {
		maxBound = formatNumber(*r.LTE())
	}

	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound)
}

// formatNumber prints without exponent so epoch seconds stay exact.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
