package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/doctagger/internal/db"
	"github.com/kailas-cloud/doctagger/internal/domain/filter"
	"github.com/kailas-cloud/doctagger/internal/domain/selection"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	err := s.Ping(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestRefresh_NoOp(t *testing.T) {
	s := NewStoreForTest(nil) // client not called
	if err := s.Refresh(context.Background(), "documents"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestContainsIgnoreCase(t *testing.T) {
	tests := []struct {
		s, sub string
		want   bool
	}{
		{"Index Already Exists", "index already exists", true},
		{"UNKNOWN INDEX NAME", "unknown index name", true},
		{"hello world", "world", true},
		{"short", "longer than input", false},
		{"exact", "exact", true},
		{"", "", true},
		{"notempty", "", true},
	}
	for _, tc := range tests {
		got := containsIgnoreCase(tc.s, tc.sub)
		if got != tc.want {
			t.Errorf("containsIgnoreCase(%q, %q) = %v, want %v", tc.s, tc.sub, got, tc.want)
		}
	}
}

func TestKeyHelpers(t *testing.T) {
	if got := docKey("documents", "42"); got != "documents:42" {
		t.Errorf("docKey = %q", got)
	}
	if got := searchIndexName("documents"); got != "documents:idx" {
		t.Errorf("searchIndexName = %q", got)
	}
	if got := docID("documents", "documents:a:b"); got != "a:b" {
		t.Errorf("docID = %q, want a:b", got)
	}
}

// --- index.go tests ---

func TestEnsureIndex_Exists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "documents:idx")).
		Return(mock.Result(mock.RedisArray()))

	s := NewStoreForTest(c)
	if err := s.EnsureIndex(context.Background(), "documents"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureIndex_Creates(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var created []string
	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT.INFO", "documents:idx")).
			Return(mock.Result(mock.RedisError("Unknown index name"))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				if cmd[0] != "FT.CREATE" {
					return false
				}
				created = cmd
				return true
			})).
			Return(mock.Result(mock.RedisString("OK"))),
	)

	s := NewStoreForTest(c)
	if err := s.EnsureIndex(context.Background(), "documents"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := strings.Join(created, " ")
	want := "FT.CREATE documents:idx ON JSON PREFIX 1 documents: SCHEMA " +
		"$.content AS content TEXT " +
		"$.tags[*] AS tags TAG " +
		"$.lastTagged AS lastTagged NUMERIC INDEXMISSING " +
		"$.lastIndexed AS lastIndexed NUMERIC SORTABLE"
	if got != want {
		t.Errorf("FT.CREATE args =\n%s\nwant\n%s", got, want)
	}
}

func TestEnsureIndex_RaceAlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "documents:idx")).
		Return(mock.Result(mock.RedisError("Unknown index name")))
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.CREATE" })).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	if err := s.EnsureIndex(context.Background(), "documents"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	idx := &db.IndexDefinition{
		Name:   "test:idx",
		Fields: []db.IndexField{{Name: "f", Type: db.IndexFieldTag}},
	}
	err := s.CreateIndex(context.Background(), idx)
	if !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestCreateIndex_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	idx := &db.IndexDefinition{
		Name:   "test:idx",
		Fields: []db.IndexField{{Name: "f", Type: db.IndexFieldTag}},
	}
	err := s.CreateIndex(context.Background(), idx)
	if err == nil {
		t.Fatal("expected error")
	}
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestIndexExists_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "x:idx")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if _, err := s.IndexExists(context.Background(), "x:idx"); err == nil {
		t.Fatal("expected error")
	}
}

func TestBuildCreateArgs_Validation(t *testing.T) {
	if _, err := buildCreateArgs(&db.IndexDefinition{}); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := buildCreateArgs(&db.IndexDefinition{Name: "x"}); err == nil {
		t.Error("expected error for no fields")
	}
}

func TestBuildFieldArgs_Tag(t *testing.T) {
	args, err := buildFieldArgs(&db.IndexField{
		Name: "$.tags[*]", Alias: "tags", Type: db.IndexFieldTag,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "$.tags[*] AS tags TAG"
	if got := strings.Join(args, " "); got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestBuildFieldArgs_Errors(t *testing.T) {
	if _, err := buildFieldArgs(&db.IndexField{}); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := buildFieldArgs(&db.IndexField{Name: "f", Type: db.IndexFieldType(99)}); err == nil {
		t.Error("expected error for unknown type")
	}
}

// --- search.go tests ---

func batchRequests(t *testing.T, retagBefore int64) []db.SearchRequest {
	t.Helper()
	q, err := selection.NewQuery("documents", 10, retagBefore)
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	reqs := make([]db.SearchRequest, 0, 2)
	for _, h := range q.Halves() {
		reqs = append(reqs, db.SearchRequest{
			Index:      h.Index,
			Filter:     h.Filter,
			SortField:  h.SortField,
			Descending: h.Order == selection.Descending,
			Limit:      h.Size,
			Fields:     h.Fields,
		})
	}
	return reqs
}

func TestBuildSearchArgs_BatchHalf(t *testing.T) {
	reqs := batchRequests(t, 1700000000)

	args, err := buildSearchArgs(&reqs[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"documents:idx",
		"(ismissing(@lastTagged) | @lastTagged:[-inf (1700000000])",
		"RETURN", "1", "content",
		"SORTBY", "lastIndexed", "DESC",
		"LIMIT", "0", "5",
		"DIALECT", "2",
	}
	if strings.Join(args, "\x00") != strings.Join(want, "\x00") {
		t.Errorf("args = %q\nwant %q", args, want)
	}

	args, err = buildSearchArgs(&reqs[1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args[7] != "ASC" {
		t.Errorf("second half sort = %q, want ASC", args[7])
	}
}

func TestBuildSearchArgs_Validation(t *testing.T) {
	if _, err := buildSearchArgs(&db.SearchRequest{}); err == nil {
		t.Error("expected error for empty index")
	}
	if _, err := buildSearchArgs(&db.SearchRequest{Index: "x", Limit: -1}); err == nil {
		t.Error("expected error for negative limit")
	}
	args, err := buildSearchArgs(&db.SearchRequest{Index: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args[1] != "*" {
		t.Errorf("empty filter query = %q, want *", args[1])
	}
}

func TestMultiSearch_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	isSearch := mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.SEARCH" })
	c.EXPECT().
		DoMulti(gomock.Any(), isSearch, isSearch).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisArray(
				mock.RedisInt64(7),
				mock.RedisString("documents:new"),
				mock.RedisArray(mock.RedisString("content"), mock.RedisString("fresh text")),
			)),
			mock.Result(mock.RedisArray(
				mock.RedisInt64(7),
				mock.RedisString("documents:old-1"),
				mock.RedisArray(mock.RedisString("content"), mock.RedisString("old text")),
				mock.RedisString("documents:old-2"),
				mock.RedisArray(),
			)),
		})

	s := NewStoreForTest(c)
	results, err := s.MultiSearch(context.Background(), batchRequests(t, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if len(results[0].Entries) != 1 || results[0].Entries[0].ID != "new" {
		t.Errorf("newest half = %+v", results[0].Entries)
	}
	if results[0].Entries[0].Fields["content"] != "fresh text" {
		t.Errorf("content = %q", results[0].Entries[0].Fields["content"])
	}
	if len(results[1].Entries) != 2 || results[1].Entries[1].ID != "old-2" {
		t.Errorf("oldest half = %+v", results[1].Entries)
	}
	if _, ok := results[1].Entries[1].Fields["content"]; ok {
		t.Error("document without content should have no content field")
	}
}

func TestMultiSearch_UnknownIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisError("documents:idx: no such index")),
			mock.Result(mock.RedisError("documents:idx: no such index")),
		})

	s := NewStoreForTest(c)
	_, err := s.MultiSearch(context.Background(), batchRequests(t, 0))
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestMultiSearch_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.ErrorResult(context.DeadlineExceeded),
			mock.ErrorResult(context.DeadlineExceeded),
		})

	s := NewStoreForTest(c)
	_, err := s.MultiSearch(context.Background(), batchRequests(t, 0))
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %v", err)
	}
}

func TestMultiSearch_Empty(t *testing.T) {
	s := NewStoreForTest(nil) // client not called
	results, err := s.MultiSearch(context.Background(), nil)
	if err != nil || results != nil {
		t.Fatalf("got %v, %v", results, err)
	}
}

func TestCount_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.SEARCH", "documents:idx", "*", "LIMIT", "0", "0")).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(42))))

	s := NewStoreForTest(c)
	n, err := s.Count(context.Background(), "documents")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 42 {
		t.Errorf("expected 42, got %d", n)
	}
}

func TestCount_UnknownIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisError("Unknown index name")))

	s := NewStoreForTest(c)
	if _, err := s.Count(context.Background(), "documents"); !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestBuildFilter_Empty(t *testing.T) {
	if got := buildFilter(filter.Expression{}); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestBuildFilter_Combined(t *testing.T) {
	gte := 10.0
	r, _ := filter.NewRangeFilter(nil, &gte, nil, nil)
	must, _ := filter.NewRange("lastIndexed", r)
	missing, _ := filter.NewMissing("lastTagged")
	notTagged, _ := filter.NewMissing("tags")
	expr, _ := filter.NewExpression(
		[]filter.Condition{must},
		[]filter.Condition{missing},
		[]filter.Condition{notTagged},
	)

	got := buildFilter(expr)
	want := "@lastIndexed:[10 +inf] (ismissing(@lastTagged)) -ismissing(@tags)"
	if got != want {
		t.Errorf("buildFilter = %q, want %q", got, want)
	}
}

func TestBuildNumericFilter_GTonly(t *testing.T) {
	gt := 5.0
	r, _ := filter.NewRangeFilter(&gt, nil, nil, nil)
	if got := buildNumericFilter("n", r); got != "@n:[(5 +inf]" {
		t.Errorf("got %q", got)
	}
}

func TestBuildNumericFilter_LargeEpoch(t *testing.T) {
	if got := buildNumericFilter("lastTagged", filter.LessThan(1712345678)); got != "@lastTagged:[-inf (1712345678]" {
		t.Errorf("got %q", got)
	}
}

// --- json.go tests ---

func TestBulkUpdate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var payload string
	merge := mock.MatchFn(func(cmd []string) bool {
		if cmd[0] != "JSON.MERGE" || cmd[2] != "$" {
			return false
		}
		if cmd[1] == "documents:a" {
			payload = cmd[3]
		}
		return true
	})
	c.EXPECT().
		DoMulti(gomock.Any(), merge, merge).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("OK")),
		})

	s := NewStoreForTest(c)
	res, err := s.BulkUpdate(context.Background(), []db.UpdateItem{
		{Index: "documents", ID: "a", Doc: map[string]any{"tags": []string{"x"}, "lastTagged": int64(9)}},
		{Index: "documents", ID: "b", Doc: map[string]any{"tags": []string{""}, "lastTagged": int64(9)}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Failed() != 0 || len(res.Items) != 2 {
		t.Errorf("result = %+v", res)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		t.Fatalf("payload %q: %v", payload, err)
	}
	if doc["lastTagged"] != float64(9) {
		t.Errorf("payload lastTagged = %v", doc["lastTagged"])
	}
	if _, ok := doc["content"]; ok {
		t.Error("partial update must not carry content")
	}
}

func TestBulkUpdate_PartialFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisError("ERR wrong type")),
		})

	s := NewStoreForTest(c)
	res, err := s.BulkUpdate(context.Background(), []db.UpdateItem{
		{Index: "documents", ID: "a", Doc: map[string]any{"lastTagged": 1}},
		{Index: "documents", ID: "b", Doc: map[string]any{"lastTagged": 1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := res.FailedIDs()
	if len(ids) != 1 || ids[0] != "b" {
		t.Errorf("failed ids = %v, want [b]", ids)
	}
}

func TestBulkUpdate_TransportFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{mock.ErrorResult(context.DeadlineExceeded)})

	s := NewStoreForTest(c)
	_, err := s.BulkUpdate(context.Background(), []db.UpdateItem{
		{Index: "documents", ID: "a", Doc: map[string]any{"lastTagged": 1}},
	})
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %v", err)
	}
}

func TestBulkUpdate_Empty(t *testing.T) {
	s := NewStoreForTest(nil) // client not called
	res, err := s.BulkUpdate(context.Background(), nil)
	if err != nil || len(res.Items) != 0 {
		t.Fatalf("got %+v, %v", res, err)
	}
}

func TestPut_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "JSON.SET" && cmd[1] == "documents:a" && cmd[2] == "$"
		})).
		Return([]rueidis.RedisResult{mock.Result(mock.RedisString("OK"))})

	s := NewStoreForTest(c)
	err := s.Put(context.Background(), []db.UpdateItem{
		{Index: "documents", ID: "a", Doc: map[string]any{"content": "hello", "lastIndexed": 1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPut_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{mock.ErrorResult(context.DeadlineExceeded)})

	s := NewStoreForTest(c)
	err := s.Put(context.Background(), []db.UpdateItem{{Index: "documents", ID: "a", Doc: map[string]any{}}})
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %v", err)
	}
}

// --- helpers ---

// isDBError is a test helper for checking wrapped db.Error.
func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}
