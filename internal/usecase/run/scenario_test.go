package run

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/doctagger/internal/db"
	"github.com/kailas-cloud/doctagger/internal/db/bolt"
	domdoc "github.com/kailas-cloud/doctagger/internal/domain/document"
	domrun "github.com/kailas-cloud/doctagger/internal/domain/run"
	"github.com/kailas-cloud/doctagger/internal/domain/schedule"
	"github.com/kailas-cloud/doctagger/internal/domain/stopword"
	domtag "github.com/kailas-cloud/doctagger/internal/domain/tagging"
	"github.com/kailas-cloud/doctagger/internal/repository/document"
	"github.com/kailas-cloud/doctagger/internal/usecase/normalize"
	"github.com/kailas-cloud/doctagger/internal/usecase/selector"
	"github.com/kailas-cloud/doctagger/internal/usecase/tagging"
	"github.com/kailas-cloud/doctagger/internal/usecase/topic"
)

type scenario struct {
	store *bolt.Store
	repo  *document.Repo
	svc   *Service
}

func newScenario(t *testing.T, docs ...domdoc.Document) *scenario {
	t.Helper()
	return newScenarioWith(t, func(e tagging.Extractor) tagging.Extractor { return e }, docs...)
}

// newScenarioWith lets a test wrap the topic extractor.
func newScenarioWith(
	t *testing.T, wrap func(tagging.Extractor) tagging.Extractor, docs ...domdoc.Document,
) *scenario {
	t.Helper()
	ctx := context.Background()

	store, err := bolt.NewStore(bolt.Config{Path: filepath.Join(t.TempDir(), "index.db")})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.EnsureIndex(ctx, "docs"); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}

	repo := document.New(store)
	if err := repo.Import(ctx, "docs", docs); err != nil {
		t.Fatalf("Import: %v", err)
	}

	params := domtag.DefaultParams()
	params.MaxIter = 20
	params.TopWords = 3
	ext, err := topic.New(params)
	if err != nil {
		t.Fatalf("topic.New: %v", err)
	}

	log := zap.NewNop()
	norm := normalize.New(stopword.NewSet("lorem", "ipsum"))
	tagger := tagging.New(norm, wrap(ext), repo, log)
	sel := selector.New(repo, log)
	svc := New(repo, sel, tagger, log).WithClock(night)

	return &scenario{store: store, repo: repo, svc: svc}
}

// stored returns tags and lastTagged per document ID.
func (s *scenario) stored(t *testing.T) map[string]struct {
	tags       []string
	lastTagged string
} {
	t.Helper()
	res, err := s.store.MultiSearch(context.Background(), []db.SearchRequest{{
		Index:  "docs",
		Limit:  100,
		Fields: []string{"tags", "lastTagged"},
	}})
	if err != nil {
		t.Fatalf("MultiSearch: %v", err)
	}
	out := make(map[string]struct {
		tags       []string
		lastTagged string
	})
	for _, e := range res[0].Entries {
		var tags []string
		if raw, ok := e.Fields["tags"]; ok {
			if err := json.Unmarshal([]byte(raw), &tags); err != nil {
				t.Fatalf("decode tags of %s: %v", e.ID, err)
			}
		}
		out[e.ID] = struct {
			tags       []string
			lastTagged string
		}{tags, e.Fields["lastTagged"]}
	}
	return out
}

func mustDoc(t *testing.T, id, content string, lastIndexed int64) domdoc.Document {
	t.Helper()
	d, err := domdoc.New(id, content, lastIndexed)
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	return d
}

func TestScenario_TagsEveryUntaggedDocument(t *testing.T) {
	docs := []domdoc.Document{
		mustDoc(t, "sat", "Satellite satellite orbit launch. The satellite reached orbit after launch.", 1),
		mustDoc(t, "bake", "Bread dough rises; bread bakes in the oven, the oven smells of bread.", 2),
		mustDoc(t, "blank", "   ", 3),
		mustDoc(t, "stop", "Lorem ipsum the of and", 4),
		mustDoc(t, "five", "Rivers flow into rivers and lakes near mountains with rivers.", 5),
	}
	sc := newScenario(t, docs...)
	start := time.Now().Unix()

	res := sc.svc.Run(context.Background(), Options{Index: "docs", BatchSize: 2, Window: schedule.DefaultWindow()})
	if res.Status != domrun.Exhausted || res.Err != nil {
		t.Fatalf("status = %s, err = %v", res.Status, res.Err)
	}
	// Three batches of one newest and one oldest hit; the last one selects
	// the remaining document through both halves.
	if res.Stats.Batches != 3 || res.Stats.Tagged != 6 {
		t.Errorf("stats = %+v, want 3 batches and 6 updates", res.Stats)
	}

	got := sc.stored(t)
	for _, d := range docs {
		st, ok := got[d.ID()]
		if !ok || st.lastTagged == "" {
			t.Fatalf("%s: not tagged", d.ID())
		}
		var ts int64
		if err := json.Unmarshal([]byte(st.lastTagged), &ts); err != nil || ts < start {
			t.Errorf("%s: lastTagged %q before run start %d", d.ID(), st.lastTagged, start)
		}
		if len(st.tags) > 3 {
			t.Errorf("%s: %d tags exceed top words", d.ID(), len(st.tags))
		}
	}

	if tags := got["blank"].tags; len(tags) != 1 || tags[0] != "" {
		t.Errorf("blank tags = %q, want [\"\"]", tags)
	}
	if tags := got["stop"].tags; tags == nil || len(tags) != 0 {
		t.Errorf("stopword-only tags = %q, want []", tags)
	}
	if tags := got["sat"].tags; len(tags) == 0 || !contains(tags, "satellite") {
		t.Errorf("sat tags = %q, want satellite among them", tags)
	}
	if tags := got["bake"].tags; len(tags) == 0 || !contains(tags, "bread") {
		t.Errorf("bake tags = %q, want bread among them", tags)
	}

	// A second run finds nothing left to do.
	again := sc.svc.Run(context.Background(), Options{Index: "docs", BatchSize: 2, Window: schedule.DefaultWindow()})
	if again.Status != domrun.Exhausted || again.Stats.Batches != 0 {
		t.Errorf("second run = %s with %+v", again.Status, again.Stats)
	}
}

func TestScenario_RetagsStaleDocuments(t *testing.T) {
	fresh := time.Now().Unix()
	stale := int64(1000)
	docs := []domdoc.Document{
		domdoc.Reconstruct("old", "comets comets tails", []string{"x"}, &stale, 1),
		domdoc.Reconstruct("new", "planets planets rings", []string{"keep"}, &fresh, 2),
	}
	sc := newScenario(t, docs...)

	res := sc.svc.Run(context.Background(), Options{
		Index: "docs", BatchSize: 10, RetagBefore: 5000, Window: schedule.DefaultWindow(),
	})
	if res.Status != domrun.Exhausted {
		t.Fatalf("status = %s, err = %v", res.Status, res.Err)
	}
	// Both halves pick up the single stale document.
	if res.Stats.Batches != 1 || res.Stats.Tagged != 2 {
		t.Errorf("stats = %+v, want 1 batch and 2 updates", res.Stats)
	}

	got := sc.stored(t)
	if tags := got["new"].tags; len(tags) != 1 || tags[0] != "keep" {
		t.Errorf("recent document was retagged: %q", tags)
	}
	if tags := got["old"].tags; !contains(tags, "comets") {
		t.Errorf("stale document tags = %q, want comets", tags)
	}
}

// failingExtractor fails on documents mentioning "poison".
type failingExtractor struct {
	next tagging.Extractor
}

func (f failingExtractor) Extract(text string) ([]string, error) {
	if strings.Contains(text, "poison") {
		return nil, errors.New("model did not converge")
	}
	return f.next.Extract(text)
}

func TestScenario_FailedDocumentsDoNotHideOthers(t *testing.T) {
	// The failing documents sit at both ends of the lastIndexed order, so
	// every batch of size 2 would select them first.
	docs := []domdoc.Document{
		mustDoc(t, "bad-old", "poison poison poison", 1),
		mustDoc(t, "good1", "Glaciers carve valleys; glaciers melt into rivers.", 2),
		mustDoc(t, "good2", "Volcanoes erupt lava and volcanoes build islands.", 3),
		mustDoc(t, "bad-new", "poison again poison", 4),
	}
	sc := newScenarioWith(t, func(e tagging.Extractor) tagging.Extractor {
		return failingExtractor{next: e}
	}, docs...)

	res := sc.svc.Run(context.Background(), Options{Index: "docs", BatchSize: 2, Window: schedule.DefaultWindow()})
	if res.Status != domrun.Exhausted || res.Err != nil {
		t.Fatalf("status = %s, err = %v", res.Status, res.Err)
	}
	if res.Stats.Batches != 2 || res.Stats.Failed != 2 || res.Stats.Tagged != 2 {
		t.Errorf("stats = %+v, want 2 batches, 2 failed, 2 tagged", res.Stats)
	}

	got := sc.stored(t)
	for _, id := range []string{"good1", "good2"} {
		if got[id].lastTagged == "" {
			t.Errorf("%s was not tagged", id)
		}
	}
	for _, id := range []string{"bad-old", "bad-new"} {
		if got[id].lastTagged != "" {
			t.Errorf("%s was tagged despite failing", id)
		}
	}
}

func TestScenario_MissingIndex(t *testing.T) {
	sc := newScenario(t)
	res := sc.svc.Run(context.Background(), Options{Index: "nope", BatchSize: 10, Window: schedule.DefaultWindow()})
	if res.Status != domrun.ConnectivityFailure {
		t.Fatalf("status = %s, err = %v", res.Status, res.Err)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
