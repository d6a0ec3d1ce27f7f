package resolver

import (
	"context"
	"os"
	"sync/atomic"
	"testing"

	"github.com/tobixen/skoscache/internal/cache"
	"github.com/tobixen/skoscache/internal/core/model"
	"github.com/tobixen/skoscache/internal/upstream"
)

type fakeAdapter struct {
	calls     atomic.Int32
	concept   *model.Concept
	transient bool
	labels    map[string]string
}

func (f *fakeAdapter) Search(ctx context.Context, label, lang string) (*model.Concept, bool, error) {
	f.calls.Add(1)
	return f.concept, f.transient, nil
}

func (f *fakeAdapter) Labels(ctx context.Context, uri string, languages []string) (map[string]string, error) {
	f.calls.Add(1)
	return f.labels, nil
}

func TestLookup_CacheHitMakesNoUpstreamCall(t *testing.T) {
	dir := t.TempDir()
	key := ConceptKey("agrovoc", "en", "potatoes")
	path := cache.Path(dir, key)
	uri := "http://aims.fao.org/aos/agrovoc/c_13551"
	if err := cache.Save(path, &model.Concept{URI: uri, PrefLabel: "potatoes", Source: "agrovoc"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	adapter := &fakeAdapter{}
	r := New(upstream.Registry{"agrovoc": adapter}, dir, 0)

	c, ok := r.Lookup(context.Background(), "potatoes", "en", "agrovoc")
	if !ok || c.URI != uri {
		t.Fatalf("expected cache hit, got %+v ok=%v", c, ok)
	}
	if adapter.calls.Load() != 0 {
		t.Fatalf("expected zero upstream calls, got %d", adapter.calls.Load())
	}
}

func TestLookup_NegativeCacheHitMakesNoUpstreamCall(t *testing.T) {
	dir := t.TempDir()
	key := ConceptKey("agrovoc", "en", "xyzzy")
	if err := cache.AddNegative(dir, key); err != nil {
		t.Fatalf("AddNegative: %v", err)
	}

	adapter := &fakeAdapter{}
	r := New(upstream.Registry{"agrovoc": adapter}, dir, 0)

	c, ok := r.Lookup(context.Background(), "xyzzy", "en", "agrovoc")
	if ok || c != nil {
		t.Fatalf("expected absent, got %+v", c)
	}
	if adapter.calls.Load() != 0 {
		t.Fatalf("expected zero upstream calls, got %d", adapter.calls.Load())
	}
}

func TestLookup_TransientFailureWritesNoCacheFile(t *testing.T) {
	dir := t.TempDir()
	adapter := &fakeAdapter{transient: true}
	r := New(upstream.Registry{"agrovoc": adapter}, dir, 0)

	c, ok := r.Lookup(context.Background(), "potato", "en", "agrovoc")
	if ok || c != nil {
		t.Fatalf("expected absent on transient failure, got %+v", c)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected no cache files written, found %v", entries)
	}
}

func TestLookup_AuthoritativeAbsencePoisonsNegativeCache(t *testing.T) {
	dir := t.TempDir()
	adapter := &fakeAdapter{concept: nil, transient: false}
	r := New(upstream.Registry{"agrovoc": adapter}, dir, 0)

	key := ConceptKey("agrovoc", "en", "nonexistent")
	if cache.IsNegative(dir, key, r.TTL) {
		t.Fatalf("expected no negative entry yet")
	}
	c, ok := r.Lookup(context.Background(), "nonexistent", "en", "agrovoc")
	if ok || c != nil {
		t.Fatalf("expected absent, got %+v", c)
	}
	if !cache.IsNegative(dir, key, r.TTL) {
		t.Fatalf("expected negative cache entry to be written")
	}
}

func TestLookup_UpstreamSuccessWritesPositiveCache(t *testing.T) {
	dir := t.TempDir()
	uri := "http://aims.fao.org/aos/agrovoc/c_13551"
	adapter := &fakeAdapter{concept: &model.Concept{URI: uri, PrefLabel: "potatoes", Source: "agrovoc"}}
	r := New(upstream.Registry{"agrovoc": adapter}, dir, 0)

	c, ok := r.Lookup(context.Background(), "potatoes", "en", "agrovoc")
	if !ok || c.URI != uri {
		t.Fatalf("expected resolved concept, got %+v", c)
	}

	key := ConceptKey("agrovoc", "en", "potatoes")
	var got model.Concept
	if !cache.Load(cache.Path(dir, key), r.TTL, &got) {
		t.Fatalf("expected positive cache file to be written")
	}
}

func TestLookup_SecondCallServedFromCache(t *testing.T) {
	dir := t.TempDir()
	uri := "http://aims.fao.org/aos/agrovoc/c_13551"
	adapter := &fakeAdapter{concept: &model.Concept{URI: uri, PrefLabel: "potatoes", Source: "agrovoc"}}
	r := New(upstream.Registry{"agrovoc": adapter}, dir, 0)

	r.Lookup(context.Background(), "potatoes", "en", "agrovoc")
	r.Lookup(context.Background(), "potatoes", "en", "agrovoc")

	if adapter.calls.Load() != 1 {
		t.Fatalf("expected exactly one upstream call across two lookups, got %d", adapter.calls.Load())
	}
}

func TestLookup_UnknownSourceIsAbsentWithoutError(t *testing.T) {
	dir := t.TempDir()
	r := New(upstream.Registry{}, dir, 0)

	c, ok := r.Lookup(context.Background(), "potatoes", "en", "bogus")
	if ok || c != nil {
		t.Fatalf("expected absent for unknown source, got %+v", c)
	}
}

func TestGetLabels_EmptyInputsShortCircuit(t *testing.T) {
	r := New(upstream.Registry{}, t.TempDir(), 0)
	if got := r.GetLabels(context.Background(), "", []string{"en"}, "agrovoc"); len(got) != 0 {
		t.Fatalf("expected empty map for empty uri, got %+v", got)
	}
	if got := r.GetLabels(context.Background(), "http://x", nil, "agrovoc"); len(got) != 0 {
		t.Fatalf("expected empty map for empty languages, got %+v", got)
	}
}

func TestGetLabels_FiltersToRequestedLanguages(t *testing.T) {
	dir := t.TempDir()
	adapter := &fakeAdapter{labels: map[string]string{"en": "potato", "fr": "pomme de terre", "de": "Kartoffel"}}
	r := New(upstream.Registry{"agrovoc": adapter}, dir, 0)

	got := r.GetLabels(context.Background(), "http://x", []string{"en", "de"}, "agrovoc")
	if len(got) != 2 || got["en"] != "potato" || got["de"] != "Kartoffel" {
		t.Fatalf("unexpected filtered labels: %+v", got)
	}
}

func TestGetLabelsBatch_PartialCacheIssuesOneUpstreamCall(t *testing.T) {
	dir := t.TempDir()
	uri1, uri2 := "http://x/1", "http://x/2"

	key1 := LabelsKey("agrovoc", uri1)
	if err := cache.Save(cache.Path(dir, key1), &model.LabelsRecord{URI: uri1, Source: "agrovoc", Labels: map[string]string{"en": "one"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	adapter := &fakeAdapter{labels: map[string]string{"en": "two"}}
	r := New(upstream.Registry{"agrovoc": adapter}, dir, 0)

	got := r.GetLabelsBatch(context.Background(), []string{uri1, uri2}, []string{"en"}, "agrovoc", 4)
	if got[uri1]["en"] != "one" || got[uri2]["en"] != "two" {
		t.Fatalf("unexpected batch result: %+v", got)
	}
	if adapter.calls.Load() != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", adapter.calls.Load())
	}
}

func TestConceptKey_LowercasesLabel(t *testing.T) {
	if got := ConceptKey("agrovoc", "en", "Potatoes"); got != "concept:agrovoc:en:potatoes" {
		t.Fatalf("unexpected key: %s", got)
	}
}

func TestLabelsKey_IsDeterministic(t *testing.T) {
	a := LabelsKey("agrovoc", "http://x")
	b := LabelsKey("agrovoc", "http://x")
	if a != b {
		t.Fatalf("LabelsKey not deterministic: %s vs %s", a, b)
	}
}

