package hierarchy

import (
	"context"
	"sort"
	"testing"

	"github.com/tobixen/skoscache/internal/cache"
	"github.com/tobixen/skoscache/internal/core/model"
	"github.com/tobixen/skoscache/internal/resolver"
	"github.com/tobixen/skoscache/internal/upstream"
)

// seed writes a concept record directly into the cache so the resolver
// serves it without any upstream call.
func seed(t *testing.T, dir, source, lang, label string, c model.Concept) {
	t.Helper()
	key := resolver.ConceptKey(source, lang, label)
	if err := cache.Save(cache.Path(dir, key), &c); err != nil {
		t.Fatalf("seed Save: %v", err)
	}
}

func TestPaths_RootMapping(t *testing.T) {
	dir := t.TempDir()
	rootURI := "http://aims.fao.org/aos/agrovoc/c_root"
	leafURI := "http://aims.fao.org/aos/agrovoc/c_veg"

	seed(t, dir, "agrovoc", "en", "plant products", model.Concept{URI: rootURI, PrefLabel: "Plant products", Source: "agrovoc"})
	seed(t, dir, "agrovoc", "en", "vegetables", model.Concept{
		URI: leafURI, PrefLabel: "Vegetables", Source: "agrovoc",
		Broader: []model.BroaderRef{{URI: rootURI, Label: "Plant products"}},
	})

	r := resolver.New(upstream.Registry{}, dir, 0)
	b := New(r)

	res := b.Paths(context.Background(), "vegetables", "en", "agrovoc")
	if len(res.Paths) != 1 || res.Paths[0] != "food/vegetables" {
		t.Fatalf("unexpected paths: %+v", res.Paths)
	}
	if _, ok := res.URIMap["food"]; ok {
		t.Fatalf("expected synthetic root key to be omitted, got %+v", res.URIMap)
	}
	if res.URIMap["food/vegetables"] != leafURI {
		t.Fatalf("expected leaf uri mapping, got %+v", res.URIMap)
	}
}

func TestPaths_MultipleBroaderProducesMultiplePaths(t *testing.T) {
	dir := t.TempDir()
	foodURI := "http://x/food"
	nutritionURI := "http://x/nutrition"
	leafURI := "http://x/potatoes"

	seed(t, dir, "agrovoc", "en", "food", model.Concept{URI: foodURI, PrefLabel: "food", Source: "agrovoc"})
	seed(t, dir, "agrovoc", "en", "nutrition", model.Concept{URI: nutritionURI, PrefLabel: "nutrition", Source: "agrovoc"})
	seed(t, dir, "agrovoc", "en", "potatoes", model.Concept{
		URI: leafURI, PrefLabel: "potatoes", Source: "agrovoc",
		Broader: []model.BroaderRef{
			{URI: foodURI, Label: "food"},
			{URI: nutritionURI, Label: "nutrition"},
		},
	})

	r := resolver.New(upstream.Registry{}, dir, 0)
	b := New(r)

	res := b.Paths(context.Background(), "potatoes", "en", "agrovoc")
	sort.Strings(res.Paths)
	if len(res.Paths) != 2 || res.Paths[0] != "food/potatoes" || res.Paths[1] != "nutrition/potatoes" {
		t.Fatalf("unexpected paths: %+v", res.Paths)
	}
}

func TestPaths_CycleTerminatesWithSiblingsResolving(t *testing.T) {
	dir := t.TempDir()
	aURI, bURI, cURI := "http://x/a", "http://x/b", "http://x/c"

	seed(t, dir, "agrovoc", "en", "a", model.Concept{
		URI: aURI, PrefLabel: "a", Source: "agrovoc",
		Broader: []model.BroaderRef{{URI: bURI, Label: "b"}, {URI: cURI, Label: "c"}},
	})
	seed(t, dir, "agrovoc", "en", "b", model.Concept{
		URI: bURI, PrefLabel: "b", Source: "agrovoc",
		Broader: []model.BroaderRef{{URI: aURI, Label: "a"}},
	})
	seed(t, dir, "agrovoc", "en", "c", model.Concept{URI: cURI, PrefLabel: "c", Source: "agrovoc"})

	r := resolver.New(upstream.Registry{}, dir, 0)
	b := New(r)

	res := b.Paths(context.Background(), "a", "en", "agrovoc")
	if !res.Found {
		t.Fatalf("expected the sibling branch through c to resolve: %+v", res)
	}
	found := false
	for _, p := range res.Paths {
		if p == "c/a" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected c/a among paths, got %+v", res.Paths)
	}
}

func TestPaths_AbsentLeafYieldsNotFound(t *testing.T) {
	dir := t.TempDir()
	r := resolver.New(upstream.Registry{}, dir, 0)
	b := New(r)

	res := b.Paths(context.Background(), "nonexistent", "en", "agrovoc")
	if res.Found || len(res.Paths) != 0 {
		t.Fatalf("expected not-found result, got %+v", res)
	}
}

func TestWalk_DepthCapReturnsEmptyResult(t *testing.T) {
	dir := t.TempDir()
	leafURI := "http://x/n15"
	seed(t, dir, "agrovoc", "en", "n15", model.Concept{URI: leafURI, PrefLabel: "n15", Source: "agrovoc"})

	r := resolver.New(upstream.Registry{}, dir, 0)
	b := New(r)

	// A frame reached at depth == MaxDepth must be refused outright,
	// per spec's boundary behaviour: "Depth-cap reached at the 15th
	// frame ⇒ ([], false, {})" — even though "n15" itself resolves.
	res := b.walk(context.Background(), "n15", "en", "agrovoc", nil, nil, map[string]struct{}{}, MaxDepth)
	if res.Found || len(res.Paths) != 0 || len(res.URIMap) != 0 {
		t.Fatalf("expected depth cap to yield ([], false, {}), got %+v", res)
	}
}

func TestNormalize(t *testing.T) {
	if got := normalize("Plant Products-Extra"); got != "plant_products_extra" {
		t.Fatalf("normalize: got %q", got)
	}
}
