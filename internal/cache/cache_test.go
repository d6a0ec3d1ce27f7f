package cache

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/tobixen/skoscache/internal/core/model"
)

func TestPath_Deterministic(t *testing.T) {
	k := "concept:agrovoc:en:potatoes"
	p1 := Path("/tmp/cache", k)
	p2 := Path("/tmp/cache", k)
	if p1 != p2 {
		t.Fatalf("Path not deterministic: %s vs %s", p1, p2)
	}
	if !regexp.MustCompile(`_[0-9a-f]{16}\.json$`).MatchString(p1) {
		t.Fatalf("missing hash suffix: %s", p1)
	}
}

func TestPath_SafePrefixSanitized(t *testing.T) {
	p := Path("/tmp/cache", "concept:agrovoc:en:potatoes")
	base := filepath.Base(p)
	if !regexp.MustCompile(`^[A-Za-z0-9_]+\.json$`).MatchString(base) {
		t.Fatalf("unsafe characters in filename: %s", base)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, "concept:agrovoc:en:potatoes")

	uri := "http://aims.fao.org/aos/agrovoc/c_13551"
	c := &model.Concept{
		URI:       uri,
		PrefLabel: "potatoes",
		Source:    "agrovoc",
		Broader: []model.BroaderRef{
			{URI: "http://aims.fao.org/aos/agrovoc/c_8079", Label: "vegetables"},
		},
	}
	if err := Save(path, c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var got model.Concept
	if !Load(path, TTL, &got) {
		t.Fatalf("Load: expected hit")
	}
	if got.URI != uri || got.PrefLabel != "potatoes" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if got.CachedAt == 0 {
		t.Fatalf("expected _cached_at to be stamped")
	}
}

func TestLoad_ExpiredIsAbsent(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, "concept:agrovoc:en:old")

	c := &model.Concept{URI: "http://example.org/x", PrefLabel: "x", Source: "agrovoc"}
	if err := Save(path, c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var got model.Concept
	if Load(path, -time.Second, &got) {
		t.Fatalf("expected expired record to be absent")
	}
}

func TestLoad_MissingFileIsAbsent(t *testing.T) {
	var got model.Concept
	if Load(filepath.Join(t.TempDir(), "nope.json"), TTL, &got) {
		t.Fatalf("expected missing file to be absent")
	}
}

func TestLoad_CorruptFileIsAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got model.Concept
	if Load(path, TTL, &got) {
		t.Fatalf("expected corrupt file to be treated as absent")
	}
}

func TestNegativeCache_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	key := "concept:agrovoc:en:xyzzy"

	if IsNegative(dir, key, TTL) {
		t.Fatalf("expected no negative entry yet")
	}
	if err := AddNegative(dir, key); err != nil {
		t.Fatalf("AddNegative: %v", err)
	}
	if !IsNegative(dir, key, TTL) {
		t.Fatalf("expected negative entry to be present")
	}
	if IsNegative(dir, key, -time.Second) {
		t.Fatalf("expected negative entry to be expired under a negative TTL")
	}
}

func TestNegativeCache_Consolidated(t *testing.T) {
	dir := t.TempDir()
	if err := AddNegative(dir, "concept:agrovoc:en:a"); err != nil {
		t.Fatalf("AddNegative: %v", err)
	}
	if err := AddNegative(dir, "concept:agrovoc:en:b"); err != nil {
		t.Fatalf("AddNegative: %v", err)
	}

	if _, err := os.Stat(NotFoundPath(dir)); err != nil {
		t.Fatalf("expected consolidated file: %v", err)
	}
	if !IsNegative(dir, "concept:agrovoc:en:a", TTL) || !IsNegative(dir, "concept:agrovoc:en:b", TTL) {
		t.Fatalf("expected both keys present in the consolidated file")
	}
}

func TestStats_CountsByPrefix(t *testing.T) {
	dir := t.TempDir()

	if err := Save(Path(dir, "concept:agrovoc:en:potatoes"), &model.Concept{URI: "u1", PrefLabel: "p", Source: "agrovoc"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := Save(Path(dir, "labels:agrovoc:deadbeefdeadbeef"), &model.LabelsRecord{URI: "u1", Source: "agrovoc", Labels: map[string]string{"en": "x"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := AddNegative(dir, "concept:agrovoc:en:xyzzy"); err != nil {
		t.Fatalf("AddNegative: %v", err)
	}

	stats, err := Stats(dir)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ConceptCount != 1 || stats.LabelsCount != 1 || stats.NotFoundCount != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.CacheDir != dir {
		t.Fatalf("expected cache dir echoed back, got %q", stats.CacheDir)
	}
}

func TestStats_MissingDirIsEmpty(t *testing.T) {
	stats, err := Stats(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ConceptCount != 0 || stats.LabelsCount != 0 || stats.NotFoundCount != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}
