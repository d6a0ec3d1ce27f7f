// Package resolver implements the cache-through concept and label
// lookups that sit between the request surface and the upstream
// taxonomy adapters.
package resolver

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tobixen/skoscache/internal/cache"
	"github.com/tobixen/skoscache/internal/core/model"
	"github.com/tobixen/skoscache/internal/core/observability"
	"github.com/tobixen/skoscache/internal/upstream"
)

// memoConceptCacheSize bounds the in-process concept memo: enough to
// keep the working set of a single request burst warm without growing
// unbounded across a long-lived process.
const memoConceptCacheSize = 2048

// memoEntry pairs a cached concept with the moment it was written to the
// on-disk cache, so the in-process memo respects the same TTL as the
// on-disk cache.
type memoEntry struct {
	concept  model.Concept
	memoedAt time.Time
}

// Resolver performs cache-through concept and label lookups against a
// registry of upstream adapters, deduplicating concurrent requests for
// the same key within this process.
type Resolver struct {
	Adapters upstream.Registry
	CacheDir string
	TTL      time.Duration

	inflight sync.Map // map[string]*call
	memo     *lru.Cache[string, memoEntry]
}

// New builds a Resolver. ttl of zero defaults to cache.TTL.
func New(adapters upstream.Registry, cacheDir string, ttl time.Duration) *Resolver {
	if ttl == 0 {
		ttl = cache.TTL
	}
	memo, _ := lru.New[string, memoEntry](memoConceptCacheSize)
	return &Resolver{Adapters: adapters, CacheDir: cacheDir, TTL: ttl, memo: memo}
}

// ConceptKey builds the cache key for a concept lookup, per the grammar
// concept:<source>:<lang>:<label-lowercased>.
func ConceptKey(source, lang, label string) string {
	return fmt.Sprintf("concept:%s:%s:%s", source, lang, strings.ToLower(label))
}

// LabelsKey builds the cache key for a URI's labels record, per the
// grammar labels:<source>:<md5(uri)[0:16]>.
func LabelsKey(source, uri string) string {
	sum := md5.Sum([]byte(uri))
	return fmt.Sprintf("labels:%s:%s", source, hex.EncodeToString(sum[:])[:16])
}

// call coalesces concurrent lookups for the same key within this
// process: the first caller does the work, later callers join it.
type call struct {
	wg      sync.WaitGroup
	concept *model.Concept
}

// Lookup resolves label to a concept under source/lang, consulting the
// positive cache, then the negative cache, then the upstream adapter —
// at most one upstream attempt and at most one cache write per call.
// Concurrent callers for the same key within this process join a
// single in-flight attempt rather than each issuing their own.
func (r *Resolver) Lookup(ctx context.Context, label, lang, source string) (*model.Concept, bool) {
	key := ConceptKey(source, lang, label)
	path := cache.Path(r.CacheDir, key)

	if entry, ok := r.memoGet(key); ok {
		observability.IncCacheLookup("hit_positive", source)
		return &entry, true
	}

	var existing model.Concept
	if cache.Load(path, r.TTL, &existing) && existing.Present() {
		observability.IncCacheLookup("hit_positive", source)
		kept := existing.Broader[:0]
		for _, b := range existing.Broader {
			if b.URI != "" {
				kept = append(kept, b)
			}
		}
		existing.Broader = kept
		r.memoSet(key, existing)
		return &existing, true
	}

	if cache.IsNegative(r.CacheDir, key, r.TTL) {
		observability.IncCacheLookup("hit_negative", source)
		return nil, false
	}
	observability.IncCacheLookup("miss", source)

	c, joined := r.joinOrStart(key, func() *model.Concept {
		return r.resolveConcept(ctx, label, lang, source, key, path)
	})
	if joined {
		observability.IncSingleflightJoin("concept")
	}
	return c, c != nil
}

func (r *Resolver) joinOrStart(key string, work func() *model.Concept) (*model.Concept, bool) {
	c := &call{}
	c.wg.Add(1)
	actual, loaded := r.inflight.LoadOrStore(key, c)
	owned := actual.(*call)

	if loaded {
		owned.wg.Wait()
		return owned.concept, true
	}

	defer func() {
		r.inflight.Delete(key)
		owned.wg.Done()
	}()
	owned.concept = work()
	return owned.concept, false
}

func (r *Resolver) resolveConcept(ctx context.Context, label, lang, source, key, path string) *model.Concept {
	adapter, ok := r.Adapters.Dispatch(source)
	if !ok {
		return nil
	}

	concept, transient, _ := adapter.Search(ctx, label, lang)
	if transient {
		return nil
	}
	if concept == nil || concept.URI == "" {
		_ = cache.AddNegative(r.CacheDir, key)
		return nil
	}

	_ = cache.Save(path, concept)
	r.memoSet(key, *concept)
	return concept
}

// memoGet returns the in-process memo for key if present and still
// within TTL, evicting it otherwise.
func (r *Resolver) memoGet(key string) (model.Concept, bool) {
	if r.memo == nil {
		return model.Concept{}, false
	}
	entry, ok := r.memo.Get(key)
	if !ok {
		return model.Concept{}, false
	}
	if r.TTL > 0 && time.Since(entry.memoedAt) > r.TTL {
		r.memo.Remove(key)
		return model.Concept{}, false
	}
	return entry.concept, true
}

func (r *Resolver) memoSet(key string, concept model.Concept) {
	if r.memo == nil {
		return
	}
	memoedAt := time.Now()
	if concept.CachedAt > 0 {
		memoedAt = time.Unix(0, int64(concept.CachedAt*float64(time.Second)))
	}
	r.memo.Add(key, memoEntry{concept: concept, memoedAt: memoedAt})
}

// GetLabels resolves uri to a mapping of language to label, filtered to
// languages, consulting the positive cache before falling back to the
// source's labels adapter.
func (r *Resolver) GetLabels(ctx context.Context, uri string, languages []string, source string) map[string]string {
	if uri == "" || len(languages) == 0 {
		return map[string]string{}
	}

	key := LabelsKey(source, uri)
	path := cache.Path(r.CacheDir, key)

	var rec model.LabelsRecord
	if cache.Load(path, r.TTL, &rec) {
		observability.IncCacheLookup("hit_positive", source)
		return filterLabels(rec.Labels, languages)
	}
	observability.IncCacheLookup("miss", source)

	labelsIface, joined := r.joinOrStartLabels(key, func() map[string]string {
		return r.fetchLabels(ctx, uri, languages, source, path)
	})
	if joined {
		observability.IncSingleflightJoin("labels")
	}
	return filterLabels(labelsIface, languages)
}

// labelsCall mirrors call but for the GetLabels path, which returns a
// map rather than a *model.Concept.
type labelsCall struct {
	wg     sync.WaitGroup
	labels map[string]string
}

func (r *Resolver) joinOrStartLabels(key string, work func() map[string]string) (map[string]string, bool) {
	c := &labelsCall{}
	c.wg.Add(1)
	actual, loaded := r.inflight.LoadOrStore("labels:"+key, c)
	owned := actual.(*labelsCall)

	if loaded {
		owned.wg.Wait()
		return owned.labels, true
	}

	defer func() {
		r.inflight.Delete("labels:" + key)
		owned.wg.Done()
	}()
	owned.labels = work()
	return owned.labels, false
}

func (r *Resolver) fetchLabels(ctx context.Context, uri string, languages []string, source, path string) map[string]string {
	adapter, ok := r.Adapters.Dispatch(source)
	if !ok {
		return map[string]string{}
	}

	labels, err := adapter.Labels(ctx, uri, languages)
	if err != nil || len(labels) == 0 {
		return map[string]string{}
	}

	_ = cache.Save(path, &model.LabelsRecord{URI: uri, Source: source, Labels: labels})
	return labels
}

func filterLabels(all map[string]string, languages []string) map[string]string {
	out := make(map[string]string, len(languages))
	for _, lang := range languages {
		if v, ok := all[lang]; ok {
			out[lang] = v
		}
	}
	return out
}

// GetLabelsBatch resolves labels for every URI independently and
// concurrently, bounded by maxWorkers. The result ordering does not
// depend on completion order.
func (r *Resolver) GetLabelsBatch(ctx context.Context, uris []string, languages []string, source string, maxWorkers int) map[string]map[string]string {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	out := make(map[string]map[string]string, len(uris))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxWorkers)

	for _, uri := range uris {
		wg.Add(1)
		sem <- struct{}{}
		go func(uri string) {
			defer wg.Done()
			defer func() { <-sem }()
			labels := r.GetLabels(ctx, uri, languages, source)
			mu.Lock()
			out[uri] = labels
			mu.Unlock()
		}(uri)
	}
	wg.Wait()
	return out
}
