// Package hierarchy builds root-to-leaf path strings by walking a
// concept's broader graph, applying per-source root remapping and
// cycle detection along the way.
package hierarchy

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tobixen/skoscache/internal/core/observability"
	"github.com/tobixen/skoscache/internal/resolver"
	"github.com/tobixen/skoscache/internal/rootmap"
)

// MaxDepth bounds the recursive broader walk.
const MaxDepth = 15

// Result is the outcome of a hierarchy walk: zero or more root-to-leaf
// path strings, whether any usable path was found, and a map from each
// path prefix to its concept URI. A root segment replaced by root
// remapping has no URI and no entry in the map.
type Result struct {
	Paths   []string
	Found   bool
	URIMap  map[string]string
}

// Builder drives the concept resolver to assemble hierarchy paths.
type Builder struct {
	Resolver *resolver.Resolver
}

func New(r *resolver.Resolver) *Builder {
	return &Builder{Resolver: r}
}

// Paths walks the broader graph from label to one or more roots and
// returns the accumulated path strings.
func (b *Builder) Paths(ctx context.Context, label, lang, source string) Result {
	r := b.walk(ctx, label, lang, source, nil, nil, map[string]struct{}{}, 0)
	if r.URIMap == nil {
		r.URIMap = map[string]string{}
	}
	return r
}

func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

func (b *Builder) walk(ctx context.Context, label, lang, source string, currentPath, currentURIs []string, visited map[string]struct{}, depth int) Result {
	if depth >= MaxDepth {
		log.Warn().Str("label", label).Str("source", source).Msg("hierarchy walk hit max depth")
		return Result{}
	}

	concept, ok := b.Resolver.Lookup(ctx, label, lang, source)
	if !ok || concept == nil {
		return Result{}
	}

	if _, seen := visited[concept.URI]; seen && concept.URI != "" {
		observability.IncHierarchyCycle(source)
		return Result{Found: true}
	}

	path := append([]string{normalize(concept.PrefLabel)}, currentPath...)
	uris := append([]string{concept.URI}, currentURIs...)

	nextVisited := make(map[string]struct{}, len(visited)+1)
	for k := range visited {
		nextVisited[k] = struct{}{}
	}
	if concept.URI != "" {
		nextVisited[concept.URI] = struct{}{}
	}

	if len(concept.Broader) == 0 {
		observability.ObserveHierarchyDepth(source, depth)
		return b.emitRoot(path, uris, concept.PrefLabel, source)
	}

	var allPaths []string
	uriMap := map[string]string{}
	for _, br := range concept.Broader {
		sub := b.walk(ctx, br.Label, lang, source, path, uris, nextVisited, depth+1)
		allPaths = append(allPaths, sub.Paths...)
		for k, v := range sub.URIMap {
			uriMap[k] = v
		}
	}

	if len(allPaths) == 0 {
		return b.partial(path, uris)
	}

	return Result{Paths: allPaths, Found: true, URIMap: uriMap}
}

// emitRoot applies root remapping, then emits a single path and its
// uri_map.
func (b *Builder) emitRoot(path, uris []string, rootPrefLabel, source string) Result {
	startIdx := 0
	out := append([]string{}, path...)
	if mapped, ok := rootmap.Lookup(source, strings.ToLower(rootPrefLabel)); ok {
		out[0] = mapped
		startIdx = 1
	}

	uriMap := map[string]string{}
	for i := startIdx; i < len(out); i++ {
		if uris[i] == "" {
			continue
		}
		uriMap[strings.Join(out[:i+1], "/")] = uris[i]
	}

	return Result{Paths: []string{strings.Join(out, "/")}, Found: true, URIMap: uriMap}
}

// partial synthesises a path for a branch whose broader concepts all
// failed to resolve, so disconnected subgraphs still produce output.
func (b *Builder) partial(path, uris []string) Result {
	found := len(uris) > 0 && uris[len(uris)-1] != ""

	uriMap := map[string]string{}
	for i := range path {
		if uris[i] == "" {
			continue
		}
		uriMap[strings.Join(path[:i+1], "/")] = uris[i]
	}

	return Result{Paths: []string{strings.Join(path, "/")}, Found: found, URIMap: uriMap}
}
