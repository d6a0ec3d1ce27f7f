// Package api translates HTTP requests into calls against the concept
// resolver, hierarchy builder, and package vocabulary, and renders
// their results as JSON.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tobixen/skoscache/internal/cache"
	"github.com/tobixen/skoscache/internal/core/model"
	"github.com/tobixen/skoscache/internal/core/observability"
	"github.com/tobixen/skoscache/internal/hierarchy"
	"github.com/tobixen/skoscache/internal/resolver"
	"github.com/tobixen/skoscache/internal/vocabulary"
)

const defaultSource = "agrovoc"

// Handler holds the dependencies the route handlers need.
type Handler struct {
	Resolver         *resolver.Resolver
	Hierarchy        *hierarchy.Builder
	Vocabulary       *vocabulary.Vocabulary
	CacheDir         string
	LabelsBatchWorkers int
}

// Mount registers every route this package serves onto r.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/api/skos", func(r chi.Router) {
		r.Get("/lookup", h.lookup)
		r.Get("/hierarchy", h.hierarchyPaths)
		r.Get("/labels", h.labels)
		r.Post("/labels/batch", h.labelsBatch)
		r.Get("/cache", h.cacheStats)
	})
	r.Get("/api/vocabulary", h.vocabularyAll)
	r.Get("/api/vocabulary/{id}", h.vocabularyOne)
	r.Get("/api/ean/{ean}", h.eanLookup)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	lang := queryOr(r, "lang", "en")
	source := queryOr(r, "source", defaultSource)

	if label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}

	concept, ok := h.Resolver.Lookup(r.Context(), label, lang, source)
	if !ok {
		writeError(w, http.StatusNotFound, "concept '"+label+"' not found in "+source)
		return
	}

	writeJSON(w, http.StatusOK, conceptToResponse(concept, source))
}

func conceptToResponse(c *model.Concept, source string) ConceptResponse {
	broader := make([]BroaderEntry, 0, len(c.Broader))
	for _, b := range c.Broader {
		if b.URI == "" {
			continue
		}
		broader = append(broader, BroaderEntry{URI: b.URI, Label: b.Label})
	}

	resp := ConceptResponse{
		URI:         c.URI,
		PrefLabel:   c.PrefLabel,
		AltLabels:   c.AltLabel,
		Broader:     broader,
		Narrower:    []string{},
		Source:      c.Source,
		Labels:      c.Labels,
		Description: c.Description,
		WikipediaURL: c.WikipediaURL,
	}
	if resp.AltLabels == nil {
		resp.AltLabels = map[string][]string{}
	}
	if resp.Labels == nil {
		resp.Labels = map[string]string{}
	}
	if resp.Source == "" {
		resp.Source = source
	}
	return resp
}

func (h *Handler) hierarchyPaths(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	lang := queryOr(r, "lang", "en")
	source := queryOr(r, "source", defaultSource)

	if label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}

	result := h.Hierarchy.Paths(r.Context(), label, lang, source)
	paths := result.Paths
	if paths == nil {
		paths = []string{}
	}
	uriMap := result.URIMap
	if uriMap == nil {
		uriMap = map[string]string{}
	}

	writeJSON(w, http.StatusOK, HierarchyResponse{
		Label:  label,
		Paths:  paths,
		Found:  result.Found,
		Source: source,
		URIMap: uriMap,
	})
}

func (h *Handler) labels(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	source := queryOr(r, "source", defaultSource)
	languages := splitLanguages(queryOr(r, "languages", "en,nb,de"))

	if uri == "" {
		writeError(w, http.StatusBadRequest, "uri is required")
		return
	}

	got := h.Resolver.GetLabels(r.Context(), uri, languages, source)
	if got == nil {
		got = map[string]string{}
	}
	writeJSON(w, http.StatusOK, LabelsResponse{URI: uri, Labels: got, Source: source})
}

func (h *Handler) labelsBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchLabelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Source == "" {
		req.Source = defaultSource
	}

	result := h.Resolver.GetLabelsBatch(r.Context(), req.URIs, req.Languages, req.Source, h.LabelsBatchWorkers)
	writeJSON(w, http.StatusOK, BatchLabelsResponse{Labels: result, Source: req.Source})
}

func (h *Handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := cache.Stats(h.CacheDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to scan cache directory")
		return
	}
	observability.SetCacheFileCount(stats.ConceptCount, stats.LabelsCount, stats.NotFoundCount)
	writeJSON(w, http.StatusOK, CacheStatsResponse{
		ConceptCount:  stats.ConceptCount,
		LabelsCount:   stats.LabelsCount,
		NotFoundCount: stats.NotFoundCount,
		CacheDir:      stats.CacheDir,
	})
}

func (h *Handler) vocabularyAll(w http.ResponseWriter, r *http.Request) {
	if h.Vocabulary == nil {
		writeJSON(w, http.StatusOK, map[string]model.VocabularyConcept{})
		return
	}
	w.Header().Set("ETag", `"`+h.Vocabulary.ETag()+`"`)
	writeJSON(w, http.StatusOK, h.Vocabulary.All())
}

func (h *Handler) vocabularyOne(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.Vocabulary == nil {
		writeError(w, http.StatusNotFound, "concept '"+id+"' not found")
		return
	}
	c, ok := h.Vocabulary.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "concept '"+id+"' not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) eanLookup(w http.ResponseWriter, r *http.Request) {
	ean := chi.URLParam(r, "ean")
	writeError(w, http.StatusNotImplemented, "EAN lookup not yet implemented (ean="+ean+")")
}

func queryOr(r *http.Request, key, def string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

func splitLanguages(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, struct {
		Detail string `json:"detail"`
	}{Detail: detail})
}
