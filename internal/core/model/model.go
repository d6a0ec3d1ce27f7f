// Package model defines the core domain types shared across the service.
package model

import "encoding/json"

// BroaderRef is one entry in a concept's skos:broader chain.
type BroaderRef struct {
	URI   string `json:"uri"`
	Label string `json:"label,omitempty"`
}

// UnmarshalJSON accepts a broader entry encoded either as a bare URI
// string (the legacy on-disk shape) or as an {uri,label} object (the
// shape this module always writes).
func (b *BroaderRef) UnmarshalJSON(data []byte) error {
	var uri string
	if err := json.Unmarshal(data, &uri); err == nil {
		b.URI = uri
		b.Label = ""
		return nil
	}
	type alias BroaderRef
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*b = BroaderRef(a)
	return nil
}

// Concept is the canonical in-process representation of a SKOS concept,
// and also the on-disk positive-cache payload.
type Concept struct {
	URI          string              `json:"uri"`
	PrefLabel    string              `json:"prefLabel"`
	Source       string              `json:"source"`
	Broader      []BroaderRef        `json:"broader,omitempty"`
	Description  *string             `json:"description,omitempty"`
	WikipediaURL *string             `json:"wikipediaUrl,omitempty"`
	AltLabel     map[string][]string `json:"altLabel,omitempty"`
	Labels       map[string]string   `json:"labels,omitempty"`
	CachedAt     float64             `json:"_cached_at,omitempty"`
}

// Present reports whether the record carries a usable URI. Freshness
// (the TTL half of the "present" invariant in the cache store) is the
// caller's responsibility since it requires a clock and a TTL value.
func (c *Concept) Present() bool {
	return c != nil && c.URI != ""
}

// SetCachedAt implements cache.Stamped.
func (c *Concept) SetCachedAt(now float64) { c.CachedAt = now }

// LabelsRecord is the on-disk payload for a URI->labels cache entry.
type LabelsRecord struct {
	URI      string            `json:"uri"`
	Source   string            `json:"source"`
	Labels   map[string]string `json:"labels"`
	CachedAt float64           `json:"_cached_at,omitempty"`
}

// SetCachedAt implements cache.Stamped.
func (l *LabelsRecord) SetCachedAt(now float64) { l.CachedAt = now }

// NegativeEntry is one entry inside the consolidated negative-cache file.
// Note the naming asymmetry with Concept.CachedAt: this is "cached_at",
// not "_cached_at" — that is the on-disk wire format, shared with a peer
// tool, and must not be "fixed".
type NegativeEntry struct {
	CachedAt float64 `json:"cached_at"`
}

// NegativeCache is the full contents of _not_found.json.
type NegativeCache struct {
	Entries map[string]NegativeEntry `json:"entries"`
}

// CacheStats summarises the cache directory contents for the /cache endpoint.
type CacheStats struct {
	ConceptCount  int    `json:"concept_count"`
	LabelsCount   int    `json:"labels_count"`
	NotFoundCount int    `json:"not_found_count"`
	CacheDir      string `json:"cache_dir"`
}

// VocabularyConcept is one entry in the static package vocabulary.
type VocabularyConcept struct {
	ID           string              `json:"id"`
	PrefLabel    string              `json:"prefLabel"`
	AltLabel     map[string][]string `json:"altLabel,omitempty"`
	Broader      []string            `json:"broader,omitempty"`
	Narrower     []string            `json:"narrower,omitempty"`
	URI          string              `json:"uri,omitempty"`
	Labels       map[string]string   `json:"labels,omitempty"`
	Description  string              `json:"description,omitempty"`
	WikipediaURL string              `json:"wikipediaUrl,omitempty"`
}
