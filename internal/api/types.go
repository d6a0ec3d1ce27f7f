package api

// ConceptResponse is the external representation of a resolved SKOS
// concept returned by GET /api/skos/lookup.
type ConceptResponse struct {
	URI          string              `json:"uri,omitempty"`
	PrefLabel    string              `json:"prefLabel"`
	AltLabels    map[string][]string `json:"altLabels"`
	Broader      []BroaderEntry      `json:"broader"`
	Narrower     []string            `json:"narrower"`
	Source       string              `json:"source"`
	Labels       map[string]string   `json:"labels"`
	Description  *string             `json:"description,omitempty"`
	WikipediaURL *string             `json:"wikipediaUrl,omitempty"`
}

// BroaderEntry is one entry in a ConceptResponse's broader chain.
type BroaderEntry struct {
	URI   string `json:"uri"`
	Label string `json:"label"`
}

// HierarchyResponse is returned by GET /api/skos/hierarchy, always with
// HTTP 200 even when Found is false.
type HierarchyResponse struct {
	Label  string            `json:"label"`
	Paths  []string          `json:"paths"`
	Found  bool              `json:"found"`
	Source string            `json:"source"`
	URIMap map[string]string `json:"uri_map"`
}

// LabelsResponse is returned by GET /api/skos/labels.
type LabelsResponse struct {
	URI    string            `json:"uri"`
	Labels map[string]string `json:"labels"`
	Source string            `json:"source"`
}

// BatchLabelsRequest is the body of POST /api/skos/labels/batch.
type BatchLabelsRequest struct {
	URIs      []string `json:"uris"`
	Languages []string `json:"languages"`
	Source    string   `json:"source"`
}

// BatchLabelsResponse is returned by POST /api/skos/labels/batch.
type BatchLabelsResponse struct {
	Labels map[string]map[string]string `json:"labels"`
	Source string                       `json:"source"`
}

// CacheStatsResponse is returned by GET /api/skos/cache.
type CacheStatsResponse struct {
	ConceptCount  int    `json:"concept_count"`
	LabelsCount   int    `json:"labels_count"`
	NotFoundCount int    `json:"not_found_count"`
	CacheDir      string `json:"cache_dir"`
}

// ProductResponse is the (currently unimplemented) shape of an EAN/
// barcode lookup result.
type ProductResponse struct {
	EAN        string   `json:"ean"`
	Name       *string  `json:"name,omitempty"`
	Brand      *string  `json:"brand,omitempty"`
	Quantity   *string  `json:"quantity,omitempty"`
	Categories []string `json:"categories"`
	ImageURL   *string  `json:"image_url,omitempty"`
	Source     string   `json:"source"`
}
