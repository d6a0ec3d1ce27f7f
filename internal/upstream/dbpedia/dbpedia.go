// Package dbpedia implements the upstream.Adapter for DBpedia, using
// the Lookup REST service for search and the per-resource JSON data
// endpoint for broader/label traversal.
package dbpedia

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tobixen/skoscache/internal/core/model"
	"github.com/tobixen/skoscache/internal/core/observability"
	"github.com/tobixen/skoscache/internal/upstream"
)

const (
	defaultBase    = "https://dbpedia.org"
	defaultTimeout = 10 * time.Second
)

// Adapter queries DBpedia's Lookup search API and its linked-data JSON
// representation.
type Adapter struct {
	Client  *http.Client
	Base    string
	Timeout time.Duration
}

// New builds an Adapter. A timeout of zero defaults to 10s, the
// per-call upstream budget.
func New(client *http.Client, base string, timeout time.Duration) *Adapter {
	if base == "" {
		base = defaultBase
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Adapter{Client: client, Base: base, Timeout: timeout}
}

type lookupResponse struct {
	Docs []lookupDoc `json:"docs"`
}

type lookupDoc struct {
	Resource []string `json:"resource"`
	Label    []string `json:"label"`
	Redirect []string `json:"redirects"`
}

func (a *Adapter) Search(ctx context.Context, label, lang string) (*model.Concept, bool, error) {
	start := time.Now()
	q := url.Values{"query": {label}, "format": {"JSON"}, "maxResults": {"5"}}
	if lang != "" {
		q.Set("language", lang)
	}
	var resp lookupResponse
	err := getJSON(ctx, a.Client, a.Timeout, a.lookupBase()+"/api/search?"+q.Encode(), &resp)
	observability.ObserveUpstreamCall("dbpedia", "search", err, time.Since(start).Seconds())
	if err != nil {
		return nil, true, err
	}

	candidates := make([]upstream.Candidate, 0, len(resp.Docs))
	for _, d := range resp.Docs {
		if len(d.Resource) == 0 {
			continue
		}
		pref := ""
		if len(d.Label) > 0 {
			pref = stripTags(d.Label[0])
		}
		candidates = append(candidates, upstream.Candidate{URI: d.Resource[0], PrefLabel: pref})
	}
	best, ok := upstream.BestMatch(candidates, label)
	if !ok {
		return nil, false, nil
	}

	broader, labels := a.fetchResource(ctx, best.URI, lang)
	prefLabel := best.PrefLabel
	if l, ok := labels[lang]; ok && l != "" {
		prefLabel = l
	}

	return &model.Concept{
		URI:       best.URI,
		PrefLabel: prefLabel,
		Source:    "dbpedia",
		Broader:   broader,
	}, false, nil
}

// resourceGraph is the relevant slice of a DBpedia resource's JSON
// linked-data document: a map from predicate URI to value list.
type resourceGraph map[string]map[string][]rdfValue

type rdfValue struct {
	Value string `json:"value"`
	Lang  string `json:"lang,omitempty"`
	Type  string `json:"type,omitempty"`
}

const (
	predSkosBroader = "http://www.w3.org/2004/02/skos/core#broader"
	predDboBroader  = "http://dbpedia.org/ontology/broader"
	predRdfsLabel   = "http://www.w3.org/2000/01/rdf-schema#label"
)

// lookupBase is the Lookup service's own host; it is separate from the
// linked-data host (a.Base) but overridable together with it for tests
// that stand up a single httptest.Server for both.
func (a *Adapter) lookupBase() string {
	if a.Base != defaultBase {
		return a.Base
	}
	return "https://lookup.dbpedia.org"
}

// dataURL builds the JSON linked-data URL for a DBpedia resource URI,
// e.g. http://dbpedia.org/resource/Potato -> https://dbpedia.org/data/Potato.json.
func (a *Adapter) dataURL(resourceURI string) string {
	name := resourceURI
	if idx := strings.LastIndex(resourceURI, "/resource/"); idx >= 0 {
		name = resourceURI[idx+len("/resource/"):]
	}
	return a.Base + "/data/" + name + ".json"
}

func (a *Adapter) fetchResource(ctx context.Context, uri, lang string) ([]model.BroaderRef, map[string]string) {
	start := time.Now()
	var graph resourceGraph
	err := getJSON(ctx, a.Client, a.Timeout, a.dataURL(uri), &graph)
	observability.ObserveUpstreamCall("dbpedia", "data", err, time.Since(start).Seconds())
	if err != nil {
		return nil, nil
	}

	node, ok := graph[uri]
	if !ok {
		return nil, nil
	}

	broaderURIs := node[predSkosBroader]
	if len(broaderURIs) == 0 {
		broaderURIs = node[predDboBroader]
	}

	var broader []model.BroaderRef
	for _, b := range broaderURIs {
		if b.Type != "uri" || b.Value == "" {
			continue
		}
		broader = append(broader, model.BroaderRef{URI: b.Value, Label: labelFor(graph, b.Value, lang)})
	}

	labels := map[string]string{}
	for _, l := range node[predRdfsLabel] {
		if l.Lang != "" && l.Value != "" {
			labels[l.Lang] = l.Value
		}
	}
	return broader, labels
}

func labelFor(graph resourceGraph, uri, lang string) string {
	node, ok := graph[uri]
	if !ok {
		return ""
	}
	labels := node[predRdfsLabel]
	for _, l := range labels {
		if l.Lang == lang {
			return l.Value
		}
	}
	if len(labels) > 0 {
		return labels[0].Value
	}
	return ""
}

func (a *Adapter) Labels(ctx context.Context, uri string, languages []string) (map[string]string, error) {
	_, labels := a.fetchResource(ctx, uri, "")
	if labels == nil {
		return map[string]string{}, nil
	}
	wanted := make(map[string]struct{}, len(languages))
	for _, l := range languages {
		wanted[l] = struct{}{}
	}
	out := map[string]string{}
	for lang, v := range labels {
		if _, ok := wanted[lang]; ok {
			out[lang] = v
		}
	}
	return out, nil
}

func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func getJSON(ctx context.Context, client *http.Client, timeout time.Duration, rawURL string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpStatusError{code: resp.StatusCode}
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

type httpStatusError struct{ code int }

func (e *httpStatusError) Error() string { return "upstream returned non-2xx status" }
