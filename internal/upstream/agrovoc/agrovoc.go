// Package agrovoc implements the upstream.Adapter for FAO's AGROVOC
// thesaurus, served over the Skosmos REST API.
package agrovoc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/tobixen/skoscache/internal/core/model"
	"github.com/tobixen/skoscache/internal/core/observability"
	"github.com/tobixen/skoscache/internal/upstream"
)

const (
	defaultBase    = "https://agrovoc.fao.org/browse/rest/v1"
	defaultTimeout = 10 * time.Second
)

// Adapter queries AGROVOC's Skosmos REST endpoints.
type Adapter struct {
	Client  *http.Client
	Base    string
	Timeout time.Duration
}

// New builds an Adapter with the given HTTP client and, optionally, a
// non-default REST base URL (useful for pointing tests at an
// httptest.Server). A timeout of zero defaults to 10s, the per-call
// upstream budget.
func New(client *http.Client, base string, timeout time.Duration) *Adapter {
	if base == "" {
		base = defaultBase
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Adapter{Client: client, Base: base, Timeout: timeout}
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	URI       string   `json:"uri"`
	PrefLabel string   `json:"prefLabel"`
	AltLabel  []string `json:"altLabel"`
}

type dataResponse struct {
	Graph []graphNode `json:"graph"`
}

type graphNode struct {
	URI       string          `json:"uri"`
	Broader   json.RawMessage `json:"broader"`
	PrefLabel json.RawMessage `json:"prefLabel"`
}

func (a *Adapter) Search(ctx context.Context, label, lang string) (*model.Concept, bool, error) {
	start := time.Now()
	q := url.Values{"query": {label}, "lang": {lang}}
	var resp searchResponse
	err := getJSON(ctx, a.Client, a.Timeout, a.Base+"/search/?"+q.Encode(), &resp)
	observability.ObserveUpstreamCall("agrovoc", "search", err, time.Since(start).Seconds())
	if err != nil {
		return nil, true, err
	}

	candidates := make([]upstream.Candidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		candidates = append(candidates, upstream.Candidate{URI: r.URI, PrefLabel: r.PrefLabel, AltLabel: r.AltLabel})
	}
	best, ok := upstream.BestMatch(candidates, label)
	if !ok {
		return nil, false, nil
	}

	broader := a.broaderFor(ctx, best.URI, lang)
	return &model.Concept{
		URI:       best.URI,
		PrefLabel: best.PrefLabel,
		Source:    "agrovoc",
		Broader:   broader,
	}, false, nil
}

func (a *Adapter) broaderFor(ctx context.Context, conceptURI, lang string) []model.BroaderRef {
	data, ok := a.fetchGraph(ctx, conceptURI)
	if !ok {
		return nil
	}

	var self *graphNode
	for i := range data.Graph {
		if data.Graph[i].URI == conceptURI {
			self = &data.Graph[i]
			break
		}
	}
	if self == nil {
		return nil
	}

	broaderURIs := decodeBroaderRefs(self.Broader)
	var out []model.BroaderRef
	for _, bURI := range broaderURIs {
		if bURI == "" {
			continue
		}
		out = append(out, model.BroaderRef{URI: bURI, Label: findPrefLabel(data.Graph, bURI, lang)})
	}
	return out
}

func (a *Adapter) fetchGraph(ctx context.Context, conceptURI string) (dataResponse, bool) {
	start := time.Now()
	q := url.Values{"uri": {conceptURI}}
	var resp dataResponse
	err := getJSON(ctx, a.Client, a.Timeout, a.Base+"/data/?"+q.Encode(), &resp)
	observability.ObserveUpstreamCall("agrovoc", "data", err, time.Since(start).Seconds())
	if err != nil {
		return dataResponse{}, false
	}
	return resp, true
}

func (a *Adapter) Labels(ctx context.Context, uri string, languages []string) (map[string]string, error) {
	data, ok := a.fetchGraph(ctx, uri)
	if !ok {
		return map[string]string{}, nil
	}
	wanted := toSet(languages)

	out := map[string]string{}
	for _, node := range data.Graph {
		if node.URI != uri {
			continue
		}
		for _, pl := range decodePrefLabels(node.PrefLabel) {
			if _, ok := wanted[pl.Lang]; ok && pl.Value != "" {
				out[pl.Lang] = pl.Value
			}
		}
	}
	return out, nil
}

// decodeBroaderRefs accepts the AGROVOC graph's "broader" field in any
// of its three observed shapes: a bare string, a list of strings, or a
// list of {"uri": ...} objects.
func decodeBroaderRefs(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var single string
	if json.Unmarshal(raw, &single) == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}
	var strs []string
	if json.Unmarshal(raw, &strs) == nil {
		return strs
	}
	var objs []struct {
		URI string `json:"uri"`
	}
	if json.Unmarshal(raw, &objs) == nil {
		out := make([]string, 0, len(objs))
		for _, o := range objs {
			out = append(out, o.URI)
		}
		return out
	}
	return nil
}

type prefLabelEntry struct {
	Lang  string
	Value string
}

// decodePrefLabels accepts prefLabel encoded as a bare string or as a
// list of {"lang": ..., "value": ...} objects.
func decodePrefLabels(raw json.RawMessage) []prefLabelEntry {
	if len(raw) == 0 {
		return nil
	}
	var single string
	if json.Unmarshal(raw, &single) == nil {
		return []prefLabelEntry{{Value: single}}
	}
	var objs []struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	}
	if json.Unmarshal(raw, &objs) == nil {
		out := make([]prefLabelEntry, 0, len(objs))
		for _, o := range objs {
			out = append(out, prefLabelEntry{Lang: o.Lang, Value: o.Value})
		}
		return out
	}
	return nil
}

// findPrefLabel looks up the prefLabel of the node with the given URI,
// preferring the entry matching lang and falling back to the first.
func findPrefLabel(graph []graphNode, uri, lang string) string {
	for _, node := range graph {
		if node.URI != uri {
			continue
		}
		entries := decodePrefLabels(node.PrefLabel)
		for _, e := range entries {
			if e.Lang == lang {
				return e.Value
			}
		}
		if len(entries) > 0 {
			return entries[0].Value
		}
		return ""
	}
	return ""
}

func toSet(languages []string) map[string]struct{} {
	out := make(map[string]struct{}, len(languages))
	for _, l := range languages {
		out[l] = struct{}{}
	}
	return out
}

func getJSON(ctx context.Context, client *http.Client, timeout time.Duration, rawURL string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
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

func (e *httpStatusError) Error() string {
	return "upstream returned non-2xx status"
}
