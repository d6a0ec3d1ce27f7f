// Package wikidata implements the upstream.Adapter for Wikidata, using
// the MediaWiki Action API for search and entity/claim retrieval, and
// the Wikibase REST API for label lookup.
package wikidata

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
	defaultActionAPI = "https://www.wikidata.org/w/api.php"
	defaultRESTAPI    = "https://www.wikidata.org/w/rest.php/wikibase/v0"
	defaultTimeout    = 10 * time.Second

	// predBroaderClaim is the Wikidata property used as the broader
	// relation: P279, "subclass of".
	predBroaderClaim = "P279"
)

// Adapter queries Wikidata's Action API and Wikibase REST API.
type Adapter struct {
	Client    *http.Client
	ActionAPI string
	RESTAPI   string
	UserAgent string
	Timeout   time.Duration
}

// New builds an Adapter. A timeout of zero defaults to 10s, the
// per-call upstream budget.
func New(client *http.Client, actionAPI, restAPI, userAgent string, timeout time.Duration) *Adapter {
	if actionAPI == "" {
		actionAPI = defaultActionAPI
	}
	if restAPI == "" {
		restAPI = defaultRESTAPI
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Adapter{Client: client, ActionAPI: actionAPI, RESTAPI: restAPI, UserAgent: userAgent, Timeout: timeout}
}

type searchResponse struct {
	Search []searchHit `json:"search"`
}

type searchHit struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (a *Adapter) Search(ctx context.Context, label, lang string) (*model.Concept, bool, error) {
	start := time.Now()
	q := url.Values{
		"action":   {"wbsearchentities"},
		"search":   {label},
		"language": {lang},
		"format":   {"json"},
		"limit":    {"5"},
	}
	var resp searchResponse
	err := a.getJSON(ctx, a.ActionAPI+"?"+q.Encode(), &resp)
	observability.ObserveUpstreamCall("wikidata", "search", err, time.Since(start).Seconds())
	if err != nil {
		return nil, true, err
	}

	candidates := make([]upstream.Candidate, 0, len(resp.Search))
	for _, h := range resp.Search {
		candidates = append(candidates, upstream.Candidate{URI: h.ID, PrefLabel: h.Label})
	}
	best, ok := upstream.BestMatch(candidates, label)
	if !ok {
		return nil, false, nil
	}

	broader, transient := a.broaderFor(ctx, best.URI, lang)
	if transient {
		return nil, true, nil
	}

	return &model.Concept{
		URI:       entityURI(best.URI),
		PrefLabel: best.PrefLabel,
		Source:    "wikidata",
		Broader:   broader,
	}, false, nil
}

func entityURI(qid string) string {
	return "http://www.wikidata.org/entity/" + qid
}

func qidFromURI(uri string) string {
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}

type entitiesResponse struct {
	Entities map[string]entity `json:"entities"`
}

type entity struct {
	Labels map[string]struct {
		Value string `json:"value"`
	} `json:"labels"`
	Claims map[string][]claim `json:"claims"`
}

type claim struct {
	Mainsnak struct {
		Datavalue struct {
			Value struct {
				ID string `json:"id"`
			} `json:"value"`
		} `json:"datavalue"`
	} `json:"mainsnak"`
}

// broaderFor fetches the P279 ("subclass of") claims for qid, then a
// second batched call to resolve each target's label in lang.
func (a *Adapter) broaderFor(ctx context.Context, qid, lang string) ([]model.BroaderRef, bool) {
	start := time.Now()
	q := url.Values{
		"action":  {"wbgetentities"},
		"ids":     {qid},
		"props":   {"claims"},
		"format":  {"json"},
	}
	var resp entitiesResponse
	err := a.getJSON(ctx, a.ActionAPI+"?"+q.Encode(), &resp)
	observability.ObserveUpstreamCall("wikidata", "claims", err, time.Since(start).Seconds())
	if err != nil {
		return nil, true
	}

	ent, ok := resp.Entities[qid]
	if !ok {
		return nil, false
	}

	var targetQIDs []string
	for _, c := range ent.Claims[predBroaderClaim] {
		if id := c.Mainsnak.Datavalue.Value.ID; id != "" {
			targetQIDs = append(targetQIDs, id)
		}
	}
	if len(targetQIDs) == 0 {
		return nil, false
	}

	labels, transient := a.labelsForEntities(ctx, targetQIDs, lang)
	if transient {
		return nil, true
	}

	out := make([]model.BroaderRef, 0, len(targetQIDs))
	for _, id := range targetQIDs {
		out = append(out, model.BroaderRef{URI: entityURI(id), Label: labels[id]})
	}
	return out, false
}

// labelsForEntities fetches the lang label for each of ids in a single
// batched wbgetentities call.
func (a *Adapter) labelsForEntities(ctx context.Context, ids []string, lang string) (map[string]string, bool) {
	start := time.Now()
	q := url.Values{
		"action":   {"wbgetentities"},
		"ids":      {strings.Join(ids, "|")},
		"props":    {"labels"},
		"languages": {lang},
		"format":   {"json"},
	}
	var resp entitiesResponse
	err := a.getJSON(ctx, a.ActionAPI+"?"+q.Encode(), &resp)
	observability.ObserveUpstreamCall("wikidata", "labels_batch", err, time.Since(start).Seconds())
	if err != nil {
		return nil, true
	}

	out := make(map[string]string, len(ids))
	for id, e := range resp.Entities {
		if l, ok := e.Labels[lang]; ok {
			out[id] = l.Value
		}
	}
	return out, false
}

type restLabelsResponse map[string]string

// Labels fetches the item's labels via the Wikibase REST API, filtered
// to the requested languages.
func (a *Adapter) Labels(ctx context.Context, uri string, languages []string) (map[string]string, error) {
	qid := qidFromURI(uri)
	start := time.Now()
	var resp restLabelsResponse
	err := a.getJSON(ctx, a.RESTAPI+"/entities/items/"+qid+"/labels", &resp)
	observability.ObserveUpstreamCall("wikidata", "rest_labels", err, time.Since(start).Seconds())
	if err != nil {
		return map[string]string{}, nil
	}

	wanted := make(map[string]struct{}, len(languages))
	for _, l := range languages {
		wanted[l] = struct{}{}
	}
	out := map[string]string{}
	for lang, v := range resp {
		if _, ok := wanted[lang]; ok {
			out[lang] = v
		}
	}
	return out, nil
}

func (a *Adapter) getJSON(ctx context.Context, rawURL string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if a.UserAgent != "" {
		req.Header.Set("User-Agent", a.UserAgent)
	}
	resp, err := a.Client.Do(req)
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
