// Package upstream defines the capability shared by the three taxonomy
// sources (AGROVOC, DBpedia, Wikidata): searching for a concept by label
// and fetching multilingual labels for a URI. Each source has a disjoint
// wire shape; adapters normalise into the common internal/core/model
// representation.
package upstream

import (
	"context"
	"strings"

	"github.com/tobixen/skoscache/internal/core/model"
)

// Adapter is the capability a taxonomy source exposes to the resolver.
//
// Search's transient bool reports whether the query itself failed
// (timeout, connection reset, 5xx, malformed JSON): true means the
// caller must not record an absence. false with a nil concept means the
// upstream responded authoritatively with no usable match.
type Adapter interface {
	Search(ctx context.Context, label, lang string) (concept *model.Concept, transient bool, err error)
	Labels(ctx context.Context, uri string, languages []string) (map[string]string, error)
}

// Candidate is the minimal shape every source's search result list is
// reduced to before BestMatch is applied.
type Candidate struct {
	URI       string
	PrefLabel string
	AltLabel  []string
}

// BestMatch implements the shared matching rule: prefer the candidate
// whose PrefLabel case-insensitively equals the query, or whose AltLabel
// contains the query case-insensitively; otherwise the first candidate
// with a usable URI. Candidates without a URI are skipped entirely; if
// none remain, ok is false (an authoritative absence, not a transient
// failure).
func BestMatch(candidates []Candidate, query string) (Candidate, bool) {
	usable := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.URI != "" {
			usable = append(usable, c)
		}
	}
	if len(usable) == 0 {
		return Candidate{}, false
	}

	q := strings.ToLower(query)
	for _, c := range usable {
		if strings.ToLower(c.PrefLabel) == q {
			return c, true
		}
		for _, alt := range c.AltLabel {
			if strings.ToLower(alt) == q {
				return c, true
			}
		}
	}
	return usable[0], true
}

// Registry is a dispatch table from source name to Adapter.
type Registry map[string]Adapter

// Dispatch looks up the adapter for source. A missing entry is not an
// error to throw: the resolver treats it as an authoritative-looking
// absence paired with transient=true, per spec §6, so unknown sources
// degrade gracefully without poisoning any cache.
func (r Registry) Dispatch(source string) (Adapter, bool) {
	a, ok := r[source]
	return a, ok
}
