// Package rootmap holds the per-source root remapping tables used by the
// hierarchy builder. These are data, not code: a root concept's
// lower-cased prefLabel maps to a concise synthetic replacement segment
// (e.g. AGROVOC's "Plant products" becomes "food").
package rootmap

// tables is keyed by source name, then by lower-cased prefLabel.
var tables = map[string]map[string]string{
	"agrovoc": {
		"products":          "food",
		"plant products":    "food",
		"animal products":   "food",
		"processed products": "food",
		"aquatic products":  "food",
		"equipment":         "tools",
		"materials":         "materials",
		"chemicals":         "chemicals",
		"organisms":         "organisms",
	},
	"dbpedia":  {},
	"wikidata": {},
}

// Lookup returns the replacement segment for a root's lower-cased
// prefLabel under the given source, and whether a mapping exists.
func Lookup(source, lowerPrefLabel string) (string, bool) {
	t, ok := tables[source]
	if !ok {
		return "", false
	}
	v, ok := t[lowerPrefLabel]
	return v, ok
}
