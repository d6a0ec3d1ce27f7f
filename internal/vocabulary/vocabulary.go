// Package vocabulary serves the static, package-bundled concept
// vocabulary: a small YAML file of concepts independent of the live
// taxonomy sources, used for category labels the service ships with
// rather than resolves live.
package vocabulary

import (
	"fmt"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/tobixen/skoscache/internal/core/model"
)

type rawFile struct {
	Concepts map[string]rawConcept `yaml:"concepts"`
}

type rawConcept struct {
	PrefLabel    string              `yaml:"prefLabel"`
	AltLabel     map[string][]string `yaml:"altLabel"`
	Broader      yaml.Node           `yaml:"broader"`
	Narrower     []string            `yaml:"narrower"`
	URI          string              `yaml:"uri"`
	Labels       map[string]string   `yaml:"labels"`
	Description  string              `yaml:"description"`
	WikipediaURL string              `yaml:"wikipediaUrl"`
}

// Vocabulary holds the loaded set of concepts, keyed by concept ID.
type Vocabulary struct {
	concepts map[string]model.VocabularyConcept
	etag     string
}

// Load parses the vocabulary YAML file at path.
func Load(path string) (*Vocabulary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary file: %w", err)
	}

	var f rawFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse vocabulary file: %w", err)
	}

	concepts := make(map[string]model.VocabularyConcept, len(f.Concepts))
	for id, c := range f.Concepts {
		prefLabel := c.PrefLabel
		if prefLabel == "" {
			prefLabel = id
		}
		concepts[id] = model.VocabularyConcept{
			ID:           id,
			PrefLabel:    prefLabel,
			AltLabel:     c.AltLabel,
			Broader:      decodeBroader(c.Broader),
			Narrower:     c.Narrower,
			URI:          c.URI,
			Labels:       c.Labels,
			Description:  c.Description,
			WikipediaURL: c.WikipediaURL,
		}
	}
	etag := strconv.FormatUint(xxhash.Sum64(raw), 16)
	return &Vocabulary{concepts: concepts, etag: etag}, nil
}

// ETag returns a fingerprint of the loaded vocabulary file's contents,
// suitable for an HTTP ETag header so clients can cache the (rarely
// changing) vocabulary listing and revalidate cheaply.
func (v *Vocabulary) ETag() string {
	return v.etag
}

// decodeBroader accepts the YAML "broader" field as either a bare
// string or a sequence of strings, matching the package's original
// Python loader.
func decodeBroader(node yaml.Node) []string {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if node.Decode(&s) == nil && s != "" {
			return []string{s}
		}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if node.Decode(&ss) == nil {
			return ss
		}
		return nil
	default:
		return nil
	}
}

// All returns every concept in the vocabulary, keyed by ID.
func (v *Vocabulary) All() map[string]model.VocabularyConcept {
	return v.concepts
}

// Get returns a single concept by ID.
func (v *Vocabulary) Get(id string) (model.VocabularyConcept, bool) {
	c, ok := v.concepts[id]
	return c, ok
}
