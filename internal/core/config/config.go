// Package config loads the service's runtime configuration from the
// environment, with defaults suitable for local development.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the service reads at startup. There is no
// live reload: a changed environment variable takes effect on the next
// process restart.
type Config struct {
	Addr     string
	LogLevel string
	Scenario string

	CacheDir        string
	CacheTTL        time.Duration
	UpstreamTimeout time.Duration

	AgrovocBaseURL  string
	DBpediaBaseURL  string
	WikidataBaseURL string
	WikidataAPIURL  string
	UserAgent       string

	LabelsBatchMaxWorkers int

	VocabularyPath string
}

// FromEnv builds a Config from the process environment, falling back to
// defaults appropriate for a developer running the service against the
// public AGROVOC/DBpedia/Wikidata endpoints.
func FromEnv() Config {
	return Config{
		Addr:     getenv("ADDR", ":8090"),
		LogLevel: getenv("LOG_LEVEL", "info"),
		Scenario: getenv("SCENARIO", "default"),

		CacheDir:        getenv("CACHE_DIR", "./cache"),
		CacheTTL:        getduration("CACHE_TTL", 60*24*time.Hour),
		UpstreamTimeout: getduration("UPSTREAM_TIMEOUT", 10*time.Second),

		AgrovocBaseURL:  getenv("AGROVOC_BASE_URL", "https://agrovoc.fao.org/browse/rest/v1"),
		DBpediaBaseURL:  getenv("DBPEDIA_BASE_URL", "https://dbpedia.org"),
		WikidataBaseURL: getenv("WIKIDATA_BASE_URL", "https://www.wikidata.org/w/api.php"),
		WikidataAPIURL:  getenv("WIKIDATA_REST_URL", "https://www.wikidata.org/w/rest.php/wikibase/v0"),
		UserAgent:       getenv("USER_AGENT", "skoscache/0.1 (SKOS lookup service)"),

		LabelsBatchMaxWorkers: getint("LABELS_BATCH_MAX_WORKERS", 8),

		VocabularyPath: getenv("VOCABULARY_PATH", "internal/vocabulary/data/vocabulary.yaml"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
