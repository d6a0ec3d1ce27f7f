package cache

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tobixen/skoscache/internal/core/model"
)

// Stats scans cacheDir for *.json files and classifies them by filename
// prefix, per spec §4.6. The scan is non-recursive and never validates
// payload shape beyond what's needed to count _not_found.json entries;
// unparseable files simply contribute zero.
func Stats(cacheDir string) (model.CacheStats, error) {
	stats := model.CacheStats{CacheDir: cacheDir}

	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, err
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		switch {
		case name == notFoundFile:
			nc, _ := readNegativeCache(filepath.Join(cacheDir, name))
			stats.NotFoundCount += len(nc.Entries)
		case strings.HasPrefix(name, "concept_"):
			stats.ConceptCount++
		case strings.HasPrefix(name, "labels_"):
			stats.LabelsCount++
		}
	}
	return stats, nil
}
