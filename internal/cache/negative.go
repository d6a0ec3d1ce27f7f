package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tobixen/skoscache/internal/core/model"
)

// NotFoundPath returns the path of the consolidated negative-cache file
// for a given cache directory. The basename is reserved: no positive
// entry may ever collide with it.
func NotFoundPath(cacheDir string) string {
	return filepath.Join(cacheDir, notFoundFile)
}

// IsNegative reports whether key is present and unexpired in the
// consolidated negative cache.
func IsNegative(cacheDir, key string, ttl time.Duration) bool {
	nc, _ := readNegativeCache(NotFoundPath(cacheDir))
	entry, ok := nc.Entries[key]
	if !ok {
		return false
	}
	return time.Since(timeFromUnix(entry.CachedAt)) <= ttl
}

// AddNegative appends key to the consolidated negative cache, stamping
// its cached_at to now. The read-modify-write is serialised within this
// process by a per-cache-dir mutex; concurrent writers in other
// processes may still race and lose an entry, which is tolerated (see
// DESIGN.md) since it only costs one extra upstream call later.
func AddNegative(cacheDir, key string) error {
	mu := lockFor(cacheDir)
	mu.Lock()
	defer mu.Unlock()

	path := NotFoundPath(cacheDir)

	nc, _ := readNegativeCache(path)
	if nc.Entries == nil {
		nc.Entries = map[string]model.NegativeEntry{}
	}
	nc.Entries[key] = model.NegativeEntry{CachedAt: nowUnix()}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("not-found cache mkdir failed")
		return err
	}
	buf, err := marshalPreserveUnicode(nc)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("not-found cache marshal failed")
		return err
	}
	tmp, err := os.CreateTemp(cacheDir, ".tmp-*")
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("not-found cache write failed")
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		log.Warn().Err(err).Str("path", path).Msg("not-found cache write failed")
		return err
	}
	if err := tmp.Close(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("not-found cache write failed")
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("not-found cache rename failed")
		return err
	}
	return nil
}

// readNegativeCache loads the consolidated negative-cache file. A
// missing file is not an error: it just means nothing has been recorded
// as absent yet. Parse errors are logged at debug and treated the same
// as a missing file, per the cache-corruption error kind in spec §7.
func readNegativeCache(path string) (model.NegativeCache, error) {
	var nc model.NegativeCache
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Debug().Err(err).Str("path", path).Msg("not-found cache read failed")
		}
		return nc, nil
	}
	if err := json.Unmarshal(raw, &nc); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("not-found cache parse failed")
		return model.NegativeCache{}, nil
	}
	return nc, nil
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
