// Package cache implements the on-disk, content-addressed cache store
// for the taxonomy resolver: positive concept/labels entries, the
// consolidated negative-cache file, and the cache-stats scan. The format
// is a stable wire protocol shared with a peer tool (see DESIGN.md) and
// must not be reorganised.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// TTL is the cache freshness window for both positive and negative
// entries: 60 days. There is no separate eviction.
const TTL = 60 * 24 * time.Hour

// notFoundFile is the reserved basename for the consolidated negative
// cache; no positive record may ever collide with it.
const notFoundFile = "_not_found.json"

// negMu serialises read-modify-write of a given cache directory's
// _not_found.json within this process. It does not protect against
// concurrent writers in other processes (see spec §5/§9): a lost
// negative-cache entry only costs one extra upstream call later.
var negMu sync.Map // map[string]*sync.Mutex, keyed by cache dir

func lockFor(cacheDir string) *sync.Mutex {
	v, _ := negMu.LoadOrStore(cacheDir, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Path returns the cache file path for a lookup key: a pure, deterministic
// function of (cacheDir, key). hash16 is the first 16 hex characters of
// SHA-256(key); safe is the first 50 characters of key with every
// non-alphanumeric rune replaced by '_'.
func Path(cacheDir, key string) string {
	sum := sha256.Sum256([]byte(key))
	hash16 := hex.EncodeToString(sum[:])[:16]

	trimmed := key
	if len(trimmed) > 50 {
		trimmed = trimmed[:50]
	}
	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		if isAlphaNum(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return filepath.Join(cacheDir, fmt.Sprintf("%s_%s.json", b.String(), hash16))
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// cachedAtField is the minimal shape needed to check freshness without
// committing to the full record type.
type cachedAtField struct {
	CachedAt float64 `json:"_cached_at"`
}

// Load parses the JSON file at path into v and reports whether it is
// present and fresh. Any I/O or parse error, or staleness against ttl, is
// logged at debug and reported as absent — never propagated, per spec.
func Load(path string, ttl time.Duration, v any) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Debug().Err(err).Str("path", path).Msg("cache read failed")
		}
		return false
	}

	var stamp cachedAtField
	if err := json.Unmarshal(raw, &stamp); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("cache parse failed")
		return false
	}
	if time.Since(timeFromUnix(stamp.CachedAt)) > ttl {
		return false
	}

	if err := json.Unmarshal(raw, v); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("cache decode failed")
		return false
	}
	return true
}

func timeFromUnix(secs float64) time.Time {
	return time.Unix(0, int64(secs*float64(time.Second)))
}

// Stamped is implemented by payload types that carry their own
// _cached_at field, so Save can stamp it before writing.
type Stamped interface {
	SetCachedAt(now float64)
}

// Save writes v as UTF-8 JSON (non-ASCII preserved literally, 2-space
// indent) to path, creating parent directories and stamping _cached_at
// to now. The write is atomic: a temp file in the same directory is
// renamed into place so a crash never leaves a partially written cache
// file. Write errors are logged at warning and returned so callers that
// care (tests) can observe them, but the resolver itself discards them.
func Save(path string, v Stamped) error {
	v.SetCachedAt(nowUnix())

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("cache mkdir failed")
		return err
	}

	buf, err := marshalPreserveUnicode(v)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("cache marshal failed")
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("cache write failed")
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		log.Warn().Err(err).Str("path", path).Msg("cache write failed")
		return err
	}
	if err := tmp.Close(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("cache write failed")
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("cache rename failed")
		return err
	}
	return nil
}

// marshalPreserveUnicode renders v as 2-space-indented JSON without
// escaping non-ASCII runes, matching the peer tool's json.dump(...,
// ensure_ascii=False, indent=2).
func marshalPreserveUnicode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
