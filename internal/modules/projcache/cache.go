// Package projcache caches projection results keyed by a fingerprint of the
// portfolio version and the requested date range. Cache failures are never
// fatal: every error degrades to a direct computation.
package projcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/orend/fincast/internal/domain"
	"github.com/orend/fincast/internal/utils"
)

// Store persists serialized projection results by fingerprint
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, payload []byte, expiresAt time.Time) error
	Prune(now time.Time) (int, error)
}

// Cache wraps a Store with fingerprinting, serialization and TTL handling
type Cache struct {
	store Store
	ttl   time.Duration
	log   zerolog.Logger
}

// New creates a cache with the given entry lifetime
func New(store Store, ttl time.Duration, log zerolog.Logger) *Cache {
	return &Cache{
		store: store,
		ttl:   ttl,
		log:   log.With().Str("service", "projcache").Logger(),
	}
}

// fingerprintPayload is the canonical input to the cache key. The portfolio
// version stands in for the full entity set: any data change bumps it.
type fingerprintPayload struct {
	UserID  string `msgpack:"user_id"`
	Version int64  `msgpack:"version"`
	Start   string `msgpack:"start"`
	End     string `msgpack:"end"`
	AsOf    string `msgpack:"as_of"`
}

// Fingerprint derives the cache key for a portfolio and date range
func Fingerprint(p *domain.Portfolio, start, end, asOf time.Time) (string, error) {
	payload := fingerprintPayload{
		UserID:  p.UserID,
		Version: p.Version,
		Start:   utils.FormatMonth(start),
		End:     utils.FormatMonth(end),
	}
	if !asOf.IsZero() {
		payload.AsOf = utils.FormatMonth(asOf)
	}

	encoded, err := msgpack.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode fingerprint payload: %w", err)
	}

	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// Fingerprint derives the cache key for a portfolio and date range.
// Method form of the package function, for callers holding a *Cache.
func (c *Cache) Fingerprint(p *domain.Portfolio, start, end, asOf time.Time) (string, error) {
	return Fingerprint(p, start, end, asOf)
}

// Get returns the cached result for a key, or nil on miss.
// Store and decode errors are logged and reported as misses.
func (c *Cache) Get(key string) *domain.ProjectionResult {
	payload, found, err := c.store.Get(key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, computing directly")
		return nil
	}
	if !found {
		return nil
	}

	var result domain.ProjectionResult
	if err := msgpack.Unmarshal(payload, &result); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache entry corrupt, computing directly")
		return nil
	}

	result.FromCache = true
	return &result
}

// Put stores a result under a key. Failures are logged and swallowed.
func (c *Cache) Put(key string, result *domain.ProjectionResult) {
	payload, err := msgpack.Marshal(result)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to encode projection result for cache")
		return
	}

	if err := c.store.Set(key, payload, time.Now().Add(c.ttl)); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// Prune removes expired entries
func (c *Cache) Prune() (int, error) {
	return c.store.Prune(time.Now())
}
