// Package verify decides whether an (API key, model) pair is usable and
// caches the tri-state outcome.
package verify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/byok/internal/provider"
	"github.com/yourusername/byok/internal/store"
)

// Result is the tri-state verification outcome.
type Result string

const (
	Available   Result = "available"
	Unavailable Result = "unavailable"
	Uncertain   Result = "uncertain"
)

// KeyValidationSentinel stands in for the model id in key-validation cache keys.
const KeyValidationSentinel = "key_validation"

const (
	// TTLUnavailable is short so a corrected key or newly granted model is
	// re-checked soon.
	TTLUnavailable = time.Hour
	TTLDefault     = 24 * time.Hour
)

// TTL returns how long a result stays valid in the cache.
func (r Result) TTL() time.Duration {
	if r == Unavailable {
		return TTLUnavailable
	}
	return TTLDefault
}

// Valid reports whether r is one of the three defined results.
func (r Result) Valid() bool {
	switch r {
	case Available, Unavailable, Uncertain:
		return true
	}
	return false
}

// Entry is the persisted form of a cached result. Timestamp is in
// milliseconds since the epoch.
type Entry struct {
	Result    Result `json:"result"`
	Timestamp int64  `json:"timestamp"`
}

// HashKey returns the hex SHA-256 of the trimmed credential. Raw keys are
// never used in cache keys or logs.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

// CacheKey builds the store key for a verification result.
func CacheKey(p provider.ID, modelOrSentinel, keyHash string) string {
	return fmt.Sprintf("verification_%s_%s_%s", p, modelOrSentinel, keyHash)
}

// Cache stores verification results with result-dependent TTLs. Store
// failures are logged and treated as a miss or a no-op.
type Cache struct {
	store store.Store
	now   func() time.Time
	log   zerolog.Logger
}

// NewCache creates a cache over s. A nil now uses time.Now.
func NewCache(s store.Store, now func() time.Time, log zerolog.Logger) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{store: s, now: now, log: log}
}

func modelOrSentinel(model string) string {
	if model == "" {
		return KeyValidationSentinel
	}
	return model
}

// Get returns the cached result for (p, model, key) if present and within
// its TTL. An empty model reads the key-validation entry.
func (c *Cache) Get(ctx context.Context, p provider.ID, model, key string) (Result, bool) {
	if c == nil || c.store == nil {
		return "", false
	}
	cacheKey := CacheKey(p, modelOrSentinel(model), HashKey(key))
	entry, err := store.GetJSON[Entry](ctx, c.store, cacheKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.log.Debug().Err(err).Str("provider", string(p)).Msg("verification cache read failed")
		}
		return "", false
	}
	if !entry.Result.Valid() {
		return "", false
	}

	age := c.now().Sub(time.UnixMilli(entry.Timestamp))
	if age > entry.Result.TTL() {
		return "", false
	}
	return entry.Result, true
}

// Put records r for (p, model, key) stamped with the current time.
func (c *Cache) Put(ctx context.Context, p provider.ID, model, key string, r Result) {
	if c == nil || c.store == nil {
		return
	}
	cacheKey := CacheKey(p, modelOrSentinel(model), HashKey(key))
	entry := Entry{Result: r, Timestamp: c.now().UnixMilli()}
	if err := store.SetJSON(ctx, c.store, cacheKey, entry); err != nil {
		c.log.Debug().Err(err).Str("provider", string(p)).Msg("verification cache write failed")
	}
}
