// Package cache provides the result cache for scan outcomes: a
// fingerprint-keyed TTL map with single-flight computation, optionally
// backed by a shared Redis store.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sentinelsec/sentinel/pkg/detect"
)

// Fingerprint derives the cache key for a unit of content. Direction
// and content type are part of the key: the same text scanned as input
// prose and as output code are different cache entries.
func Fingerprint(direction, contentType, text string) string {
	h := sha256.New()
	h.Write([]byte(direction))
	h.Write([]byte{0})
	h.Write([]byte(contentType))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

type entry struct {
	result    *detect.ScanResult
	expiresAt time.Time
	storedAt  time.Time
}

// ResultCache caches scan results by fingerprint. Concurrent callers
// asking for the same uncached fingerprint share one computation.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	maxSize int
	group   singleflight.Group
	store   Store // optional shared store, nil when not configured
}

// Options configures a ResultCache.
type Options struct {
	TTL     time.Duration
	MaxSize int   // in-process entry cap; oldest entry evicted at capacity
	Store   Store // optional write-through shared store
}

// New creates a ResultCache.
func New(opts Options) *ResultCache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &ResultCache{
		entries: make(map[string]*entry),
		ttl:     ttl,
		maxSize: maxSize,
		store:   opts.Store,
	}
}

// GetOrCompute returns the cached result for fingerprint, or runs
// compute exactly once across concurrent callers and caches its result.
// The second return reports whether the result came from cache. The
// returned ScanResult is a copy the caller may mutate.
func (c *ResultCache) GetOrCompute(ctx context.Context, fingerprint string, compute func(context.Context) (*detect.ScanResult, error)) (*detect.ScanResult, bool, error) {
	if res := c.lookup(fingerprint); res != nil {
		return res, true, nil
	}

	type outcome struct {
		result *detect.ScanResult
		hit    bool
	}
	v, err, _ := c.group.Do(fingerprint, func() (interface{}, error) {
		// A concurrent caller may have filled the entry while this
		// call waited its turn in the group.
		if res := c.lookup(fingerprint); res != nil {
			return outcome{result: res, hit: true}, nil
		}
		if c.store != nil {
			if res, err := c.store.Get(ctx, fingerprint); err != nil {
				log.Printf("[WARN] cache store get failed, computing locally: %v", err)
			} else if res != nil {
				c.put(fingerprint, res)
				return outcome{result: res, hit: true}, nil
			}
		}

		res, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.put(fingerprint, res)
		if c.store != nil {
			if err := c.store.Set(ctx, fingerprint, res, c.ttl); err != nil {
				log.Printf("[WARN] cache store set failed: %v", err)
			}
		}
		return outcome{result: res}, nil
	})
	if err != nil {
		return nil, false, err
	}
	o := v.(outcome)
	return o.result.Clone(), o.hit, nil
}

// lookup returns a copy of a live entry, or nil. Expired entries are
// dropped lazily on access.
func (c *ResultCache) lookup(fingerprint string) *detect.ScanResult {
	c.mu.RLock()
	e, ok := c.entries[fingerprint]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[fingerprint]; ok && cur == e {
			delete(c.entries, fingerprint)
		}
		c.mu.Unlock()
		return nil
	}
	return e.result.Clone()
}

func (c *ResultCache) put(fingerprint string, res *detect.ScanResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.entries[fingerprint] = &entry{
		result:    res.Clone(),
		expiresAt: time.Now().Add(c.ttl),
		storedAt:  time.Now(),
	}
}

func (c *ResultCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.storedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.storedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Len returns the number of in-process entries, expired included.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops all in-process entries.
func (c *ResultCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}
