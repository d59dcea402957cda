// Package cache holds analysis results in a size-bounded LRU with per-entry
// expiry, keyed by content hashes.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Key hashes the given parts into a cache key. Parts are length-prefixed so
// ("ab","c") and ("a","bc") differ.
func Key(parts ...[]byte) string {
	h := sha256.New()
	var size [8]byte
	for _, p := range parts {
		n := uint64(len(p))
		for i := range size {
			size[i] = byte(n >> (8 * i))
		}
		h.Write(size[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// LRU is safe for concurrent use. Expired entries are dropped in the
// background and are never returned by Get.
type LRU struct {
	lru *expirable.LRU[string, any]
}

// New returns an LRU holding at most capacity entries, each living ttl.
// A zero ttl means entries never expire; a capacity below 1 disables caching.
func New(capacity int, ttl time.Duration) *LRU {
	if capacity < 1 {
		return &LRU{}
	}
	return &LRU{lru: expirable.NewLRU[string, any](capacity, nil, ttl)}
}

// Get returns the value for key if present and not expired.
func (c *LRU) Get(key string) (any, bool) {
	if c.lru == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

// Set stores value under key, evicting the least recently used entry when full.
func (c *LRU) Set(key string, value any) {
	if c.lru == nil {
		return
	}
	c.lru.Add(key, value)
}

// Len returns the number of stored entries.
func (c *LRU) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
