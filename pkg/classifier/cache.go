// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package classifier

import (
	"crypto/md5"
	"encoding/hex"
	"sync"
	"time"

	"github.com/teradata-labs/heddle/pkg/types"
)

// cacheKeyPrefixLen bounds how much of the prompt feeds the cache key, so
// huge prompts are not hashed in full.
const cacheKeyPrefixLen = 500

type cacheEntry struct {
	tier     types.Tier
	inserted time.Time
}

// Cache is a bounded TTL cache of classification results keyed by a digest
// of the prompt prefix. When full, the oldest entry is evicted.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates a cache holding at most maxSize entries for ttl each.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func hashPrompt(prompt string) string {
	if len(prompt) > cacheKeyPrefixLen {
		prompt = prompt[:cacheKeyPrefixLen]
	}
	sum := md5.Sum([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached tier for prompt if present and unexpired.
func (c *Cache) Get(prompt string) (types.Tier, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := hashPrompt(prompt)
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().Sub(e.inserted) >= c.ttl {
		delete(c.entries, key)
		return "", false
	}
	return e.tier, true
}

// Set caches the tier for prompt, evicting the oldest entry when full.
func (c *Cache) Set(prompt string, tier types.Tier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.inserted.Before(oldest) {
				oldestKey, oldest = k, e.inserted
			}
		}
		delete(c.entries, oldestKey)
	}
	c.entries[hashPrompt(prompt)] = cacheEntry{tier: tier, inserted: c.now()}
}

// Len returns the number of entries, including expired ones not yet purged.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
