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
// Package csync provides concurrent data structures.
package csync

import (
	"iter"
	"sync"
	"time"
)

// Map is a concurrent-safe map. The only cross-goroutine guarantee is
// last-write-wins per key.
type Map[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

// NewMap creates a new concurrent map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		data: make(map[K]V),
	}
}

// Get retrieves a value from the map.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

// Set stores a value in the map.
func (m *Map[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// Delete removes a value from the map.
func (m *Map[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Seq2 returns an iterator over key-value pairs.
func (m *Map[K, V]) Seq2() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		m.mu.RLock()
		defer m.mu.RUnlock()
		for k, v := range m.data {
			if !yield(k, v) {
				return
			}
		}
	}
}

// Clear clears the map.
func (m *Map[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[K]V)
}

// ttlEntry pairs a value with its expiry instant.
type ttlEntry[V any] struct {
	value   V
	expires time.Time
}

// TTLMap is a concurrent-safe map whose entries expire after a fixed
// duration. Expired entries are purged lazily on access.
type TTLMap[K comparable, V any] struct {
	mu   sync.Mutex
	data map[K]ttlEntry[V]
	ttl  time.Duration
	now  func() time.Time
}

// NewTTLMap creates a TTL map with the given entry lifetime. A non-positive
// ttl disables expiry.
func NewTTLMap[K comparable, V any](ttl time.Duration) *TTLMap[K, V] {
	return &TTLMap[K, V]{
		data: make(map[K]ttlEntry[V]),
		ttl:  ttl,
		now:  time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (m *TTLMap[K, V]) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Get returns the live value for key, purging it if expired.
func (m *TTLMap[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[key]
	if !ok {
		var zero V
		return zero, false
	}
	if m.expired(e) {
		delete(m.data, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with a fresh TTL and opportunistically purges
// expired siblings.
func (m *TTLMap[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expires time.Time
	if m.ttl > 0 {
		expires = m.now().Add(m.ttl)
	}
	m.data[key] = ttlEntry[V]{value: value, expires: expires}
	for k, e := range m.data {
		if k != key && m.expired(e) {
			delete(m.data, k)
		}
	}
}

// Delete removes key. Returns true if a live entry was removed.
func (m *TTLMap[K, V]) Delete(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[key]
	delete(m.data, key)
	return ok && !m.expired(e)
}

// Len returns the number of entries, including not-yet-purged expired ones.
func (m *TTLMap[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Remaining reports the time until key expires. Zero when the key is absent,
// expired, or has no expiry.
func (m *TTLMap[K, V]) Remaining(key K) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[key]
	if !ok || e.expires.IsZero() || m.expired(e) {
		return 0
	}
	return e.expires.Sub(m.now())
}

func (m *TTLMap[K, V]) expired(e ttlEntry[V]) bool {
	return !e.expires.IsZero() && e.expires.Before(m.now())
}
