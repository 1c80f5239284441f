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
package override

import (
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/heddle/internal/csync"
	"github.com/teradata-labs/heddle/internal/log"
	"github.com/teradata-labs/heddle/pkg/types"
)

type entry struct {
	tier       types.Tier
	expires    time.Time
	ttlMinutes int
}

// Store keeps per-session complexity overrides with individual TTLs.
// Expired entries are purged lazily on access.
type Store struct {
	entries *csync.Map[string, entry]
	now     func() time.Time
}

// NewStore creates an empty override store.
func NewStore() *Store {
	return &Store{
		entries: csync.NewMap[string, entry](),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Set stores an override for sessionID lasting ttlMinutes.
func (s *Store) Set(sessionID string, tier types.Tier, ttlMinutes int) {
	if sessionID == "" {
		log.Warn("override without session id dropped")
		return
	}
	expires := s.now().Add(time.Duration(ttlMinutes) * time.Minute)
	s.entries.Set(sessionID, entry{tier: tier, expires: expires, ttlMinutes: ttlMinutes})
	log.Info("complexity override set",
		zap.String("session", sessionID),
		zap.String("tier", string(tier)),
		zap.Int("ttl_minutes", ttlMinutes))
	s.purge()
}

// Get returns the live override tier for sessionID.
func (s *Store) Get(sessionID string) (types.Tier, bool) {
	if sessionID == "" {
		return "", false
	}
	e, ok := s.entries.Get(sessionID)
	if !ok {
		return "", false
	}
	if e.expires.Before(s.now()) {
		s.entries.Delete(sessionID)
		log.Info("complexity override expired", zap.String("session", sessionID))
		return "", false
	}
	return e.tier, true
}

// Cancel removes any override for sessionID, reporting whether one existed.
func (s *Store) Cancel(sessionID string) bool {
	if sessionID == "" {
		return false
	}
	if _, ok := s.entries.Get(sessionID); !ok {
		return false
	}
	s.entries.Delete(sessionID)
	log.Info("complexity override cancelled", zap.String("session", sessionID))
	return true
}

// Remaining reports the seconds until the override for sessionID expires,
// or 0 when none is active.
func (s *Store) Remaining(sessionID string) int {
	e, ok := s.entries.Get(sessionID)
	if !ok || e.expires.Before(s.now()) {
		return 0
	}
	return int(e.expires.Sub(s.now()).Seconds())
}

func (s *Store) purge() {
	now := s.now()
	var stale []string
	for id, e := range s.entries.Seq2() {
		if e.expires.Before(now) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		s.entries.Delete(id)
	}
}
