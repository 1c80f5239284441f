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
// Package session ties client session identities to repository context.
//
// The store is two-tier: a TTL-bounded in-memory cache backed by JSON files
// on disk, so repo context survives proxy restarts for the lifetime of a
// session. Disk files expire by mtime and are rewritten when a lookup finds
// them stale.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/heddle/internal/csync"
	"github.com/teradata-labs/heddle/internal/log"
	"github.com/teradata-labs/heddle/pkg/config"
)

// IDInfix is the literal separating the account prefix from the session id
// in metadata.user_id.
const IDInfix = "account__session_"

// ExtractID returns the session id embedded in a user_id, or "".
func ExtractID(userID string) string {
	if userID == "" {
		return ""
	}
	if _, after, found := strings.Cut(userID, IDInfix); found {
		return after
	}
	return ""
}

// SanitizeID reduces a session id to the characters allowed in a disk file
// name. Returns "" when nothing survives.
func SanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Context is the repo identity bound to a session.
type Context struct {
	Repo     string `json:"repo"`
	RepoRoot string `json:"repo_root"`
}

type fileBody struct {
	Repo      string `json:"repo"`
	RepoRoot  string `json:"repo_root"`
	Timestamp string `json:"timestamp"`
}

// Store is the session store. Safe for concurrent use; the only guarantee
// is last-write-wins per session.
type Store struct {
	cfg     config.SessionConfig
	memory  *csync.TTLMap[string, Context]
	history *csync.Map[string, Context]
}

// NewStore creates a session store rooted at cfg.Dir.
func NewStore(cfg config.SessionConfig) *Store {
	return &Store{
		cfg:     cfg,
		memory:  csync.NewTTLMap[string, Context](cfg.MemoryTTLDuration()),
		history: csync.NewMap[string, Context](),
	}
}

// Put stores the session context in memory, records it in the history
// backstop, and writes it through to disk. Incomplete contexts are dropped.
func (s *Store) Put(sessionID string, ctx Context) {
	if sessionID == "" || ctx.Repo == "" {
		return
	}
	s.memory.Set(sessionID, ctx)
	s.history.Set(sessionID, ctx)
	if err := s.writeFile(sessionID, ctx); err != nil {
		log.Warn("session file write failed",
			zap.String("session", sessionID), zap.Error(err))
	}
}

// Get returns the live in-memory context for sessionID.
func (s *Store) Get(sessionID string) (Context, bool) {
	if sessionID == "" {
		return Context{}, false
	}
	return s.memory.Get(sessionID)
}

// LoadFromDisk resolves the session context from the disk file. A missing
// file is rewritten from the in-memory history backstop when possible; an
// expired file is rewritten in place so subsequent requests skip disk I/O.
func (s *Store) LoadFromDisk(sessionID string) (Context, bool) {
	if sessionID == "" {
		return Context{}, false
	}
	safe := SanitizeID(sessionID)
	if safe == "" {
		log.Warn("session id sanitized to nothing", zap.String("raw", sessionID))
		return Context{}, false
	}

	path := filepath.Join(s.cfg.Dir, safe+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if ctx, ok := s.history.Get(sessionID); ok && ctx.Repo != "" && ctx.RepoRoot != "" {
			log.Info("session file missing, rewriting from history",
				zap.String("session", sessionID))
			if werr := s.writeFile(sessionID, ctx); werr != nil {
				log.Warn("session file rewrite failed", zap.Error(werr))
			}
			return ctx, true
		}
		return Context{}, false
	}

	var body fileBody
	if err := json.Unmarshal(raw, &body); err != nil {
		log.Warn("session file unreadable",
			zap.String("session", sessionID), zap.Error(err))
		return Context{}, false
	}
	if body.Repo == "" || body.RepoRoot == "" {
		log.Warn("session file missing repo data", zap.String("session", sessionID))
		return Context{}, false
	}

	ctx := Context{Repo: body.Repo, RepoRoot: body.RepoRoot}
	s.history.Set(sessionID, ctx)

	if ttl := s.cfg.FileTTLDuration(); ttl > 0 {
		if info, err := os.Stat(path); err == nil && time.Since(info.ModTime()) > ttl {
			log.Info("session file expired, rewriting", zap.String("session", sessionID))
			if werr := s.writeFile(sessionID, ctx); werr != nil {
				log.Warn("session file refresh failed", zap.Error(werr))
			}
		}
	}
	return ctx, true
}

// writeFile persists the session context as a JSON file named after the
// sanitized session id.
func (s *Store) writeFile(sessionID string, ctx Context) error {
	if sessionID == "" || ctx.Repo == "" || ctx.RepoRoot == "" {
		return nil
	}
	safe := SanitizeID(sessionID)
	if safe == "" {
		return nil
	}
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	body := fileBody{
		Repo:      ctx.Repo,
		RepoRoot:  ctx.RepoRoot,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	raw, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.cfg.Dir, safe+".json"), raw, 0o644)
}

// SweepDisk removes session files whose mtime is past the file TTL.
// Returns the number of files removed.
func (s *Store) SweepDisk() int {
	ttl := s.cfg.FileTTLDuration()
	if ttl <= 0 {
		return 0
	}
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > ttl {
			if err := os.Remove(filepath.Join(s.cfg.Dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		log.Info("swept expired session files", zap.Int("removed", removed))
	}
	return removed
}
