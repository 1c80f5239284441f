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
// Package policy loads per-repository policy contracts and enforces the
// documentation policy on scoped requests.
//
// A contract is the composition of the repository's README.md and AGENTS.md
// identified by the first 16 hex chars of its SHA-256. Missing files read as
// empty strings, never errors: an empty contract still yields a stable hash.
package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teradata-labs/heddle/internal/csync"
	"github.com/teradata-labs/heddle/internal/log"
)

// Contract is the composed policy document for one repository root.
type Contract struct {
	Readme string
	Agents string
	Text   string
	// Hash is the first 16 lowercase hex chars of sha256(Text).
	Hash string
}

// Loader caches contracts per repo root. When the root's README.md or
// AGENTS.md changes on disk the cached contract is dropped, so the next
// scoped request re-reads and re-hashes.
type Loader struct {
	cache   *csync.Map[string, Contract]
	watcher *fsnotify.Watcher
}

// NewLoader creates a contract loader. File watching is best-effort: if the
// watcher cannot be created, contracts are simply cached for process
// lifetime, matching load-once semantics.
func NewLoader() *Loader {
	l := &Loader{cache: csync.NewMap[string, Contract]()}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("contract watcher unavailable, caching for process lifetime", zap.Error(err))
		return l
	}
	l.watcher = watcher
	go l.watch()
	return l
}

// Get returns the contract for repoRoot, loading and caching it on first
// use.
func (l *Loader) Get(repoRoot string) Contract {
	if contract, ok := l.cache.Get(repoRoot); ok {
		return contract
	}
	contract := load(repoRoot)
	l.cache.Set(repoRoot, contract)
	if l.watcher != nil && repoRoot != "" {
		// Watch the directory, not the files: editors replace files on
		// save and per-file watches die with the inode.
		if err := l.watcher.Add(repoRoot); err != nil {
			log.Debug("contract watch failed", zap.String("root", repoRoot), zap.Error(err))
		}
	}
	log.Info("policy contract loaded",
		zap.String("root", repoRoot), zap.String("hash", contract.Hash))
	return contract
}

// Close releases the file watcher.
func (l *Loader) Close() error {
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

func (l *Loader) watch() {
	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if name != "README.md" && name != "AGENTS.md" {
				continue
			}
			root := filepath.Dir(event.Name)
			l.cache.Delete(root)
			log.Info("policy contract invalidated",
				zap.String("root", root), zap.String("file", name))
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("contract watcher error", zap.Error(err))
		}
	}
}

func load(repoRoot string) Contract {
	var readme, agents string
	if repoRoot != "" {
		readme = readOptional(filepath.Join(repoRoot, "README.md"))
		agents = readOptional(filepath.Join(repoRoot, "AGENTS.md"))
	}
	text := fmt.Sprintf("# Policy Contract\n\n## README.md\n%s\n\n## AGENTS.md\n%s\n", readme, agents)
	sum := sha256.Sum256([]byte(text))
	return Contract{
		Readme: readme,
		Agents: agents,
		Text:   text,
		Hash:   hex.EncodeToString(sum[:])[:16],
	}
}

func readOptional(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("contract file unreadable", zap.String("path", path), zap.Error(err))
		}
		return ""
	}
	return string(raw)
}
