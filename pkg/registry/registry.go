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
// Package registry maps logical repository names to repository roots so the
// proxy can resolve repo context without assuming filesystem layout.
package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/teradata-labs/heddle/internal/csync"
	"github.com/teradata-labs/heddle/internal/log"
)

// Registry is a process-wide map of repo name to resolved root path.
// Registration is idempotent; last write wins.
type Registry struct {
	repos *csync.Map[string, string]
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{repos: csync.NewMap[string, string]()}
}

// Register validates that root exists and stores its absolute path under
// repo. Registering the same pair twice is a no-op.
func (r *Registry) Register(repo, root string) error {
	if repo == "" || root == "" {
		return fmt.Errorf("registry: repo and root are both required")
	}
	abs, err := filepath.Abs(expandHome(root))
	if err != nil {
		return fmt.Errorf("registry: resolving %s: %w", root, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("registry: repo_root does not exist: %s", root)
	}
	if existing, ok := r.repos.Get(repo); ok && existing == abs {
		return nil
	}
	r.repos.Set(repo, abs)
	log.Info("registered repo", zap.String("repo", repo), zap.String("root", abs))
	return nil
}

// Resolve returns the registered root for repo, or "" when unknown.
func (r *Registry) Resolve(repo string) string {
	root, _ := r.repos.Get(repo)
	return root
}

// Len returns the number of registered repos.
func (r *Registry) Len() int { return r.repos.Len() }

func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
