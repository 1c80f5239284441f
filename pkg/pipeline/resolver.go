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
package pipeline

import (
	"encoding/json"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/heddle/internal/log"
	"github.com/teradata-labs/heddle/pkg/session"
	"github.com/teradata-labs/heddle/pkg/types"
)

// contextMarker flags an appended system-prompt repo marker of the form
// <!-- LITELLM_CONTEXT repo=X repo_root=Y -->.
const contextMarker = "LITELLM_CONTEXT"

// repoContext is the resolved repository scope for one request.
type repoContext struct {
	Repo      string
	RepoRoot  string
	SessionID string
}

// Scoped reports whether both fields resolved. Unscoped requests bypass
// contract loading and enforcement.
func (rc repoContext) Scoped() bool { return rc.Repo != "" && rc.RepoRoot != "" }

// resolveContext merges headers, metadata, process environment, system
// markers, and the session store into a canonical repo context, highest
// precedence first. The resolved values are written back into request
// metadata; when both fields are present the registry and session store
// are updated as a side effect.
func (s *State) resolveContext(req *types.Request) repoContext {
	apply := func(source, repo, root string, force bool) {
		applied := false
		if repo != "" && (force || req.Meta(types.MetaRepo) == "") {
			req.SetMeta(types.MetaRepo, repo)
			applied = true
		}
		if root != "" && (force || req.Meta(types.MetaRepoRoot) == "") {
			req.SetMeta(types.MetaRepoRoot, root)
			applied = true
		}
		if applied {
			log.Info("repo context resolved",
				zap.String("source", source),
				zap.String("repo", req.Meta(types.MetaRepo)),
				zap.String("repo_root", req.Meta(types.MetaRepoRoot)))
		}
	}

	// 1. Per-request headers win over everything.
	apply("headers", req.Header("x-litellm-repo"), req.Header("x-litellm-repo-root"), true)

	// 2. Request metadata is already in place; nothing to merge.

	// 3. Process environment, for hosts that can only pass env through.
	if raw := os.Getenv("CLAUDE_METADATA"); raw != "" {
		var env map[string]string
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			log.Warn("failed to parse CLAUDE_METADATA", zap.Error(err))
		} else {
			apply("env", env[types.MetaRepo], env[types.MetaRepoRoot], false)
		}
	}

	// 4. Appended system-prompt marker.
	if repo, root, ok := markerContext(req); ok {
		apply("system_marker", repo, root, false)
	}

	// 5. Credential-helper smuggling: "<repo>::<real-token>" in the
	// bearer token. The outgoing header keeps only the real token.
	s.splitAuthToken(req, apply)

	// 6. Session store, memory first then disk.
	sessionID := session.ExtractID(req.Meta(types.MetaUserID))
	if req.Meta(types.MetaRepo) == "" || req.Meta(types.MetaRepoRoot) == "" {
		if sessionID != "" {
			if ctx, ok := s.sessions.Get(sessionID); ok {
				apply("session_cache", ctx.Repo, ctx.RepoRoot, false)
			} else if ctx, ok := s.sessions.LoadFromDisk(sessionID); ok {
				apply("session_file", ctx.Repo, ctx.RepoRoot, false)
				s.sessions.Put(sessionID, ctx)
			}
		}
	}

	rc := repoContext{
		Repo:      req.Meta(types.MetaRepo),
		RepoRoot:  req.Meta(types.MetaRepoRoot),
		SessionID: sessionID,
	}

	if rc.Scoped() {
		if err := s.registry.Register(rc.Repo, rc.RepoRoot); err != nil {
			log.Warn("implicit repo registration failed",
				zap.String("repo", rc.Repo), zap.Error(err))
		}
		if sessionID != "" {
			s.sessions.Put(sessionID, session.Context{Repo: rc.Repo, RepoRoot: rc.RepoRoot})
		}
	}
	return rc
}

// markerContext scans the top-level system field and any system or user
// message for the context marker. Claude-style append-system-prompt text
// can arrive in a user message, hence the wider scan.
func markerContext(req *types.Request) (repo, root string, ok bool) {
	candidates := make([]string, 0, 4)
	if req.System != "" {
		candidates = append(candidates, req.System)
	}
	for _, msg := range req.Messages {
		if msg.Role != "system" && msg.Role != "user" {
			continue
		}
		if text, isStr := msg.Content.(string); isStr && strings.Contains(text, contextMarker) {
			candidates = append(candidates, text)
		}
	}

	for _, text := range candidates {
		if !strings.Contains(text, contextMarker) {
			continue
		}
		cleaned := strings.NewReplacer("<!--", "", "-->", "").Replace(text)
		for _, field := range strings.Fields(cleaned) {
			if v, found := strings.CutPrefix(field, "repo="); found {
				repo = v
			} else if v, found := strings.CutPrefix(field, "repo_root="); found {
				root = v
			}
		}
		if repo != "" && root != "" {
			return repo, root, true
		}
		log.Debug("context marker present but incomplete")
	}
	return "", "", false
}

// splitAuthToken implements the "<repo>::<real-token>" credential-helper
// convention: the repo prefix fills in a missing repo, and the header is
// rewritten so the upstream only ever sees the real token.
func (s *State) splitAuthToken(req *types.Request, apply func(source, repo, root string, force bool)) {
	auth := req.Header("authorization")
	if auth == "" || !strings.Contains(auth, "::") {
		return
	}
	scheme, token, found := strings.Cut(auth, " ")
	if !found {
		scheme, token = "", auth
	}
	repo, realToken, _ := strings.Cut(token, "::")
	if repo != "" {
		apply("auth_token", repo, "", false)
	}
	if realToken != "" {
		cleaned := realToken
		if scheme != "" {
			cleaned = scheme + " " + realToken
		}
		req.SetHeader("authorization", cleaned)
	}
}
