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

// Package capture snapshots inbound requests to disk for offline debugging.
// Capture is opt-in and best-effort: failures are logged and never surface
// to the caller.
package capture

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/teradata-labs/heddle/internal/log"
	"github.com/teradata-labs/heddle/pkg/types"
	"go.uber.org/zap"
)

// seenLimit bounds the dedup window so long-lived processes don't grow
// without bound.
const seenLimit = 2048

// Snapshot is the on-disk record for one captured request.
type Snapshot struct {
	RequestID string            `json:"request_id"`
	Timestamp string            `json:"timestamp"`
	Model     string            `json:"model"`
	CallType  string            `json:"call_type"`
	Headers   map[string]string `json:"headers,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Messages  []types.Message   `json:"messages"`
	System    string            `json:"system,omitempty"`
}

// Capturer writes one snapshot per request id into a directory.
type Capturer struct {
	dir string

	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
}

// New returns a Capturer writing into dir, or nil when dir is empty
// (capture disabled). A nil Capturer is safe to call.
func New(dir string) *Capturer {
	if dir == "" {
		return nil
	}
	return &Capturer{
		dir:  dir,
		seen: make(map[string]struct{}),
	}
}

// Capture persists req under requestID. Repeated calls with the same id
// are no-ops, so retried requests produce a single file.
func (c *Capturer) Capture(requestID string, req *types.Request) {
	if c == nil || requestID == "" || req == nil {
		return
	}
	if !c.markSeen(requestID) {
		return
	}

	snap := Snapshot{
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Model:     req.Model,
		CallType:  string(req.CallType),
		Headers:   redactHeaders(req.Headers),
		Metadata:  req.Metadata,
		Messages:  req.Messages,
		System:    req.System,
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		log.Warn("request capture: mkdir failed", zap.String("dir", c.dir), zap.Error(err))
		return
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Warn("request capture: marshal failed", zap.String("request_id", requestID), zap.Error(err))
		return
	}
	path := filepath.Join(c.dir, requestID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Warn("request capture: write failed", zap.String("path", path), zap.Error(err))
	}
}

// markSeen records requestID and reports whether it was new. The window
// evicts oldest-first once seenLimit ids are tracked.
func (c *Capturer) markSeen(requestID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[requestID]; ok {
		return false
	}
	c.seen[requestID] = struct{}{}
	c.order = append(c.order, requestID)
	if len(c.order) > seenLimit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.seen, oldest)
	}
	return true
}

// redactHeaders copies headers, masking anything that looks like a
// credential.
func redactHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "auth") || strings.Contains(lower, "key") {
			out[k] = "[redacted]"
			continue
		}
		out[k] = v
	}
	return out
}
