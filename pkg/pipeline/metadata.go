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
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/teradata-labs/heddle/internal/log"
	"github.com/teradata-labs/heddle/pkg/policy"
	"github.com/teradata-labs/heddle/pkg/types"
)

const (
	// sideKeyPrefixLen is how much of the last user message feeds the
	// side-cache key.
	sideKeyPrefixLen = 200
	// metaValueLimit caps every stringified metadata value.
	metaValueLimit = 200
)

// sideKey derives the side-cache key from the last user message: md5 of
// its first 200 characters, first 16 hex chars. The post-call hook
// recomputes the same key from the forwarded request, so the bundle
// survives hosts that strip custom fields. Collisions only misattribute
// a telemetry event, never routing.
func sideKey(userMessage string) (string, bool) {
	if userMessage == "" {
		return "", false
	}
	prefix := userMessage
	if len(prefix) > sideKeyPrefixLen {
		prefix = prefix[:sideKeyPrefixLen]
	}
	sum := md5.Sum([]byte(prefix))
	return hex.EncodeToString(sum[:])[:16], true
}

// assembleMetadata builds the flat observability bundle attached to the
// outgoing request and stashed for the post-call hook. Keys are reduced
// to alphanumerics and underscores; values are stringified and truncated.
func (s *State) assembleMetadata(req *types.Request, rc repoContext, contract policy.Contract,
	tier types.Tier, originalModel, userMessage string,
	ledgerActive, overrideActive bool, overrideRemaining int,
) map[string]string {
	environment := rc.Repo
	if environment == "" && rc.RepoRoot != "" {
		environment = filepath.Base(rc.RepoRoot)
	}
	if environment == "" {
		environment = "unscoped"
	}

	repoValue := rc.Repo
	if repoValue == "" {
		repoValue = "unscoped"
	}

	policyEnforced := "false"
	if contract.Hash != "" {
		policyEnforced = "true"
	}

	ledgerAlert := req.Meta("ledger_alert")
	if ledgerAlert == "" {
		ledgerAlert = "none"
	}

	raw := map[string]string{
		"environment":               environment,
		"complexity_classification": string(tier),
		"original_model_requested":  originalModel,
		"routed_to_model":           req.Model,
		"router":                    routerName,
		"prompt_length":             strconv.Itoa(len(userMessage)),
		"repo":                      repoValue,
		"repo_root":                 rc.RepoRoot,
		"gen_ai_system":             "anthropic",
		"gen_ai_operation":          "chat",
		"contract_hash":             contract.Hash,
		"policy_enforced":           policyEnforced,
		"request_id":                req.Meta(types.MetaRequestID),
		"ledger_alert":              ledgerAlert,
		"ledger_reminder_active":    strconv.FormatBool(ledgerActive),

		"complexity_override_active":            strconv.FormatBool(overrideActive),
		"complexity_override_remaining_seconds": strconv.Itoa(overrideRemaining),
	}

	sanitized := make(map[string]string, len(raw))
	for key, value := range raw {
		cleanKey := sanitizeKey(key)
		if cleanKey != key {
			log.Warn("metadata key sanitized",
				zap.String("from", key), zap.String("to", cleanKey))
		}
		sanitized[cleanKey] = truncateValue(value)
	}
	return sanitized
}

func sanitizeKey(key string) string {
	out := make([]rune, 0, len(key))
	for _, r := range key {
		if r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
		}
	}
	return string(out)
}

func truncateValue(value string) string {
	return truncateUTF8(value, metaValueLimit)
}

// truncateUTF8 caps s at limit bytes, backing up so the cut never splits
// a multi-byte rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
