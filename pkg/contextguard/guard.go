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
// Package contextguard protects the upstream model from context-window
// exhaustion.
//
// The guard makes two passes over the message list. The first fingerprints
// large blocks to suppress duplicates and caps oversized blocks with a
// stub. The second trims whole messages, oldest first, when the request
// still exceeds the soft token limit, never touching system messages or
// the last user message. A request that exceeds the hard limit even after
// trimming is refused outright with a synthetic response.
package contextguard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/heddle/internal/log"
	"github.com/teradata-labs/heddle/pkg/config"
	"github.com/teradata-labs/heddle/pkg/types"
)

// DuplicateStub replaces a block whose text was already seen this request.
const DuplicateStub = "[[Duplicate context removed at proxy; reference earlier block]]"

// FatalRefusal is the synthetic assistant reply when trimming cannot bring
// the request under the hard limit.
const FatalRefusal = "This request exceeds the proxy's context capacity even after automatic trimming. " +
	"Please summarize earlier files or send smaller chunks before retrying."

// Risk levels reported in metadata.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
	RiskFatal  = "fatal"
)

// Result summarizes what the guard did to one request.
type Result struct {
	Refused      bool
	TotalTokens  int
	Trimmed      bool
	TrimmedCount int
	Duplicates   int
	LargeBlocks  int
	Risk         string
}

// Intervened reports whether the guard changed or flagged the request in a
// way the ledger reminder should surface.
func (r Result) Intervened() bool {
	return r.Trimmed || r.Duplicates > 0 || r.LargeBlocks > 0 ||
		r.Risk == RiskMedium || r.Risk == RiskHigh
}

// Guard applies the context-exhaustion thresholds.
type Guard struct {
	cfg      config.GuardConfig
	estimate Estimator
}

// New creates a guard. A nil estimator selects HeuristicEstimator.
func New(cfg config.GuardConfig, estimate Estimator) *Guard {
	if estimate == nil {
		estimate = HeuristicEstimator
	}
	return &Guard{cfg: cfg, estimate: estimate}
}

// Apply runs both passes over req.Messages, mutating blocks and the message
// list in place. On fatal refusal it attaches the synthetic response and
// sets SkipUpstream; in all cases it records the guard outcome in request
// metadata.
func (g *Guard) Apply(req *types.Request) Result {
	var res Result
	total := g.cfg.EnforcementOverhead
	seen := make(map[string]struct{})

	// Pass 1: duplicate fingerprinting and per-block caps.
	for i := range req.Messages {
		text := req.Messages[i].Text()
		blockTokens := g.estimate(text)

		if text != "" && blockTokens >= g.cfg.DuplicateMin {
			sum := sha256.Sum256([]byte(text))
			digest := hex.EncodeToString(sum[:])
			if _, dup := seen[digest]; dup {
				res.Duplicates++
				req.Messages[i].SetText(DuplicateStub)
				text = DuplicateStub
				blockTokens = g.estimate(text)
			} else {
				seen[digest] = struct{}{}
			}
		}

		if text != "" && blockTokens > g.cfg.BlockLimit {
			res.LargeBlocks++
			stub := fmt.Sprintf("[[Block suppressed: %d tokens exceeded %d. Please summarize upstream.]]",
				blockTokens, g.cfg.BlockLimit)
			req.Messages[i].SetText(stub)
			blockTokens = g.estimate(stub)
		}

		total += blockTokens
	}

	// Pass 2: trim whole messages, in encounter order, sparing system
	// messages and the last user message.
	if total > g.cfg.SoftLimit {
		lastUser := -1
		for i, msg := range req.Messages {
			if msg.Role == "user" {
				lastUser = i
			}
		}
		remove := make(map[int]struct{})
		for i, msg := range req.Messages {
			if total <= g.cfg.SoftLimit {
				break
			}
			if msg.Role == "system" || i == lastUser {
				continue
			}
			remove[i] = struct{}{}
			total -= g.estimate(msg.Text())
		}
		if len(remove) > 0 {
			kept := req.Messages[:0]
			for i, msg := range req.Messages {
				if _, gone := remove[i]; !gone {
					kept = append(kept, msg)
				}
			}
			req.Messages = kept
			res.Trimmed = true
			res.TrimmedCount = len(remove)
		}
	}

	res.TotalTokens = total

	if total > g.cfg.HardLimit {
		res.Refused = true
		res.Risk = RiskFatal
		req.Synthetic = types.Synthetic("context_exhaustion", FatalRefusal, types.FinishContextExhaustion)
		req.SkipUpstream = true
		g.record(req, res)
		log.Warn("context guard refused request",
			zap.Int("tokens", total), zap.Int("hard_limit", g.cfg.HardLimit))
		return res
	}

	switch {
	case g.cfg.SoftLimit > 0 && total >= g.cfg.SoftLimit:
		res.Risk = RiskHigh
	case g.cfg.SoftLimit > 0 && float64(total)/float64(g.cfg.SoftLimit) >= 0.8:
		res.Risk = RiskMedium
	default:
		res.Risk = RiskLow
	}
	g.record(req, res)

	log.Info("context guard",
		zap.Int("tokens", total),
		zap.Int("trimmed", res.TrimmedCount),
		zap.Int("duplicates", res.Duplicates),
		zap.String("risk", res.Risk))
	return res
}

func (g *Guard) record(req *types.Request, res Result) {
	req.SetMeta("context_tokens_estimated", strconv.Itoa(res.TotalTokens))
	req.SetMeta("context_trimmed", strconv.FormatBool(res.Trimmed))
	req.SetMeta("context_trimmed_count", strconv.Itoa(res.TrimmedCount))
	req.SetMeta("duplicate_blocks_detected", strconv.Itoa(res.Duplicates))
	req.SetMeta("large_blocks_suppressed", strconv.Itoa(res.LargeBlocks))
	req.SetMeta("exhaustion_risk", res.Risk)
}

// LedgerAlertReason stamps metadata when the reminder fires.
const LedgerAlertReason = "context_guard"

// LedgerReminder builds the textual reminder prepended to the enforcement
// system message for repos under ledger enforcement. The second result is
// the alert reason, non-empty only when the guard intervened.
func LedgerReminder(repo string, res Result) (string, string) {
	lines := []string{
		"Before working, rehydrate from README.md → Session Recovery Ledger.",
		"After any plan change / major decision / checkpoint, update README and AGENTS immediately.",
	}
	alert := ""
	if res.Intervened() {
		alert = LedgerAlertReason
		lines = append(lines,
			"Context guard intervened on this request. Summarize current progress in README before continuing.")
	}
	return fmt.Sprintf("LEDGER REMINDER (%s):\n- %s", repo, strings.Join(lines, "\n- ")), alert
}
