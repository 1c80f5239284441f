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
	"context"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teradata-labs/heddle/internal/log"
	"github.com/teradata-labs/heddle/pkg/contextguard"
	"github.com/teradata-labs/heddle/pkg/override"
	"github.com/teradata-labs/heddle/pkg/policy"
	"github.com/teradata-labs/heddle/pkg/session"
	"github.com/teradata-labs/heddle/pkg/types"
)

// fastPathMaxChars is the exclusive upper bound under which a trimmed user
// message skips the classifier and routes SIMPLE.
const fastPathMaxChars = 20

// PreCall runs the pre-upstream stages on req, mutating it in place. When
// a stage short-circuits, req.SkipUpstream is set and req.Synthetic holds
// the response to relay; the request must then not be forwarded. The
// returned request is always req itself.
func (s *State) PreCall(ctx context.Context, req *types.Request) (*types.Request, error) {
	requestID := req.Meta(types.MetaRequestID)
	if requestID == "" {
		u := uuid.New()
		requestID = hex.EncodeToString(u[:])[:12]
		req.SetMeta(types.MetaRequestID, requestID)
	}
	req.SetMeta("router_build_id", s.buildID)
	log.Info("request start",
		zap.String("request_id", requestID),
		zap.String("call_type", string(req.CallType)),
		zap.String("build", s.buildID))

	rc := s.resolveContext(req)
	ctx = session.WithID(ctx, rc.SessionID)

	// Recursion break: the classifier's own call must pass through before
	// any other stage runs, because it can share a model with routed
	// traffic.
	if req.Meta(types.MetaRequestType) == types.RequestTypeClassification {
		log.Debug("classification call, passing through", zap.String("request_id", requestID))
		return req, nil
	}

	s.capturer.Capture(requestID, req)

	if req.Meta(types.MetaRequestType) == types.RequestTypeRepoBootstrap {
		s.bootstrap(req, rc)
		return req, nil
	}

	if !req.CallType.Completionish() {
		log.Debug("skipping non-completion call type", zap.String("call_type", string(req.CallType)))
		return req, nil
	}

	guardRes := s.guard.Apply(req)
	if guardRes.Trimmed {
		s.metrics.ContextTrims.Inc()
	}
	if guardRes.Refused {
		s.metrics.ContextRefusals.Inc()
		return req, nil
	}

	userMessage := req.LastUserMessage()

	var reminder string
	if rc.Scoped() && s.cfg.LedgerApplies(rc.Repo) {
		var alert string
		reminder, alert = contextguard.LedgerReminder(rc.Repo, guardRes)
		if alert != "" {
			req.SetMeta("ledger_alert", alert)
		}
	}

	var contract policy.Contract
	if rc.Scoped() {
		contract = s.contracts.Get(rc.RepoRoot)
		if reason := policy.DetectViolation(userMessage); reason != "" {
			s.refusePolicy(req, contract, reason)
			return req, nil
		}
		s.injectEnforcement(req, contract, reminder)
	}

	tier, overrideActive, overrideRemaining := s.classify(ctx, rc.SessionID, userMessage)
	originalModel := req.Model
	req.Model = s.cfg.Models.Model(string(tier))
	s.metrics.Classifications.WithLabelValues(string(tier)).Inc()

	bundle := s.assembleMetadata(req, rc, contract, tier, originalModel, userMessage,
		reminder != "", overrideActive, overrideRemaining)
	for k, v := range bundle {
		req.SetMeta(k, v)
	}
	if key, ok := sideKey(userMessage); ok {
		s.sideCache.Set(key, bundle)
	} else {
		log.Warn("no user message for side-cache key", zap.String("request_id", requestID))
	}

	preview := userMessage
	if len(preview) > 50 {
		preview = preview[:50] + "..."
	}
	log.Info("routed",
		zap.String("request_id", requestID),
		zap.String("classification", string(tier)),
		zap.String("model", req.Model),
		zap.String("prompt", preview))
	return req, nil
}

// bootstrap handles request_type=repo_bootstrap: persist the session
// context and answer synthetically without an upstream call. Registration
// already happened during context resolution.
func (s *State) bootstrap(req *types.Request, rc repoContext) {
	log.Info("repo bootstrap",
		zap.String("repo", rc.Repo), zap.String("repo_root", rc.RepoRoot))

	// Some clients omit model on bootstrap calls; default it so the
	// request parses consistently downstream.
	if req.Model == "" {
		req.Model = s.cfg.Models.Classifier()
	}
	if rc.SessionID != "" && rc.Repo != "" {
		s.sessions.Put(rc.SessionID, session.Context{Repo: rc.Repo, RepoRoot: rc.RepoRoot})
	}
	req.Synthetic = types.Synthetic("repo_bootstrap", "Repository registered successfully.", types.FinishStop)
	req.SkipUpstream = true
}

// refusePolicy attaches the synthetic policy refusal. The model field is
// preserved: the upstream validates model names eagerly even on requests
// that are never forwarded.
func (s *State) refusePolicy(req *types.Request, contract policy.Contract, reason string) {
	log.Info("policy violation detected", zap.String("reason", reason))
	s.metrics.PolicyRefusals.Inc()

	req.SetMeta("policy_violation", "true")
	req.SetMeta("contract_hash", contract.Hash)
	req.SetMeta("violation_reason", truncateValue(reason))

	req.Synthetic = types.Synthetic("policy_violation",
		policy.RefusalMessage(contract.Hash, reason), types.FinishPolicyViolation)
	req.SkipUpstream = true
}

// injectEnforcement sets the top-level system field to the enforcement
// preamble, prepending the ledger reminder when present and preserving
// any caller-supplied system text after a separator. System-role entries
// inside messages are dropped: the upstream rejects them alongside a
// top-level system field.
func (s *State) injectEnforcement(req *types.Request, contract policy.Contract, reminder string) {
	enforcement := policy.EnforcementMessage(contract.Hash)
	if reminder != "" {
		enforcement = reminder + "\n\n" + enforcement
	}
	if req.System != "" {
		req.System = enforcement + "\n\n---\n\n" + req.System
	} else {
		req.System = enforcement
	}

	kept := req.Messages[:0]
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			continue
		}
		kept = append(kept, msg)
	}
	req.Messages = kept
}

// classify decides the tier: override command, active override, fast
// path, then cache/upstream classifier. It also reports whether an
// override drove the decision and its remaining seconds.
func (s *State) classify(ctx context.Context, sessionID, userMessage string) (types.Tier, bool, int) {
	if sessionID != "" && userMessage != "" {
		if cmd := override.ParseCommand(userMessage,
			s.cfg.Override.DefaultTTLMinutes, s.cfg.Override.MaxTTLMinutes); cmd != nil {
			if cmd.Cancel {
				s.overrides.Cancel(sessionID)
			} else {
				s.overrides.Set(sessionID, cmd.Tier, cmd.TTLMinutes)
			}
		}
	}

	if sessionID != "" {
		if tier, ok := s.overrides.Get(sessionID); ok {
			return tier, true, s.overrides.Remaining(sessionID)
		}
	}

	if userMessage == "" {
		return types.TierSimple, false, 0
	}
	if len(strings.TrimSpace(userMessage)) < fastPathMaxChars {
		return types.TierSimple, false, 0
	}
	return s.classifier.Classify(ctx, userMessage), false, 0
}
