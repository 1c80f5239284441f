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
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/heddle/internal/log"
	"github.com/teradata-labs/heddle/pkg/session"
	"github.com/teradata-labs/heddle/pkg/types"
)

// spanName is the single telemetry span emitted per completed request.
const spanName = "litellm.request"

// contentAttrLimit caps prompt/completion content on the span.
const contentAttrLimit = 500

// PostCallInfo carries what the host observed around the upstream call.
type PostCallInfo struct {
	Request  *types.Request
	Response *types.Response
	Start    time.Time
	End      time.Time
}

// PostCall runs after a successful upstream response: it recovers the
// stashed metadata bundle, augments it with usage and latency, and emits
// one telemetry span. Telemetry failure never surfaces to the caller.
func (s *State) PostCall(ctx context.Context, info PostCallInfo) {
	if info.Request == nil || info.Response == nil {
		return
	}

	userMessage := info.Request.LastUserMessage()
	var bundle map[string]string
	if key, ok := sideKey(userMessage); ok {
		bundle, _ = s.sideCache.Get(key)
	} else {
		log.Warn("no user message for side-cache lookup")
	}

	// The span carries live request metadata overlaid with the stashed
	// bundle; the bundle wins because hosts may strip or rewrite the
	// metadata map on the way through the upstream call.
	merged := make(map[string]string, len(info.Request.Metadata)+len(bundle))
	for k, v := range info.Request.Metadata {
		merged[k] = v
	}
	for k, v := range bundle {
		merged[k] = v
	}
	if merged["environment"] == "" {
		repo := merged[types.MetaRepo]
		if repo == "" {
			repo = "unscoped"
		}
		merged["environment"] = repo
		merged["router"] = routerName
	}

	latencyMS := info.End.Sub(info.Start).Milliseconds()
	s.metrics.UpstreamLatency.Observe(info.End.Sub(info.Start).Seconds())

	attrs := make(map[string]any, len(merged)+12)
	for k, v := range merged {
		if v == "" {
			continue
		}
		attrs["litellm."+k] = v
	}
	attrs["litellm.latency_ms"] = latencyMS

	if usage := info.Response.Usage; usage != nil {
		attrs["gen_ai.usage.input_tokens"] = usage.InputTokens
		attrs["gen_ai.usage.output_tokens"] = usage.OutputTokens
		attrs["llm.response.total_tokens"] = usage.Total()
	}

	attrs["gen_ai.operation.name"] = orDefault(merged["gen_ai_operation"], "chat")
	attrs["gen_ai.system"] = orDefault(merged["gen_ai_system"], "anthropic")
	if routed := merged["routed_to_model"]; routed != "" {
		attrs["gen_ai.request.model"] = routed
		attrs["gen_ai.response.model"] = routed
	}
	if userMessage != "" {
		attrs["gen_ai.prompt.0.role"] = "user"
		attrs["gen_ai.prompt.0.content"] = truncateContent(userMessage)
	}
	if responseText := info.Response.Text(); responseText != "" {
		attrs["gen_ai.completion.0.role"] = "assistant"
		attrs["gen_ai.completion.0.content"] = truncateContent(responseText)
	}

	log.Debug("emitting request span",
		zap.String("request_id", merged[types.MetaRequestID]),
		zap.String("session_id", session.IDFromContext(ctx)),
		zap.Int64("latency_ms", latencyMS))
	s.sink.EmitSpan(ctx, spanName, attrs)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func truncateContent(text string) string {
	return truncateUTF8(text, contentAttrLimit)
}
