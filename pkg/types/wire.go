// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package types contains the wire shapes shared across the heddle pipeline.
// The proxy speaks the same chat-completion protocol as the backend it
// fronts, so these types mirror the inbound request body rather than any
// provider SDK.
package types

import (
	"fmt"
	"strings"
)

// Tier is the complexity classification of a request. Tiers are mapped to
// concrete model names only at the final rewrite step, so the policy and
// caching layers stay model-name-agnostic.
type Tier string

const (
	// TierSimple routes to the cheap model.
	TierSimple Tier = "SIMPLE"
	// TierModerate routes to the mid model.
	TierModerate Tier = "MODERATE"
	// TierComplex routes to the expensive model.
	TierComplex Tier = "COMPLEX"
)

// ParseTier parses a tier name. The second result is false for anything
// outside the closed set.
func ParseTier(s string) (Tier, bool) {
	switch Tier(strings.ToUpper(strings.TrimSpace(s))) {
	case TierSimple:
		return TierSimple, true
	case TierModerate:
		return TierModerate, true
	case TierComplex:
		return TierComplex, true
	}
	return "", false
}

// CallType identifies the host call shape.
type CallType string

const (
	CallTypeCompletion        CallType = "completion"
	CallTypeACompletion       CallType = "acompletion"
	CallTypeAnthropicMessages CallType = "anthropic_messages"
)

// Completionish reports whether the pipeline routes this call type.
func (c CallType) Completionish() bool {
	switch c {
	case CallTypeCompletion, CallTypeACompletion, CallTypeAnthropicMessages:
		return true
	}
	return false
}

// Metadata keys and request_type values recognized on inbound requests.
const (
	MetaRepo        = "repo"
	MetaRepoRoot    = "repo_root"
	MetaUserID      = "user_id"
	MetaRequestType = "request_type"
	MetaRequestID   = "request_id"

	RequestTypeClassification = "classification"
	RequestTypeRepoBootstrap  = "repo_bootstrap"
)

// Finish reasons emitted on synthetic responses.
const (
	FinishStop              = "stop"
	FinishPolicyViolation   = "policy_violation"
	FinishContextExhaustion = "context_exhaustion"
)

// Message is a single conversation entry. Content is the raw decoded JSON
// value: either a string or a list of content blocks. Use Text to flatten;
// use SetText when the pipeline replaces a block with a stub.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Text flattens Content to plain text. Strings pass through; block lists
// are flattened with one block per line. Internal code never branches on
// content shape past this point.
func (m Message) Text() string {
	return flattenContent(m.Content, "\n")
}

// SetText replaces the message content with a plain string.
func (m *Message) SetText(s string) {
	m.Content = s
}

func flattenContent(content any, sep string) string {
	switch c := content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []any:
		parts := make([]string, 0, len(c))
		for _, block := range c {
			b, ok := block.(map[string]any)
			if !ok {
				parts = append(parts, fmt.Sprint(block))
				continue
			}
			switch b["type"] {
			case "text":
				if t, ok := b["text"].(string); ok {
					parts = append(parts, t)
				}
			case "tool_result":
				parts = append(parts, fmt.Sprint(b["content"]))
			default:
				parts = append(parts, fmt.Sprint(b))
			}
		}
		return strings.Join(parts, sep)
	default:
		return fmt.Sprint(content)
	}
}

// Request is the in-flight chat-completion request. The pipeline mutates
// Model, Messages, System, and Metadata; it may attach a synthetic
// response and set SkipUpstream to short-circuit the upstream call.
type Request struct {
	Model       string            `json:"model"`
	Messages    []Message         `json:"messages"`
	System      string            `json:"system,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Headers     map[string]string `json:"-"`
	CallType    CallType          `json:"-"`

	// SkipUpstream tells the host not to forward the request. Synthetic
	// carries the response to relay instead.
	SkipUpstream bool      `json:"-"`
	Synthetic    *Response `json:"-"`
}

// Meta returns the metadata value for key, or "".
func (r *Request) Meta(key string) string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata[key]
}

// SetMeta sets a metadata value, allocating the map on first use.
func (r *Request) SetMeta(key, value string) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]string)
	}
	r.Metadata[key] = value
}

// Header returns a header value by case-insensitive key.
func (r *Request) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// SetHeader sets a header value, replacing any case-insensitive match.
func (r *Request) SetHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	for k := range r.Headers {
		if strings.EqualFold(k, key) {
			delete(r.Headers, k)
		}
	}
	r.Headers[key] = value
}

// LastUserMessage extracts the text of the last user message. Block lists
// are flattened with spaces (text and tool_result blocks only), matching
// the key derivation the post-call hook re-runs on the response side.
func (r *Request) LastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role != "user" {
			continue
		}
		return FlattenUserContent(r.Messages[i].Content)
	}
	return ""
}

// FlattenUserContent flattens user message content for classification and
// side-cache keying. Unlike Message.Text it skips unknown block types.
func FlattenUserContent(content any) string {
	switch c := content.(type) {
	case string:
		return c
	case []any:
		parts := make([]string, 0, len(c))
		for _, block := range c {
			b, ok := block.(map[string]any)
			if !ok {
				continue
			}
			switch b["type"] {
			case "text":
				if t, ok := b["text"].(string); ok {
					parts = append(parts, t)
				}
			case "tool_result":
				parts = append(parts, fmt.Sprint(b["content"]))
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// Usage carries token accounting from the upstream response.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens,omitempty"`
}

// Total returns TotalTokens, deriving it as the sum when absent.
func (u Usage) Total() int {
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.InputTokens + u.OutputTokens
}

// Choice is one completion alternative.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Response is a chat-completion-shaped reply, either from upstream or
// synthesized by the pipeline.
type Response struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Text returns the first choice's message content, flattened.
func (r *Response) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Text()
}

// Synthetic builds a single-choice assistant response with the given id,
// content, and finish reason.
func Synthetic(id, content, finishReason string) *Response {
	return &Response{
		ID:     id,
		Object: "chat.completion",
		Choices: []Choice{
			{
				Index:        0,
				Message:      Message{Role: "assistant", Content: content},
				FinishReason: finishReason,
			},
		},
	}
}
