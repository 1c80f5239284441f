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
package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTier(t *testing.T) {
	tier, ok := ParseTier("complex")
	require.True(t, ok)
	assert.Equal(t, TierComplex, tier)

	tier, ok = ParseTier("  SIMPLE ")
	require.True(t, ok)
	assert.Equal(t, TierSimple, tier)

	_, ok = ParseTier("EXTREME")
	assert.False(t, ok)
}

func TestMessageText_BlockList(t *testing.T) {
	var msg Message
	raw := `{"role":"user","content":[{"type":"text","text":"part one"},{"type":"text","text":"part two"}]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	assert.Equal(t, "part one\npart two", msg.Text())
}

func TestMessageText_String(t *testing.T) {
	msg := Message{Role: "user", Content: "plain"}
	assert.Equal(t, "plain", msg.Text())

	msg.SetText("replaced")
	assert.Equal(t, "replaced", msg.Text())
}

func TestFlattenUserContent(t *testing.T) {
	var msg Message
	raw := `{"role":"user","content":[{"type":"text","text":"look at"},{"type":"tool_result","content":"output here"},{"type":"image","source":{}}]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	// User flattening joins with spaces and skips unknown block types.
	assert.Equal(t, "look at output here", FlattenUserContent(msg.Content))
}

func TestLastUserMessage(t *testing.T) {
	req := &Request{Messages: []Message{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "answer"},
		{Role: "user", Content: "second"},
		{Role: "assistant", Content: "done"},
	}}
	assert.Equal(t, "second", req.LastUserMessage())

	empty := &Request{Messages: []Message{{Role: "assistant", Content: "hi"}}}
	assert.Equal(t, "", empty.LastUserMessage())
}

func TestHeaderCaseInsensitive(t *testing.T) {
	req := &Request{Headers: map[string]string{"X-Litellm-Repo": "acme"}}
	assert.Equal(t, "acme", req.Header("x-litellm-repo"))

	req.SetHeader("x-litellm-repo", "other")
	assert.Equal(t, "other", req.Header("X-LITELLM-REPO"))
	assert.Len(t, req.Headers, 1)
}

func TestUsageTotal(t *testing.T) {
	assert.Equal(t, 30, Usage{InputTokens: 10, OutputTokens: 20}.Total())
	assert.Equal(t, 99, Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 99}.Total())
}

func TestSynthetic(t *testing.T) {
	resp := Synthetic("policy_violation", "refused", FinishPolicyViolation)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "assistant", resp.Choices[0].Message.Role)
	assert.Equal(t, "refused", resp.Text())
	assert.Equal(t, FinishPolicyViolation, resp.Choices[0].FinishReason)
	assert.Equal(t, "chat.completion", resp.Object)
}

func TestCallTypeCompletionish(t *testing.T) {
	assert.True(t, CallTypeCompletion.Completionish())
	assert.True(t, CallTypeAnthropicMessages.Completionish())
	assert.False(t, CallType("embeddings").Completionish())
}
