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
package override

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/heddle/pkg/types"
)

const (
	defaultTTL = 5
	maxTTL     = 60
)

func TestParseSetCommands(t *testing.T) {
	tests := []struct {
		message string
		tier    types.Tier
		ttl     int
	}{
		{"use opus for 10 minutes, please review this plan", types.TierComplex, 10},
		{"use opus", types.TierComplex, defaultTTL},
		{"Use Opus for the next 15 minutes", types.TierComplex, 15},
		{"switch to sonnet for 30 min", types.TierModerate, 30},
		{"force haiku", types.TierSimple, defaultTTL},
		{"set sonnet for 10m", types.TierModerate, 10},
		{"please use opus for 3 m while we debug", types.TierComplex, 3},
	}
	for _, tc := range tests {
		cmd := ParseCommand(tc.message, defaultTTL, maxTTL)
		require.NotNil(t, cmd, "message: %q", tc.message)
		assert.False(t, cmd.Cancel, "message: %q", tc.message)
		assert.Equal(t, tc.tier, cmd.Tier, "message: %q", tc.message)
		assert.Equal(t, tc.ttl, cmd.TTLMinutes, "message: %q", tc.message)
	}
}

func TestParseTTLClamped(t *testing.T) {
	cmd := ParseCommand("use opus for 500 minutes", defaultTTL, maxTTL)
	require.NotNil(t, cmd)
	assert.Equal(t, maxTTL, cmd.TTLMinutes)
}

func TestParseCancelCommands(t *testing.T) {
	for _, msg := range []string{
		"cancel override",
		"cancel the override",
		"clear the model override",
		"stop complexity",
		"remove routing",
		"disable the model routing",
		"reset override please",
	} {
		cmd := ParseCommand(msg, defaultTTL, maxTTL)
		require.NotNil(t, cmd, "message: %q", msg)
		assert.True(t, cmd.Cancel, "message: %q", msg)
	}
}

func TestCancelWinsOverSet(t *testing.T) {
	cmd := ParseCommand("use opus, actually cancel the override", defaultTTL, maxTTL)
	require.NotNil(t, cmd)
	assert.True(t, cmd.Cancel)
}

func TestParseNoCommand(t *testing.T) {
	for _, msg := range []string{
		"",
		"how do I use goroutines?",
		"the opus magnum of Go",
		"remove this function",
		"set the timeout to 30 seconds",
		"use opus for 10 hours", // hours is not a supported unit; falls back to default
	} {
		cmd := ParseCommand(msg, defaultTTL, maxTTL)
		if msg == "use opus for 10 hours" {
			// Still a set command, just without a recognized duration.
			require.NotNil(t, cmd)
			assert.Equal(t, defaultTTL, cmd.TTLMinutes)
			continue
		}
		assert.Nil(t, cmd, "message: %q", msg)
	}
}

func TestParseCaseInsensitive(t *testing.T) {
	cmd := ParseCommand("USE OPUS FOR 10 MINUTES", defaultTTL, maxTTL)
	require.NotNil(t, cmd)
	assert.Equal(t, types.TierComplex, cmd.Tier)
	assert.Equal(t, 10, cmd.TTLMinutes)
}
