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
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "claude-haiku-4-5", cfg.Models.Cheap)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Models.Mid)
	assert.Equal(t, "claude-opus-4-5", cfg.Models.Expensive)

	assert.Equal(t, 180000, cfg.Guard.SoftLimit)
	assert.Equal(t, 200000, cfg.Guard.HardLimit)
	assert.Equal(t, 12000, cfg.Guard.BlockLimit)
	assert.Equal(t, 800, cfg.Guard.DuplicateMin)
	assert.Equal(t, 400, cfg.Guard.EnforcementOverhead)
	assert.Equal(t, "heuristic", cfg.Guard.Estimator)

	assert.Equal(t, 5, cfg.Override.DefaultTTLMinutes)
	assert.Equal(t, 60, cfg.Override.MaxTTLMinutes)

	assert.Equal(t, 2*time.Hour, cfg.Session.MemoryTTLDuration())
	assert.Equal(t, 3*time.Hour, cfg.Session.FileTTLDuration())
	assert.Equal(t, "/tmp/claude_sessions", cfg.Session.Dir)

	assert.False(t, cfg.Capture.Enabled)
	assert.Equal(t, "*", cfg.LedgerRepos)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LITELLM_CONTEXT_SOFT_LIMIT", "1000")
	t.Setenv("LITELLM_MODEL_COMPLEX", "claude-opus-next")
	t.Setenv("LITELLM_CAPTURE_REQUESTS", "true")
	t.Setenv("LITELLM_TOKEN_ESTIMATOR", "tiktoken")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Guard.SoftLimit)
	assert.Equal(t, "claude-opus-next", cfg.Models.Expensive)
	assert.True(t, cfg.Capture.Enabled)
	assert.Equal(t, "tiktoken", cfg.Guard.Estimator)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heddle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model_simple: tiny-model\noverride_max_ttl: 30\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tiny-model", cfg.Models.Cheap)
	assert.Equal(t, 30, cfg.Override.MaxTTLMinutes)
	// Untouched keys keep defaults.
	assert.Equal(t, "claude-sonnet-4-5", cfg.Models.Mid)
}

func TestModelMap(t *testing.T) {
	m := ModelMap{Cheap: "c", Mid: "m", Expensive: "e"}
	assert.Equal(t, "e", m.Model("COMPLEX"))
	assert.Equal(t, "m", m.Model("moderate"))
	assert.Equal(t, "c", m.Model("SIMPLE"))
	assert.Equal(t, "c", m.Model("garbage"))
	assert.Equal(t, "c", m.Classifier())
}

func TestLedgerApplies(t *testing.T) {
	cfg := &Config{LedgerRepos: "*"}
	assert.True(t, cfg.LedgerApplies("anything"))

	cfg.LedgerRepos = "acme, widgets"
	assert.True(t, cfg.LedgerApplies("ACME"))
	assert.True(t, cfg.LedgerApplies("widgets"))
	assert.False(t, cfg.LedgerApplies("other"))

	cfg.LedgerRepos = ""
	assert.True(t, cfg.LedgerApplies("anything"))
}
