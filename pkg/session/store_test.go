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
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/heddle/pkg/config"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(config.SessionConfig{
		MemoryTTL: 3600,
		Dir:       t.TempDir(),
		FileTTL:   3600,
	})
}

func TestExtractID(t *testing.T) {
	assert.Equal(t, "abc123", ExtractID("account__session_abc123"))
	assert.Equal(t, "xyz", ExtractID("team-1-account__session_xyz"))
	assert.Equal(t, "", ExtractID("no-session-marker"))
	assert.Equal(t, "", ExtractID(""))
}

func TestSanitizeID(t *testing.T) {
	assert.Equal(t, "abc-123_x.y", SanitizeID("abc-123_x.y"))
	assert.Equal(t, "abc", SanitizeID("a/b\\c"))
	assert.Equal(t, "", SanitizeID("///"))
	assert.Equal(t, "..", SanitizeID("../"))
}

func TestPutGet(t *testing.T) {
	s := testStore(t)
	s.Put("sess1", Context{Repo: "acme", RepoRoot: "/tmp/acme"})

	got, ok := s.Get("sess1")
	require.True(t, ok)
	assert.Equal(t, "acme", got.Repo)
	assert.Equal(t, "/tmp/acme", got.RepoRoot)

	_, ok = s.Get("other")
	assert.False(t, ok)
}

func TestPutWritesFile(t *testing.T) {
	s := testStore(t)
	s.Put("sess1", Context{Repo: "acme", RepoRoot: "/tmp/acme"})

	raw, err := os.ReadFile(filepath.Join(s.cfg.Dir, "sess1.json"))
	require.NoError(t, err)

	var body fileBody
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "acme", body.Repo)
	assert.Equal(t, "/tmp/acme", body.RepoRoot)

	ts, err := time.Parse(time.RFC3339, body.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}

func TestLoadFromDisk(t *testing.T) {
	s := testStore(t)
	s.Put("sess1", Context{Repo: "acme", RepoRoot: "/tmp/acme"})

	// Fresh store sharing the directory simulates a proxy restart.
	restarted := NewStore(s.cfg)
	_, ok := restarted.Get("sess1")
	assert.False(t, ok)

	got, ok := restarted.LoadFromDisk("sess1")
	require.True(t, ok)
	assert.Equal(t, "acme", got.Repo)
}

func TestLoadFromDiskMissingRewritesFromHistory(t *testing.T) {
	s := testStore(t)
	s.Put("sess1", Context{Repo: "acme", RepoRoot: "/tmp/acme"})

	path := filepath.Join(s.cfg.Dir, "sess1.json")
	require.NoError(t, os.Remove(path))

	got, ok := s.LoadFromDisk("sess1")
	require.True(t, ok)
	assert.Equal(t, "acme", got.Repo)

	// The file came back.
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadFromDiskBadFile(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.Dir, "bad.json"), []byte("{not json"), 0o644))

	_, ok := s.LoadFromDisk("bad")
	assert.False(t, ok)
}

func TestLoadFromDiskExpiredRefreshesMtime(t *testing.T) {
	s := testStore(t)
	s.Put("sess1", Context{Repo: "acme", RepoRoot: "/tmp/acme"})

	path := filepath.Join(s.cfg.Dir, "sess1.json")
	old := time.Now().Add(-2 * s.cfg.FileTTLDuration())
	require.NoError(t, os.Chtimes(path, old, old))

	_, ok := s.LoadFromDisk("sess1")
	require.True(t, ok)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), info.ModTime(), time.Minute)
}

func TestSweepDisk(t *testing.T) {
	s := testStore(t)
	s.Put("fresh", Context{Repo: "a", RepoRoot: "/tmp/a"})
	s.Put("stale", Context{Repo: "b", RepoRoot: "/tmp/b"})

	stalePath := filepath.Join(s.cfg.Dir, "stale.json")
	old := time.Now().Add(-2 * s.cfg.FileTTLDuration())
	require.NoError(t, os.Chtimes(stalePath, old, old))

	assert.Equal(t, 1, s.SweepDisk())

	_, err := os.Stat(stalePath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(s.cfg.Dir, "fresh.json"))
	assert.NoError(t, err)
}
