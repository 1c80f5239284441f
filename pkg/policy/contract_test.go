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
package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRepo(t *testing.T, readme, agents string) string {
	t.Helper()
	root := t.TempDir()
	if readme != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte(readme), 0o644))
	}
	if agents != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, "AGENTS.md"), []byte(agents), 0o644))
	}
	return root
}

func TestLoaderGet(t *testing.T) {
	root := writeRepo(t, "# Acme\nreadme body", "agents body")
	l := NewLoader()
	defer func() { _ = l.Close() }()

	contract := l.Get(root)
	assert.Equal(t, "# Acme\nreadme body", contract.Readme)
	assert.Equal(t, "agents body", contract.Agents)
	assert.Contains(t, contract.Text, "# Policy Contract")
	assert.Contains(t, contract.Text, "## README.md")
	assert.Contains(t, contract.Text, "## AGENTS.md")
	assert.Len(t, contract.Hash, 16)
	assert.Regexp(t, "^[0-9a-f]{16}$", contract.Hash)
}

func TestLoaderMissingFiles(t *testing.T) {
	root := t.TempDir()
	l := NewLoader()
	defer func() { _ = l.Close() }()

	contract := l.Get(root)
	assert.Empty(t, contract.Readme)
	assert.Empty(t, contract.Agents)
	// An empty contract still has a stable hash.
	assert.Len(t, contract.Hash, 16)
}

func TestLoaderHashChangesWithContent(t *testing.T) {
	l := NewLoader()
	defer func() { _ = l.Close() }()

	a := l.Get(writeRepo(t, "one", ""))
	b := l.Get(writeRepo(t, "two", ""))
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestLoaderCaches(t *testing.T) {
	root := writeRepo(t, "original", "")
	l := NewLoader()
	defer func() { _ = l.Close() }()

	first := l.Get(root)
	second := l.Get(root)
	assert.Equal(t, first.Hash, second.Hash)
}

func TestLoadEmptyRoot(t *testing.T) {
	contract := load("")
	assert.Len(t, contract.Hash, 16)
	assert.Empty(t, contract.Readme)
}
