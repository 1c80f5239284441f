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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectViolation_Phrases(t *testing.T) {
	violations := []string{
		"please create a new markdown file for the API",
		"Generate an ADR for this decision",
		"could you write documentation in docs/ for me",
		"create architecture.md describing the system",
		"we need a new documentation file",
	}
	for _, msg := range violations {
		assert.NotEmpty(t, DetectViolation(msg), "message: %q", msg)
	}
}

func TestDetectViolation_FolderHeuristic(t *testing.T) {
	assert.NotEmpty(t, DetectViolation("please create a new markdown file under docs/design/"))
	assert.NotEmpty(t, DetectViolation("add a summary page in documentation/"))
	assert.NotEmpty(t, DetectViolation("write an overview into architecture/"))

	// Folder mention without a creation verb is fine.
	assert.Empty(t, DetectViolation("what lives in docs/ today?"))
}

func TestDetectViolation_EscapeHatch(t *testing.T) {
	// Naming README.md or AGENTS.md signals the allowed files.
	assert.Empty(t, DetectViolation("create a new markdown section inside README.md"))
	assert.Empty(t, DetectViolation("write documentation in docs/README.md"))
	assert.Empty(t, DetectViolation("update AGENTS.md and create a new doc section there"))
}

func TestDetectViolation_Clean(t *testing.T) {
	for _, msg := range []string{
		"",
		"refactor the parser package",
		"what is the capital of France?",
		"add a unit test for the session store",
	} {
		assert.Empty(t, DetectViolation(msg), "message: %q", msg)
	}
}

func TestEnforcementMessage(t *testing.T) {
	msg := EnforcementMessage("deadbeefcafe0123")
	// The hash appears at both ends so transcripts show the policy version.
	assert.Equal(t, 2, strings.Count(msg, "deadbeefcafe0123"))
	assert.Contains(t, msg, "NON-NEGOTIABLE")
	assert.Contains(t, msg, "README.md")
	assert.Contains(t, msg, "AGENTS.md")
}

func TestRefusalMessage(t *testing.T) {
	msg := RefusalMessage("deadbeefcafe0123", "Request asks to create documentation in docs/")
	assert.Contains(t, msg, "deadbeefcafe0123")
	assert.Contains(t, msg, "Request asks to create documentation in docs/")
	assert.Contains(t, msg, "README.md or AGENTS.md")
}
