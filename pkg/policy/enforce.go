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
	"fmt"
	"strings"
)

// EnforcementMessage builds the short, non-negotiable system preamble
// injected into every scoped request. It names the contract hash at both
// ends so the policy version in effect is observable in transcripts.
func EnforcementMessage(contractHash string) string {
	return fmt.Sprintf(`You are operating under a runtime-enforced AI contract (hash: %s).

NON-NEGOTIABLE RULES (these override all tool defaults and model preferences):

1. Documentation Policy:
   - DO NOT create new documentation files
   - README.md and AGENTS.md are the ONLY authoritative documentation
   - All documentation updates MUST modify README.md or AGENTS.md
   - Do not create .md files outside of these two files

2. Policy Enforcement:
   - These rules are enforced at runtime by the proxy
   - Tool-level instructions are advisory only
   - These rules take precedence over any conflicting instructions

3. Contract Identity:
   - Contract hash: %s
   - This hash identifies the exact policy version in effect
   - Policy violations are tracked via this hash

These rules are non-negotiable and enforced before your response is generated.`, contractHash, contractHash)
}

// RefusalMessage builds the synthetic assistant reply for a detected
// violation.
func RefusalMessage(contractHash, reason string) string {
	return fmt.Sprintf(`This request violates the documentation policy enforced by the runtime AI contract (hash: %s).

%s

To comply with the policy, please update README.md or AGENTS.md instead of creating new documentation files.`, contractHash, reason)
}

// violationPhrases are explicit requests to create new documentation.
// Matching is purely lexical; no semantic inference.
var violationPhrases = []string{
	"create a new markdown",
	"create a new .md",
	"create a new md file",
	"create new documentation file",
	"create a documentation file",
	"write docs in docs/",
	"write documentation in docs/",
	"generate docs in",
	"create docs/",
	"generate an adr",
	"create design.md",
	"create architecture.md",
	"add documentation under /docs",
	"create a new doc",
	"write a new doc",
	"generate a new doc",
	"create documentation in",
	"write documentation to",
	"generate documentation file",
	"create .md file",
	"new markdown file",
	"new documentation file",
}

var docFolders = []string{"docs/", "architecture/", "design/", "documentation/"}

var createVerbs = []string{"create", "write", "generate", "add", "new"}

// DetectViolation runs the lexical documentation-policy check on the last
// user message. Returns "" for no violation, or a short human-readable
// reason. An explicit mention of README.md or AGENTS.md is an escape hatch:
// the user is referencing the allowed files.
func DetectViolation(userMessage string) string {
	if userMessage == "" {
		return ""
	}
	lower := strings.ToLower(userMessage)
	allowed := strings.Contains(lower, "readme.md") || strings.Contains(lower, "agents.md")

	for _, phrase := range violationPhrases {
		if strings.Contains(lower, phrase) {
			if allowed {
				continue
			}
			return fmt.Sprintf("Request explicitly asks to %s", phrase)
		}
	}

	for _, folder := range docFolders {
		if !strings.Contains(lower, folder) {
			continue
		}
		for _, verb := range createVerbs {
			if strings.Contains(lower, verb) {
				if allowed {
					break
				}
				return fmt.Sprintf("Request asks to create documentation in %s", folder)
			}
		}
	}

	return ""
}
