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
// Package override lets users pin the complexity routing for their session.
//
// A message like "use opus for the next 10 minutes" forces COMPLEX routing
// until the TTL expires or the user cancels with "clear the override".
// Command detection is a small token scanner so the accepted grammar stays
// explicit.
package override

import (
	"strconv"
	"strings"

	"github.com/teradata-labs/heddle/pkg/types"
)

// Command is a parsed override instruction found in a user message.
type Command struct {
	// Cancel clears any active override.
	Cancel bool
	// Tier is the forced classification for set commands.
	Tier types.Tier
	// TTLMinutes is the requested lifetime, already defaulted and clamped.
	TTLMinutes int
}

var setVerbs = map[string]bool{"use": true, "force": true, "set": true}
var cancelVerbs = map[string]bool{
	"cancel": true, "clear": true, "stop": true,
	"remove": true, "disable": true, "reset": true,
}
var cancelNouns = map[string]bool{"override": true, "routing": true, "complexity": true}

var modelTiers = map[string]types.Tier{
	"opus":   types.TierComplex,
	"sonnet": types.TierModerate,
	"haiku":  types.TierSimple,
}

// ParseCommand scans message for an override command. Cancel commands win
// over set commands. Returns nil when no command is present. defaultTTL and
// maxTTL are in minutes.
func ParseCommand(message string, defaultTTL, maxTTL int) *Command {
	if message == "" {
		return nil
	}
	words := tokenize(message)

	if scanCancel(words) {
		return &Command{Cancel: true}
	}

	for i := 0; i < len(words); i++ {
		verbLen := setVerbLen(words, i)
		if verbLen == 0 {
			continue
		}
		modelIdx := i + verbLen
		if modelIdx >= len(words) {
			continue
		}
		tier, ok := modelTiers[words[modelIdx]]
		if !ok {
			continue
		}
		ttl := defaultTTL
		if n, ok := scanDuration(words, modelIdx+1); ok {
			ttl = n
		}
		if ttl > maxTTL {
			ttl = maxTTL
		}
		return &Command{Tier: tier, TTLMinutes: ttl}
	}
	return nil
}

// setVerbLen reports how many tokens the set verb at position i spans:
// 1 for use/force/set, 2 for "switch to", 0 for no verb.
func setVerbLen(words []string, i int) int {
	if setVerbs[words[i]] {
		return 1
	}
	if words[i] == "switch" && i+1 < len(words) && words[i+1] == "to" {
		return 2
	}
	return 0
}

// scanCancel looks for verb [the] [model] (override|routing|complexity).
func scanCancel(words []string) bool {
	for i, w := range words {
		if !cancelVerbs[w] {
			continue
		}
		j := i + 1
		if j < len(words) && words[j] == "the" {
			j++
		}
		if j < len(words) && words[j] == "model" {
			j++
		}
		if j < len(words) && cancelNouns[words[j]] {
			return true
		}
	}
	return false
}

// scanDuration matches an optional duration clause starting at position i:
// (for|during) [the next] N (m|min|mins|minute|minutes), with the unit
// either its own token or attached to the number ("10m").
func scanDuration(words []string, i int) (int, bool) {
	if i >= len(words) || (words[i] != "for" && words[i] != "during") {
		return 0, false
	}
	i++
	if i+1 < len(words) && words[i] == "the" && words[i+1] == "next" {
		i += 2
	}
	if i >= len(words) {
		return 0, false
	}

	numTok := words[i]
	digits := numTok
	unit := ""
	for j, r := range numTok {
		if r < '0' || r > '9' {
			digits, unit = numTok[:j], numTok[j:]
			break
		}
	}
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	if unit == "" {
		if i+1 >= len(words) {
			return 0, false
		}
		unit = words[i+1]
	}
	switch unit {
	case "m", "min", "mins", "minute", "minutes":
		return n, true
	}
	return 0, false
}

func tokenize(message string) []string {
	fields := strings.Fields(strings.ToLower(message))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:()\"'")
		if f != "" {
			words = append(words, f)
		}
	}
	return words
}
