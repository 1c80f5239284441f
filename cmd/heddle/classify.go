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
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teradata-labs/heddle/pkg/classifier"
	"github.com/teradata-labs/heddle/pkg/config"
	"github.com/teradata-labs/heddle/pkg/types"
	"github.com/teradata-labs/heddle/pkg/upstream"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [prompt]",
	Short: "Classify a prompt, or sweep the labelled sample set",
	Long:  `With an argument, classifies that prompt and prints the tier. Without one, runs the labelled sample sweep against the live classifier and reports accuracy.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClassify,
}

// sweepCases are labelled prompts for eyeballing classifier drift after a
// rubric or model change.
var sweepCases = []struct {
	prompt   string
	expected types.Tier
}{
	{"What is 2+2?", types.TierSimple},
	{"Hello!", types.TierSimple},
	{"Thanks for your help", types.TierSimple},
	{"What does this error mean?", types.TierSimple},
	{"Read the file at src/main.py", types.TierSimple},
	{"Add a comment to this function", types.TierSimple},
	{"Format this code", types.TierSimple},
	{"I have this very long error message from my build process that I need you to look at and tell me what's wrong. The error says 'undefined variable foo' on line 42.", types.TierSimple},

	{"Refactor this function to use async/await", types.TierModerate},
	{"Write a unit test for the UserService class", types.TierModerate},
	{"Debug this TypeError in my React component", types.TierModerate},
	{"Explain how this authentication flow works", types.TierModerate},

	{"Design a distributed caching system for a high-traffic e-commerce platform", types.TierComplex},
	{"Plan a migration strategy from Django to FastAPI for our 50,000 line codebase", types.TierComplex},
	{"Analyze the trade-offs between microservices and monolithic architecture", types.TierComplex},
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cls := classifier.New(cfg.Models, config.ClassifierConfig{CacheTTL: 0, CacheSize: 1},
		upstream.NewClient(upstream.Config{}))

	if len(args) == 1 {
		tier := cls.Classify(cmd.Context(), args[0])
		fmt.Printf("%s → %s\n", tier, cfg.Models.Model(string(tier)))
		return nil
	}

	correct := 0
	for _, tc := range sweepCases {
		got := cls.Classify(cmd.Context(), tc.prompt)
		status := "FAIL"
		if got == tc.expected {
			status = "ok"
			correct++
		}
		preview := tc.prompt
		if len(preview) > 50 {
			preview = preview[:50] + "..."
		}
		fmt.Printf("%-4s expected=%-8s got=%-8s | %s\n", status, tc.expected, got, preview)
	}
	fmt.Printf("\naccuracy: %d/%d\n", correct, len(sweepCases))
	return nil
}
