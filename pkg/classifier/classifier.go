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
// Package classifier assigns a complexity tier to prompts.
//
// Classification asks the cheap model to apply a fixed rubric: code writing
// goes to the mid tier, architecture and multi-step planning to the
// expensive tier, everything else stays cheap. SIMPLE is the safe default
// throughout because misclassifying up is cheaper than down-then-retry.
package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/heddle/internal/log"
	"github.com/teradata-labs/heddle/pkg/config"
	"github.com/teradata-labs/heddle/pkg/types"
)

// classifyPromptLimit truncates the user message sent to the classifier;
// the rubric needs the gist, not the full code.
const classifyPromptLimit = 2000

// classifierMaxTokens bounds the classifier response to a single word.
const classifierMaxTokens = 10

// rubric is the deterministic classification prompt.
const rubric = `You are a task complexity classifier. Your job is to route requests to the appropriate model based on task type.

**IMPORTANT:**
- Code writing tasks → MODERATE (the mid model performs better for code)
- Architectural/engineering tasks → COMPLEX (the expensive model for multi-step planning)
- Everything else → SIMPLE (the cheap model for non-code tasks)

## Classification Rules:

### SIMPLE (non-code tasks)
- Greetings, thanks, confirmations, acknowledgments
- Simple questions ("What is X?", "How do I Y?")
- Documentation lookup and explanations
- Reading/summarizing files
- Configuration file edits
- Tool result processing (just reading output)
- Simple syntax questions
- **Long prompts with simple non-code requests** (context length ≠ complexity)

### MODERATE (code writing tasks)
- Writing functions, methods, classes
- Implementing features and functionality
- Code refactoring (single file or related files)
- Debugging code issues
- Writing unit tests and test cases
- API integrations and implementations
- Code reviews requiring detailed feedback
- Database query writing and optimization
- Writing scripts and automation
- **Any task that involves writing or modifying code**

### COMPLEX (architectural/engineering tasks)
- System architecture design from scratch
- Multi-step planning across multiple systems/components
- Complex migrations between frameworks/languages/platforms
- Security audits and vulnerability analysis requiring deep analysis
- Performance optimization requiring architectural decisions
- Trade-off analysis between multiple architectural approaches
- Building entirely new systems/features requiring planning
- **Tasks requiring extensive multi-step planning and architectural thinking**

## User Request:
%s

## Decision Process:
1. Is this a code writing task? → MODERATE
2. Is this architectural/engineering/multi-step planning? → COMPLEX
3. Is this a simple non-code task? → SIMPLE
4. When uncertain between SIMPLE and MODERATE → SIMPLE
5. When uncertain between MODERATE and COMPLEX → MODERATE

Respond with ONLY one word: SIMPLE, MODERATE, or COMPLEX

Classification:`

// Upstream is the chat-completion endpoint the classifier calls. It is the
// same endpoint the proxy fronts; the request carries
// request_type=classification so the pipeline does not recurse into it.
type Upstream interface {
	Complete(ctx context.Context, req *types.Request) (*types.Response, error)
}

// Classifier decides the complexity tier for prompts, consulting the cache
// before calling the cheap model.
type Classifier struct {
	models   config.ModelMap
	upstream Upstream
	cache    *Cache
}

// New creates a classifier backed by upstream.
func New(models config.ModelMap, cc config.ClassifierConfig, upstream Upstream) *Classifier {
	return &Classifier{
		models:   models,
		upstream: upstream,
		cache:    NewCache(cc.CacheSize, time.Duration(cc.CacheTTL)*time.Second),
	}
}

// Cache exposes the classification cache for inspection.
func (c *Classifier) Cache() *Cache { return c.cache }

// Classify returns the tier for prompt. Any upstream failure or malformed
// output degrades to SIMPLE; the error is logged, never propagated.
func (c *Classifier) Classify(ctx context.Context, prompt string) types.Tier {
	if tier, ok := c.cache.Get(prompt); ok {
		log.Debug("classification cache hit", zap.String("tier", string(tier)))
		return tier
	}

	truncated := prompt
	if len(truncated) > classifyPromptLimit {
		truncated = truncated[:classifyPromptLimit]
	}

	temp := 0.0
	req := &types.Request{
		Model: c.models.Classifier(),
		Messages: []types.Message{
			{Role: "user", Content: fmt.Sprintf(rubric, truncated)},
		},
		MaxTokens:   classifierMaxTokens,
		Temperature: &temp,
		Metadata: map[string]string{
			types.MetaRequestType: types.RequestTypeClassification,
		},
		CallType: types.CallTypeCompletion,
	}

	resp, err := c.upstream.Complete(ctx, req)
	if err != nil {
		log.Warn("classification failed, defaulting to SIMPLE", zap.Error(err))
		return types.TierSimple
	}

	tier := parseTierResponse(resp.Text())
	c.cache.Set(prompt, tier)
	return tier
}

// parseTierResponse accepts only the three tier words. A response merely
// containing one of them is honored, checked cheapest-first; anything else
// is SIMPLE.
func parseTierResponse(text string) types.Tier {
	result := strings.ToUpper(strings.TrimSpace(text))
	if line, _, found := strings.Cut(result, "\n"); found {
		result = strings.TrimSpace(line)
	}
	if tier, ok := types.ParseTier(result); ok {
		return tier
	}
	for _, tier := range []types.Tier{types.TierSimple, types.TierModerate, types.TierComplex} {
		if strings.Contains(result, string(tier)) {
			return tier
		}
	}
	log.Warn("unclear classification, defaulting to SIMPLE", zap.String("raw", result))
	return types.TierSimple
}
